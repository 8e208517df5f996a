package core

import (
	"strings"
	"testing"
)

func TestValidate_AccumulatesEveryViolation(t *testing.T) {
	raw := tenantConfig("a.com")
	delete(raw, "domain")
	raw["mode"] = "staging"
	raw["id"] = 0

	result := Validate(raw, TenantSchema())
	if result.OK() {
		t.Fatalf("expected validation errors")
	}
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d: %+v", len(result.Errors), result.Errors)
	}
	want := []string{"id", "mode", "domain"}
	for i, field := range want {
		if result.Errors[i].Field != field {
			t.Fatalf("expected error %d on %q, got %q", i, field, result.Errors[i].Field)
		}
	}
	if _, ok := result.Validated["domain"]; ok {
		t.Fatalf("expected missing domain to be excluded from validated output")
	}
	if _, ok := result.Validated["node"]; !ok {
		t.Fatalf("expected valid fields to remain in validated output")
	}
}

func TestValidate_RequiredRejectsBlankStrings(t *testing.T) {
	schema := Schema{Field("name", StringRule(1, 10).Require())}
	for _, value := range []any{nil, "", "   "} {
		result := Validate(map[string]any{"name": value}, schema)
		if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Message, "is required") {
			t.Fatalf("expected required error for %#v, got %+v", value, result.Errors)
		}
	}
}

func TestValidate_OptionalMissingFieldIsOmitted(t *testing.T) {
	schema := Schema{Field("log_capped", BooleanRule())}
	result := Validate(map[string]any{}, schema)
	if !result.OK() {
		t.Fatalf("expected no errors, got %+v", result.Errors)
	}
	if len(result.Validated) != 0 {
		t.Fatalf("expected empty validated output, got %+v", result.Validated)
	}
}

func TestValidate_CoercesStringPrimitives(t *testing.T) {
	schema := Schema{
		Field("id", IntegerRule(1, 10).Require()),
		Field("log_capped", BooleanRule().Require()),
		Field("site_title", StringRule(1, 20).Require()),
	}
	result := Validate(map[string]any{
		"id":         " 7 ",
		"log_capped": "true",
		"site_title": "2025",
	}, schema)
	if !result.OK() {
		t.Fatalf("expected coercion to succeed, got %+v", result.Errors)
	}
	if got := result.Validated["id"]; got != int64(7) {
		t.Fatalf("expected id int64(7), got %#v", got)
	}
	if got := result.Validated["log_capped"]; got != true {
		t.Fatalf("expected log_capped true, got %#v", got)
	}
	if got := result.Validated["site_title"]; got != "2025" {
		t.Fatalf("expected numeric-looking string to stay a string, got %#v", got)
	}
}

func TestValidate_IntegerBoundsIncludeZero(t *testing.T) {
	schema := Schema{Field("id", IntegerRule(1, 100).Require())}
	for _, value := range []any{0, -1, 101, "0", 1.5} {
		result := Validate(map[string]any{"id": value}, schema)
		if result.OK() {
			t.Fatalf("expected %#v to be rejected", value)
		}
	}
	result := Validate(map[string]any{"id": float64(42)}, schema)
	if !result.OK() || result.Validated["id"] != int64(42) {
		t.Fatalf("expected whole float to normalise to int64, got %+v", result)
	}
}

func TestValidate_StringLengthAndEmail(t *testing.T) {
	schema := Schema{
		Field("title", StringRule(1, 5).Require()),
		Field("email", EmailRule(1, 255).Require()),
	}
	result := Validate(map[string]any{"title": "too long", "email": "not-an-email"}, schema)
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %+v", result.Errors)
	}

	result = Validate(map[string]any{"title": "ok", "email": "Support@Example.com"}, schema)
	if !result.OK() {
		t.Fatalf("expected valid input, got %+v", result.Errors)
	}
	if result.Validated["email"] != "support@example.com" {
		t.Fatalf("expected lower-cased email, got %#v", result.Validated["email"])
	}
}

func TestValidate_EnumAndCompare(t *testing.T) {
	schema := Schema{
		Field("mode", EnumRule(ModeDevelopment, ModeProduction).Require()),
		Field("password", StringRule(1, 64).Require()),
		Field("confirm", CompareRule("password").Require()),
	}
	result := Validate(map[string]any{"mode": "production", "password": "secret", "confirm": "secret"}, schema)
	if !result.OK() {
		t.Fatalf("expected valid input, got %+v", result.Errors)
	}

	result = Validate(map[string]any{"mode": "qa", "password": "secret", "confirm": "other"}, schema)
	if len(result.Errors) != 2 {
		t.Fatalf("expected enum and compare errors, got %+v", result.Errors)
	}
	if result.Errors[0].Field != "mode" || result.Errors[1].Field != "confirm" {
		t.Fatalf("unexpected error order: %+v", result.Errors)
	}
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	raw := map[string]any{"domain": "  A.COM  "}
	Validate(raw, Schema{Field("domain", StringRule(1, 255).Require().Lower())})
	if raw["domain"] != "  A.COM  " {
		t.Fatalf("expected raw input untouched, got %#v", raw["domain"])
	}
}

func TestValidateTenantConfig_NormalizesDomainAndKeepsExtras(t *testing.T) {
	raw := tenantConfig("  Example.COM ")
	raw["site_support_email"] = "support@example.com"
	raw["smtp_host"] = "mail.example.com"

	cfg, err := ValidateTenantConfig(raw, TenantSchema())
	if err != nil {
		t.Fatalf("validate tenant config: %v", err)
	}
	if cfg["domain"] != "example.com" {
		t.Fatalf("expected normalized domain, got %#v", cfg["domain"])
	}
	if cfg["smtp_host"] != "mail.example.com" {
		t.Fatalf("expected unknown keys to be carried over")
	}
}

func TestValidateTenantConfig_ReturnsValidationError(t *testing.T) {
	raw := tenantConfig("a.com")
	raw["site_copyright"] = 2020

	_, err := ValidateTenantConfig(raw, TenantSchema())
	validationErr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if !validationErr.HasField("site_copyright") {
		t.Fatalf("expected site_copyright violation, got %+v", validationErr.Fields)
	}
	if validationErr.Domain != "a.com" {
		t.Fatalf("expected domain on error, got %q", validationErr.Domain)
	}
}

func TestCoercePrimitive(t *testing.T) {
	cases := map[string]any{
		"42":    int64(42),
		"-3":    int64(-3),
		"1.5":   1.5,
		"TRUE":  true,
		"false": false,
		"hello": "hello",
	}
	for input, want := range cases {
		if got := CoercePrimitive(input); got != want {
			t.Fatalf("CoercePrimitive(%q) = %#v, want %#v", input, got, want)
		}
	}
}
