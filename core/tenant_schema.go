package core

import (
	"strings"
)

const (
	ModeDevelopment = "development"
	ModeTesting     = "testing"
	ModeProduction  = "production"
)

// TenantSchema returns the rules every tenant configuration must satisfy.
func TenantSchema() Schema {
	return Schema{
		Field("id", IntegerRule(1, 100000).Require()),
		Field("node", IntegerRule(1, 1000).Require()),
		Field("mode", EnumRule(ModeDevelopment, ModeTesting, ModeProduction).Require()),
		Field("domain", StringRule(1, 255).Require().Lower()),
		Field("db_url", StringRule(1, 255).Require()),
		Field("log_collection_name", StringRule(1, 255).Require()),
		Field("log_expiration_days", IntegerRule(1, 365)),
		Field("log_capped", BooleanRule()),
		Field("log_max_size", IntegerRule(0, 1000)),
		Field("log_max_docs", IntegerRule(0, 1000000)),
		Field("site_title", StringRule(1, 255).Require()),
		Field("site_slogan", StringRule(1, 255).Require()),
		Field("site_owner", StringRule(1, 255).Require()),
		Field("site_author", StringRule(1, 255).Require()),
		Field("site_copyright", IntegerMinRule(2025).Require()),
		Field("site_support_email", EmailRule(1, 255).Require()),
		Field("site_support_url", StringRule(1, 255).Require()),
	}
}

// ValidateTenantConfig validates raw against schema and returns the
// normalized config. Keys outside the schema are carried over unchanged so
// custom factories can read them. raw is never mutated.
func ValidateTenantConfig(raw map[string]any, schema Schema) (map[string]any, error) {
	result := Validate(raw, schema)
	if !result.OK() {
		domain, _ := raw["domain"].(string)
		return nil, &ValidationError{Domain: normalizeDomain(domain), Fields: result.Errors}
	}

	known := make(map[string]struct{}, len(schema))
	for _, field := range schema {
		known[field.Name] = struct{}{}
	}
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		if _, ok := known[key]; ok {
			continue
		}
		out[key] = value
	}
	for key, value := range result.Validated {
		out[key] = value
	}
	if domain, ok := out["domain"].(string); ok {
		out["domain"] = normalizeDomain(domain)
	}
	return out, nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
