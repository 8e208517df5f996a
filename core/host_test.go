package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestHost_TeardownOrderSpansScopes(t *testing.T) {
	recorder := &closeRecorder{}
	host, err := NewHost(DefaultConfig(), WithLogger(stubLogger{}))
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	ctx := context.Background()

	db := ServiceFactory{
		Name:   ServiceDB,
		Create: constant("db"),
		Close:  recorder.teardown("db:a.com"),
	}
	if err := host.Initialize(ctx, []map[string]any{tenantConfig("a.com")}, []ServiceFactory{db}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := host.Register(ctx, Registration{Name: "cache", Create: constant("cache"), Close: recorder.teardown("cache:host"), Scope: ScopeHost}); err != nil {
		t.Fatalf("register host cache: %v", err)
	}
	if err := host.Register(ctx, Registration{Name: "mailer", Create: constant("mailer"), Close: recorder.teardown("mailer:a.com"), Scope: ScopeTenants}); err != nil {
		t.Fatalf("register tenant mailer: %v", err)
	}

	outcome := host.Resolve("A.com:3000")
	if outcome.Kind != OutcomeContinue {
		t.Fatalf("expected ready tenant, got %v (%v)", outcome.Kind, outcome.Err)
	}
	if !outcome.Tenant.Has("mailer") {
		t.Fatalf("expected resolved tenant to carry the mailer")
	}

	if err := host.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := strings.Join(recorder.closed(), ","); got != "mailer:a.com,cache:host,db:a.com" {
		t.Fatalf("unexpected teardown order %s", got)
	}
	if err := host.Register(ctx, Registration{Name: "late", Create: constant(1), Scope: ScopeHost}); !errors.Is(err, ErrShutdownInProgress) {
		t.Fatalf("expected registration after shutdown to fail, got %v", err)
	}
}

func TestHost_BootPolicyComesFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OnTenantError = PolicySkip
	host, err := NewHost(cfg, WithLogger(stubLogger{}))
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	bad := tenantConfig("b.com")
	bad["mode"] = "staging"
	err = host.Initialize(context.Background(), []map[string]any{tenantConfig("a.com"), bad}, []ServiceFactory{dbFactory()})
	if err != nil {
		t.Fatalf("expected skip policy from config, got %v", err)
	}
	if host.Registry().Len() != 1 {
		t.Fatalf("expected one ready tenant, got %d", host.Registry().Len())
	}
	if outcome := host.Resolve("b.com"); outcome.Kind != OutcomeNotFound {
		t.Fatalf("expected skipped tenant to resolve as not found, got %v", outcome.Kind)
	}
}

func TestHost_AddTenantAtRuntime(t *testing.T) {
	host, err := NewHost(DefaultConfig(), WithLogger(stubLogger{}))
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	ctx := context.Background()
	if err := host.Initialize(ctx, nil, []ServiceFactory{dbFactory()}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := host.AddTenant(ctx, tenantConfig("new.com")); err != nil {
		t.Fatalf("add tenant: %v", err)
	}
	if outcome := host.Resolve("new.com"); outcome.Kind != OutcomeContinue {
		t.Fatalf("expected runtime tenant to be ready, got %v", outcome.Kind)
	}
	mapped := host.MapError(&NotFoundError{Domain: "x.com"})
	if !strings.Contains(mapped.Error(), "x.com") {
		t.Fatalf("expected mapped error to keep the message, got %v", mapped)
	}
}

func TestHost_ConfigReturnsACopy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Values = map[string]any{"cache_url": "redis://cache"}
	host, err := NewHost(cfg, WithLogger(stubLogger{}))
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	got := host.Config()
	got.Values["cache_url"] = "redis://other"
	got.Values["extra"] = true

	if value := host.Config().Values["cache_url"]; value != "redis://cache" {
		t.Fatalf("expected stored values unchanged, got %v", value)
	}
	if _, ok := host.Config().Values["extra"]; ok {
		t.Fatalf("expected added key to stay out of the host config")
	}
	if value, _ := host.Services().Value("cache_url"); value != "redis://cache" {
		t.Fatalf("expected host services to keep the original value, got %v", value)
	}
}

func TestHost_RegisterModel(t *testing.T) {
	host, err := NewHost(DefaultConfig(), WithLogger(stubLogger{}))
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	ctx := context.Background()
	if err := host.Initialize(ctx, []map[string]any{tenantConfig("a.com")}, []ServiceFactory{dbFactory()}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := host.RegisterModel(ctx, "post", postFactory(nil)); err != nil {
		t.Fatalf("register model: %v", err)
	}
	outcome := host.Resolve("a.com")
	if outcome.Kind != OutcomeContinue || !outcome.Tenant.HasModel("post") {
		t.Fatalf("expected resolved tenant to carry the post model")
	}
}
