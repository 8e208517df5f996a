package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-tenants/security"
)

func tenantEnv(id, domain, dbPath string) string {
	return strings.Join([]string{
		"ID=" + id,
		"NODE=1",
		"MODE=production",
		"DOMAIN=" + domain,
		"DB_URL=sqlite://" + dbPath,
		"LOG_COLLECTION_NAME=logs",
		"LOG_CAPPED=true",
		"LOG_MAX_DOCS=50",
		`SITE_TITLE="A Site"`,
		"SITE_SLOGAN=Slogan",
		"SITE_OWNER=Owner",
		"SITE_AUTHOR=Author",
		"SITE_COPYRIGHT=2026",
		"SITE_SUPPORT_EMAIL=help@" + domain,
		"SITE_SUPPORT_URL=https://" + domain,
		"",
	}, "\n")
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func request(t *testing.T, handler http.Handler, host, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	body := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s%s: %v (%s)", host, path, err, rec.Body.String())
	}
	return rec.Code, body
}

func TestParse_DefaultsAndOverrides(t *testing.T) {
	cfg, err := Parse([]string{"--tenants", "conf/*.env", "--migrate", "--responder", "text"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LogFormat != "console" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Tenants != "conf/*.env" || !cfg.Migrate || cfg.Responder != "text" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.ShutdownTimeout.Seconds() != 15 {
		t.Fatalf("expected 15s shutdown timeout, got %s", cfg.ShutdownTimeout)
	}

	if _, err := Parse([]string{"--responder", "xml"}); err == nil {
		t.Fatalf("expected unknown responder to be rejected")
	}
}

func TestSplitHostValues(t *testing.T) {
	raw := splitHostValues(map[string]any{
		"service_name": "edge",
		"fail_fast":    "true",
		"redis_url":    "redis://localhost:6379/0",
	})
	if raw["service_name"] != "edge" || raw["fail_fast"] != "true" {
		t.Fatalf("expected config keys to stay top level, got %v", raw)
	}
	values, ok := raw["values"].(map[string]any)
	if !ok || values["redis_url"] != "redis://localhost:6379/0" {
		t.Fatalf("expected redis_url under values, got %v", raw)
	}
	if _, ok := raw["redis_url"]; ok {
		t.Fatalf("expected redis_url to leave the top level")
	}
}

func TestBoot_ServesTenantsAndSystemRoutes(t *testing.T) {
	dir := t.TempDir()
	tenantsDir := filepath.Join(dir, "tenants")
	if err := os.MkdirAll(tenantsDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, tenantsDir, "a.com.env", []byte(tenantEnv("1", "a.com", filepath.Join(dir, "a.db"))))

	key := []byte("0123456789abcdef0123456789abcdef")
	keyFile := writeFile(t, dir, "tenants.key", key)
	cipher, err := security.NewKeyFileCipher(key)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	sealed, err := cipher.Encrypt(context.Background(), []byte(tenantEnv("2", "b.com", filepath.Join(dir, "b.db"))))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	writeFile(t, tenantsDir, "b.com.secret", sealed)
	hostFile := writeFile(t, dir, "_server.env", []byte("SERVICE_NAME=tenantd-test\nFACTORY_TIMEOUT=10s\n"))

	cfg := &Config{
		HostFile:  hostFile,
		Tenants:   filepath.Join(tenantsDir, "*"),
		KeyFile:   keyFile,
		Migrate:   true,
		Responder: "json",
	}
	ctx := context.Background()
	host, handler, err := boot(ctx, cfg, glog.ProviderFromLogger(glog.Nop()), glog.Nop())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	defer func() { _ = host.Shutdown(ctx) }()

	if host.Config().ServiceName != "tenantd-test" {
		t.Fatalf("expected host file service name, got %q", host.Config().ServiceName)
	}
	if host.Registry().Len() != 2 {
		t.Fatalf("expected 2 tenants, got %d", host.Registry().Len())
	}

	code, body := request(t, handler, "A.com:8080", "/")
	if code != http.StatusOK || body["domain"] != "a.com" || body["title"] != "A Site" {
		t.Fatalf("unexpected a.com response %d %v", code, body)
	}
	code, body = request(t, handler, "b.com", "/")
	if code != http.StatusOK || body["domain"] != "b.com" {
		t.Fatalf("unexpected b.com response %d %v", code, body)
	}

	code, body = request(t, handler, "x.com", "/")
	if code != http.StatusNotFound || body["domain"] != "x.com" {
		t.Fatalf("expected unknown tenant 404, got %d %v", code, body)
	}

	code, body = request(t, handler, "x.com", "/api/system/health")
	if code != http.StatusOK {
		t.Fatalf("expected health without a tenant, got %d %v", code, body)
	}

	code, body = request(t, handler, "x.com", "/api/system/routes")
	if code != http.StatusOK {
		t.Fatalf("unexpected routes response %d %v", code, body)
	}
	paths := map[string]bool{}
	routes, _ := body["routes"].([]any)
	for _, route := range routes {
		if entry, ok := route.(map[string]any); ok {
			paths[entry["path"].(string)] = true
		}
	}
	if !paths["/"] || !paths["/api/system/health"] {
		t.Fatalf("expected recorded routes, got %v", paths)
	}
}

func TestBoot_SecretTenantNeedsKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.com.secret", []byte("sealed"))
	cfg := &Config{Tenants: filepath.Join(dir, "*"), Responder: "json"}
	if _, _, err := boot(context.Background(), cfg, nil, glog.Nop()); err == nil {
		t.Fatalf("expected encrypted tenant without key to fail")
	}
}

func TestHTTPService_ServesAndShutsDown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	reg := httpService("127.0.0.1:0", handler, 0, glog.Nop())
	if reg.Name != "http" {
		t.Fatalf("unexpected service name %q", reg.Name)
	}
	instance, err := reg.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	server, ok := instance.(*http.Server)
	if !ok {
		t.Fatalf("expected *http.Server, got %T", instance)
	}
	if err := reg.Close(context.Background(), server); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := reg.Close(context.Background(), "nope"); err == nil {
		t.Fatalf("expected unexpected instance to fail")
	}
}
