package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/goliatone/go-tenants/core"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func getJSON(t *testing.T, handler http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, out
}

func TestSystemRouter_HealthAndTimestamp(t *testing.T) {
	host := readyHost(t, "a.com")
	router := NewSystemRouter(host.Registry(), host.Routes(), WithClock(func() time.Time { return fixedNow }))

	code, body := getJSON(t, router, "/health")
	if code != http.StatusOK || body["status"] != StatusOK {
		t.Fatalf("unexpected health response %d %v", code, body)
	}
	if body["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("expected fixed timestamp, got %v", body["timestamp"])
	}

	code, body = getJSON(t, router, "/timestamp")
	if code != http.StatusOK || body["ok"] != true || body["timestamp"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp response %d %v", code, body)
	}
}

func TestSystemRouter_Readiness(t *testing.T) {
	host := readyHost(t, "a.com", "b.com")
	code, body := getJSON(t, NewSystemRouter(host.Registry(), nil), "/readiness")
	if code != http.StatusOK || body["status"] != StatusReady {
		t.Fatalf("expected ready, got %d %v", code, body)
	}
	if body["tenantCount"] != float64(2) {
		t.Fatalf("expected tenantCount 2, got %v", body["tenantCount"])
	}

	code, body = getJSON(t, NewSystemRouter(host.Registry(), nil, WithReadinessServices(core.ServiceDB, "mailer")), "/readiness")
	if code != http.StatusServiceUnavailable || body["status"] != StatusNotReady {
		t.Fatalf("expected not ready, got %d %v", code, body)
	}
}

func TestSystemRouter_RoutesListsRecordedRoutes(t *testing.T) {
	host := readyHost(t)
	root := chi.NewRouter()
	root.Mount("/api/system", NewSystemRouter(host.Registry(), host.Routes()))
	if err := RecordRoutes(root, host.Routes()); err != nil {
		t.Fatalf("record routes: %v", err)
	}

	code, body := getJSON(t, root, "/api/system/routes")
	if code != http.StatusOK || body["ok"] != true {
		t.Fatalf("unexpected routes response %d %v", code, body)
	}
	routes, ok := body["routes"].([]any)
	if !ok || len(routes) != 4 {
		t.Fatalf("expected 4 recorded routes, got %v", body["routes"])
	}
	found := false
	for _, raw := range routes {
		route := raw.(map[string]any)
		if route["path"] == "/api/system/health" && route["method"] == http.MethodGet && route["name"] == "api.system.health" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected /api/system/health in %v", routes)
	}
}
