package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/goliatone/go-tenants/core"
)

const (
	StatusOK       = "OK"
	StatusReady    = "READY"
	StatusNotReady = "NOT_READY"
)

type SystemOption func(*systemHandlers)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) SystemOption {
	return func(h *systemHandlers) {
		if now != nil {
			h.now = now
		}
	}
}

// WithReadinessServices sets the services every tenant must carry for the
// host to report ready. Defaults to db.
func WithReadinessServices(names ...string) SystemOption {
	return func(h *systemHandlers) {
		h.required = append([]string(nil), names...)
	}
}

type systemHandlers struct {
	lookup   core.TenantLookup
	routes   *core.RouteTable
	now      func() time.Time
	required []string
}

// NewSystemRouter serves the host level diagnostics: /health, /readiness,
// /routes and /timestamp. These routes are not bound to a tenant.
func NewSystemRouter(lookup core.TenantLookup, routes *core.RouteTable, opts ...SystemOption) *chi.Mux {
	h := &systemHandlers{
		lookup:   lookup,
		routes:   routes,
		now:      time.Now,
		required: []string{core.ServiceDB},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	router := chi.NewRouter()
	router.Get("/health", h.health)
	router.Get("/readiness", h.readiness)
	router.Get("/routes", h.listRoutes)
	router.Get("/timestamp", h.timestamp)
	return router
}

// RecordRoutes walks router and adds every route to table, named after its
// path.
func RecordRoutes(router chi.Routes, table *core.RouteTable) error {
	if router == nil || table == nil {
		return nil
	}
	return chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		table.Add(method, route, routeName(route))
		return nil
	})
}

func routeName(route string) string {
	name := strings.Trim(route, "/")
	name = strings.NewReplacer("/", ".", "{", "", "}", "", "*", "").Replace(name)
	if name == "" {
		return "root"
	}
	return name
}

func (h *systemHandlers) stamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

func (h *systemHandlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    StatusOK,
		"timestamp": h.stamp(),
	})
}

func (h *systemHandlers) readiness(w http.ResponseWriter, _ *http.Request) {
	var tenants []*core.Tenant
	if h.lookup != nil {
		tenants = h.lookup.All()
	}
	ready := true
	for _, tenant := range tenants {
		for _, name := range h.required {
			if _, ok := tenant.Service(name); !ok {
				ready = false
			}
		}
	}

	status, code := StatusReady, http.StatusOK
	if !ready {
		status, code = StatusNotReady, http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"tenantCount": len(tenants),
		"timestamp":   h.stamp(),
	})
}

func (h *systemHandlers) listRoutes(w http.ResponseWriter, _ *http.Request) {
	routes := h.routes.Routes()
	if routes == nil {
		routes = []core.Route{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"routes": routes,
	})
}

func (h *systemHandlers) timestamp(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": h.stamp(),
	})
}
