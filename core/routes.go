package core

import (
	"strings"
	"sync"
)

type Route struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Name   string `json:"name,omitempty"`
}

// RouteTable lists the routes a host serves, for introspection.
type RouteTable struct {
	mu     sync.RWMutex
	routes []Route
}

func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

func (t *RouteTable) Add(method, path, name string) {
	route := Route{
		Method: strings.ToUpper(strings.TrimSpace(method)),
		Path:   strings.TrimSpace(path),
		Name:   strings.TrimSpace(name),
	}
	if route.Method == "" {
		route.Method = "GET"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = append(t.routes, route)
}

// Routes returns the routes in registration order.
func (t *RouteTable) Routes() []Route {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Route(nil), t.routes...)
}
