package core

import (
	"github.com/goliatone/go-logger/glog"
	"github.com/spf13/cast"
)

// Tenant is a validated, service-enriched tenant. Its values are read-only;
// adding a service or model yields a new Tenant. A *Tenant is shared by every
// request for its domain, so callers must never assign through it.
type Tenant struct {
	domain   string
	id       int64
	node     int64
	mode     string
	config   *FrozenMap
	names    []string
	services map[string]any

	modelNames []string
	models     map[string]any
}

func newTenant(config map[string]any) *Tenant {
	frozen, _ := Project(config).(*FrozenMap)
	if frozen == nil {
		frozen = &FrozenMap{entries: map[string]any{}}
	}
	tenant := &Tenant{
		config:   frozen,
		services: map[string]any{},
		models:   map[string]any{},
	}
	if value, ok := frozen.Get("domain"); ok {
		tenant.domain = normalizeDomain(cast.ToString(value))
	}
	if value, ok := frozen.Get("id"); ok {
		tenant.id = cast.ToInt64(value)
	}
	if value, ok := frozen.Get("node"); ok {
		tenant.node = cast.ToInt64(value)
	}
	if value, ok := frozen.Get("mode"); ok {
		tenant.mode = cast.ToString(value)
	}
	return tenant
}

// with returns a copy of t exposing instance under name. t is unchanged.
func (t *Tenant) with(name string, instance any) *Tenant {
	next := t.clone()
	next.names = append(next.names, name)
	next.services[name] = Project(instance)
	return next
}

// withModel returns a copy of t exposing model under name in the models
// namespace. t is unchanged.
func (t *Tenant) withModel(name string, model any) *Tenant {
	next := t.clone()
	next.modelNames = append(next.modelNames, name)
	next.models[name] = Project(model)
	return next
}

func (t *Tenant) clone() *Tenant {
	next := &Tenant{
		domain:     t.domain,
		id:         t.id,
		node:       t.node,
		mode:       t.mode,
		config:     t.config,
		names:      make([]string, len(t.names), len(t.names)+1),
		services:   make(map[string]any, len(t.services)+1),
		modelNames: make([]string, len(t.modelNames), len(t.modelNames)+1),
		models:     make(map[string]any, len(t.models)+1),
	}
	copy(next.names, t.names)
	copy(next.modelNames, t.modelNames)
	for key, value := range t.services {
		next.services[key] = value
	}
	for key, value := range t.models {
		next.models[key] = value
	}
	return next
}

func (t *Tenant) Domain() string { return t.domain }

func (t *Tenant) ID() int64 { return t.id }

func (t *Tenant) Node() int64 { return t.node }

func (t *Tenant) Mode() string { return t.mode }

// Owner identifies the tenant as a factory source.
func (t *Tenant) Owner() string { return t.domain }

func (t *Tenant) Config() *FrozenMap { return t.config }

func (t *Tenant) Value(key string) (any, bool) {
	return t.config.Get(key)
}

func (t *Tenant) Service(name string) (any, bool) {
	value, ok := t.services[name]
	return readValue(value), ok
}

// ServiceNames lists services in the order they were attached.
func (t *Tenant) ServiceNames() []string {
	return append([]string(nil), t.names...)
}

func (t *Tenant) Services() map[string]any {
	out := make(map[string]any, len(t.services))
	for key, value := range t.services {
		out[key] = readValue(value)
	}
	return out
}

// Has reports whether name is taken by a service or a config key.
func (t *Tenant) Has(name string) bool {
	if _, ok := t.services[name]; ok {
		return true
	}
	return t.config.Has(name)
}

// Model returns the domain model registered under name.
func (t *Tenant) Model(name string) (any, bool) {
	value, ok := t.models[name]
	return readValue(value), ok
}

// ModelNames lists models in the order they were attached.
func (t *Tenant) ModelNames() []string {
	return append([]string(nil), t.modelNames...)
}

func (t *Tenant) HasModel(name string) bool {
	_, ok := t.models[name]
	return ok
}

// Logger returns the tenant's log service when it is a logger, otherwise a
// nop logger.
func (t *Tenant) Logger() Logger {
	if value, ok := t.services[ServiceLog]; ok {
		if logger, ok := value.(Logger); ok {
			return logger
		}
	}
	return glog.Nop()
}
