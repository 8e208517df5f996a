package transport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

type ResponderFactory func(config map[string]any) (Responder, error)

// Registry holds responders keyed by kind, either registered directly or
// built on demand from a factory.
type Registry struct {
	mu         sync.RWMutex
	responders map[string]Responder
	factories  map[string]ResponderFactory
}

func NewRegistry() *Registry {
	return &Registry{
		responders: map[string]Responder{},
		factories:  map[string]ResponderFactory{},
	}
}

// NewDefaultRegistry registers the json and text responders and a view
// factory that expects a Renderer under config["renderer"].
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Register(NewJSONResponder())
	_ = registry.Register(NewTextResponder())
	_ = registry.RegisterFactory(KindView, viewFactory)
	return registry
}

func (r *Registry) Register(responder Responder) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	if responder == nil {
		return fmt.Errorf("transport: responder is nil")
	}
	kind := normalizeKind(responder.Kind())
	if kind == "" {
		return fmt.Errorf("transport: responder kind is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.responders[kind]; exists {
		return fmt.Errorf("transport: responder kind %q already registered", kind)
	}
	r.responders[kind] = responder
	return nil
}

func (r *Registry) RegisterFactory(kind string, factory ResponderFactory) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("transport: responder kind is required")
	}
	if factory == nil {
		return fmt.Errorf("transport: responder factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("transport: responder factory kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

func (r *Registry) Build(kind string, config map[string]any) (Responder, error) {
	if r == nil {
		return nil, fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return nil, transportError("transport: responder kind is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}

	r.mu.RLock()
	responder, ok := r.responders[kind]
	factory := r.factories[kind]
	r.mu.RUnlock()
	if ok {
		return responder, nil
	}
	if factory == nil {
		return nil, transportError(
			fmt.Sprintf("transport: responder kind %q not registered", kind),
			goerrors.CategoryNotFound,
			http.StatusNotFound,
			map[string]any{"kind": kind},
		)
	}
	built, err := factory(cloneMap(config))
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, fmt.Errorf("transport: factory for %q returned nil responder", kind)
	}
	return built, nil
}

func (r *Registry) Get(kind string) (Responder, bool) {
	if r == nil {
		return nil, false
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	defer r.mu.RUnlock()
	responder, ok := r.responders[kind]
	return responder, ok
}

// Kinds lists registered responder and factory kinds in sorted order.
func (r *Registry) Kinds() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]struct{}{}
	for kind := range r.responders {
		seen[kind] = struct{}{}
	}
	for kind := range r.factories {
		seen[kind] = struct{}{}
	}
	kinds := make([]string, 0, len(seen))
	for kind := range seen {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func viewFactory(config map[string]any) (Responder, error) {
	raw, ok := config["renderer"]
	if !ok || raw == nil {
		return nil, transportError(
			"transport: view responder requires a renderer",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"kind": KindView},
		)
	}
	renderer, ok := raw.(Renderer)
	if !ok {
		return nil, fmt.Errorf("transport: renderer has unsupported type %T", raw)
	}
	return NewViewResponder(renderer), nil
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

func cloneMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
