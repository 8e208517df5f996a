package core

import (
	"sync"
)

// HostServices holds host-wide service instances and the host config handed
// to host-scoped factories.
type HostServices struct {
	mu       sync.RWMutex
	config   *FrozenMap
	names    []string
	services map[string]any
}

func NewHostServices(values map[string]any) *HostServices {
	frozen, _ := Project(values).(*FrozenMap)
	if frozen == nil {
		frozen = &FrozenMap{entries: map[string]any{}}
	}
	return &HostServices{config: frozen, services: map[string]any{}}
}

func (h *HostServices) Owner() string { return HostOwner }

func (h *HostServices) Value(key string) (any, bool) {
	return h.config.Get(key)
}

func (h *HostServices) Service(name string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	value, ok := h.services[name]
	return value, ok
}

func (h *HostServices) Has(name string) bool {
	_, ok := h.Service(name)
	return ok
}

func (h *HostServices) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.names...)
}

// attach stores instance under name and pushes its teardown in one step.
func (h *HostServices) attach(name string, instance any, teardown Teardown, stack *CloseStack) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.services[name]; exists {
		return &DuplicateServiceError{Owner: HostOwner, Name: name}
	}
	if teardown != nil && stack != nil {
		if err := stack.Push(CloseEntry{Owner: HostOwner, Name: name, Instance: instance, Close: teardown}); err != nil {
			return err
		}
	}
	h.services[name] = Project(instance)
	h.names = append(h.names, name)
	return nil
}
