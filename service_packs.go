package tenants

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-tenants/core"
)

// ServicePack is a named bundle of registrations applied together.
type ServicePack struct {
	Name          string
	Registrations []core.Registration
}

// Registrar is the part of a host a pack is applied to.
type Registrar interface {
	Register(ctx context.Context, reg core.Registration) error
}

type BundleFactory func(facade *Facade) (any, error)

// ServicePacks collects service packs and facade bundles. Packs are applied
// and bundles built in name order.
type ServicePacks struct {
	mu sync.RWMutex

	packs   map[string]ServicePack
	bundles map[string]BundleFactory
}

func NewServicePacks() *ServicePacks {
	return &ServicePacks{
		packs:   map[string]ServicePack{},
		bundles: map[string]BundleFactory{},
	}
}

func (p *ServicePacks) RegisterPack(pack ServicePack) error {
	if p == nil {
		return fmt.Errorf("tenants: service packs are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("tenants: service pack name is required")
	}
	if len(pack.Registrations) == 0 {
		return fmt.Errorf("tenants: service pack %q has no registrations", name)
	}
	seen := map[string]struct{}{}
	for _, reg := range pack.Registrations {
		regName := strings.TrimSpace(reg.Name)
		if regName == "" || reg.Create == nil {
			return fmt.Errorf("tenants: service pack %q contains an incomplete registration", name)
		}
		if _, dup := seen[regName]; dup {
			return fmt.Errorf("tenants: service pack %q registers %q twice", name, regName)
		}
		seen[regName] = struct{}{}
	}

	normalized := ServicePack{
		Name:          name,
		Registrations: append([]core.Registration(nil), pack.Registrations...),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.packs[name]; exists {
		return fmt.Errorf("tenants: service pack %q already registered", name)
	}
	p.packs[name] = normalized
	return nil
}

func (p *ServicePacks) RegisterBundle(name string, factory BundleFactory) error {
	if p == nil {
		return fmt.Errorf("tenants: service packs are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("tenants: bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("tenants: bundle %q factory is required", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.bundles[name]; exists {
		return fmt.Errorf("tenants: bundle %q already registered", name)
	}
	p.bundles[name] = factory
	return nil
}

// Apply registers every pack against registrar, stopping at the first
// failure.
func (p *ServicePacks) Apply(ctx context.Context, registrar Registrar) error {
	if p == nil {
		return nil
	}
	if registrar == nil {
		return fmt.Errorf("tenants: registrar is required")
	}
	for _, pack := range p.Packs() {
		for _, reg := range pack.Registrations {
			if err := registrar.Register(ctx, reg); err != nil {
				return fmt.Errorf("tenants: service pack %q: %w", pack.Name, err)
			}
		}
	}
	return nil
}

func (p *ServicePacks) BuildBundles(facade *Facade) (map[string]any, error) {
	if p == nil {
		return map[string]any{}, nil
	}
	if facade == nil {
		return nil, fmt.Errorf("tenants: facade is required")
	}

	p.mu.RLock()
	names := sortedKeys(p.bundles)
	factories := make(map[string]BundleFactory, len(p.bundles))
	for name, factory := range p.bundles {
		factories[name] = factory
	}
	p.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](facade)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (p *ServicePacks) Packs() []ServicePack {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := sortedKeys(p.packs)
	out := make([]ServicePack, 0, len(names))
	for _, name := range names {
		pack := p.packs[name]
		out = append(out, ServicePack{
			Name:          pack.Name,
			Registrations: append([]core.Registration(nil), pack.Registrations...),
		})
	}
	return out
}

func (p *ServicePacks) BundleNames() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.bundles)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
