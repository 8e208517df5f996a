package core

import (
	"context"
	"io"
	"strings"
	"time"
)

// ModelFactory builds one domain model for a tenant. Models live in their own
// namespace on the tenant, next to its services.
type ModelFactory func(ctx context.Context, tenant *Tenant) (any, error)

type modelFactory struct {
	name   string
	create ModelFactory
}

func (f modelFactory) call(tenant *Tenant, timeout time.Duration, logger Logger) factoryCall {
	return factoryCall{
		owner: tenant.Domain(),
		name:  f.name,
		create: func(ctx context.Context, _ Source) (any, error) {
			return f.create(ctx, tenant)
		},
		teardown: closeModel,
		timeout:  timeout,
		logger:   logger,
	}
}

// closeModel is the teardown pushed for every model that is an io.Closer.
func closeModel(_ context.Context, instance any) error {
	closer, ok := instance.(io.Closer)
	if !ok {
		return nil
	}
	return closer.Close()
}

func modelTeardown(instance any) Teardown {
	if _, ok := instance.(io.Closer); ok {
		return closeModel
	}
	return nil
}

// attachModel adds one model to a registered tenant under the lock, pushing
// its close entry when the model is an io.Closer.
func (r *TenantRegistry) attachModel(domain, name string, instance any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byDomain[domain]
	if !ok {
		return &NotFoundError{Domain: domain}
	}
	if current.HasModel(name) {
		return &DuplicateServiceError{Owner: domain, Name: name}
	}
	if teardown := modelTeardown(instance); teardown != nil {
		if err := r.closeStack.Push(CloseEntry{Owner: domain, Name: name, Instance: instance, Close: teardown}); err != nil {
			return err
		}
	}
	r.replaceLocked(current.withModel(name, instance))
	return nil
}

// appendModel records factory for tenants added later. It reports false when
// the name is already taken.
func (r *TenantRegistry) appendModel(factory modelFactory) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.models {
		if existing.name == factory.name {
			return false
		}
	}
	r.models = append(r.models, factory)
	return true
}

func (r *TenantRegistry) hasModel(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, existing := range r.models {
		if existing.name == name {
			return true
		}
	}
	return false
}

func (r *TenantRegistry) sharedModels() []modelFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]modelFactory(nil), r.models...)
}

// buildModels applies the registered model factories to an enriched tenant
// that is not committed yet. Close entries for Closer models are appended to
// entries.
func (r *TenantRegistry) buildModels(ctx context.Context, tenant *Tenant, entries []CloseEntry) (*Tenant, []CloseEntry, error) {
	for _, factory := range r.sharedModels() {
		name := strings.TrimSpace(factory.name)
		if tenant.HasModel(name) {
			return nil, entries, &DuplicateServiceError{Owner: tenant.Domain(), Name: name}
		}
		instance, err := factory.call(tenant, r.enricher.timeout, r.observer.logger).run(ctx, tenant)
		if err != nil {
			return nil, entries, err
		}
		if teardown := modelTeardown(instance); teardown != nil {
			entries = append(entries, CloseEntry{Owner: tenant.Domain(), Name: name, Instance: instance, Close: teardown})
		}
		tenant = tenant.withModel(name, instance)
	}
	return tenant, entries, nil
}
