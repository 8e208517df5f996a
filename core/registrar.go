package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type RegistrarOption func(*ServiceRegistrar)

// WithFailFast makes a tenant-scoped registration stop at the first tenant
// failure instead of isolating the failing tenant.
func WithFailFast(enabled bool) RegistrarOption {
	return func(r *ServiceRegistrar) {
		r.failFast = enabled
	}
}

// WithMaxConcurrency bounds how many tenant factories run at once. Zero or
// less means unbounded.
func WithMaxConcurrency(limit int) RegistrarOption {
	return func(r *ServiceRegistrar) {
		r.limit = limit
	}
}

func WithFactoryTimeout(timeout time.Duration) RegistrarOption {
	return func(r *ServiceRegistrar) {
		r.timeout = timeout
	}
}

func WithRegistrarObserver(logger Logger, metrics MetricsRecorder) RegistrarOption {
	return func(r *ServiceRegistrar) {
		r.observer = newObserver(logger, metrics)
	}
}

// ServiceRegistrar adds services to the host, to every ready tenant, or to
// both, after boot.
type ServiceRegistrar struct {
	host     *HostServices
	registry *TenantRegistry
	stack    *CloseStack
	timeout  time.Duration
	failFast bool
	limit    int
	observer observer

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewServiceRegistrar(host *HostServices, registry *TenantRegistry, stack *CloseStack, opts ...RegistrarOption) *ServiceRegistrar {
	r := &ServiceRegistrar{
		host:     host,
		registry: registry,
		stack:    stack,
		observer: newObserver(nil, nil),
		pending:  map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register validates reg synchronously, rejects duplicates before any
// factory runs, then creates the service for its scope.
func (r *ServiceRegistrar) Register(ctx context.Context, reg Registration) (err error) {
	startedAt := time.Now()
	name := strings.TrimSpace(reg.Name)
	scope := Scope(strings.ToLower(strings.TrimSpace(string(reg.Scope))))
	defer func() {
		r.observer.observe(ctx, startedAt, "service_register", err, map[string]any{"service": name, "scope": string(scope)})
	}()

	if name == "" {
		return &ConfigurationError{Field: "name", Message: "service name is required"}
	}
	if reg.Create == nil {
		return &ConfigurationError{Field: "create", Message: fmt.Sprintf("service %q has no factory", name)}
	}
	if scope != ScopeHost && scope != ScopeTenants && scope != ScopeBoth {
		return &ConfigurationError{Field: "scope", Message: fmt.Sprintf("scope %q is not one of host, tenants, both", reg.Scope)}
	}
	if r.stack.Closed() {
		return ErrShutdownInProgress
	}

	withHost := scope == ScopeHost || scope == ScopeBoth
	withTenants := scope == ScopeTenants || scope == ScopeBoth

	if withHost {
		release, ok := r.reserve("host/" + name)
		if !ok {
			return &DuplicateServiceError{Owner: HostOwner, Name: name}
		}
		defer release()
		if r.host.Has(name) {
			return &DuplicateServiceError{Owner: HostOwner, Name: name}
		}
	}
	var tenants []*Tenant
	if withTenants {
		release, ok := r.reserve("tenants/" + name)
		if !ok {
			return &DuplicateServiceError{Owner: TenantsOwner, Name: name}
		}
		defer release()
		if r.registry.hasFactory(name) {
			return &DuplicateServiceError{Owner: TenantsOwner, Name: name}
		}
		tenants = r.registry.All()
		for _, tenant := range tenants {
			if tenant.Has(name) {
				return &DuplicateServiceError{Owner: tenant.Domain(), Name: name}
			}
		}
	}

	if withHost {
		if err := r.registerHost(ctx, name, reg); err != nil {
			return err
		}
	}
	if withTenants {
		err := r.fanOut(ctx, tenants, func(ctx context.Context, domain string) error {
			return r.registerTenant(ctx, domain, name, reg)
		})
		if err != nil {
			return err
		}
		if !r.registry.appendFactory(ServiceFactory{Name: name, Create: reg.Create, Close: reg.Close}) {
			return &DuplicateServiceError{Owner: TenantsOwner, Name: name}
		}
	}
	return nil
}

// RegisterModel adds a domain model to every ready tenant and to tenants
// added later. Model names are checked per tenant, apart from service names.
func (r *ServiceRegistrar) RegisterModel(ctx context.Context, name string, create ModelFactory) (err error) {
	startedAt := time.Now()
	name = strings.TrimSpace(name)
	defer func() {
		r.observer.observe(ctx, startedAt, "model_register", err, map[string]any{"model": name})
	}()

	if name == "" {
		return &ConfigurationError{Field: "name", Message: "model name is required"}
	}
	if create == nil {
		return &ConfigurationError{Field: "create", Message: fmt.Sprintf("model %q has no factory", name)}
	}
	if r.stack.Closed() {
		return ErrShutdownInProgress
	}

	release, ok := r.reserve("model/" + name)
	if !ok {
		return &DuplicateServiceError{Owner: TenantsOwner, Name: name}
	}
	defer release()
	if r.registry.hasModel(name) {
		return &DuplicateServiceError{Owner: TenantsOwner, Name: name}
	}
	tenants := r.registry.All()
	for _, tenant := range tenants {
		if tenant.HasModel(name) {
			return &DuplicateServiceError{Owner: tenant.Domain(), Name: name}
		}
	}

	factory := modelFactory{name: name, create: create}
	err = r.fanOut(ctx, tenants, func(ctx context.Context, domain string) error {
		return r.registerModel(ctx, domain, factory)
	})
	if err != nil {
		return err
	}
	if !r.registry.appendModel(factory) {
		return &DuplicateServiceError{Owner: TenantsOwner, Name: name}
	}
	return nil
}

// reserve claims key until release is called. It reports false while another
// registration holds the same key.
func (r *ServiceRegistrar) reserve(key string) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.pending[key]; busy {
		return nil, false
	}
	r.pending[key] = struct{}{}
	return func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
	}, true
}

func (r *ServiceRegistrar) registerHost(ctx context.Context, name string, reg Registration) error {
	instance, err := r.call(HostOwner, name, reg).run(ctx, r.host)
	if err != nil {
		return fmt.Errorf("core: host service %q: %w", name, err)
	}
	if err := r.host.attach(name, instance, reg.Close, r.stack); err != nil {
		r.discard(ctx, HostOwner, name, reg.Close, instance)
		return err
	}
	return nil
}

// fanOut runs register for every tenant. A failing tenant is isolated unless
// fail-fast is set. Name collisions and shutdown are returned as they are.
func (r *ServiceRegistrar) fanOut(ctx context.Context, tenants []*Tenant, register func(ctx context.Context, domain string) error) error {
	var group *errgroup.Group
	groupCtx := ctx
	if r.failFast {
		group, groupCtx = errgroup.WithContext(ctx)
	} else {
		group = &errgroup.Group{}
	}
	if r.limit > 0 {
		group.SetLimit(r.limit)
	}

	for _, tenant := range tenants {
		domain := tenant.Domain()
		group.Go(func() error {
			err := register(groupCtx, domain)
			if err == nil {
				return nil
			}
			var duplicate *DuplicateServiceError
			if r.failFast || errors.As(err, &duplicate) || errors.Is(err, ErrShutdownInProgress) {
				return err
			}
			r.isolate(ctx, domain, err)
			return nil
		})
	}
	return group.Wait()
}

func (r *ServiceRegistrar) registerTenant(ctx context.Context, domain, name string, reg Registration) error {
	current, ok := r.registry.FindByDomain(domain)
	if !ok {
		return nil
	}
	instance, err := r.call(domain, name, reg).run(ctx, current)
	if err != nil {
		return fmt.Errorf("core: tenant %q service %q: %w", domain, name, err)
	}
	if err := r.registry.attach(domain, name, instance, reg.Close); err != nil {
		r.discard(ctx, domain, name, reg.Close, instance)
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

func (r *ServiceRegistrar) registerModel(ctx context.Context, domain string, factory modelFactory) error {
	current, ok := r.registry.FindByDomain(domain)
	if !ok {
		return nil
	}
	instance, err := factory.call(current, r.timeout, r.observer.logger).run(ctx, current)
	if err != nil {
		return fmt.Errorf("core: tenant %q model %q: %w", domain, factory.name, err)
	}
	if err := r.registry.attachModel(domain, factory.name, instance); err != nil {
		r.discard(ctx, domain, factory.name, modelTeardown(instance), instance)
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// isolate drops a failing tenant from the ready set and records why.
func (r *ServiceRegistrar) isolate(ctx context.Context, domain string, err error) {
	r.registry.Remove(domain)
	r.registry.recordSkip(domain, err)
	r.observer.log(ctx, "warn", "tenant isolated after service registration failure", map[string]any{
		"domain": domain,
		"error":  err.Error(),
	})
}

func (r *ServiceRegistrar) discard(ctx context.Context, owner, name string, teardown Teardown, instance any) {
	if err := safeTeardown(context.WithoutCancel(ctx), teardown, instance); err != nil {
		r.observer.log(ctx, "warn", "discarded service teardown failed", map[string]any{
			"owner":   owner,
			"service": name,
			"error":   err.Error(),
		})
	}
}

func (r *ServiceRegistrar) call(owner, name string, reg Registration) factoryCall {
	return factoryCall{
		owner:    owner,
		name:     name,
		create:   reg.Create,
		teardown: reg.Close,
		timeout:  r.timeout,
		logger:   r.observer.logger,
	}
}
