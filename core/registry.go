package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// TenantLookup is the read side of the registry used by the dispatcher and
// transport handlers.
type TenantLookup interface {
	FindByDomain(domain string) (*Tenant, bool)
	All() []*Tenant
	Len() int
}

// SkippedTenant records a tenant left out of the ready set under the skip
// policy.
type SkippedTenant struct {
	Domain string
	Err    error
}

type RegistryOption func(*TenantRegistry)

func WithRegistrySchema(schema Schema) RegistryOption {
	return func(r *TenantRegistry) {
		if len(schema) > 0 {
			r.schema = schema
		}
	}
}

func WithRuntimePolicy(policy ErrorPolicy) RegistryOption {
	return func(r *TenantRegistry) {
		r.runtimePolicy = normalizePolicy(policy, PolicySkip)
	}
}

func WithRegistryObserver(logger Logger, metrics MetricsRecorder) RegistryOption {
	return func(r *TenantRegistry) {
		r.observer = newObserver(logger, metrics)
	}
}

type initOptions struct {
	policy ErrorPolicy
}

type InitOption func(*initOptions)

// WithPolicy sets how Initialize handles a failing tenant.
func WithPolicy(policy ErrorPolicy) InitOption {
	return func(o *initOptions) {
		o.policy = normalizePolicy(policy, PolicyFatal)
	}
}

// TenantRegistry holds the ready tenants in insertion order with a
// case-insensitive domain index.
type TenantRegistry struct {
	mu            sync.RWMutex
	tenants       []*Tenant
	byDomain      map[string]*Tenant
	skipped       []SkippedTenant
	factories     []ServiceFactory
	models        []modelFactory
	enricher      *Enricher
	closeStack    *CloseStack
	schema        Schema
	runtimePolicy ErrorPolicy
	observer      observer
}

func NewTenantRegistry(enricher *Enricher, closeStack *CloseStack, opts ...RegistryOption) *TenantRegistry {
	if enricher == nil {
		enricher = NewEnricher(nil, nil, 0, nil)
	}
	if closeStack == nil {
		closeStack = NewCloseStack()
	}
	r := &TenantRegistry{
		byDomain:      map[string]*Tenant{},
		enricher:      enricher,
		closeStack:    closeStack,
		schema:        TenantSchema(),
		runtimePolicy: PolicySkip,
		observer:      newObserver(nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Initialize resets the registry and adds configs in order with the shared
// factory set. The default policy is fatal: the first failure is returned.
func (r *TenantRegistry) Initialize(ctx context.Context, configs []map[string]any, shared []ServiceFactory, opts ...InitOption) error {
	options := initOptions{policy: PolicyFatal}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	r.mu.Lock()
	r.tenants = nil
	r.byDomain = map[string]*Tenant{}
	r.skipped = nil
	r.factories = append([]ServiceFactory(nil), shared...)
	r.mu.Unlock()

	for _, cfg := range configs {
		if err := r.add(ctx, cfg, shared, options.policy); err != nil {
			return err
		}
	}
	return nil
}

// Add registers one tenant at runtime with the shared factory set.
func (r *TenantRegistry) Add(ctx context.Context, cfg map[string]any) error {
	return r.add(ctx, cfg, r.sharedFactories(), r.runtimePolicy)
}

func (r *TenantRegistry) AddWithFactories(ctx context.Context, cfg map[string]any, factories []ServiceFactory) error {
	return r.add(ctx, cfg, factories, r.runtimePolicy)
}

func (r *TenantRegistry) add(ctx context.Context, raw map[string]any, factories []ServiceFactory, policy ErrorPolicy) (err error) {
	startedAt := time.Now()
	domain := normalizeDomain(cast.ToString(raw["domain"]))
	defer func() {
		r.observer.observe(ctx, startedAt, "tenant_add", err, map[string]any{"domain": domain})
	}()

	if r.closeStack.Closed() {
		return ErrShutdownInProgress
	}
	config, err := ValidateTenantConfig(raw, r.schema)
	if err != nil {
		return r.fail(ctx, domain, err, policy)
	}
	domain = cast.ToString(config["domain"])
	if _, exists := r.FindByDomain(domain); exists {
		return r.fail(ctx, domain, &DuplicateDomainError{Domain: domain}, policy)
	}

	tenant, entries, err := r.enricher.Enrich(ctx, newTenant(config), factories)
	if err != nil {
		return r.fail(ctx, domain, err, policy)
	}
	if tenant, entries, err = r.buildModels(ctx, tenant, entries); err != nil {
		if teardownErr := teardownEntries(context.WithoutCancel(ctx), entries, r.observer.logger); teardownErr != nil {
			r.observer.logger.Warn("rejected tenant teardown failed", "domain", domain, "error", teardownErr)
		}
		return r.fail(ctx, domain, err, policy)
	}
	if err := r.commit(tenant, entries); err != nil {
		if teardownErr := teardownEntries(context.WithoutCancel(ctx), entries, r.observer.logger); teardownErr != nil {
			r.observer.logger.Warn("rejected tenant teardown failed", "domain", domain, "error", teardownErr)
		}
		return r.fail(ctx, domain, err, policy)
	}
	return nil
}

func (r *TenantRegistry) commit(tenant *Tenant, entries []CloseEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byDomain[tenant.Domain()]; exists {
		return &DuplicateDomainError{Domain: tenant.Domain()}
	}
	if err := r.closeStack.PushAll(entries); err != nil {
		return err
	}
	r.tenants = append(r.tenants, tenant)
	r.byDomain[tenant.Domain()] = tenant
	return nil
}

// fail applies policy to err. Under skip the failure is logged, recorded and
// swallowed. Shutdown is never swallowed.
func (r *TenantRegistry) fail(ctx context.Context, domain string, err error, policy ErrorPolicy) error {
	if policy != PolicySkip || errors.Is(err, ErrShutdownInProgress) {
		return err
	}
	r.recordSkip(domain, err)
	r.observer.log(ctx, "warn", "tenant skipped", map[string]any{"domain": domain, "error": err.Error()})
	return nil
}

func (r *TenantRegistry) recordSkip(domain string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, SkippedTenant{Domain: domain, Err: err})
}

func (r *TenantRegistry) FindByDomain(domain string) (*Tenant, bool) {
	key := normalizeDomain(domain)
	if key == "" {
		return nil, false
	}
	r.mu.RLock()
	tenant, ok := r.byDomain[key]
	r.mu.RUnlock()
	return tenant, ok
}

func (r *TenantRegistry) All() []*Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Tenant(nil), r.tenants...)
}

func (r *TenantRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tenants)
}

func (r *TenantRegistry) Skipped() []SkippedTenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]SkippedTenant(nil), r.skipped...)
}

// Replace swaps in a new value for an existing tenant, keeping its position.
// It reports false when the domain is not registered.
func (r *TenantRegistry) Replace(tenant *Tenant) bool {
	if tenant == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaceLocked(tenant)
}

func (r *TenantRegistry) replaceLocked(tenant *Tenant) bool {
	if _, ok := r.byDomain[tenant.Domain()]; !ok {
		return false
	}
	for i, current := range r.tenants {
		if current.Domain() == tenant.Domain() {
			r.tenants[i] = tenant
			break
		}
	}
	r.byDomain[tenant.Domain()] = tenant
	return true
}

// Remove drops a tenant from the ready set. Its close entries stay on the
// close stack.
func (r *TenantRegistry) Remove(domain string) bool {
	key := normalizeDomain(domain)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byDomain[key]; !ok {
		return false
	}
	delete(r.byDomain, key)
	for i, current := range r.tenants {
		if current.Domain() == key {
			r.tenants = append(r.tenants[:i:i], r.tenants[i+1:]...)
			break
		}
	}
	return true
}

// attach adds one service to a registered tenant as a single step: the
// duplicate check, the close entry push and the swap happen under the lock.
func (r *TenantRegistry) attach(domain, name string, instance any, teardown Teardown) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byDomain[domain]
	if !ok {
		return &NotFoundError{Domain: domain}
	}
	if current.Has(name) {
		return &DuplicateServiceError{Owner: domain, Name: name}
	}
	if teardown != nil {
		if err := r.closeStack.Push(CloseEntry{Owner: domain, Name: name, Instance: instance, Close: teardown}); err != nil {
			return err
		}
	}
	r.replaceLocked(current.with(name, instance))
	return nil
}

// appendFactory records factory for tenants added later. It reports false
// when a factory with the same name is already recorded.
func (r *TenantRegistry) appendFactory(factory ServiceFactory) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.factories {
		if existing.Name == factory.Name {
			return false
		}
	}
	r.factories = append(r.factories, factory)
	return true
}

func (r *TenantRegistry) hasFactory(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, existing := range r.factories {
		if existing.Name == name {
			return true
		}
	}
	return false
}

func (r *TenantRegistry) sharedFactories() []ServiceFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ServiceFactory(nil), r.factories...)
}

func normalizePolicy(policy ErrorPolicy, fallback ErrorPolicy) ErrorPolicy {
	switch ErrorPolicy(strings.ToLower(strings.TrimSpace(string(policy)))) {
	case PolicyFatal:
		return PolicyFatal
	case PolicySkip:
		return PolicySkip
	default:
		return fallback
	}
}
