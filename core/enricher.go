package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-logger/glog"
)

// Enricher applies service factories to a draft tenant.
type Enricher struct {
	provider LoggerProvider
	logger   Logger
	timeout  time.Duration
	required []string
}

// NewEnricher builds an enricher. timeout bounds each factory call (zero
// disables it) and required lists services every tenant must end up with.
func NewEnricher(provider LoggerProvider, logger Logger, timeout time.Duration, required []string) *Enricher {
	provider, logger = glog.Resolve("tenants", provider, logger)
	return &Enricher{
		provider: provider,
		logger:   logger,
		timeout:  timeout,
		required: normalizeNames(required),
	}
}

// Enrich runs factories in order against draft. Each factory sees the tenant
// as enriched so far. On success it returns the frozen tenant and the close
// entries the caller must push once the tenant is committed; on failure every
// instance created here is torn down, newest first, before returning.
func (e *Enricher) Enrich(ctx context.Context, draft *Tenant, factories []ServiceFactory) (*Tenant, []CloseEntry, error) {
	tenant := draft
	domain := draft.Domain()
	var created []CloseEntry

	rollback := func(cause error) (*Tenant, []CloseEntry, error) {
		if err := teardownEntries(context.WithoutCancel(ctx), created, e.logger); err != nil {
			e.logger.Warn("tenant rollback teardown failed", "domain", domain, "error", err)
		}
		return nil, nil, cause
	}

	for _, factory := range factories {
		if factory.Create == nil {
			continue
		}
		name := strings.TrimSpace(factory.Name)
		if name == "" {
			return rollback(&ConfigurationError{Field: "name", Message: "service name is required"})
		}
		if tenant.Has(name) {
			return rollback(&DuplicateServiceError{Owner: domain, Name: name})
		}

		call := factoryCall{
			owner:    domain,
			name:     name,
			create:   factory.Create,
			teardown: factory.Close,
			timeout:  e.timeout,
			logger:   e.logger,
		}
		instance, err := call.run(ctx, tenant)
		if err != nil {
			return rollback(fmt.Errorf("core: tenant %q service %q: %w", domain, name, err))
		}

		tenant = tenant.with(name, instance)
		if factory.Close != nil {
			created = append(created, CloseEntry{Owner: domain, Name: name, Instance: instance, Close: factory.Close})
		}
	}

	if _, ok := tenant.Service(ServiceLog); !ok {
		tenant = tenant.with(ServiceLog, e.tenantLogger(domain))
	}
	for _, name := range e.required {
		if _, ok := tenant.Service(name); !ok {
			return rollback(&MissingDependencyError{Domain: domain, Service: name})
		}
	}
	return tenant, created, nil
}

func (e *Enricher) tenantLogger(domain string) Logger {
	logger := glog.Ensure(e.provider.GetLogger("tenant." + domain))
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		return fieldsLogger.WithFields(map[string]any{"tenant": domain})
	}
	return logger
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := map[string]struct{}{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
