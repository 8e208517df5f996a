package core

import (
	"context"
	"net"
	"strings"
)

type OutcomeKind int

const (
	OutcomeContinue OutcomeKind = iota
	OutcomeNotFound
	OutcomeUnavailable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is the dispatcher decision for one request. Tenant is set for
// OutcomeContinue and OutcomeUnavailable; Err is set for the two failure
// kinds.
type Outcome struct {
	Kind   OutcomeKind
	Domain string
	Tenant *Tenant
	Err    error
}

type DispatcherOption func(*RequestDispatcher)

// WithRequiredServices replaces the services a tenant needs before requests
// are handed to it.
func WithRequiredServices(names ...string) DispatcherOption {
	return func(d *RequestDispatcher) {
		d.required = normalizeNames(names)
	}
}

func WithRoutes(routes *RouteTable) DispatcherOption {
	return func(d *RequestDispatcher) {
		d.routes = routes
	}
}

// RequestDispatcher resolves a request hostname to a ready tenant.
type RequestDispatcher struct {
	lookup   TenantLookup
	required []string
	routes   *RouteTable
}

func NewRequestDispatcher(lookup TenantLookup, opts ...DispatcherOption) *RequestDispatcher {
	d := &RequestDispatcher{
		lookup:   lookup,
		required: []string{ServiceDB},
		routes:   NewRouteTable(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Resolve never panics and never returns a raw error; every failure is an
// outcome.
func (d *RequestDispatcher) Resolve(hostname string) Outcome {
	domain := NormalizeHostname(hostname)
	if d == nil || d.lookup == nil {
		return Outcome{Kind: OutcomeNotFound, Domain: domain, Err: &NotFoundError{Domain: domain}}
	}
	tenant, ok := d.lookup.FindByDomain(domain)
	if !ok || tenant == nil {
		return Outcome{Kind: OutcomeNotFound, Domain: domain, Err: &NotFoundError{Domain: domain}}
	}
	for _, name := range d.required {
		if _, ok := tenant.Service(name); !ok {
			return Outcome{
				Kind:   OutcomeUnavailable,
				Domain: domain,
				Tenant: tenant,
				Err:    &ServiceUnavailableError{Domain: domain, Service: name},
			}
		}
	}
	return Outcome{Kind: OutcomeContinue, Domain: domain, Tenant: tenant}
}

func (d *RequestDispatcher) Routes() *RouteTable {
	return d.routes
}

// Attach stores the tenant and the route table on ctx for a continue
// outcome. Other outcomes return ctx unchanged.
func (d *RequestDispatcher) Attach(ctx context.Context, outcome Outcome) context.Context {
	if outcome.Kind != OutcomeContinue || outcome.Tenant == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, tenantContextKey{}, outcome.Tenant)
	if d != nil && d.routes != nil {
		ctx = context.WithValue(ctx, routesContextKey{}, d.routes)
	}
	return ctx
}

type tenantContextKey struct{}

type routesContextKey struct{}

func TenantFromContext(ctx context.Context) (*Tenant, bool) {
	if ctx == nil {
		return nil, false
	}
	tenant, ok := ctx.Value(tenantContextKey{}).(*Tenant)
	return tenant, ok && tenant != nil
}

func RoutesFromContext(ctx context.Context) (*RouteTable, bool) {
	if ctx == nil {
		return nil, false
	}
	routes, ok := ctx.Value(routesContextKey{}).(*RouteTable)
	return routes, ok && routes != nil
}

// NormalizeHostname strips any port and trailing dot and lower-cases the
// host.
func NormalizeHostname(hostname string) string {
	host := strings.TrimSpace(hostname)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return normalizeDomain(host)
}
