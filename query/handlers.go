package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-tenants/core"
)

type RequestResolver interface {
	Resolve(hostname string) core.Outcome
}

// TenantSummary is the listing view of a ready tenant.
type TenantSummary struct {
	Domain   string   `json:"domain"`
	ID       int64    `json:"id"`
	Node     int64    `json:"node"`
	Mode     string   `json:"mode"`
	Services []string `json:"services"`
}

func Summarize(tenant *core.Tenant) TenantSummary {
	if tenant == nil {
		return TenantSummary{}
	}
	return TenantSummary{
		Domain:   tenant.Domain(),
		ID:       tenant.ID(),
		Node:     tenant.Node(),
		Mode:     tenant.Mode(),
		Services: tenant.ServiceNames(),
	}
}

type FindTenantQuery struct {
	lookup core.TenantLookup
}

func NewFindTenantQuery(lookup core.TenantLookup) *FindTenantQuery {
	return &FindTenantQuery{lookup: lookup}
}

func (q *FindTenantQuery) Query(_ context.Context, msg FindTenantMessage) (*core.Tenant, error) {
	if q == nil || q.lookup == nil {
		return nil, queryDependencyError("query: tenant lookup is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	tenant, ok := q.lookup.FindByDomain(msg.Domain)
	if !ok {
		return nil, core.ServiceErrorMapper(&core.NotFoundError{Domain: core.NormalizeHostname(msg.Domain)})
	}
	return tenant, nil
}

type ListTenantsQuery struct {
	lookup core.TenantLookup
}

func NewListTenantsQuery(lookup core.TenantLookup) *ListTenantsQuery {
	return &ListTenantsQuery{lookup: lookup}
}

func (q *ListTenantsQuery) Query(_ context.Context, msg ListTenantsMessage) ([]TenantSummary, error) {
	if q == nil || q.lookup == nil {
		return nil, queryDependencyError("query: tenant lookup is required")
	}
	mode := strings.ToLower(strings.TrimSpace(msg.Mode))
	tenants := q.lookup.All()
	out := make([]TenantSummary, 0, len(tenants))
	for _, tenant := range tenants {
		if mode != "" && tenant.Mode() != mode {
			continue
		}
		out = append(out, Summarize(tenant))
	}
	return out, nil
}

type ResolveRequestQuery struct {
	resolver RequestResolver
}

func NewResolveRequestQuery(resolver RequestResolver) *ResolveRequestQuery {
	return &ResolveRequestQuery{resolver: resolver}
}

func (q *ResolveRequestQuery) Query(_ context.Context, msg ResolveRequestMessage) (core.Outcome, error) {
	if q == nil || q.resolver == nil {
		return core.Outcome{}, queryDependencyError("query: request resolver is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Outcome{}, err
	}
	return q.resolver.Resolve(msg.Hostname), nil
}
