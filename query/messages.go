package query

import (
	"strings"
)

const (
	TypeFindTenant     = "tenants.query.tenant.find"
	TypeListTenants    = "tenants.query.tenant.list"
	TypeResolveRequest = "tenants.query.request.resolve"
)

type FindTenantMessage struct {
	Domain string
}

func (FindTenantMessage) Type() string { return TypeFindTenant }

func (m FindTenantMessage) Validate() error {
	if strings.TrimSpace(m.Domain) == "" {
		return queryValidationError("domain", "tenant domain is required")
	}
	return nil
}

type ListTenantsMessage struct {
	// Mode filters by tenant mode when set.
	Mode string
}

func (ListTenantsMessage) Type() string { return TypeListTenants }

func (ListTenantsMessage) Validate() error { return nil }

type ResolveRequestMessage struct {
	Hostname string
}

func (ResolveRequestMessage) Type() string { return TypeResolveRequest }

func (m ResolveRequestMessage) Validate() error {
	if strings.TrimSpace(m.Hostname) == "" {
		return queryValidationError("hostname", "request hostname is required")
	}
	return nil
}
