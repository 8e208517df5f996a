package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-tenants/core"
)

var (
	_ gocmd.Querier[FindTenantMessage, *core.Tenant]     = (*FindTenantQuery)(nil)
	_ gocmd.Querier[ListTenantsMessage, []TenantSummary] = (*ListTenantsQuery)(nil)
	_ gocmd.Querier[ResolveRequestMessage, core.Outcome] = (*ResolveRequestQuery)(nil)

	_ RequestResolver = (*core.Host)(nil)
)
