package tenants

import (
	"fmt"

	tenantcommand "github.com/goliatone/go-tenants/command"
	"github.com/goliatone/go-tenants/core"
	tenantquery "github.com/goliatone/go-tenants/query"
)

type CommandQueryService interface {
	tenantcommand.MutatingService
	tenantquery.RequestResolver
	Registry() *core.TenantRegistry
}

type Commands struct {
	AddTenant       *tenantcommand.AddTenantCommand
	RegisterService *tenantcommand.RegisterServiceCommand
	Shutdown        *tenantcommand.ShutdownCommand
}

type Queries struct {
	FindTenant     *tenantquery.FindTenantQuery
	ListTenants    *tenantquery.ListTenantsQuery
	ResolveRequest *tenantquery.ResolveRequestQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("tenants: command/query service is required")
	}
	registry := service.Registry()
	if registry == nil {
		return nil, fmt.Errorf("tenants: tenant registry is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		AddTenant:       tenantcommand.NewAddTenantCommand(service),
		RegisterService: tenantcommand.NewRegisterServiceCommand(service),
		Shutdown:        tenantcommand.NewShutdownCommand(service),
	}
	facade.queries = Queries{
		FindTenant:     tenantquery.NewFindTenantQuery(registry),
		ListTenants:    tenantquery.NewListTenantsQuery(registry),
		ResolveRequest: tenantquery.NewResolveRequestQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
