package command

import (
	"strings"

	"github.com/goliatone/go-tenants/core"
)

const (
	TypeAddTenant       = "tenants.command.tenant.add"
	TypeRegisterService = "tenants.command.service.register"
	TypeShutdown        = "tenants.command.shutdown"
)

type AddTenantMessage struct {
	Config map[string]any
}

func (AddTenantMessage) Type() string { return TypeAddTenant }

func (m AddTenantMessage) Validate() error {
	if len(m.Config) == 0 {
		return commandValidationError("config", "tenant config is required")
	}
	domain, _ := m.Config["domain"].(string)
	if strings.TrimSpace(domain) == "" {
		return commandValidationError("domain", "tenant domain is required")
	}
	return nil
}

type RegisterServiceMessage struct {
	Registration core.Registration
}

func (RegisterServiceMessage) Type() string { return TypeRegisterService }

func (m RegisterServiceMessage) Validate() error {
	if strings.TrimSpace(m.Registration.Name) == "" {
		return commandValidationError("name", "service name is required")
	}
	if m.Registration.Create == nil {
		return commandValidationError("create", "service factory is required")
	}
	switch core.Scope(strings.ToLower(strings.TrimSpace(string(m.Registration.Scope)))) {
	case core.ScopeHost, core.ScopeTenants, core.ScopeBoth:
		return nil
	default:
		return commandValidationError("scope", "scope must be host, tenants or both")
	}
}

type ShutdownMessage struct{}

func (ShutdownMessage) Type() string { return TypeShutdown }

func (ShutdownMessage) Validate() error { return nil }
