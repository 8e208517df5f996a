package command

import (
	"context"

	"github.com/goliatone/go-tenants/core"
)

// MutatingService is the write side of a tenant host.
type MutatingService interface {
	AddTenant(ctx context.Context, cfg map[string]any) error
	Register(ctx context.Context, reg core.Registration) error
	Shutdown(ctx context.Context) error
}

type AddTenantCommand struct {
	service MutatingService
}

func NewAddTenantCommand(service MutatingService) *AddTenantCommand {
	return &AddTenantCommand{service: service}
}

func (c *AddTenantCommand) Execute(ctx context.Context, msg AddTenantMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: add tenant service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.AddTenant(ctx, msg.Config)
}

type RegisterServiceCommand struct {
	service MutatingService
}

func NewRegisterServiceCommand(service MutatingService) *RegisterServiceCommand {
	return &RegisterServiceCommand{service: service}
}

func (c *RegisterServiceCommand) Execute(ctx context.Context, msg RegisterServiceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: register service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.Register(ctx, msg.Registration)
}

type ShutdownCommand struct {
	service MutatingService
}

func NewShutdownCommand(service MutatingService) *ShutdownCommand {
	return &ShutdownCommand{service: service}
}

func (c *ShutdownCommand) Execute(ctx context.Context, _ ShutdownMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: shutdown service is required")
	}
	return c.service.Shutdown(ctx)
}
