package tenants

import (
	"context"

	"github.com/goliatone/go-tenants/core"
)

type Config = core.Config

type Option = core.Option

type Host = core.Host

type Tenant = core.Tenant

type Source = core.Source
type Factory = core.Factory
type Teardown = core.Teardown
type ServiceFactory = core.ServiceFactory
type Registration = core.Registration
type ModelFactory = core.ModelFactory
type Scope = core.Scope
type ErrorPolicy = core.ErrorPolicy

type Outcome = core.Outcome

const (
	ScopeHost    = core.ScopeHost
	ScopeTenants = core.ScopeTenants
	ScopeBoth    = core.ScopeBoth

	PolicyFatal = core.PolicyFatal
	PolicySkip  = core.PolicySkip
)

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithSchema          = core.WithSchema
	WithRouteTable      = core.WithRouteTable
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewHost(cfg Config, opts ...Option) (*Host, error) {
	return core.NewHost(cfg, opts...)
}

// Setup builds a host and boots the given tenant configs with the shared
// factory set. The host is shut down again when boot fails.
func Setup(ctx context.Context, cfg Config, configs []map[string]any, shared []ServiceFactory, opts ...Option) (*Host, error) {
	host, err := core.NewHost(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := host.Initialize(ctx, configs, shared); err != nil {
		_ = host.Shutdown(ctx)
		return nil, err
	}
	return host, nil
}
