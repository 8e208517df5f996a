package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultFactoryTimeout = 30 * time.Second
)

type Config struct {
	ServiceName          string         `koanf:"service_name" mapstructure:"service_name"`
	OnTenantError        ErrorPolicy    `koanf:"on_tenant_error" mapstructure:"on_tenant_error"`
	OnRuntimeTenantError ErrorPolicy    `koanf:"on_runtime_tenant_error" mapstructure:"on_runtime_tenant_error"`
	FailFast             bool           `koanf:"fail_fast" mapstructure:"fail_fast"`
	FactoryTimeout       time.Duration  `koanf:"factory_timeout" mapstructure:"factory_timeout"`
	MaxConcurrency       int            `koanf:"max_concurrency" mapstructure:"max_concurrency"`
	RequiredServices     []string       `koanf:"required_services" mapstructure:"required_services"`
	Values               map[string]any `koanf:"values" mapstructure:"values"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:          "tenants",
		OnTenantError:        PolicyFatal,
		OnRuntimeTenantError: PolicySkip,
		FactoryTimeout:       defaultFactoryTimeout,
		RequiredServices:     []string{ServiceDB},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if !validPolicy(c.OnTenantError) {
		return fmt.Errorf("core: on_tenant_error must be fatal or skip, got %q", c.OnTenantError)
	}
	if !validPolicy(c.OnRuntimeTenantError) {
		return fmt.Errorf("core: on_runtime_tenant_error must be fatal or skip, got %q", c.OnRuntimeTenantError)
	}
	if c.FactoryTimeout < 0 {
		return fmt.Errorf("core: factory_timeout must not be negative")
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("core: max_concurrency must not be negative")
	}
	return nil
}

func validPolicy(policy ErrorPolicy) bool {
	switch ErrorPolicy(strings.ToLower(strings.TrimSpace(string(policy)))) {
	case PolicyFatal, PolicySkip:
		return true
	default:
		return false
	}
}
