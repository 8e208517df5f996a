package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
	"github.com/spf13/cast"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type hostBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	schema          Schema
	routes          *RouteTable
}

type Option func(*hostBuilder)

func WithLogger(logger Logger) Option {
	return func(b *hostBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *hostBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *hostBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *hostBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *hostBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *hostBuilder) {
		b.optionsResolver = resolver
	}
}

// WithSchema replaces the tenant schema used to validate configs.
func WithSchema(schema Schema) Option {
	return func(b *hostBuilder) {
		b.schema = schema
	}
}

func WithRouteTable(routes *RouteTable) Option {
	return func(b *hostBuilder) {
		b.routes = routes
	}
}

func defaultHostBuilder(runtime Config) hostBuilder {
	loggerProvider, logger := glog.Resolve("tenants", nil, nil)
	return hostBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     ServiceErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		schema:          TenantSchema(),
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigLoader serves a fixed raw config map.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	raw, err = normalizeRawConfig(raw)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalizeRawConfig converts loosely typed file values, such as "45s"
// timeouts or "4" concurrency limits, into the field types Config expects.
func normalizeRawConfig(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = value
	}
	if value, ok := out["factory_timeout"]; ok {
		timeout, err := cast.ToDurationE(value)
		if err != nil {
			return nil, &ConfigurationError{Field: "factory_timeout", Message: err.Error()}
		}
		out["factory_timeout"] = timeout
	}
	if value, ok := out["max_concurrency"]; ok {
		limit, err := cast.ToIntE(value)
		if err != nil {
			return nil, &ConfigurationError{Field: "max_concurrency", Message: err.Error()}
		}
		out["max_concurrency"] = limit
	}
	if value, ok := out["fail_fast"]; ok {
		flag, err := cast.ToBoolE(value)
		if err != nil {
			return nil, &ConfigurationError{Field: "fail_fast", Message: err.Error()}
		}
		out["fail_fast"] = flag
	}
	if value, ok := out["required_services"]; ok {
		if text, isText := value.(string); isText {
			out["required_services"] = strings.Split(text, ",")
		} else {
			out["required_services"] = cast.ToStringSlice(value)
		}
	}
	return out, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(string(cfg.OnTenantError)) != "" {
		layer["on_tenant_error"] = string(cfg.OnTenantError)
	}
	if includeZero || strings.TrimSpace(string(cfg.OnRuntimeTenantError)) != "" {
		layer["on_runtime_tenant_error"] = string(cfg.OnRuntimeTenantError)
	}
	if includeZero || cfg.FailFast {
		layer["fail_fast"] = cfg.FailFast
	}
	if includeZero || cfg.FactoryTimeout > 0 {
		layer["factory_timeout"] = cfg.FactoryTimeout
	}
	if includeZero || cfg.MaxConcurrency > 0 {
		layer["max_concurrency"] = cfg.MaxConcurrency
	}
	if includeZero || len(cfg.RequiredServices) > 0 {
		layer["required_services"] = append([]string(nil), cfg.RequiredServices...)
	}
	if includeZero || len(cfg.Values) > 0 {
		values := make(map[string]any, len(cfg.Values))
		for key, value := range cfg.Values {
			values[key] = value
		}
		layer["values"] = values
	}
	return layer
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
