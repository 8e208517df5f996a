package core

import (
	"context"
	"maps"
	"os"

	glog "github.com/goliatone/go-logger/glog"
)

// Host wires the registry, registrar, dispatcher and shutdown coordinator
// around one shared close stack.
type Host struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver

	stack      *CloseStack
	services   *HostServices
	registry   *TenantRegistry
	registrar  *ServiceRegistrar
	dispatcher *RequestDispatcher
	shutdown   *ShutdownCoordinator
	routes     *RouteTable
}

func NewHost(cfg Config, opts ...Option) (*Host, error) {
	builder := defaultHostBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("tenants", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("tenants"); named != nil {
			logger = glog.Ensure(named)
		}
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = ServiceErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if len(builder.schema) == 0 {
		builder.schema = TenantSchema()
	}
	if builder.routes == nil {
		builder.routes = NewRouteTable()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	stack := NewCloseStack()
	enricher := NewEnricher(provider, logger, finalConfig.FactoryTimeout, finalConfig.RequiredServices)
	registry := NewTenantRegistry(enricher, stack,
		WithRegistrySchema(builder.schema),
		WithRuntimePolicy(finalConfig.OnRuntimeTenantError),
		WithRegistryObserver(logger, builder.metricsRecorder),
	)
	services := NewHostServices(finalConfig.Values)
	registrar := NewServiceRegistrar(services, registry, stack,
		WithFailFast(finalConfig.FailFast),
		WithMaxConcurrency(finalConfig.MaxConcurrency),
		WithFactoryTimeout(finalConfig.FactoryTimeout),
		WithRegistrarObserver(logger, builder.metricsRecorder),
	)
	dispatcher := NewRequestDispatcher(registry,
		WithRequiredServices(finalConfig.RequiredServices...),
		WithRoutes(builder.routes),
	)

	return &Host{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		stack:           stack,
		services:        services,
		registry:        registry,
		registrar:       registrar,
		dispatcher:      dispatcher,
		shutdown:        NewShutdownCoordinator(stack, logger, builder.metricsRecorder),
		routes:          builder.routes,
	}, nil
}

// Initialize loads the boot tenants with the boot error policy.
func (h *Host) Initialize(ctx context.Context, configs []map[string]any, shared []ServiceFactory) error {
	return h.registry.Initialize(ctx, configs, shared, WithPolicy(h.config.OnTenantError))
}

// AddTenant adds one tenant at runtime with the runtime error policy.
func (h *Host) AddTenant(ctx context.Context, cfg map[string]any) error {
	return h.registry.Add(ctx, cfg)
}

func (h *Host) Register(ctx context.Context, reg Registration) error {
	return h.registrar.Register(ctx, reg)
}

// RegisterModel adds a per-tenant domain model. See ServiceRegistrar.RegisterModel.
func (h *Host) RegisterModel(ctx context.Context, name string, create ModelFactory) error {
	return h.registrar.RegisterModel(ctx, name, create)
}

func (h *Host) Resolve(hostname string) Outcome {
	return h.dispatcher.Resolve(hostname)
}

func (h *Host) Shutdown(ctx context.Context) error {
	return h.shutdown.Shutdown(ctx)
}

func (h *Host) Wait(ctx context.Context, signals ...os.Signal) int {
	return h.shutdown.Wait(ctx, signals...)
}

// MapError converts err into the go-errors envelope used at transport
// boundaries.
func (h *Host) MapError(err error) error {
	return mapBuildError(h.errorMapper, err)
}

func (h *Host) Config() Config {
	cfg := h.config
	cfg.RequiredServices = append([]string(nil), h.config.RequiredServices...)
	cfg.Values = maps.Clone(h.config.Values)
	return cfg
}

func (h *Host) Logger() Logger { return h.logger }

func (h *Host) LoggerProvider() LoggerProvider { return h.loggerProvider }

func (h *Host) MetricsRecorder() MetricsRecorder { return h.metricsRecorder }

func (h *Host) Registry() *TenantRegistry { return h.registry }

func (h *Host) Registrar() *ServiceRegistrar { return h.registrar }

func (h *Host) Dispatcher() *RequestDispatcher { return h.dispatcher }

func (h *Host) Services() *HostServices { return h.services }

func (h *Host) Routes() *RouteTable { return h.routes }

func (h *Host) CloseStack() *CloseStack { return h.stack }

func (h *Host) ShutdownCoordinator() *ShutdownCoordinator { return h.shutdown }
