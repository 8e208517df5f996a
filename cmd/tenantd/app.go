package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/goliatone/go-logger/glog"
	tenants "github.com/goliatone/go-tenants"
	"github.com/goliatone/go-tenants/core"
	"github.com/goliatone/go-tenants/loader"
	"github.com/goliatone/go-tenants/security"
	cachestore "github.com/goliatone/go-tenants/store/cache"
	sqlstore "github.com/goliatone/go-tenants/store/sql"
	"github.com/goliatone/go-tenants/transport"
)

// hostConfigKeys are the host file keys read into core.Config. Every other
// key is handed to host-scoped factories as a value.
var hostConfigKeys = map[string]struct{}{
	"service_name":            {},
	"on_tenant_error":         {},
	"on_runtime_tenant_error": {},
	"fail_fast":               {},
	"factory_timeout":         {},
	"max_concurrency":         {},
	"required_services":       {},
}

// boot loads the host and tenant files, boots every tenant with the db and
// log services and returns the host with its HTTP handler.
func boot(ctx context.Context, cfg *Config, provider glog.LoggerProvider, logger glog.Logger) (*core.Host, http.Handler, error) {
	var dec loader.Decrypter
	if cfg.KeyFile != "" {
		cipher, err := security.LoadKeyFile(cfg.KeyFile)
		if err != nil {
			return nil, nil, err
		}
		dec = cipher
	}

	hostValues := map[string]any{}
	if cfg.HostFile != "" {
		loaded, err := loader.LoadHostFile(ctx, cfg.HostFile, dec)
		if err != nil {
			return nil, nil, err
		}
		hostValues = loaded
	}
	configs, err := loader.LoadTenantFiles(ctx, cfg.Tenants, dec)
	if err != nil {
		return nil, nil, err
	}

	dbOpts := []sqlstore.DatabaseOption{sqlstore.WithDatabaseLogger(logger)}
	if cfg.Migrate {
		dbOpts = append(dbOpts, sqlstore.WithMigrations())
	}
	shared := []core.ServiceFactory{
		sqlstore.DatabaseFactory(dbOpts...),
		sqlstore.LogFactory(sqlstore.WithLogProvider(provider)),
	}

	host, err := tenants.Setup(ctx, tenants.Config{}, configs, shared,
		tenants.WithConfigProvider(core.NewCfgxConfigProvider(core.StaticConfigLoader(splitHostValues(hostValues)))),
		tenants.WithLoggerProvider(provider),
		tenants.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	if _, ok := host.Config().Values[cachestore.DefaultURLKey]; ok {
		if err := host.Register(ctx, cachestore.RedisFactory()); err != nil {
			_ = host.Shutdown(ctx)
			return nil, nil, err
		}
	}

	responder, err := transport.NewDefaultRegistry().Build(cfg.Responder, nil)
	if err != nil {
		_ = host.Shutdown(ctx)
		return nil, nil, err
	}
	router := newRouter(host, responder, logger)
	if err := transport.RecordRoutes(router, host.Routes()); err != nil {
		_ = host.Shutdown(ctx)
		return nil, nil, err
	}
	return host, router, nil
}

func splitHostValues(values map[string]any) map[string]any {
	raw := map[string]any{}
	extra := map[string]any{}
	for key, value := range values {
		if _, ok := hostConfigKeys[key]; ok {
			raw[key] = value
			continue
		}
		extra[key] = value
	}
	if len(extra) > 0 {
		raw["values"] = extra
	}
	return raw
}

func newRouter(host *core.Host, responder transport.Responder, logger glog.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Mount("/api/system", transport.NewSystemRouter(host.Registry(), host.Routes()))
	router.Group(func(r chi.Router) {
		r.Use(transport.Middleware(host.Dispatcher(), responder, transport.WithMiddlewareLogger(logger)))
		r.Get("/", siteInfo)
	})
	return router
}

type siteInfoBody struct {
	Domain       string `json:"domain"`
	Mode         string `json:"mode"`
	Title        string `json:"title,omitempty"`
	Slogan       string `json:"slogan,omitempty"`
	SupportEmail string `json:"support_email,omitempty"`
	SupportURL   string `json:"support_url,omitempty"`
}

func siteInfo(w http.ResponseWriter, r *http.Request) {
	tenant, ok := core.TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "tenant missing", http.StatusInternalServerError)
		return
	}
	text := func(key string) string {
		value, _ := tenant.Value(key)
		s, _ := value.(string)
		return s
	}
	tenant.Logger().Debug("site info served", "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(siteInfoBody{
		Domain:       tenant.Domain(),
		Mode:         tenant.Mode(),
		Title:        text("site_title"),
		Slogan:       text("site_slogan"),
		SupportEmail: text("site_support_email"),
		SupportURL:   text("site_support_url"),
	})
}

// httpService runs the HTTP server as a host service. It is registered after
// boot, so shutdown drains it before any tenant service is torn down.
func httpService(addr string, handler http.Handler, grace time.Duration, logger glog.Logger) core.Registration {
	return core.Registration{
		Name:  "http",
		Scope: core.ScopeHost,
		Create: func(_ context.Context, _ core.Source) (any, error) {
			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return nil, fmt.Errorf("tenantd: listen %s: %w", addr, err)
			}
			server := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", "error", err)
				}
			}()
			logger.Info("tenantd listening", "addr", listener.Addr().String())
			return server, nil
		},
		Close: func(ctx context.Context, instance any) error {
			server, ok := instance.(*http.Server)
			if !ok {
				return fmt.Errorf("tenantd: unexpected http instance %T", instance)
			}
			if grace > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, grace)
				defer cancel()
			}
			return server.Shutdown(ctx)
		},
	}
}
