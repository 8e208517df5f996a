package core

import (
	"context"
	"fmt"
	"sync"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type namedLoggerProvider struct {
	mu    sync.Mutex
	names []string
}

func (p *namedLoggerProvider) GetLogger(name string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, name)
	return stubLogger{}
}

func (p *namedLoggerProvider) requested() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.names...)
}

type fakeDB struct {
	domain string
	closed bool
}

// closeRecorder collects teardown calls in the order they happen.
type closeRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *closeRecorder) teardown(label string) Teardown {
	return func(context.Context, any) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.order = append(r.order, label)
		return nil
	}
}

func (r *closeRecorder) closed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func tenantConfig(domain string) map[string]any {
	return map[string]any{
		"id":                  1,
		"node":                1,
		"mode":                ModeDevelopment,
		"domain":              domain,
		"db_url":              "sqlite://" + domain,
		"log_collection_name": "logs",
		"site_title":          "Site " + domain,
		"site_slogan":         "Slogan",
		"site_owner":          "Owner",
		"site_author":         "Author",
		"site_copyright":      2025,
		"site_support_email":  "support@" + domain,
		"site_support_url":    "https://" + domain + "/support",
	}
}

func dbFactory() ServiceFactory {
	return ServiceFactory{
		Name: ServiceDB,
		Create: func(_ context.Context, src Source) (any, error) {
			return &fakeDB{domain: src.Owner()}, nil
		},
		Close: func(_ context.Context, instance any) error {
			db, ok := instance.(*fakeDB)
			if !ok {
				return fmt.Errorf("unexpected instance %T", instance)
			}
			db.closed = true
			return nil
		},
	}
}

func newTestRegistry(opts ...RegistryOption) (*TenantRegistry, *CloseStack) {
	stack := NewCloseStack()
	enricher := NewEnricher(nil, stubLogger{}, 0, []string{ServiceDB})
	return NewTenantRegistry(enricher, stack, opts...), stack
}
