package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

func TestHostObservability_TenantAddSuccess(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	host, err := NewHost(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	if err := host.Initialize(context.Background(), []map[string]any{tenantConfig("a.com")}, []ServiceFactory{dbFactory()}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if !hasCounter(metrics.counters, "tenants.tenant_add.total", "success") {
		t.Fatalf("expected tenants.tenant_add.total success counter")
	}
	if !hasHistogram(metrics.histograms, "tenants.tenant_add.duration_ms", "success") {
		t.Fatalf("expected tenants.tenant_add.duration_ms histogram")
	}
	if !hasLog(logger.snapshot(), "info", "tenant_add succeeded", "tenant_add") {
		t.Fatalf("expected tenant_add succeeded structured log")
	}
}

func TestHostObservability_RegisterFailure(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	host, err := NewHost(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}

	if err := host.Register(context.Background(), Registration{Name: "cache", Scope: ScopeHost}); err == nil {
		t.Fatalf("expected registration without factory to fail")
	}
	if !hasCounter(metrics.counters, "tenants.service_register.total", "failure") {
		t.Fatalf("expected service_register failure counter")
	}
	if !hasLog(logger.snapshot(), "error", "service_register failed", "service_register") {
		t.Fatalf("expected service_register failure log")
	}
}

func TestObserver_EnrichesErrorFields(t *testing.T) {
	logger := newCaptureLogger()
	obs := newObserver(logger, nil)
	obs.observe(
		context.Background(),
		time.Now().Add(-10*time.Millisecond),
		"tenant add",
		&NotFoundError{Domain: "a.com"},
		map[string]any{"domain": "a.com"},
	)
	records := logger.snapshot()
	if len(records) != 1 {
		t.Fatalf("expected one log record, got %d", len(records))
	}
	last := records[0]
	if last.fields["error_text_code"] != TenantErrorNotFound {
		t.Fatalf("expected not found text code, got %#v", last.fields["error_text_code"])
	}
	if last.fields["error_category"] != fmt.Sprint(goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category, got %#v", last.fields["error_category"])
	}
	if last.fields["event_type"] != "tenant_add" {
		t.Fatalf("expected normalized operation, got %#v", last.fields["event_type"])
	}
}

func hasCounter(items []capturedCounter, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasHistogram(items []capturedHistogram, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(items []capturedLog, level string, message string, eventType string) bool {
	for _, item := range items {
		if item.level != level {
			continue
		}
		if item.msg != message {
			continue
		}
		if item.fields["event_type"] == eventType {
			return true
		}
	}
	return false
}
