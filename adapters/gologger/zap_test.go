package gologger

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapProvider_NamesAndTagsTenantLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	provider := NewZapProvider(zap.New(core))

	logger := ForTenant(provider, " A.com ")
	logger.Info("served", "status", 200)
	logger.Trace("detail")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	first := entries[0]
	if first.LoggerName != "tenant.a.com" || first.Message != "served" {
		t.Fatalf("unexpected entry %s %q", first.LoggerName, first.Message)
	}
	fields := first.ContextMap()
	if fields["tenant"] != "a.com" || fields["status"] != int64(200) {
		t.Fatalf("unexpected fields %v", fields)
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Fatalf("expected trace logged at debug, got %s", entries[1].Level)
	}
}

func TestNewZap_WritesJSON(t *testing.T) {
	var out bytes.Buffer
	logger := NewZapLogger(NewZap(&out, zapcore.InfoLevel, "json"))
	logger.Debug("hidden")
	logger.Warn("visible", "domain", "a.com")
	if err := logger.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	text := out.String()
	if strings.Contains(text, "hidden") || !strings.Contains(text, `"domain":"a.com"`) {
		t.Fatalf("unexpected output %q", text)
	}
}
