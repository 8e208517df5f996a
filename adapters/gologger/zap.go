package gologger

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZap builds a zap logger writing to w. format is "json" or "console".
func NewZap(w io.Writer, level zapcore.Level, format string) *zap.Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(time.RFC3339))
	}
	config.EncodeDuration = func(d time.Duration, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(d.String())
	}
	encoder := zapcore.NewConsoleEncoder(config)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		encoder = zapcore.NewJSONEncoder(config)
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level))
}

// ZapProvider hands out named glog loggers backed by one zap logger.
type ZapProvider struct {
	base *zap.Logger
}

func NewZapProvider(base *zap.Logger) *ZapProvider {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapProvider{base: base}
}

func (p *ZapProvider) GetLogger(name string) glog.Logger {
	return NewZapLogger(p.base.Named(name))
}

// ZapLogger adapts a zap logger to glog. Trace lines are logged at debug.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

func NewZapLogger(base *zap.Logger) *ZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{sugar: base.Sugar()}
}

func (l *ZapLogger) Trace(msg string, args ...any) { l.sugar.Debugw(msg, args...) }

func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }

func (l *ZapLogger) Info(msg string, args ...any) { l.sugar.Infow(msg, args...) }

func (l *ZapLogger) Warn(msg string, args ...any) { l.sugar.Warnw(msg, args...) }

func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

func (l *ZapLogger) Fatal(msg string, args ...any) { l.sugar.Fatalw(msg, args...) }

func (l *ZapLogger) WithContext(context.Context) glog.Logger { return l }

func (l *ZapLogger) WithFields(fields map[string]any) glog.Logger {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return &ZapLogger{sugar: l.sugar.With(args...)}
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

var (
	_ glog.LoggerProvider = (*ZapProvider)(nil)
	_ glog.FieldsLogger   = (*ZapLogger)(nil)
)
