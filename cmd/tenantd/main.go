package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/goliatone/go-tenants/adapters/gologger"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(run(context.Background(), cfg, os.Stdout))
}

func run(ctx context.Context, cfg *Config, out io.Writer) int {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	base := gologger.NewZap(out, level, cfg.LogFormat)
	defer func() { _ = base.Sync() }()
	provider := gologger.NewZapProvider(base)
	logger := provider.GetLogger("tenantd")

	host, handler, err := boot(ctx, cfg, provider, logger)
	if err != nil {
		logger.Error("boot failed", "error", err)
		return 1
	}
	if err := host.Register(ctx, httpService(cfg.HTTPAddr, handler, cfg.ShutdownTimeout, logger)); err != nil {
		logger.Error("http server failed", "error", err)
		_ = host.Shutdown(ctx)
		return 1
	}
	logger.Info("tenants ready", "count", host.Registry().Len())
	return host.Wait(ctx, syscall.SIGINT, syscall.SIGTERM)
}
