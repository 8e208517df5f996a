package cachestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goliatone/go-tenants/core"
	"github.com/spf13/cast"
)

const (
	DefaultName        = "cache"
	DefaultURLKey      = "redis_url"
	DefaultPingTimeout = 2 * time.Second
)

type RedisOption func(*redisOptions)

type redisOptions struct {
	name        string
	urlKey      string
	scope       core.Scope
	pingTimeout time.Duration
}

// WithName sets the service name, "cache" by default.
func WithName(name string) RedisOption {
	return func(o *redisOptions) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			o.name = trimmed
		}
	}
}

// WithURLKey sets the source value holding the redis URL, "redis_url" by
// default.
func WithURLKey(key string) RedisOption {
	return func(o *redisOptions) {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			o.urlKey = trimmed
		}
	}
}

func WithScope(scope core.Scope) RedisOption {
	return func(o *redisOptions) { o.scope = scope }
}

func WithPingTimeout(timeout time.Duration) RedisOption {
	return func(o *redisOptions) {
		if timeout > 0 {
			o.pingTimeout = timeout
		}
	}
}

// RedisFactory returns a host-scoped registration whose instance is a
// *redis.Client built from the source's redis URL. With tenant scope each
// tenant reads the URL from its own config.
func RedisFactory(opts ...RedisOption) core.Registration {
	options := redisOptions{
		name:        DefaultName,
		urlKey:      DefaultURLKey,
		scope:       core.ScopeHost,
		pingTimeout: DefaultPingTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return core.Registration{
		Name:  options.name,
		Scope: options.scope,
		Create: func(ctx context.Context, src core.Source) (any, error) {
			raw, _ := src.Value(options.urlKey)
			return Connect(ctx, cast.ToString(raw), options.pingTimeout)
		},
		Close: CloseClient,
	}
}

// Connect parses rawURL, connects and pings.
func Connect(ctx context.Context, rawURL string, pingTimeout time.Duration) (*redis.Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, &core.ConfigurationError{Field: DefaultURLKey, Message: "redis url is required"}
	}
	redisOpts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, &core.ConfigurationError{Field: DefaultURLKey, Message: err.Error()}
	}
	client := redis.NewClient(redisOpts)

	if pingTimeout <= 0 {
		pingTimeout = DefaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cachestore: ping %s: %w", redisOpts.Addr, err)
	}
	return client, nil
}

func CloseClient(_ context.Context, instance any) error {
	client, ok := instance.(*redis.Client)
	if !ok || client == nil {
		return fmt.Errorf("cachestore: unexpected cache instance %T", instance)
	}
	return client.Close()
}

// TenantKey namespaces key under the tenant domain so tenants can share one
// host-scoped client.
func TenantKey(tenant *core.Tenant, key string) string {
	if tenant == nil {
		return "tenants:host:" + key
	}
	return "tenants:" + tenant.Domain() + ":" + key
}
