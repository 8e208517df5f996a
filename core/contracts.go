package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Source is the input handed to a service factory. Host-scoped factories
// receive the host services, tenant-scoped factories receive the tenant as
// enriched so far.
type Source interface {
	Owner() string
	Value(key string) (any, bool)
	Service(name string) (any, bool)
}

// Factory creates one service instance for the given source.
type Factory func(ctx context.Context, src Source) (any, error)

// Teardown releases an instance created by a Factory.
type Teardown func(ctx context.Context, instance any) error

// ServiceFactory is one entry of the ordered factory set applied to a tenant
// during enrichment.
type ServiceFactory struct {
	Name   string
	Create Factory
	Close  Teardown
}

type Scope string

const (
	ScopeHost    Scope = "host"
	ScopeTenants Scope = "tenants"
	ScopeBoth    Scope = "both"
)

// Registration describes a named service registered after boot.
type Registration struct {
	Name   string
	Create Factory
	Close  Teardown
	Scope  Scope
}

type ErrorPolicy string

const (
	PolicyFatal ErrorPolicy = "fatal"
	PolicySkip  ErrorPolicy = "skip"
)

const (
	ServiceDB  = "db"
	ServiceLog = "log"
	HostOwner  = "host"

	// TenantsOwner names the tenant-wide factory set, which later tenants
	// are enriched with.
	TenantsOwner = "*"
)
