package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-tenants/core"
	"github.com/goliatone/go-tenants/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const DefaultPingTimeout = 5 * time.Second

// Endpoint is a parsed tenant db_url.
type Endpoint struct {
	Driver  string
	Dialect string
	DSN     string
}

// ParseDatabaseURL accepts postgres://, postgresql://, sqlite:// and file:
// URLs.
func ParseDatabaseURL(raw string) (Endpoint, error) {
	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)
	switch {
	case value == "":
		return Endpoint{}, &core.ConfigurationError{Field: "db_url", Message: "db_url is required"}
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Endpoint{Driver: "postgres", Dialect: migrations.DialectPostgres, DSN: value}, nil
	case strings.HasPrefix(lower, "sqlite://"):
		dsn := value[len("sqlite://"):]
		if dsn == "" {
			return Endpoint{}, &core.ConfigurationError{Field: "db_url", Message: "sqlite db_url needs a path"}
		}
		return Endpoint{Driver: "sqlite3", Dialect: migrations.DialectSQLite, DSN: dsn}, nil
	case strings.HasPrefix(lower, "file:"):
		return Endpoint{Driver: "sqlite3", Dialect: migrations.DialectSQLite, DSN: value}, nil
	default:
		return Endpoint{}, &core.ConfigurationError{Field: "db_url", Message: fmt.Sprintf("unsupported db_url scheme in %q", redactURL(value))}
	}
}

type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	pingTimeout time.Duration
	debug       bool
	migrate     bool
	otelID      string
	logger      core.Logger
}

func WithPingTimeout(timeout time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		if timeout > 0 {
			o.pingTimeout = timeout
		}
	}
}

func WithDebug(debug bool) DatabaseOption {
	return func(o *databaseOptions) { o.debug = debug }
}

// WithMigrations applies the embedded tenant schema after connecting.
func WithMigrations() DatabaseOption {
	return func(o *databaseOptions) { o.migrate = true }
}

func WithOtelIdentifier(id string) DatabaseOption {
	return func(o *databaseOptions) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			o.otelID = trimmed
		}
	}
}

func WithDatabaseLogger(logger core.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func resolveDatabaseOptions(opts []DatabaseOption) databaseOptions {
	options := databaseOptions{
		pingTimeout: DefaultPingTimeout,
		otelID:      "go-tenants",
		logger:      glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// DatabaseFactory builds the tenant db service from the tenant's db_url. The
// instance is a *persistence.Client and its teardown closes the client.
func DatabaseFactory(opts ...DatabaseOption) core.ServiceFactory {
	options := resolveDatabaseOptions(opts)
	return core.ServiceFactory{
		Name: core.ServiceDB,
		Create: func(ctx context.Context, src core.Source) (any, error) {
			raw, _ := src.Value("db_url")
			dbURL, _ := raw.(string)
			client, err := openDatabase(ctx, dbURL, options)
			if err != nil {
				return nil, err
			}
			options.logger.Debug("tenant database connected", "tenant", src.Owner(), "url", redactURL(dbURL))
			return client, nil
		},
		Close: CloseDatabase,
	}
}

// OpenDatabase connects to dbURL, pings it and optionally migrates it.
func OpenDatabase(ctx context.Context, dbURL string, opts ...DatabaseOption) (*persistence.Client, error) {
	return openDatabase(ctx, dbURL, resolveDatabaseOptions(opts))
}

// CloseDatabase is the teardown paired with DatabaseFactory.
func CloseDatabase(_ context.Context, instance any) error {
	client, ok := instance.(*persistence.Client)
	if !ok || client == nil {
		return fmt.Errorf("sqlstore: unexpected db instance %T", instance)
	}
	return client.Close()
}

func openDatabase(ctx context.Context, dbURL string, options databaseOptions) (*persistence.Client, error) {
	endpoint, err := ParseDatabaseURL(dbURL)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(endpoint.Driver, endpoint.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", endpoint.Driver, err)
	}
	if endpoint.Dialect == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, options.pingTimeout)
	err = sqlDB.PingContext(pingCtx)
	cancel()
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", redactURL(dbURL), err)
	}

	cfg := clientConfig{
		driver:      endpoint.Driver,
		server:      endpoint.DSN,
		debug:       options.debug,
		pingTimeout: options.pingTimeout,
		otelID:      options.otelID,
	}
	client, err := persistence.New(cfg, sqlDB, dialectFor(endpoint))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: persistence client: %w", err)
	}

	if options.migrate {
		err := migrations.Apply(ctx, endpoint.Dialect,
			func(fsys fs.FS) { client.RegisterSQLMigrations(fsys) },
			func(ctx context.Context) error { return client.Migrate(ctx) },
		)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

func dialectFor(endpoint Endpoint) schema.Dialect {
	if endpoint.Dialect == migrations.DialectPostgres {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}

type clientConfig struct {
	driver      string
	server      string
	debug       bool
	pingTimeout time.Duration
	otelID      string
}

func (c clientConfig) GetDebug() bool { return c.debug }

func (c clientConfig) GetDriver() string { return c.driver }

func (c clientConfig) GetServer() string { return c.server }

func (c clientConfig) GetPingTimeout() time.Duration { return c.pingTimeout }

func (c clientConfig) GetOtelIdentifier() string { return c.otelID }

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: db service is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: db service returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported db service type %T", candidate)
	}
}

// redactURL drops the password from postgres URLs before they reach logs.
func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	return parsed.Redacted()
}
