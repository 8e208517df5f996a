package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-tenants/adapters/gologger"
	"github.com/goliatone/go-tenants/core"
	"github.com/spf13/cast"
)

type LogOption func(*logOptions)

type logOptions struct {
	provider  core.LoggerProvider
	storeOpts []LogStoreOption
}

// WithLogProvider sets the provider of the console logger every tenant log
// line is also written to.
func WithLogProvider(provider core.LoggerProvider) LogOption {
	return func(o *logOptions) { o.provider = provider }
}

func WithLogStoreOptions(opts ...LogStoreOption) LogOption {
	return func(o *logOptions) { o.storeOpts = append(o.storeOpts, opts...) }
}

// LogFactory builds the tenant log service. It needs the db service and
// reads log_collection_name, log_expiration_days, log_capped and
// log_max_docs from the tenant config. Expired and over-cap entries are
// pruned when the service is created and after each write.
func LogFactory(opts ...LogOption) core.ServiceFactory {
	options := logOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return core.ServiceFactory{
		Name: core.ServiceLog,
		Create: func(ctx context.Context, src core.Source) (any, error) {
			owner := src.Owner()
			dbService, ok := src.Service(core.ServiceDB)
			if !ok {
				return nil, &core.MissingDependencyError{Domain: owner, Service: core.ServiceDB}
			}
			db, err := resolveBunDB(dbService)
			if err != nil {
				return nil, err
			}
			store, err := NewLogStore(db, options.storeOpts...)
			if err != nil {
				return nil, err
			}

			raw, _ := src.Value("log_collection_name")
			collection := strings.TrimSpace(cast.ToString(raw))
			if collection == "" {
				return nil, &core.ConfigurationError{Field: "log_collection_name", Message: "log_collection_name is required"}
			}

			logger := NewTenantLogger(store, collection, owner, retentionFrom(src), gologger.ForTenant(options.provider, owner))
			if _, err := store.Prune(ctx, collection, logger.policy); err != nil {
				return nil, fmt.Errorf("sqlstore: prune %q: %w", collection, err)
			}
			return logger, nil
		},
	}
}

func retentionFrom(src core.Source) RetentionPolicy {
	var policy RetentionPolicy
	if value, ok := src.Value("log_expiration_days"); ok {
		if days := cast.ToInt(value); days > 0 {
			policy.TTL = time.Duration(days) * 24 * time.Hour
		}
	}
	if value, ok := src.Value("log_capped"); ok {
		policy.Capped = cast.ToBool(value)
	}
	if value, ok := src.Value("log_max_docs"); ok {
		policy.MaxDocs = cast.ToInt(value)
	}
	return policy
}

// TenantLogger is a glog.Logger that persists every line to a tenant log
// collection and forwards it to a console logger.
type TenantLogger struct {
	store      *LogStore
	console    glog.Logger
	collection string
	tenant     string
	policy     RetentionPolicy
	fields     map[string]any
	ctx        context.Context
}

func NewTenantLogger(store *LogStore, collection, tenant string, policy RetentionPolicy, console glog.Logger) *TenantLogger {
	return &TenantLogger{
		store:      store,
		console:    glog.Ensure(console),
		collection: strings.TrimSpace(collection),
		tenant:     tenant,
		policy:     policy,
		fields:     map[string]any{},
		ctx:        context.Background(),
	}
}

func (l *TenantLogger) Collection() string { return l.collection }

func (l *TenantLogger) Policy() RetentionPolicy { return l.policy }

func (l *TenantLogger) Store() *LogStore { return l.store }

func (l *TenantLogger) Trace(msg string, args ...any) {
	l.write("trace", msg, args)
	l.console.Trace(msg, args...)
}

func (l *TenantLogger) Debug(msg string, args ...any) {
	l.write("debug", msg, args)
	l.console.Debug(msg, args...)
}

func (l *TenantLogger) Info(msg string, args ...any) {
	l.write("info", msg, args)
	l.console.Info(msg, args...)
}

func (l *TenantLogger) Warn(msg string, args ...any) {
	l.write("warn", msg, args)
	l.console.Warn(msg, args...)
}

func (l *TenantLogger) Error(msg string, args ...any) {
	l.write("error", msg, args)
	l.console.Error(msg, args...)
}

func (l *TenantLogger) Fatal(msg string, args ...any) {
	l.write("fatal", msg, args)
	l.console.Fatal(msg, args...)
}

func (l *TenantLogger) WithContext(ctx context.Context) glog.Logger {
	next := l.clone()
	if ctx != nil {
		next.ctx = ctx
	}
	next.console = l.console.WithContext(next.ctx)
	return next
}

func (l *TenantLogger) WithFields(fields map[string]any) glog.Logger {
	next := l.clone()
	for key, value := range fields {
		next.fields[key] = normalizeValue(value)
	}
	if fieldsLogger, ok := l.console.(glog.FieldsLogger); ok {
		next.console = fieldsLogger.WithFields(fields)
	}
	return next
}

func (l *TenantLogger) clone() *TenantLogger {
	next := *l
	next.fields = copyFields(l.fields)
	return &next
}

func (l *TenantLogger) write(level, msg string, args []any) {
	if l.store == nil {
		return
	}
	fields := copyFields(l.fields)
	for key, value := range argsToFields(args) {
		fields[key] = value
	}
	createdAt := l.store.now().UTC()
	entry := LogEntry{
		Collection: l.collection,
		Tenant:     l.tenant,
		Level:      level,
		Message:    msg,
		Fields:     fields,
		CreatedAt:  createdAt,
	}
	if l.policy.TTL > 0 {
		expires := createdAt.Add(l.policy.TTL)
		entry.ExpiresAt = &expires
	}

	ctx := context.WithoutCancel(l.ctx)
	if _, err := l.store.Append(ctx, entry); err != nil {
		l.console.Warn("tenant log write failed", "collection", l.collection, "error", err)
		return
	}
	if l.policy.TTL > 0 || (l.policy.Capped && l.policy.MaxDocs > 0) {
		if _, err := l.store.Prune(ctx, l.collection, l.policy); err != nil {
			l.console.Warn("tenant log prune failed", "collection", l.collection, "error", err)
		}
	}
}

// argsToFields reads slog-style key/value pairs. A non-string key or a
// dangling value is stored under !BADKEY.
func argsToFields(args []any) map[string]any {
	fields := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			fields["!BADKEY"] = normalizeValue(args[i])
			continue
		}
		fields[key] = normalizeValue(args[i+1])
		i++
	}
	return fields
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case nil, string, bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return typed
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	case error:
		return typed.Error()
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%+v", typed)
	}
}
