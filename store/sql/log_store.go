package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const logCountCacheKeyPrefix = "go-tenants::log_count::v1"

// LogEntry is one persisted tenant log line.
type LogEntry struct {
	ID         string
	Collection string
	Tenant     string
	Level      string
	Message    string
	Fields     map[string]any
	CreatedAt  time.Time
	ExpiresAt  *time.Time
}

// RetentionPolicy bounds a log collection. A zero TTL keeps entries forever;
// MaxDocs only applies when Capped is set.
type RetentionPolicy struct {
	TTL     time.Duration
	Capped  bool
	MaxDocs int
}

// LogStore persists tenant log entries in the tenant_log_entries table,
// partitioned by collection.
type LogStore struct {
	db    *bun.DB
	repo  repository.Repository[*logEntryRecord]
	cache repositorycache.CacheService
	now   func() time.Time
}

type LogStoreOption func(*LogStore)

// WithCountCache caches Count results. Append and Prune invalidate the
// collection's entry.
func WithCountCache(cache repositorycache.CacheService) LogStoreOption {
	return func(s *LogStore) { s.cache = cache }
}

func WithLogClock(now func() time.Time) LogStoreOption {
	return func(s *LogStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewLogStore(db *bun.DB, opts ...LogStoreOption) (*LogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*logEntryRecord](db, logEntryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid log repository wiring: %w", err)
		}
	}
	store := &LogStore{db: db, repo: repo, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// LogCountCacheKey is go-tenants::log_count::v1::<collection> with the
// collection path-escaped.
func LogCountCacheKey(collection string) string {
	return logCountCacheKeyPrefix + "::" + url.PathEscape(strings.TrimSpace(collection))
}

func (s *LogStore) Append(ctx context.Context, entry LogEntry) (LogEntry, error) {
	if s == nil || s.repo == nil {
		return LogEntry{}, fmt.Errorf("sqlstore: log store is not configured")
	}
	collection := strings.TrimSpace(entry.Collection)
	if collection == "" {
		return LogEntry{}, fmt.Errorf("sqlstore: log collection is required")
	}
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		createdAt = s.now().UTC()
	}
	level := strings.ToLower(strings.TrimSpace(entry.Level))
	if level == "" {
		level = "info"
	}

	record := &logEntryRecord{
		ID:         id,
		Collection: collection,
		Tenant:     strings.TrimSpace(entry.Tenant),
		Level:      level,
		Message:    entry.Message,
		Fields:     copyFields(entry.Fields),
		CreatedAt:  createdAt,
		ExpiresAt:  cloneTime(entry.ExpiresAt),
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return LogEntry{}, err
	}
	s.invalidate(ctx, collection)
	return created.toDomain(), nil
}

// List returns the newest limit entries of collection, oldest first. A
// non-positive limit returns every entry.
func (s *LogStore) List(ctx context.Context, collection string, limit int) ([]LogEntry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: log store is not configured")
	}
	selectors := []repository.SelectCriteria{
		repository.SelectBy("collection", "=", strings.TrimSpace(collection)),
		repository.OrderBy("created_at DESC"),
	}
	if limit > 0 {
		selectors = append(selectors, repository.SelectPaginate(limit, 0))
	}
	records, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, len(records))
	for i, record := range records {
		out[len(records)-1-i] = record.toDomain()
	}
	return out, nil
}

func (s *LogStore) Count(ctx context.Context, collection string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: log store is not configured")
	}
	collection = strings.TrimSpace(collection)
	fetch := func(ctx context.Context) (int, error) {
		return s.db.NewSelect().
			Model((*logEntryRecord)(nil)).
			Where("collection = ?", collection).
			Count(ctx)
	}
	if s.cache == nil {
		return fetch(ctx)
	}
	return repositorycache.GetOrFetch(ctx, s.cache, LogCountCacheKey(collection), fetch)
}

// Prune deletes expired entries of collection, then the oldest entries above
// the cap when the policy is capped.
func (s *LogStore) Prune(ctx context.Context, collection string, policy RetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: log store is not configured")
	}
	collection = strings.TrimSpace(collection)
	deleted := 0
	now := s.now().UTC()

	res, err := s.db.NewDelete().
		Model((*logEntryRecord)(nil)).
		Where("collection = ?", collection).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return deleted, err
	}
	affected, _ := res.RowsAffected()
	deleted += int(affected)

	if policy.Capped && policy.MaxDocs > 0 {
		total, err := s.db.NewSelect().
			Model((*logEntryRecord)(nil)).
			Where("collection = ?", collection).
			Count(ctx)
		if err != nil {
			return deleted, err
		}
		if excess := total - policy.MaxDocs; excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM tenant_log_entries WHERE id IN (SELECT id FROM tenant_log_entries WHERE collection = ? ORDER BY created_at ASC, id ASC LIMIT ?)",
				collection,
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	if deleted > 0 {
		s.invalidate(ctx, collection)
	}
	return deleted, nil
}

func (s *LogStore) invalidate(ctx context.Context, collection string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, LogCountCacheKey(collection))
}

func (r *logEntryRecord) toDomain() LogEntry {
	if r == nil {
		return LogEntry{}
	}
	return LogEntry{
		ID:         r.ID,
		Collection: r.Collection,
		Tenant:     r.Tenant,
		Level:      r.Level,
		Message:    r.Message,
		Fields:     copyFields(r.Fields),
		CreatedAt:  r.CreatedAt.UTC(),
		ExpiresAt:  cloneTime(r.ExpiresAt),
	}
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cloneTime(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}
