package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type logEntryRecord struct {
	bun.BaseModel `bun:"table:tenant_log_entries,alias:tle"`

	ID         string         `bun:"id,pk"`
	Collection string         `bun:"collection,notnull"`
	Tenant     string         `bun:"tenant,notnull"`
	Level      string         `bun:"level,notnull"`
	Message    string         `bun:"message,notnull"`
	Fields     map[string]any `bun:"fields,type:jsonb,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	ExpiresAt  *time.Time     `bun:"expires_at,nullzero"`
}
