package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-tenants/core"
)

func memoryURL(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "-", " ", "-").Replace(t.Name())
	return fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", name, time.Now().UnixNano())
}

func openMigrated(t *testing.T) *persistence.Client {
	t.Helper()
	client, err := OpenDatabase(context.Background(), memoryURL(t), WithMigrations(), WithPingTimeout(time.Second))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type fakeSource struct {
	owner    string
	values   map[string]any
	services map[string]any
}

func (s fakeSource) Owner() string { return s.owner }

func (s fakeSource) Value(key string) (any, bool) {
	value, ok := s.values[key]
	return value, ok
}

func (s fakeSource) Service(name string) (any, bool) {
	value, ok := s.services[name]
	return value, ok
}

// stepClock advances one second per call.
type stepClock struct {
	mu   sync.Mutex
	next time.Time
}

func newStepClock() *stepClock {
	return &stepClock{next: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Second)
	return now
}

func tenantConfig(domain, dbURL string) map[string]any {
	return map[string]any{
		"id":                  1,
		"node":                1,
		"mode":                core.ModeDevelopment,
		"domain":              domain,
		"db_url":              dbURL,
		"log_collection_name": "logs_" + strings.ReplaceAll(domain, ".", "_"),
		"site_title":          "Site " + domain,
		"site_slogan":         "Slogan",
		"site_owner":          "Owner",
		"site_author":         "Author",
		"site_copyright":      2025,
		"site_support_email":  "support@" + domain,
		"site_support_url":    "https://" + domain + "/support",
	}
}
