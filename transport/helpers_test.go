package transport

import (
	"context"
	"testing"

	"github.com/goliatone/go-tenants/core"
)

func readyHost(t *testing.T, domains ...string) *core.Host {
	t.Helper()
	host, err := core.NewHost(core.DefaultConfig())
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	configs := make([]map[string]any, 0, len(domains))
	for i, domain := range domains {
		configs = append(configs, map[string]any{
			"id":                  i + 1,
			"node":                1,
			"mode":                core.ModeProduction,
			"domain":              domain,
			"db_url":              "sqlite://" + domain,
			"log_collection_name": "logs",
			"site_title":          "Title",
			"site_slogan":         "Slogan",
			"site_owner":          "Owner",
			"site_author":         "Author",
			"site_copyright":      2026,
			"site_support_email":  "help@" + domain,
			"site_support_url":    "https://" + domain,
		})
	}
	db := core.ServiceFactory{
		Name:   core.ServiceDB,
		Create: func(context.Context, core.Source) (any, error) { return "db", nil },
	}
	if err := host.Initialize(context.Background(), configs, []core.ServiceFactory{db}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return host
}
