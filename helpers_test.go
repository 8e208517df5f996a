package tenants

import (
	"context"
	"sync"

	"github.com/goliatone/go-tenants/core"
)

func tenantConfig(domain string, id int) map[string]any {
	return map[string]any{
		"id":                  id,
		"node":                1,
		"mode":                core.ModeDevelopment,
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
	}
}

func stubDB() ServiceFactory {
	return ServiceFactory{
		Name: core.ServiceDB,
		Create: func(_ context.Context, src Source) (any, error) {
			return "db:" + src.Owner(), nil
		},
	}
}

type recordingRegistrar struct {
	mu    sync.Mutex
	names []string
	fail  string
}

func (r *recordingRegistrar) Register(_ context.Context, reg Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg.Name == r.fail {
		return &core.DuplicateServiceError{Owner: core.HostOwner, Name: reg.Name}
	}
	r.names = append(r.names, reg.Name)
	return nil
}
