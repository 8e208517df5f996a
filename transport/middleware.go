package transport

import (
	"context"
	"net/http"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-tenants/core"
)

// TenantResolver resolves a request host to an outcome and binds ready
// tenants to the request context. *core.RequestDispatcher implements it.
type TenantResolver interface {
	Resolve(hostname string) core.Outcome
	Attach(ctx context.Context, outcome core.Outcome) context.Context
}

type MiddlewareOption func(*middleware)

func WithMiddlewareLogger(logger glog.Logger) MiddlewareOption {
	return func(m *middleware) {
		m.logger = glog.Ensure(logger)
	}
}

type middleware struct {
	resolver  TenantResolver
	responder Responder
	logger    glog.Logger
}

// Middleware lets requests for ready tenants through with the tenant and
// route table on the context. Every other outcome is answered by responder
// and the chain stops.
func Middleware(resolver TenantResolver, responder Responder, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	m := &middleware{resolver: resolver, responder: responder, logger: glog.Nop()}
	if m.responder == nil {
		m.responder = NewJSONResponder()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := m.resolve(r.Host)
			if outcome.Kind != core.OutcomeContinue {
				m.logger.Debug("tenant request rejected", "domain", outcome.Domain, "outcome", outcome.Kind.String())
				m.responder.Respond(w, r, outcome)
				return
			}
			next.ServeHTTP(w, r.WithContext(m.resolver.Attach(r.Context(), outcome)))
		})
	}
}

func (m *middleware) resolve(host string) core.Outcome {
	if m.resolver == nil {
		domain := core.NormalizeHostname(host)
		return core.Outcome{Kind: core.OutcomeNotFound, Domain: domain, Err: &core.NotFoundError{Domain: domain}}
	}
	return m.resolver.Resolve(host)
}
