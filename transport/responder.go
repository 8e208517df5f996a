package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goliatone/go-tenants/core"
)

const (
	KindJSON = "json"
	KindView = "view"
	KindText = "text"
)

const (
	TemplateTenantNotFound    = "tenant_not_found"
	TemplateTenantUnavailable = "tenant_unavailable"
)

// Responder writes the response for a request the tenant middleware did not
// let through.
type Responder interface {
	Kind() string
	Respond(w http.ResponseWriter, r *http.Request, outcome core.Outcome)
}

// Renderer renders a named template. The view responder never parses
// templates itself.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(w io.Writer, name string, data any) error

func (f RendererFunc) Render(w io.Writer, name string, data any) error {
	return f(w, name, data)
}

// ErrorBody is the payload for rejected requests.
type ErrorBody struct {
	Error    string `json:"error"`
	Domain   string `json:"domain"`
	Service  string `json:"service,omitempty"`
	TextCode string `json:"text_code,omitempty"`
}

func bodyFor(outcome core.Outcome) (int, ErrorBody) {
	body := ErrorBody{Domain: outcome.Domain}
	if mapped := core.ServiceErrorMapper(outcome.Err); mapped != nil {
		body.TextCode = mapped.TextCode
	}
	switch outcome.Kind {
	case core.OutcomeUnavailable:
		var unavailable *core.ServiceUnavailableError
		if errors.As(outcome.Err, &unavailable) {
			body.Service = unavailable.Service
		}
		body.Error = "Tenant unavailable"
		return http.StatusServiceUnavailable, body
	case core.OutcomeNotFound:
		body.Error = "Tenant not found"
		return http.StatusNotFound, body
	default:
		body.Error = "Tenant request failed"
		return statusOf(outcome.Err), body
	}
}

type JSONResponder struct{}

func NewJSONResponder() JSONResponder { return JSONResponder{} }

func (JSONResponder) Kind() string { return KindJSON }

func (JSONResponder) Respond(w http.ResponseWriter, _ *http.Request, outcome core.Outcome) {
	status, body := bodyFor(outcome)
	writeJSON(w, status, body)
}

type TextResponder struct{}

func NewTextResponder() TextResponder { return TextResponder{} }

func (TextResponder) Kind() string { return KindText }

func (TextResponder) Respond(w http.ResponseWriter, _ *http.Request, outcome core.Outcome) {
	status, body := bodyFor(outcome)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "%s: %q\n", body.Error, body.Domain)
}

// ViewResponder renders TemplateTenantNotFound or TemplateTenantUnavailable
// with the error body as data. Without a renderer it falls back to text.
type ViewResponder struct {
	renderer Renderer
}

func NewViewResponder(renderer Renderer) *ViewResponder {
	return &ViewResponder{renderer: renderer}
}

func (*ViewResponder) Kind() string { return KindView }

func (v *ViewResponder) Respond(w http.ResponseWriter, r *http.Request, outcome core.Outcome) {
	if v == nil || v.renderer == nil {
		TextResponder{}.Respond(w, r, outcome)
		return
	}
	status, body := bodyFor(outcome)
	name := TemplateTenantNotFound
	if outcome.Kind == core.OutcomeUnavailable {
		name = TemplateTenantUnavailable
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := v.renderer.Render(w, name, body); err != nil {
		_, _ = io.WriteString(w, body.Error)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
