package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TenantErrorValidation         = "TENANT_VALIDATION_FAILED"
	TenantErrorDuplicateService   = "TENANT_SERVICE_DUPLICATE"
	TenantErrorDuplicateDomain    = "TENANT_DOMAIN_DUPLICATE"
	TenantErrorMissingDependency  = "TENANT_DEPENDENCY_MISSING"
	TenantErrorConfiguration      = "TENANT_CONFIGURATION_INVALID"
	TenantErrorNotFound           = "TENANT_NOT_FOUND"
	TenantErrorServiceUnavailable = "TENANT_SERVICE_UNAVAILABLE"
	TenantErrorFactoryTimeout     = "TENANT_FACTORY_TIMEOUT"
	TenantErrorShuttingDown       = "TENANT_SHUTDOWN_IN_PROGRESS"
	TenantErrorInternal           = "TENANT_INTERNAL_ERROR"
)

var (
	// ErrShutdownInProgress is returned by registrations and close stack
	// pushes once teardown has started.
	ErrShutdownInProgress = errors.New("core: shutdown in progress")

	// ErrReadOnly is returned by every write attempt on a projected value.
	ErrReadOnly = errors.New("core: value is read-only")
)

// FieldError is one schema violation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries every violation found for one tenant config.
type ValidationError struct {
	Domain string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		messages = append(messages, field.Message)
	}
	label := strings.TrimSpace(e.Domain)
	if label == "" {
		label = "unknown"
	}
	return fmt.Sprintf("core: invalid tenant configuration (%s): %s", label, strings.Join(messages, ", "))
}

// HasField reports whether a violation was recorded for field.
func (e *ValidationError) HasField(field string) bool {
	for _, item := range e.Fields {
		if item.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) ToServiceError() *goerrors.Error {
	fields := make([]goerrors.FieldError, 0, len(e.Fields))
	for _, field := range e.Fields {
		fields = append(fields, goerrors.FieldError{Field: field.Field, Message: field.Message})
	}
	return goerrors.NewValidation(e.Error(), fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(TenantErrorValidation).
		WithSeverity(goerrors.SeverityError)
}

// DuplicateServiceError reports a service or model name collision on one
// owner. Owner is HostOwner, TenantsOwner or a tenant domain.
type DuplicateServiceError struct {
	Owner string
	Name  string
}

func (e *DuplicateServiceError) Error() string {
	switch e.Owner {
	case HostOwner:
		return "core: host already has service " + strconv.Quote(e.Name)
	case TenantsOwner:
		return "core: service " + strconv.Quote(e.Name) + " is already registered for tenants"
	}
	return "core: tenant " + strconv.Quote(e.Owner) + " already has service " + strconv.Quote(e.Name)
}

func (e *DuplicateServiceError) ToServiceError() *goerrors.Error {
	return withMetadata(
		newTenantError(e.Error(), goerrors.CategoryConflict, http.StatusConflict, TenantErrorDuplicateService),
		map[string]any{"owner": e.Owner, "service": e.Name},
	)
}

type DuplicateDomainError struct {
	Domain string
}

func (e *DuplicateDomainError) Error() string {
	return "core: tenant domain " + strconv.Quote(e.Domain) + " is already registered"
}

func (e *DuplicateDomainError) ToServiceError() *goerrors.Error {
	return withMetadata(
		newTenantError(e.Error(), goerrors.CategoryConflict, http.StatusConflict, TenantErrorDuplicateDomain),
		map[string]any{"domain": e.Domain},
	)
}

// MissingDependencyError reports an enriched tenant without a mandatory service.
type MissingDependencyError struct {
	Domain  string
	Service string
}

func (e *MissingDependencyError) Error() string {
	return "core: tenant " + strconv.Quote(e.Domain) + " did not initialize service " + strconv.Quote(e.Service)
}

func (e *MissingDependencyError) ToServiceError() *goerrors.Error {
	return withMetadata(
		newTenantError(e.Error(), goerrors.CategoryInternal, http.StatusInternalServerError, TenantErrorMissingDependency),
		map[string]any{"domain": e.Domain, "service": e.Service},
	)
}

// ConfigurationError reports a malformed registrar call.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return "core: invalid registration: " + e.Message
}

func (e *ConfigurationError) ToServiceError() *goerrors.Error {
	return goerrors.NewValidation(e.Error(), goerrors.FieldError{Field: e.Field, Message: e.Message}).
		WithCode(http.StatusBadRequest).
		WithTextCode(TenantErrorConfiguration)
}

type NotFoundError struct {
	Domain string
}

func (e *NotFoundError) Error() string {
	return "core: tenant " + strconv.Quote(e.Domain) + " not found"
}

func (e *NotFoundError) ToServiceError() *goerrors.Error {
	return withMetadata(
		newTenantError(e.Error(), goerrors.CategoryNotFound, http.StatusNotFound, TenantErrorNotFound),
		map[string]any{"domain": e.Domain},
	)
}

// ServiceUnavailableError reports a resolved tenant that is missing a
// service required to serve requests.
type ServiceUnavailableError struct {
	Domain  string
	Service string
}

func (e *ServiceUnavailableError) Error() string {
	return "core: tenant " + strconv.Quote(e.Domain) + " is misconfigured (missing " + e.Service + ")"
}

func (e *ServiceUnavailableError) ToServiceError() *goerrors.Error {
	return withMetadata(
		newTenantError(e.Error(), goerrors.CategoryExternal, http.StatusServiceUnavailable, TenantErrorServiceUnavailable),
		map[string]any{"domain": e.Domain, "service": e.Service},
	)
}

type FactoryTimeoutError struct {
	Owner   string
	Name    string
	Timeout time.Duration
}

func (e *FactoryTimeoutError) Error() string {
	return fmt.Sprintf("core: factory %q for %q did not complete within %s", e.Name, e.Owner, e.Timeout)
}

func (e *FactoryTimeoutError) ToServiceError() *goerrors.Error {
	return withMetadata(
		newTenantError(e.Error(), goerrors.CategoryExternal, http.StatusGatewayTimeout, TenantErrorFactoryTimeout),
		map[string]any{"owner": e.Owner, "service": e.Name},
	)
}

type serviceErrorer interface {
	ToServiceError() *goerrors.Error
}

// ServiceErrorMapper converts any error into a go-errors envelope with a
// stable text code and HTTP status.
func ServiceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var typed serviceErrorer
	if errors.As(err, &typed) {
		return ensureTenantErrorEnvelope(typed.ToServiceError())
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureTenantErrorEnvelope(richErr)
	}
	if errors.Is(err, ErrShutdownInProgress) {
		return newTenantError(err.Error(), goerrors.CategoryConflict, http.StatusServiceUnavailable, TenantErrorShuttingDown)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureTenantErrorEnvelope(mapped)
}

func newTenantError(message string, category goerrors.Category, code int, textCode string) *goerrors.Error {
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
}

func withMetadata(err *goerrors.Error, metadata map[string]any) *goerrors.Error {
	if err != nil && len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func ensureTenantErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = tenantHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTenantTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTenantTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return TenantErrorValidation
	case goerrors.CategoryNotFound:
		return TenantErrorNotFound
	case goerrors.CategoryConflict:
		return TenantErrorDuplicateService
	case goerrors.CategoryExternal:
		return TenantErrorServiceUnavailable
	default:
		return TenantErrorInternal
	}
}

func tenantHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
