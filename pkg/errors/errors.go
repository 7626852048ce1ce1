package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure for handling
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindInvalidRequest Kind = "invalid_request"
	KindUnauthorized   Kind = "unauthorized"
	KindAccessDenied   Kind = "access_denied"
	KindNotFound       Kind = "not_found"
	KindNotSupported   Kind = "not_supported"
	KindUnprocessable  Kind = "unprocessable"
	KindRateLimited    Kind = "rate_limited"
	KindServer         Kind = "server"
	KindNetwork        Kind = "network"
)

// Sentinels matched by errors.Is against a *GatewayError of the same kind
var (
	ErrAuthentication = errors.New("gateway authentication failed")
	ErrInvalidRequest = errors.New("gateway rejected request")
	ErrUnauthorized   = errors.New("gateway unauthorized")
	ErrAccessDenied   = errors.New("gateway access denied")
	ErrNotFound       = errors.New("gateway resource not found")
	ErrNotSupported   = errors.New("gateway method not supported")
	ErrUnprocessable  = errors.New("gateway could not process request")
	ErrRateLimited    = errors.New("gateway rate limit exceeded")
	ErrServer         = errors.New("gateway server error")
	ErrNetwork        = errors.New("gateway unreachable")
)

var kindSentinels = map[Kind]error{
	KindAuthentication: ErrAuthentication,
	KindInvalidRequest: ErrInvalidRequest,
	KindUnauthorized:   ErrUnauthorized,
	KindAccessDenied:   ErrAccessDenied,
	KindNotFound:       ErrNotFound,
	KindNotSupported:   ErrNotSupported,
	KindUnprocessable:  ErrUnprocessable,
	KindRateLimited:    ErrRateLimited,
	KindServer:         ErrServer,
	KindNetwork:        ErrNetwork,
}

// GatewayError is a failure reported by (or while talking to) the banking gateway.
// The fields mirror an RFC 7807 problem document so support can escalate with
// the gateway's own correlation id.
type GatewayError struct {
	Kind          Kind
	Type          string // problem type URI
	Title         string
	Status        int
	Timestamp     string
	CorrelationID string
	Detail        string
	Err           error // underlying transport error, if any
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s (%d): %s", e.Kind, e.Status, e.Title)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.CorrelationID != "" {
		msg += " [correlation_id=" + e.CorrelationID + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the kind sentinels
func (e *GatewayError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Retriable reports whether the same request may succeed later unchanged
func (e *GatewayError) Retriable() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindNetwork:
		return true
	default:
		return false
	}
}

// NewGatewayError creates a gateway error of the given kind
func NewGatewayError(kind Kind, status int, title, detail string) *GatewayError {
	return &GatewayError{
		Kind:   kind,
		Status: status,
		Title:  title,
		Detail: detail,
	}
}

// NewNetworkError wraps a transport failure (dial, TLS, timeout)
func NewNetworkError(err error) *GatewayError {
	return &GatewayError{
		Kind:  KindNetwork,
		Title: "Gateway Unreachable",
		Err:   err,
	}
}

// KindForStatus maps an HTTP status returned by the gateway to an error kind
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindInvalidRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindAccessDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return KindNotSupported
	case http.StatusUnprocessableEntity:
		return KindUnprocessable
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	if status >= 500 {
		return KindServer
	}
	return KindInvalidRequest
}

// AsGatewayError extracts a *GatewayError from an error chain
func AsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// IsRetriable reports whether err is a gateway error worth retrying later
func IsRetriable(err error) bool {
	gwErr, ok := AsGatewayError(err)
	return ok && gwErr.Retriable()
}

// CorrelationID returns the gateway correlation id carried by err, if any
func CorrelationID(err error) string {
	if gwErr, ok := AsGatewayError(err); ok {
		return gwErr.CorrelationID
	}
	return ""
}

// ValidationError represents input validation errors raised before any
// request is sent to the gateway
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError reports whether err carries a *ValidationError
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
