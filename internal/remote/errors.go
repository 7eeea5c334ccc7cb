package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies a remote call failure. The classification is
// decided where the transport error or HTTP status is first seen; nothing
// downstream inspects error strings.
type FailureKind int

const (
	// KindUnavailable covers connectivity failures and timeouts.
	KindUnavailable FailureKind = iota
	// KindServer covers 5xx and other unexpected server responses.
	KindServer
	// KindNotFound means the job or resource is gone on the server.
	KindNotFound
	// KindUnauthorized means the caller's credentials were rejected.
	KindUnauthorized
)

// String returns a human-readable name for the failure kind.
func (k FailureKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindServer:
		return "server"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// APIError is a classified remote call failure.
type APIError struct {
	Kind       FailureKind
	StatusCode int // 0 for transport-level failures
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Permanent reports whether the failure requires external intervention
// (re-authentication or re-initialization) rather than a retry.
func (e *APIError) Permanent() bool {
	return e.Kind == KindNotFound || e.Kind == KindUnauthorized
}

// IsPermanent reports whether err is a permanent remote failure.
// Transient failures and non-remote errors return false.
func IsPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Permanent()
}

// transportError wraps a connectivity-level failure as transient.
func transportError(err error) *APIError {
	return &APIError{
		Kind:    KindUnavailable,
		Message: err.Error(),
		Cause:   err,
	}
}

// statusError classifies a non-2xx HTTP response.
func statusError(statusCode int, body string) *APIError {
	kind := KindServer
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindUnauthorized
	case http.StatusNotFound:
		kind = KindNotFound
	}
	return &APIError{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    body,
	}
}
