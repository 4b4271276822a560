package backend

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the certificate service. Message
// holds the service's "error" field when the body parsed as JSON; Body
// keeps the raw bytes for diagnostics.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("service error (%d)", e.StatusCode)
}

// scopeMarkers are the phrases the service and the Gmail API use to
// signal that the OAuth grant lacks the gmail.send scope.
var scopeMarkers = []string{
	"insufficient authentication scopes",
	"insufficientPermissions",
	"Gmail permissions missing",
}

// IsScopeInsufficient reports whether err is a 403 caused by a missing
// Gmail scope rather than an ordinary permission problem. This is the
// single classification point; callers must not re-inspect bodies.
func IsScopeInsufficient(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode != 403 {
		return false
	}
	for _, marker := range scopeMarkers {
		if strings.Contains(apiErr.Message, marker) || strings.Contains(apiErr.Body, marker) {
			return true
		}
	}
	return false
}

// ErrorMessage extracts a user-presentable message from err, falling
// back to the provided default when the error carries none.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
