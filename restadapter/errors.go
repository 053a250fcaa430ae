package restadapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/eringen/sitecms/editor"
)

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// Is makes a 404 match editor.ErrNotFound.
func (e *HTTPError) Is(target error) bool {
	return target == editor.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Temporary reports whether retrying the same request later may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// DecodeError means the backend answered 2xx with a body the mapper could
// not read.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UserMessage returns a short message suitable for showing an editor.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusUnauthorized:
			return "Authentication required."
		case httpErr.StatusCode == http.StatusForbidden:
			return "Access denied."
		case httpErr.StatusCode == http.StatusNotFound:
			return "Document not found."
		case httpErr.StatusCode == http.StatusConflict:
			return "The document was changed elsewhere. Reload and try again."
		case httpErr.Temporary():
			return "Server error. Please try again later."
		default:
			return fmt.Sprintf("Request failed (HTTP %d).", httpErr.StatusCode)
		}
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return "The server sent an unexpected response."
	}
	if isTimeout(err) {
		return "Request timed out. Please try again."
	}
	return "Could not reach the server. Your changes are kept; try saving again."
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
