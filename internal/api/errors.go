package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUnauthenticated is returned when the session has no token or the
// backend rejects it.
var ErrUnauthenticated = errors.New("unauthenticated")

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// IsNetworkOrServer reports whether err is a transport failure or an error
// response, as opposed to a missing session.
func IsNetworkOrServer(err error) bool {
	if err == nil || errors.Is(err, ErrUnauthenticated) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// DecodeError wraps a response body that did not match the expected shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func statusError(method, path string, code int, body []byte) error {
	if code == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthenticated)
	}
	return &StatusError{Method: method, Path: path, StatusCode: code, Body: string(body)}
}
