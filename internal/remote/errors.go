package remote

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned before any request when no token is available.
var ErrUnauthenticated = errors.New("not authenticated: no bearer token")

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Message is the service's "msg" field,
// empty when the body carried none.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// Message returns the text to show a user for err: the server-provided
// message when there is one, otherwise a generic failure for the operation.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *ServerError
	if errors.As(err, &se) {
		if se.Message != "" {
			return se.Message
		}
		return genericMessage(se.Op)
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return genericMessage(ne.Op)
	}
	if errors.Is(err, ErrUnauthenticated) {
		return "Please log in first"
	}
	return "An error occurred"
}

func genericMessage(op string) string {
	if op == "" {
		return "An error occurred"
	}
	return "Failed to " + op
}
