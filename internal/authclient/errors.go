package authclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthRejected means the auth service refused the request (bad credentials,
	// expired or missing refresh cookie). Retrying will not help.
	ErrAuthRejected = errors.New("auth rejected")
	// ErrNetwork covers transport failures, 5xx replies and undecodable bodies.
	ErrNetwork = errors.New("auth service unreachable")
)

// ResponseError is a non-2xx reply from the auth service.
type ResponseError struct {
	Status  int
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("auth service responded %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("auth service responded %d: %s", e.Status, msg)
}

func (e *ResponseError) Unwrap() error {
	if e.Status >= http.StatusBadRequest && e.Status < http.StatusInternalServerError {
		return ErrAuthRejected
	}
	return ErrNetwork
}
