package util

import "fmt"

// ResponseError is a handler-level failure carrying the HTTP status and the
// envelope code it should be reported with.
type ResponseError struct {
	Msg    string
	Code   string
	Status int
}

func (e ResponseError) Error() string { return e.Msg }

func NewResponseError(status int, code, format string, args ...interface{}) error {
	return ResponseError{
		Msg:    fmt.Sprintf(format, args...),
		Code:   code,
		Status: status,
	}
}
