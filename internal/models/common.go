package models

import (
	"encoding/json"
	"time"
)

const (
	CodeOK                    = "OK"
	CodeInternalServerError   = "INTERNAL_SERVER_ERROR"
	CodeRequestValidationFail = "REQUEST_VALIDATION_FAIL"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeConflict              = "CONFLICT"
	CodeUpstreamUnavailable   = "UPSTREAM_UNAVAILABLE"
)

// ServiceResponse is the envelope used both by the auth service and by the local session API.
type ServiceResponse[T any] struct {
	Data         T          `json:"data,omitempty"`
	Success      bool       `json:"success"`
	Code         string     `json:"code,omitempty"`
	Path         string     `json:"path,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	Message      string     `json:"message,omitempty"`
	DebugMessage string     `json:"debugMessage,omitempty"`
}

// RawServiceResponse defers decoding of the data part until the caller knows it is present.
type RawServiceResponse = ServiceResponse[json.RawMessage]

func Success[T any](data T) ServiceResponse[T] {
	return ServiceResponse[T]{Data: data, Success: true, Code: CodeOK}
}

func Failure(path, code, message string, now time.Time) ServiceResponse[any] {
	return ServiceResponse[any]{
		Success:   false,
		Code:      code,
		Path:      path,
		Timestamp: &now,
		Message:   message,
	}
}
