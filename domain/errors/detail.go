package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorDetail provides structured error information for output outside the
// host, such as the bridgectl JSON mode.
// Error Types: "str", "wrong_type", "host", "internal"
type ErrorDetail struct {
	// Message is a human-readable error description.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code, usually the first word of a host error.
	Code string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}

// DetailedError is an interface for error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *ErrorDetail {
	if err == nil {
		return nil
	}

	var e *ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		d := de.ToErrorDetail()
		if d.Code == "" {
			d.Code = errorCode(d.Message)
		}
		return d
	}

	return &ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// errorCode returns the leading upper-case word of a host-style message
// ("ERR", "WRONGTYPE", ...), or "".
func errorCode(msg string) string {
	end := 0
	for end < len(msg) && msg[end] >= 'A' && msg[end] <= 'Z' {
		end++
	}
	if end == 0 || (end < len(msg) && msg[end] != ' ') {
		return ""
	}
	return msg[:end]
}
