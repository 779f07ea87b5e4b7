// Package errors provides the closed set of failures the bridge reports.
// All error types support error unwrapping via errors.As() and errors.Is().
//
// There are three kinds: a generic message raised inside the bridge (StrError),
// a type mismatch between what a caller expected and what the host returned
// (WrongTypeError), and a message the host itself reported (HostError).
package errors

import (
	stdErrors "errors"
	"fmt"
)

// WrongTypeMessage is the text rendered for a WrongTypeError reply.
const WrongTypeMessage = "WRONGTYPE Operation against a key holding the wrong kind of value"

// Kind identifies which member of the taxonomy an error is.
type Kind int

const (
	// KindOther is any error outside the taxonomy.
	KindOther Kind = iota
	KindStr
	KindWrongType
	KindHost
)

func (k Kind) String() string {
	switch k {
	case KindStr:
		return "str"
	case KindWrongType:
		return "wrong_type"
	case KindHost:
		return "host"
	default:
		return "other"
	}
}

// StrError is a generic failure constructed inside the bridge.
type StrError struct {
	Msg string
}

func (e *StrError) Error() string {
	return e.Msg
}

// ToErrorDetail implements DetailedError.
func (e *StrError) ToErrorDetail() *ErrorDetail {
	return &ErrorDetail{Message: e.Msg, Type: KindStr.String()}
}

// Str returns a *StrError with a formatted message.
func Str(format string, args ...any) error {
	if len(args) == 0 {
		return &StrError{Msg: format}
	}
	return &StrError{Msg: fmt.Sprintf(format, args...)}
}

// WrongTypeError reports that a value had another shape than the caller
// required. It carries no message.
type WrongTypeError struct{}

// ErrWrongType is the WrongTypeError value. Compare with errors.Is.
var ErrWrongType error = WrongTypeError{}

func (WrongTypeError) Error() string {
	return WrongTypeMessage
}

// ToErrorDetail implements DetailedError.
func (WrongTypeError) ToErrorDetail() *ErrorDetail {
	return &ErrorDetail{Message: WrongTypeMessage, Type: KindWrongType.String()}
}

// HostError carries an error message read from a host reply. A call the host
// rejects without producing any reply is also a HostError; its message names
// the command, as no host text exists.
type HostError struct {
	Msg string
}

func (e *HostError) Error() string {
	return e.Msg
}

// ToErrorDetail implements DetailedError.
func (e *HostError) ToErrorDetail() *ErrorDetail {
	return &ErrorDetail{Message: e.Msg, Type: KindHost.String()}
}

// Host returns a *HostError with the given message.
func Host(msg string) error {
	return &HostError{Msg: msg}
}

// KindOf classifies err. Wrapped errors are classified by their innermost
// taxonomy member.
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	if stdErrors.Is(err, ErrWrongType) {
		return KindWrongType
	}
	var he *HostError
	if stdErrors.As(err, &he) {
		return KindHost
	}
	var se *StrError
	if stdErrors.As(err, &se) {
		return KindStr
	}
	return KindOther
}

// Message returns the text an error reply to the host should carry.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if stdErrors.Is(err, ErrWrongType) {
		return WrongTypeMessage
	}
	return err.Error()
}
