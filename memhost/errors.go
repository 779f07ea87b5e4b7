package memhost

import (
	"fmt"
	"strings"
)

// Error reply texts used by the builtin commands.
const (
	MsgWrongType   = "WRONGTYPE Operation against a key holding the wrong kind of value"
	MsgNotInteger  = "ERR value is not an integer or out of range"
	MsgSyntaxError = "ERR syntax error"
)

// ArityError returns the reply for a command called with the wrong number of arguments.
func ArityError(command string) *Reply {
	return ErrorReply(fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(command)))
}

// WrongTypeError returns the reply for an operation against a key of another type.
func WrongTypeError() *Reply {
	return ErrorReply(MsgWrongType)
}

// PanicError returns the reply for a recovered panic.
func PanicError(panicValue any) *Reply {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return ErrorReply("ERR panic: " + msg)
}
