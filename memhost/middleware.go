package memhost

import (
	"github.com/reglet-dev/hostbridge/hostapi"
	"go.uber.org/zap"
)

// Middleware wraps a CommandFunc to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	countingMiddleware := func(next CommandFunc) CommandFunc {
//	    return func(cc *CallContext, args []string) *Reply {
//	        calls.Add(1)
//	        return next(cc, args)
//	    }
//	}
type Middleware func(next CommandFunc) CommandFunc

// PanicRecoveryMiddleware returns a middleware that turns a panicking command
// into an error reply instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next CommandFunc) CommandFunc {
		return func(cc *CallContext, args []string) (reply *Reply) {
			defer func() {
				if r := recover(); r != nil {
					reply = PanicError(r)
				}
			}()
			return next(cc, args)
		}
	}
}

// LoggingMiddleware returns a middleware that logs command invocations.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next CommandFunc) CommandFunc {
		return func(cc *CallContext, args []string) *Reply {
			logger.Debug("invoking command", zap.String("command", cc.Command()), zap.Int("argc", len(args)))
			reply := next(cc, args)
			if reply != nil && reply.Type == hostapi.ReplyError {
				logger.Debug("command failed", zap.String("command", cc.Command()), zap.String("error", reply.Str))
			}
			return reply
		}
	}
}
