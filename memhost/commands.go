package memhost

import (
	"strconv"
	"strings"

	"github.com/reglet-dev/hostbridge/hostapi"
)

// CallContext is what a command body sees of the host.
type CallContext struct {
	store   *Store
	values  map[any]any
	command string
	ctx     hostapi.ContextPtr
}

func newCallContext(store *Store, ctx hostapi.ContextPtr, command string) *CallContext {
	return &CallContext{store: store, ctx: ctx, command: command}
}

// Command returns the upper-case name of the command being run.
func (c *CallContext) Command() string { return c.command }

// Context returns the handle the command was invoked through.
func (c *CallContext) Context() hostapi.ContextPtr { return c.ctx }

// Store returns the host data store.
func (c *CallContext) Store() *Store { return c.store }

// SetValue stores a request-scoped value for middleware.
func (c *CallContext) SetValue(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

// GetValue retrieves a request-scoped value set by SetValue.
func (c *CallContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// BuiltinBundle returns the string and list commands of the reference host.
func BuiltinBundle() Bundle {
	return Bundle{
		"PING":   cmdPing,
		"ECHO":   cmdEcho,
		"SET":    cmdSet,
		"GET":    cmdGet,
		"DEL":    cmdDel,
		"EXISTS": cmdExists,
		"INCR":   cmdIncr,
		"INCRBY": cmdIncrBy,
		"TYPE":   cmdType,
		"RPUSH":  cmdRPush,
		"LRANGE": cmdLRange,
		"LLEN":   cmdLLen,
	}
}

func cmdPing(cc *CallContext, args []string) *Reply {
	switch len(args) {
	case 0:
		return StatusReply("PONG")
	case 1:
		return BulkReply(args[0])
	default:
		return ArityError(cc.Command())
	}
}

func cmdEcho(cc *CallContext, args []string) *Reply {
	if len(args) != 1 {
		return ArityError(cc.Command())
	}
	return BulkReply(args[0])
}

func cmdSet(cc *CallContext, args []string) *Reply {
	if len(args) != 2 {
		return ArityError(cc.Command())
	}
	cc.Store().SetString(args[0], args[1])
	return StatusReply("OK")
}

func cmdGet(cc *CallContext, args []string) *Reply {
	if len(args) != 1 {
		return ArityError(cc.Command())
	}
	s := cc.Store()
	switch s.Type(args[0]) {
	case hostapi.KeyTypeEmpty:
		return NilReply()
	case hostapi.KeyTypeString:
		v, _ := s.GetString(args[0])
		return BulkReply(v)
	default:
		return WrongTypeError()
	}
}

func cmdDel(cc *CallContext, args []string) *Reply {
	if len(args) == 0 {
		return ArityError(cc.Command())
	}
	var n int64
	for _, key := range args {
		if cc.Store().Delete(key) {
			n++
		}
	}
	return IntReply(n)
}

func cmdExists(cc *CallContext, args []string) *Reply {
	if len(args) == 0 {
		return ArityError(cc.Command())
	}
	var n int64
	for _, key := range args {
		if cc.Store().Type(key) != hostapi.KeyTypeEmpty {
			n++
		}
	}
	return IntReply(n)
}

func cmdIncr(cc *CallContext, args []string) *Reply {
	if len(args) != 1 {
		return ArityError(cc.Command())
	}
	return incrBy(cc, args[0], 1)
}

func cmdIncrBy(cc *CallContext, args []string) *Reply {
	if len(args) != 2 {
		return ArityError(cc.Command())
	}
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return ErrorReply(MsgNotInteger)
	}
	return incrBy(cc, args[0], delta)
}

func incrBy(cc *CallContext, key string, delta int64) *Reply {
	var result int64
	var bad bool
	wrong := cc.Store().Update(key, func(old string, exists bool) (string, bool) {
		var cur int64
		if exists {
			n, err := strconv.ParseInt(old, 10, 64)
			if err != nil {
				bad = true
				return "", false
			}
			cur = n
		}
		result = cur + delta
		return strconv.FormatInt(result, 10), true
	})
	switch {
	case wrong:
		return WrongTypeError()
	case bad:
		return ErrorReply(MsgNotInteger)
	default:
		return IntReply(result)
	}
}

func cmdType(cc *CallContext, args []string) *Reply {
	if len(args) != 1 {
		return ArityError(cc.Command())
	}
	return StatusReply(cc.Store().Type(args[0]).String())
}

func cmdRPush(cc *CallContext, args []string) *Reply {
	if len(args) < 2 {
		return ArityError(cc.Command())
	}
	n, wrong := cc.Store().Push(args[0], args[1:]...)
	if wrong {
		return WrongTypeError()
	}
	return IntReply(int64(n))
}

func cmdLRange(cc *CallContext, args []string) *Reply {
	if len(args) != 3 {
		return ArityError(cc.Command())
	}
	start, err1 := strconv.Atoi(args[1])
	stop, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return ErrorReply(MsgNotInteger)
	}
	items, wrong := cc.Store().List(args[0])
	if wrong {
		return WrongTypeError()
	}
	n := len(items)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return ArrayReply()
	}
	return StringsReply(items[start : stop+1])
}

func cmdLLen(cc *CallContext, args []string) *Reply {
	if len(args) != 1 {
		return ArityError(cc.Command())
	}
	items, wrong := cc.Store().List(args[0])
	if wrong {
		return WrongTypeError()
	}
	return IntReply(int64(len(items)))
}

// normalize upper-cases a command name the way the registry stores it.
func normalize(name string) string {
	return strings.ToUpper(name)
}
