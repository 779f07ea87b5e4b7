package memhost

import (
	"testing"

	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okCommand(*CallContext, []string) *Reply { return StatusReply("OK") }

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(
		WithCommand("zeta", okCommand),
		WithBundle(Bundle{"Alpha": okCommand, "beta": okCommand}),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"ALPHA", "BETA", "ZETA"}, r.Names())
	assert.True(t, r.Has("alpha"))
	assert.True(t, r.Has("ZeTa"))
	assert.False(t, r.Has("gamma"))

	names := r.Names()
	names[0] = "MUTATED"
	assert.Equal(t, "ALPHA", r.Names()[0])
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts []RegistryOption
		want string
	}{
		{"empty name", []RegistryOption{WithCommand("", okCommand)}, "cannot be empty"},
		{"nil func", []RegistryOption{WithCommand("X", nil)}, `command "X" has no implementation`},
		{"duplicate", []RegistryOption{WithCommand("get", okCommand), WithCommand("GET", okCommand)}, `duplicate command name: "GET"`},
		{"bundle clash", []RegistryOption{WithBundle(BuiltinBundle()), WithCommand("ping", okCommand)}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.opts...)
			assert.Nil(t, r)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistry_Nil(t *testing.T) {
	var r *Registry
	_, ok := r.Lookup("PING")
	assert.False(t, ok)
	assert.Nil(t, r.Names())
}

func TestMiddleware_Order(t *testing.T) {
	var trace []string
	mark := func(name string) Middleware {
		return func(next CommandFunc) CommandFunc {
			return func(cc *CallContext, args []string) *Reply {
				trace = append(trace, name+" in")
				r := next(cc, args)
				trace = append(trace, name+" out")
				return r
			}
		}
	}

	r, err := NewRegistry(
		WithMiddleware(mark("first"), mark("second")),
		WithCommand("X", func(*CallContext, []string) *Reply {
			trace = append(trace, "body")
			return NilReply()
		}),
	)
	require.NoError(t, err)

	fn, ok := r.Lookup("x")
	require.True(t, ok)
	fn(newCallContext(newStore(), 1, "X"), nil)
	assert.Equal(t, []string{"first in", "second in", "body", "second out", "first out"}, trace)
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "boom", "ERR panic: boom"},
		{"error", assert.AnError, "ERR panic: " + assert.AnError.Error()},
		{"other", 42, "ERR panic: panic recovered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := PanicRecoveryMiddleware()(func(*CallContext, []string) *Reply { panic(tt.value) })
			reply := fn(newCallContext(newStore(), 1, "X"), nil)
			require.NotNil(t, reply)
			assert.Equal(t, hostapi.ReplyError, reply.Type)
			assert.Equal(t, tt.want, reply.Str)
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r, err := NewRegistry(
		WithMiddleware(LoggingMiddleware(zap.New(core))),
		WithBundle(BuiltinBundle()),
	)
	require.NoError(t, err)

	get, _ := r.Lookup("GET")
	get(newCallContext(newStore(), 1, "GET"), nil)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "invoking command", entries[0].Message)
	assert.Equal(t, "GET", entries[0].ContextMap()["command"])
	assert.Equal(t, "command failed", entries[1].Message)
	assert.Equal(t, "ERR wrong number of arguments for 'get' command", entries[1].ContextMap()["error"])

	// A nil logger is replaced by a no-op one.
	fn := LoggingMiddleware(nil)(okCommand)
	assert.Equal(t, "OK", fn(newCallContext(newStore(), 1, "X"), nil).Str)
}

func TestCallContext_Values(t *testing.T) {
	cc := newCallContext(newStore(), 7, "PING")
	assert.Equal(t, "PING", cc.Command())
	assert.Equal(t, hostapi.ContextPtr(7), cc.Context())

	_, ok := cc.GetValue("user")
	assert.False(t, ok)
	cc.SetValue("user", "alice")
	v, ok := cc.GetValue("user")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)
}
