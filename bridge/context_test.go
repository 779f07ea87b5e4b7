package bridge

import (
	"testing"

	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/internal/logging"
	"github.com/reglet-dev/hostbridge/memhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContext_Call(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ctx := m.Context(h.NewContext())

	tests := []struct {
		name    string
		command string
		args    []string
		want    value.Value
	}{
		{"ping", "PING", nil, value.SimpleString("PONG")},
		{"set", "SET", []string{"k", "v"}, value.SimpleString("OK")},
		{"get", "GET", []string{"k"}, value.SimpleString("v")},
		{"lowercase name", "get", []string{"k"}, value.SimpleString("v")},
		{"missing", "GET", []string{"nope"}, value.None},
		{"incr", "INCRBY", []string{"n", "5"}, value.Integer(5)},
		{"empty argument", "ECHO", []string{""}, value.SimpleString("")},
		{"push", "RPUSH", []string{"l", "a", "b"}, value.Integer(2)},
		{"range", "LRANGE", []string{"l", "0", "-1"}, value.Array{value.SimpleString("a"), value.SimpleString("b")}},
		{"empty range", "LRANGE", []string{"nope", "0", "-1"}, value.Array{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ctx.Call(tt.command, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			requireNoLeaks(t, m, h)
		})
	}
}

func TestContext_Call_ManyArguments(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ctx := m.Context(h.NewContext())

	got, err := ctx.Call("RPUSH", append([]string{"list"}, argsOf(100)...)...)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(100), got)
	requireNoLeaks(t, m, h)
}

func TestContext_Call_Errors(t *testing.T) {
	h := newHost(t, memhost.WithCommand("FAIL", failWith("ERR bad args")))
	m := newModule(t, h)
	ctx := m.Context(h.NewContext())

	tests := []struct {
		name    string
		command string
		args    []string
		want    string
	}{
		{"error reply", "FAIL", nil, "ERR bad args"},
		{"arity", "GET", nil, "ERR wrong number of arguments for 'get' command"},
		{"unknown command", "NOPE", nil, "ERR host failed to run command 'NOPE'"},
		{"empty command", "", nil, "ERR host failed to run command ''"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ctx.Call(tt.command, tt.args...)
			assert.Nil(t, got)
			require.Error(t, err)
			assert.Equal(t, errors.KindHost, errors.KindOf(err))
			assert.Equal(t, tt.want, err.Error())
			requireNoLeaks(t, m, h)
		})
	}
}

func TestContext_Call_WrongTypeFromHost(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ctx := m.Context(h.NewContext())

	_, err := ctx.Call("RPUSH", "l", "x")
	require.NoError(t, err)

	// The host's own WRONGTYPE reply is a host message, not ErrWrongType.
	_, err = ctx.Call("GET", "l")
	require.Error(t, err)
	assert.Equal(t, errors.KindHost, errors.KindOf(err))
	assert.Equal(t, errors.WrongTypeMessage, err.Error())
}

func TestContext_Log(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ptr := h.NewContext()
	ctx := m.Context(ptr)

	ctx.LogDebug("d")
	ctx.LogVerbose("v")
	ctx.LogNotice("n")
	ctx.LogWarning("w")
	ctx.Log(hostapi.LogNotice, "")

	assert.Equal(t, []memhost.LogEntry{
		{Ctx: ptr, Level: hostapi.LogDebug, Message: "d"},
		{Ctx: ptr, Level: hostapi.LogVerbose, Message: "v"},
		{Ctx: ptr, Level: hostapi.LogNotice, Message: "n"},
		{Ctx: ptr, Level: hostapi.LogWarning, Message: "w"},
		{Ctx: ptr, Level: hostapi.LogNotice, Message: ""},
	}, h.Logs())
	requireNoLeaks(t, m, h)
}

func TestContext_AutoMemoryAndReplication(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ptr := h.NewContext()
	ctx := m.Context(ptr)

	assert.False(t, h.AutoMemoryEnabled(ptr))
	ctx.AutoMemory()
	assert.True(t, h.AutoMemoryEnabled(ptr))

	ctx.ReplicateVerbatim()
	ctx.ReplicateVerbatim()
	assert.Equal(t, 2, h.Replicated(ptr))
}

func TestDummy(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	ctx := Dummy()
	assert.True(t, ctx.IsDummy())
	assert.True(t, ctx.Ptr().IsNull())

	_, err := ctx.Call("PING")
	require.Error(t, err)
	assert.Equal(t, errors.KindStr, errors.KindOf(err))

	assert.Equal(t, hostapi.StatusErr, ctx.Reply(value.OK, nil))
	assert.Equal(t, hostapi.StatusErr, ctx.ReplyError(errors.Str("x")))

	ctx.LogNotice("hello")
	ctx.LogWarning("careful")
	ctx.AutoMemory()
	ctx.ReplicateVerbatim()

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "bridge", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	key := ctx.OpenKeyWritable("k")
	assert.True(t, key.IsEmpty())
	_, _, err = key.Read()
	assert.Error(t, err)
	assert.Error(t, key.Write("v"))
	key.Close()

	s := ctx.CreateString("x")
	assert.Equal(t, "", s.String())
	s.Free()
}

func TestContext_Keys(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ctx := m.Context(h.NewContext())

	w := ctx.OpenKeyWritable("greeting")
	assert.Equal(t, "greeting", w.Name())
	assert.True(t, w.IsEmpty())

	s, ok, err := w.Read()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)

	require.NoError(t, w.Write("hello"))
	assert.Equal(t, hostapi.KeyTypeString, w.Type())
	w.Close()
	w.Close()

	r := ctx.OpenKey("greeting")
	s, ok, err = r.Read()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", s)
	r.Close()

	d := ctx.OpenKeyWritable("greeting")
	require.NoError(t, d.Delete())
	assert.True(t, d.IsEmpty())
	d.Close()

	assert.Zero(t, h.OpenKeys())
	requireNoLeaks(t, m, h)
}

func TestContext_Keys_WrongType(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ctx := m.Context(h.NewContext())

	_, err := ctx.Call("RPUSH", "list", "a")
	require.NoError(t, err)

	k := ctx.OpenKey("list")
	defer k.Close()
	assert.False(t, k.IsEmpty())
	assert.Equal(t, hostapi.KeyTypeList, k.Type())

	_, ok, err := k.Read()
	assert.False(t, ok)
	assert.ErrorIs(t, err, errors.ErrWrongType)
}

func TestContext_Keys_DeadContext(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ctx := m.Context(hostapi.ContextPtr(9999))

	k := ctx.OpenKeyWritable("k")
	defer k.Close()
	_, _, err := k.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not open")
	assert.Error(t, k.Delete())
}

func TestContext_CreateString(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ctx := m.Context(h.NewContext())

	s := ctx.CreateString("hello")
	require.False(t, s.Ptr().IsNull())
	assert.Equal(t, "hello", s.String())
	assert.Equal(t, 1, h.LiveStrings())

	s.Free()
	s.Free()
	assert.Zero(t, h.LiveStrings())

	empty := ctx.CreateString("")
	assert.Equal(t, "", empty.String())
	empty.Free()
	requireNoLeaks(t, m, h)
}
