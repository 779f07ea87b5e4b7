package bridge

import (
	"testing"

	"github.com/reglet-dev/hostbridge/decode"
	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/internal/abi"
	"github.com/reglet-dev/hostbridge/memhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, decode.DefaultMaxDepth, cfg.MaxReplyDepth)
	assert.Equal(t, abi.DefaultMaxTotalAllocations, cfg.AllocLimit)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"shallow", Config{MaxReplyDepth: 1, AllocLimit: 1}, false},
		{"zero depth", Config{MaxReplyDepth: 0, AllocLimit: 1024}, true},
		{"huge depth", Config{MaxReplyDepth: 1 << 20, AllocLimit: 1024}, true},
		{"zero limit", Config{MaxReplyDepth: 8, AllocLimit: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "validation failed")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewModule_Errors(t *testing.T) {
	_, err := NewModule(nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindStr, errors.KindOf(err))

	_, err = NewModule(memhost.New(), WithConfig(Config{}))
	require.Error(t, err)
}

func TestNewModule_AppliesConfig(t *testing.T) {
	h := newHost(t, memhost.WithCommand("NEST", nested(2)))
	m := newModule(t, h, WithConfig(Config{MaxReplyDepth: 1, AllocLimit: 1024}))
	assert.Equal(t, 1, m.Config().MaxReplyDepth)
	assert.Same(t, h, m.Host())

	ctx := m.Context(h.NewContext())
	_, err := ctx.Call("NEST")
	require.Error(t, err)
	assert.Equal(t, errors.KindStr, errors.KindOf(err))
	requireNoLeaks(t, m, h)
}

func TestModule_AllocLimitIsFatal(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h, WithConfig(Config{MaxReplyDepth: 8, AllocLimit: 4}))
	ctx := m.Context(h.NewContext())

	assert.PanicsWithValue(t,
		"abi: memory allocation limit exceeded (requested: 8 bytes, current: 3 bytes, limit: 4 bytes)",
		func() { _, _ = ctx.Call("SET", "too-long") },
	)
}

func TestModule_Close(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)

	ctx := m.Context(h.NewContext())
	s := ctx.CreateString("kept")
	defer s.Free()

	// A buffer allocated but never handed back.
	m.alloc.CopyString("leaked")
	count, _ := m.Stats()
	require.Equal(t, 1, count)

	m.Close()
	count, bytes := m.Stats()
	assert.Zero(t, count)
	assert.Zero(t, bytes)
	assert.Equal(t, "kept", s.String())
}
