// Package bridge exposes a host's extension API through memory-safe Go types.
//
// A Module owns the pieces every context shares: the allocator redirector
// that places buffers in host memory, and the reply decoder. Contexts wrap a
// host context handle and turn calls, replies, keys and strings into Go
// values and errors.
//
// # Per-callback contexts
//
// The host hands a context handle to each command callback. Wrap it with
// Module.Context; the wrapper must not outlive the callback and has no
// release path of its own.
//
// # Detached contexts
//
// Module.ThreadSafeContext acquires a context usable from any goroutine.
// Every Call on it holds the host's global lock, and Close releases the
// handle exactly once.
package bridge

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/hostbridge/decode"
	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/internal/abi"
	"github.com/reglet-dev/hostbridge/internal/logging"
	"go.uber.org/zap"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// Config holds the bridge limits.
type Config struct {
	// MaxReplyDepth is the deepest reply array nesting Call accepts.
	MaxReplyDepth int `toml:"max_reply_depth" json:"max_reply_depth" validate:"min=1,max=65536" jsonschema:"minimum=1,maximum=65536,default=128,description=Deepest reply array nesting accepted"`
	// AllocLimit caps the bytes the bridge holds in host memory at once.
	AllocLimit int `toml:"alloc_limit" json:"alloc_limit" validate:"min=1" jsonschema:"minimum=1,default=104857600,description=Bytes the bridge may hold in host memory at once"`
}

// DefaultConfig returns the limits used when no Config is given.
func DefaultConfig() Config {
	return Config{
		MaxReplyDepth: decode.DefaultMaxDepth,
		AllocLimit:    abi.DefaultMaxTotalAllocations,
	}
}

// Validate checks c against its field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("bridge config validation failed: %w", err)
	}
	return nil
}

// Option configures a Module.
type Option func(*moduleOptions)

type moduleOptions struct {
	logger *zap.Logger
	fatal  abi.FatalFunc
	config Config
}

// WithConfig replaces the default limits.
func WithConfig(cfg Config) Option {
	return func(o *moduleOptions) {
		o.config = cfg
	}
}

// WithLogger sets the logger for bridge diagnostics and dummy context logs.
func WithLogger(l *zap.Logger) Option {
	return func(o *moduleOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFatalHandler replaces what happens when host memory cannot be
// allocated. The handler must not return normally; by default the process
// exits.
func WithFatalHandler(fn func(msg string)) Option {
	return func(o *moduleOptions) {
		if fn != nil {
			o.fatal = fn
		}
	}
}

// Module binds the bridge to one host.
type Module struct {
	host    hostapi.Host
	alloc   *abi.Redirector
	decoder *decode.Decoder
	logger  *zap.Logger
	config  Config
}

// NewModule validates the options and returns a Module for host.
func NewModule(host hostapi.Host, opts ...Option) (*Module, error) {
	if host == nil {
		return nil, errors.Str("bridge: host is nil")
	}

	o := moduleOptions{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	logger := logging.Named(o.logger, "bridge")
	allocOpts := []abi.Option{
		abi.WithLimit(o.config.AllocLimit),
		abi.WithLogger(logger.Named("abi")),
	}
	if o.fatal != nil {
		allocOpts = append(allocOpts, abi.WithFatal(o.fatal))
	}

	return &Module{
		host:    host,
		alloc:   abi.New(host, allocOpts...),
		decoder: decode.New(host, decode.WithMaxDepth(o.config.MaxReplyDepth)),
		logger:  logger,
		config:  o.config,
	}, nil
}

// Config returns the limits the module runs with.
func (m *Module) Config() Config { return m.config }

// Host returns the host the module is bound to.
func (m *Module) Host() hostapi.Host { return m.host }

// Context wraps the context handle the host passed to a command callback.
func (m *Module) Context(ptr hostapi.ContextPtr) *Context {
	return &Context{mod: m, ptr: ptr, logger: m.logger}
}

// ThreadSafeContext acquires a detached context. Release it with Close.
func (m *Module) ThreadSafeContext() (*ThreadSafeContext, error) {
	ptr := m.host.GetThreadSafeContext(0)
	if ptr.IsNull() {
		return nil, errors.Str("bridge: host refused a thread-safe context")
	}
	m.logger.Debug("acquired detached context", zap.Stringer("ctx", ptr))
	return &ThreadSafeContext{ctx: m.Context(ptr)}, nil
}

// Stats returns the number of buffers the bridge holds in host memory and
// their total size.
func (m *Module) Stats() (count, bytes int) {
	return m.alloc.Stats()
}

// Close releases every buffer still held in host memory. Contexts must not
// be used afterwards.
func (m *Module) Close() {
	if n, _ := m.alloc.Stats(); n > 0 {
		m.logger.Warn("releasing leaked host buffers", zap.Int("count", n))
	}
	m.alloc.FreeAll()
}
