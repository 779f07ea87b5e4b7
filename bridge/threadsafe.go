package bridge

import (
	"sync"

	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/reglet-dev/hostbridge/hostapi"
	"go.uber.org/zap"
)

// ErrReleased is returned by Call on a ThreadSafeContext after Close.
var ErrReleased = errors.Str("bridge: thread-safe context already released")

// ThreadSafeContext is a detached context that may be shared by goroutines.
//
// Call takes the host's global lock for the duration of the command. Logging,
// keys, strings and replies go through unlocked, as the host serialises them
// itself. After Close no operation reaches the host: Call returns
// ErrReleased, Reply returns StatusErr, keys and strings come back unopened
// and log records go to the bridge's zap logger.
type ThreadSafeContext struct {
	ctx      *Context
	once     sync.Once
	mu       sync.RWMutex
	released bool
}

// DummyThreadSafeContext returns a detached context bound to no host.
func DummyThreadSafeContext() *ThreadSafeContext {
	return &ThreadSafeContext{ctx: Dummy()}
}

// IsDummy reports whether the context is bound to no host.
func (t *ThreadSafeContext) IsDummy() bool { return t.ctx.IsDummy() }

// Ptr returns the detached handle.
func (t *ThreadSafeContext) Ptr() hostapi.ContextPtr { return t.ctx.ptr }

// Call runs a command under the host's global lock. The lock is released on
// every exit path before Call returns.
func (t *ThreadSafeContext) Call(command string, args ...string) (value.Value, error) {
	// The read lock keeps Close from releasing the handle mid-call.
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.released {
		return nil, ErrReleased
	}

	m := t.ctx.mod
	if m == nil {
		return t.ctx.Call(command, args...)
	}
	m.host.ThreadSafeContextLock(t.ctx.ptr)
	defer m.host.ThreadSafeContextUnlock(t.ctx.ptr)
	return t.ctx.Call(command, args...)
}

// use runs fn with the context while holding off Close. Once released, fn
// gets a context bound to no host.
func (t *ThreadSafeContext) use(fn func(c *Context)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.released {
		fn(&Context{logger: t.ctx.logger})
		return
	}
	fn(t.ctx)
}

// Log writes msg to the host log.
func (t *ThreadSafeContext) Log(level hostapi.LogLevel, msg string) {
	t.use(func(c *Context) { c.Log(level, msg) })
}

// LogDebug logs at debug severity.
func (t *ThreadSafeContext) LogDebug(msg string) { t.Log(hostapi.LogDebug, msg) }

// LogVerbose logs at verbose severity.
func (t *ThreadSafeContext) LogVerbose(msg string) { t.Log(hostapi.LogVerbose, msg) }

// LogNotice logs at notice severity.
func (t *ThreadSafeContext) LogNotice(msg string) { t.Log(hostapi.LogNotice, msg) }

// LogWarning logs at warning severity.
func (t *ThreadSafeContext) LogWarning(msg string) { t.Log(hostapi.LogWarning, msg) }

// AutoMemory passes through to the wrapped context.
func (t *ThreadSafeContext) AutoMemory() {
	t.use(func(c *Context) { c.AutoMemory() })
}

// ReplicateVerbatim passes through to the wrapped context.
func (t *ThreadSafeContext) ReplicateVerbatim() {
	t.use(func(c *Context) { c.ReplicateVerbatim() })
}

// OpenKey passes through to the wrapped context.
func (t *ThreadSafeContext) OpenKey(name string) (k *Key) {
	t.use(func(c *Context) { k = c.OpenKey(name) })
	return k
}

// OpenKeyWritable passes through to the wrapped context.
func (t *ThreadSafeContext) OpenKeyWritable(name string) (k *KeyWritable) {
	t.use(func(c *Context) { k = c.OpenKeyWritable(name) })
	return k
}

// CreateString passes through to the wrapped context.
func (t *ThreadSafeContext) CreateString(s string) (str *String) {
	t.use(func(c *Context) { str = c.CreateString(s) })
	return str
}

// Reply passes through to the wrapped context.
func (t *ThreadSafeContext) Reply(v value.Value, err error) (st hostapi.Status) {
	t.use(func(c *Context) { st = c.Reply(v, err) })
	return st
}

// Close releases the detached handle. Only the first call reaches the host.
func (t *ThreadSafeContext) Close() {
	t.once.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.released = true

		m := t.ctx.mod
		if m == nil {
			return
		}
		m.host.FreeThreadSafeContext(t.ctx.ptr)
		m.logger.Debug("released detached context", zap.Stringer("ctx", t.ctx.ptr))
	})
}
