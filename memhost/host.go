package memhost

import (
	"sync"

	"github.com/reglet-dev/hostbridge/hostapi"
	"go.uber.org/zap"
)

var _ hostapi.Host = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithRegistry sets the command registry. Without one every Call fails.
func WithRegistry(r *Registry) Option {
	return func(h *Host) {
		h.registry = r
	}
}

// WithAllocator places host memory in alloc instead of a private Arena.
func WithAllocator(alloc hostapi.Allocator) Option {
	return func(h *Host) {
		if alloc != nil {
			h.alloc = alloc
		}
	}
}

// WithLogger sets the logger the host log sink writes to.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

type contextState struct {
	frames     []Frame
	replicated int
	detached   bool
	freed      bool
	autoMemory bool
}

type keyHandle struct {
	name string
	bufs []hostapi.Buf
	mode hostapi.KeyMode
}

// Host is an in-memory hostapi.Host.
type Host struct {
	alloc    hostapi.Allocator
	registry *Registry
	store    *Store
	logger   *zap.Logger

	contexts map[hostapi.ContextPtr]*contextState
	replies  map[hostapi.ReplyPtr]*replyNode
	keys     map[hostapi.KeyPtr]*keyHandle
	strings  map[hostapi.StringPtr]hostapi.Buf
	logs     []LogEntry
	stats    Stats

	nextHandle uint64
	// gilHolder is the detached context currently holding the global lock.
	gilHolder hostapi.ContextPtr

	gil sync.Mutex
	mu  sync.Mutex
}

// New returns a host with an empty store.
func New(opts ...Option) *Host {
	h := &Host{
		alloc:    NewArena(),
		store:    newStore(),
		logger:   zap.NewNop(),
		contexts: make(map[hostapi.ContextPtr]*contextState),
		replies:  make(map[hostapi.ReplyPtr]*replyNode),
		keys:     make(map[hostapi.KeyPtr]*keyHandle),
		strings:  make(map[hostapi.StringPtr]hostapi.Buf),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewBuiltin returns a host with the builtin command bundle and panic recovery.
func NewBuiltin(opts ...Option) (*Host, error) {
	registry, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithBundle(BuiltinBundle()),
	)
	if err != nil {
		return nil, err
	}
	return New(append([]Option{WithRegistry(registry)}, opts...)...), nil
}

// Store returns the data store.
func (h *Host) Store() *Store { return h.store }

// NewContext returns a fresh per-callback context, as the host would pass to
// a command handler.
func (h *Host) NewContext() hostapi.ContextPtr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.newContextLocked(false)
}

func (h *Host) newContextLocked(detached bool) hostapi.ContextPtr {
	h.nextHandle++
	ptr := hostapi.ContextPtr(h.nextHandle)
	h.contexts[ptr] = &contextState{detached: detached}
	return ptr
}

// liveContext returns the state of a context that may still be used. Use
// of a released detached context is counted in Stats.StaleContextUses.
// The caller holds h.mu.
func (h *Host) liveContext(ctx hostapi.ContextPtr) (*contextState, bool) {
	st, ok := h.contexts[ctx]
	if !ok {
		return nil, false
	}
	if st.freed {
		h.stats.StaleContextUses++
		h.logger.Error("use of released context", zap.Stringer("ctx", ctx))
		return nil, false
	}
	return st, true
}

// Alloc implements hostapi.Allocator.
func (h *Host) Alloc(size uint32) hostapi.Ptr { return h.alloc.Alloc(size) }

// Free implements hostapi.Allocator.
func (h *Host) Free(ptr hostapi.Ptr) { h.alloc.Free(ptr) }

// Memory implements hostapi.Allocator and hostapi.ReplyReader.
func (h *Host) Memory() hostapi.Memory { return h.alloc.Memory() }

// copyIn places data in host memory. Empty data yields the null Buf.
func (h *Host) copyIn(data []byte) hostapi.Buf {
	if len(data) == 0 {
		return hostapi.Buf{}
	}
	ptr := h.alloc.Alloc(uint32(len(data))) //nolint:gosec // G115: host buffers are 32-bit addressed
	if ptr.IsNull() {
		h.logger.Error("host allocation failed", zap.Int("size", len(data)))
		return hostapi.Buf{}
	}
	if !h.alloc.Memory().Write(ptr, data) {
		h.alloc.Free(ptr)
		return hostapi.Buf{}
	}
	return hostapi.Buf{Ptr: ptr, Len: uint32(len(data))} //nolint:gosec // G115: see above
}

// readString copies a buffer out of host memory.
func (h *Host) readString(b hostapi.Buf) (string, bool) {
	if b.IsNull() || b.Len == 0 {
		return "", true
	}
	data, ok := h.alloc.Memory().Read(b.Ptr, b.Len)
	if !ok {
		return "", false
	}
	return string(data), true
}

// Call implements hostapi.Caller. Unknown commands, unreadable arguments and
// dead contexts yield a null reply.
func (h *Host) Call(ctx hostapi.ContextPtr, cmd hostapi.Buf, args []hostapi.Buf) hostapi.ReplyPtr {
	h.mu.Lock()
	st, ok := h.liveContext(ctx)
	if ok && st.detached && h.gilHolder != ctx {
		h.stats.UnlockedCalls++
	}
	h.mu.Unlock()
	if !ok {
		h.logger.Warn("call on unknown context", zap.Stringer("ctx", ctx))
		return 0
	}

	name, ok := h.readString(cmd)
	if !ok || name == "" {
		return 0
	}
	argv := make([]string, len(args))
	for i, a := range args {
		s, ok := h.readString(a)
		if !ok {
			return 0
		}
		argv[i] = s
	}

	fn, found := h.registry.Lookup(name)
	if !found {
		h.logger.Debug("unknown command", zap.String("command", name))
		return 0
	}

	// No host lock is held while the command body runs.
	reply := fn(newCallContext(h.store, ctx, normalize(name)), argv)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Calls++
	return h.materialize(reply, true)
}

// AutoMemory implements hostapi.Misc.
func (h *Host) AutoMemory(ctx hostapi.ContextPtr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.liveContext(ctx); ok {
		st.autoMemory = true
	}
}

// ReplicateVerbatim implements hostapi.Misc.
func (h *Host) ReplicateVerbatim(ctx hostapi.ContextPtr) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.liveContext(ctx)
	if !ok {
		return hostapi.StatusErr
	}
	st.replicated++
	return hostapi.StatusOK
}

// AutoMemoryEnabled reports whether AutoMemory was called on ctx.
func (h *Host) AutoMemoryEnabled(ctx hostapi.ContextPtr) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.contexts[ctx]
	return ok && st.autoMemory
}

// Replicated returns how many times ctx asked for verbatim replication.
func (h *Host) Replicated(ctx hostapi.ContextPtr) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.contexts[ctx]; ok {
		return st.replicated
	}
	return 0
}
