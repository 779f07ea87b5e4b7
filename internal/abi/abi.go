// Package abi routes the bridge's dynamic allocations through the host allocator.
//
// Every buffer handed to the host is obtained from the host's own Alloc entry
// point and released with its Free entry point, so the host's heap accounting
// and its automatic cleanup see exactly the memory they expect. A failed host
// allocation is fatal.
package abi

import (
	"fmt"
	"sync"

	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/internal/logging"
	"go.uber.org/zap"
)

// DefaultMaxTotalAllocations is the default cap on bytes held live through a Redirector.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// FatalFunc is called when an allocation cannot be satisfied. It must not return
// normally; the default exits the process.
type FatalFunc func(msg string)

// Option configures a Redirector.
type Option func(*Redirector)

// WithLimit caps the total bytes live at any time. Non-positive values are ignored.
func WithLimit(bytes int) Option {
	return func(r *Redirector) {
		if bytes > 0 {
			r.limit = bytes
		}
	}
}

// WithFatal replaces the fatal hook.
func WithFatal(fn FatalFunc) Option {
	return func(r *Redirector) {
		if fn != nil {
			r.fatal = fn
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Redirector) {
		if l != nil {
			r.logger = l
		}
	}
}

// Redirector is a strict pass-through to the host allocator that keeps track
// of what it handed out.
type Redirector struct {
	host   hostapi.Allocator
	logger *zap.Logger
	fatal  FatalFunc
	live   map[hostapi.Ptr]uint32 // ptr -> size
	total  int
	limit  int
	mu     sync.Mutex
}

// New returns a Redirector over host.
func New(host hostapi.Allocator, opts ...Option) *Redirector {
	r := &Redirector{
		host:   host,
		logger: logging.Named(nil, "abi"),
		live:   make(map[hostapi.Ptr]uint32),
		limit:  DefaultMaxTotalAllocations,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fatal == nil {
		l := r.logger
		r.fatal = func(msg string) { l.Fatal(msg) }
	}
	return r
}

// Alloc reserves size bytes in host memory. A zero size returns the null Buf
// without calling the host.
func (r *Redirector) Alloc(size uint32) hostapi.Buf {
	if size == 0 {
		return hostapi.Buf{}
	}

	// The bytes are reserved before the host call so concurrent callers
	// cannot pass the limit check together.
	r.mu.Lock()
	if r.total+int(size) > r.limit {
		current := r.total
		r.mu.Unlock()
		r.die(fmt.Sprintf("abi: memory allocation limit exceeded (requested: %d bytes, current: %d bytes, limit: %d bytes)",
			size, current, r.limit))
		return hostapi.Buf{}
	}
	r.total += int(size)
	r.mu.Unlock()

	ptr := r.host.Alloc(size)
	if ptr.IsNull() {
		r.mu.Lock()
		r.total -= int(size)
		r.mu.Unlock()
		r.die(fmt.Sprintf("abi: host allocator returned null for %d bytes", size))
		return hostapi.Buf{}
	}

	r.mu.Lock()
	r.live[ptr] = size
	r.mu.Unlock()

	return hostapi.Buf{Ptr: ptr, Len: size}
}

// Free releases a buffer obtained from Alloc. Null and untracked buffers are
// ignored, which makes Free idempotent.
func (r *Redirector) Free(b hostapi.Buf) {
	if b.IsNull() {
		return
	}

	r.mu.Lock()
	size, ok := r.live[b.Ptr]
	if !ok {
		r.mu.Unlock()
		r.logger.Debug("ignoring free of untracked pointer", zap.Stringer("ptr", b.Ptr))
		return
	}
	delete(r.live, b.Ptr)
	// Accounting uses the tracked size, not b.Len.
	r.total -= int(size)
	if r.total < 0 {
		r.total = 0
	}
	r.mu.Unlock()

	r.host.Free(b.Ptr)
}

// CopyIn allocates host memory and copies data into it.
func (r *Redirector) CopyIn(data []byte) hostapi.Buf {
	if len(data) == 0 {
		return hostapi.Buf{}
	}
	b := r.Alloc(uint32(len(data))) //nolint:gosec // G115: host buffers are 32-bit addressed
	if b.IsNull() {
		return b
	}
	if !r.host.Memory().Write(b.Ptr, data) {
		r.Free(b)
		r.die(fmt.Sprintf("abi: failed to write %d bytes at %s", len(data), b.Ptr))
		return hostapi.Buf{}
	}
	return b
}

// CopyString is CopyIn for text.
func (r *Redirector) CopyString(s string) hostapi.Buf {
	return r.CopyIn([]byte(s))
}

// FreeAll releases every tracked allocation, typically on module shutdown.
func (r *Redirector) FreeAll() {
	r.mu.Lock()
	ptrs := make([]hostapi.Ptr, 0, len(r.live))
	for ptr := range r.live {
		ptrs = append(ptrs, ptr)
	}
	r.live = make(map[hostapi.Ptr]uint32)
	r.total = 0
	r.mu.Unlock()

	for _, ptr := range ptrs {
		r.host.Free(ptr)
	}
}

// Stats returns the number of live allocations and the bytes they hold.
func (r *Redirector) Stats() (count, bytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live), r.total
}

func (r *Redirector) die(msg string) {
	r.logger.Error(msg)
	r.fatal(msg)
}

// CopyOut reads b from mem into a fresh Go-owned slice. A null or empty
// buffer yields an empty, non-nil slice; an unreadable range yields ok=false.
func CopyOut(mem hostapi.Memory, b hostapi.Buf) (data []byte, ok bool) {
	if b.IsNull() || b.Len == 0 {
		return []byte{}, true
	}
	src, ok := mem.Read(b.Ptr, b.Len)
	if !ok {
		return nil, false
	}
	data = make([]byte, len(src))
	copy(data, src)
	return data, true
}
