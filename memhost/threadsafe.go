package memhost

import (
	"github.com/reglet-dev/hostbridge/hostapi"
	"go.uber.org/zap"
)

// Stats counts lifecycle events and contract violations seen by the host.
type Stats struct {
	// Calls is the number of commands that produced a reply.
	Calls int
	// DetachedAcquired and DetachedFreed count detached context lifecycles.
	DetachedAcquired int
	DetachedFreed    int
	// DoubleFrees counts releases of an already released detached context.
	DoubleFrees int
	// MisreleasedContexts counts FreeThreadSafeContext on a non-detached context.
	MisreleasedContexts int
	// UnlockedCalls counts calls through a detached context without the global lock.
	UnlockedCalls int
	// StaleContextUses counts operations on a detached context after its release.
	StaleContextUses int
}

// Stats returns a snapshot of the host counters.
func (h *Host) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// GetThreadSafeContext implements hostapi.ThreadSafe.
func (h *Host) GetThreadSafeContext(_ hostapi.ContextPtr) hostapi.ContextPtr {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.DetachedAcquired++
	return h.newContextLocked(true)
}

// FreeThreadSafeContext implements hostapi.ThreadSafe. Releasing twice, or
// releasing a per-callback context, is recorded instead of crashing.
func (h *Host) FreeThreadSafeContext(ctx hostapi.ContextPtr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.contexts[ctx]
	switch {
	case !ok:
		h.logger.Error("free of unknown context", zap.Stringer("ctx", ctx))
	case !st.detached:
		h.stats.MisreleasedContexts++
		h.logger.Error("free of non-detached context", zap.Stringer("ctx", ctx))
	case st.freed:
		h.stats.DoubleFrees++
		h.logger.Error("double free of detached context", zap.Stringer("ctx", ctx))
	default:
		st.freed = true
		h.stats.DetachedFreed++
	}
}

// ThreadSafeContextLock implements hostapi.ThreadSafe. It blocks until the
// global lock is free.
func (h *Host) ThreadSafeContextLock(ctx hostapi.ContextPtr) {
	h.gil.Lock()
	h.mu.Lock()
	h.gilHolder = ctx
	h.mu.Unlock()
}

// ThreadSafeContextUnlock implements hostapi.ThreadSafe.
func (h *Host) ThreadSafeContextUnlock(_ hostapi.ContextPtr) {
	h.mu.Lock()
	h.gilHolder = 0
	h.mu.Unlock()
	h.gil.Unlock()
}

// TryLock reports whether the global lock is free by taking and dropping it.
func (h *Host) TryLock() bool {
	if !h.gil.TryLock() {
		return false
	}
	h.gil.Unlock()
	return true
}
