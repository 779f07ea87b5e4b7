package memhost

import (
	"math"
	"sort"
	"sync"

	"github.com/reglet-dev/hostbridge/hostapi"
)

const arenaAlign = 8

// Arena is a bump allocator over a 32-bit address space backed by the Go heap.
// Addresses are never reused, so a stale pointer reads as unmapped instead of
// aliasing a newer block.
type Arena struct {
	blocks map[hostapi.Ptr][]byte
	starts []hostapi.Ptr // ascending; may contain freed blocks
	next   uint64
	mu     sync.Mutex
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{
		blocks: make(map[hostapi.Ptr][]byte),
		next:   arenaAlign,
	}
}

// Alloc implements hostapi.Allocator. It returns a null Ptr when the address
// space is exhausted.
func (a *Arena) Alloc(size uint32) hostapi.Ptr {
	if size == 0 {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.next
	end := start + uint64(size)
	if end > math.MaxUint32 {
		return 0
	}
	a.next = (end + arenaAlign - 1) &^ (arenaAlign - 1)

	ptr := hostapi.Ptr(start)
	a.blocks[ptr] = make([]byte, size)
	a.starts = append(a.starts, ptr)
	return ptr
}

// Free implements hostapi.Allocator. Unknown pointers are ignored.
func (a *Arena) Free(ptr hostapi.Ptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.blocks, ptr)
	if len(a.blocks) == 0 {
		a.starts = a.starts[:0]
	}
}

// Memory implements hostapi.Allocator.
func (a *Arena) Memory() hostapi.Memory { return a }

// Live returns the number of blocks not yet freed.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks)
}

// Read implements hostapi.Memory. The range must lie inside one live block.
func (a *Arena) Read(ptr hostapi.Ptr, n uint32) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	block, off, ok := a.locate(ptr, n)
	if !ok {
		return nil, false
	}
	return block[off : off+int(n)], true
}

// Write implements hostapi.Memory. The range must lie inside one live block.
func (a *Arena) Write(ptr hostapi.Ptr, data []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	block, off, ok := a.locate(ptr, uint32(len(data))) //nolint:gosec // G115: bounded by block size
	if !ok {
		return false
	}
	copy(block[off:], data)
	return true
}

func (a *Arena) locate(ptr hostapi.Ptr, n uint32) ([]byte, int, bool) {
	if ptr.IsNull() {
		return nil, 0, false
	}
	i := sort.Search(len(a.starts), func(i int) bool { return a.starts[i] > ptr }) - 1
	if i < 0 {
		return nil, 0, false
	}
	start := a.starts[i]
	block, live := a.blocks[start]
	if !live {
		return nil, 0, false
	}
	off := int(ptr - start)
	if off+int(n) > len(block) {
		return nil, 0, false
	}
	return block, off, true
}
