package wazero

import (
	"context"
	"fmt"
	"sync"

	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/internal/logging"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// HeapConfig holds the export names a GuestHeap binds to.
type HeapConfig struct {
	// AllocateExport is the guest allocation function (default: "allocate").
	AllocateExport string

	// DeallocateExport is the guest free function (default: "deallocate").
	DeallocateExport string

	// Logger receives diagnostics for failed guest calls.
	Logger *zap.Logger
}

// HeapOption configures a GuestHeap.
type HeapOption func(*HeapConfig)

// WithAllocateExport sets the name of the guest allocation function.
func WithAllocateExport(name string) HeapOption {
	return func(c *HeapConfig) {
		c.AllocateExport = name
	}
}

// WithDeallocateExport sets the name of the guest free function.
func WithDeallocateExport(name string) HeapOption {
	return func(c *HeapConfig) {
		c.DeallocateExport = name
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) HeapOption {
	return func(c *HeapConfig) {
		c.Logger = l
	}
}

// defaultHeapConfig returns the default heap configuration.
func defaultHeapConfig() HeapConfig {
	return HeapConfig{
		AllocateExport:   "allocate",
		DeallocateExport: "deallocate",
	}
}

// guestFunc is the part of api.Function a GuestHeap calls.
type guestFunc interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// guestMemory is the part of api.Memory a GuestHeap reads and writes.
type guestMemory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
}

var _ hostapi.Allocator = (*GuestHeap)(nil)

// GuestHeap is a hostapi.Allocator backed by a guest module's allocator.
// Guest calls are serialised; a wazero module is not safe for concurrent use.
type GuestHeap struct {
	ctx      context.Context
	allocate guestFunc
	free     guestFunc
	memory   guestMemory
	logger   *zap.Logger
	sizes    map[hostapi.Ptr]uint32
	// freeTakesSize is set when deallocate expects (ptr, size).
	freeTakesSize bool
	mu            sync.Mutex
}

// NewGuestHeap binds to the allocator exports and memory of mod. ctx is
// used for every guest call the heap makes.
func NewGuestHeap(ctx context.Context, mod api.Module, opts ...HeapOption) (*GuestHeap, error) {
	cfg := defaultHeapConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	allocFn := mod.ExportedFunction(cfg.AllocateExport)
	if allocFn == nil {
		return nil, fmt.Errorf("guest module missing '%s' export", cfg.AllocateExport)
	}
	if n := len(allocFn.Definition().ParamTypes()); n != 1 {
		return nil, fmt.Errorf("guest '%s' takes %d parameters, want 1", cfg.AllocateExport, n)
	}
	freeFn := mod.ExportedFunction(cfg.DeallocateExport)
	if freeFn == nil {
		return nil, fmt.Errorf("guest module missing '%s' export", cfg.DeallocateExport)
	}
	freeArity := len(freeFn.Definition().ParamTypes())
	if freeArity != 1 && freeArity != 2 {
		return nil, fmt.Errorf("guest '%s' takes %d parameters, want 1 or 2", cfg.DeallocateExport, freeArity)
	}
	mem := mod.Memory()
	if mem == nil {
		return nil, fmt.Errorf("guest module exports no memory")
	}

	return newGuestHeap(ctx, allocFn, freeFn, freeArity == 2, mem, cfg.Logger), nil
}

func newGuestHeap(ctx context.Context, allocate, free guestFunc, freeTakesSize bool, mem guestMemory, logger *zap.Logger) *GuestHeap {
	return &GuestHeap{
		ctx:           ctx,
		allocate:      allocate,
		free:          free,
		freeTakesSize: freeTakesSize,
		memory:        mem,
		logger:        logging.Named(logger, "guest_heap"),
		sizes:         make(map[hostapi.Ptr]uint32),
	}
}

// Alloc implements hostapi.Allocator. A failing guest call yields a null Ptr.
func (g *GuestHeap) Alloc(size uint32) hostapi.Ptr {
	if size == 0 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	results, err := g.allocate.Call(g.ctx, uint64(size))
	if err != nil {
		g.logger.Error("guest allocate failed", zap.Uint32("size", size), zap.Error(err))
		return 0
	}
	if len(results) == 0 {
		g.logger.Error("guest allocate returned no result", zap.Uint32("size", size))
		return 0
	}
	ptr := hostapi.Ptr(uint32(results[0])) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if !ptr.IsNull() {
		g.sizes[ptr] = size
	}
	return ptr
}

// Free implements hostapi.Allocator. Pointers the heap did not hand out are
// ignored.
func (g *GuestHeap) Free(ptr hostapi.Ptr) {
	g.mu.Lock()
	defer g.mu.Unlock()

	size, ok := g.sizes[ptr]
	if !ok {
		return
	}
	delete(g.sizes, ptr)

	params := []uint64{uint64(ptr)}
	if g.freeTakesSize {
		params = append(params, uint64(size))
	}
	if _, err := g.free.Call(g.ctx, params...); err != nil {
		g.logger.Error("guest deallocate failed", zap.Stringer("ptr", ptr), zap.Error(err))
	}
}

// Memory implements hostapi.Allocator.
func (g *GuestHeap) Memory() hostapi.Memory {
	return memoryView{g.memory}
}

// Live returns the number of guest blocks not yet freed.
func (g *GuestHeap) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sizes)
}

// memoryView adapts guest linear memory to hostapi.Memory.
type memoryView struct {
	mem guestMemory
}

func (m memoryView) Read(ptr hostapi.Ptr, n uint32) ([]byte, bool) {
	return m.mem.Read(uint32(ptr), n)
}

func (m memoryView) Write(ptr hostapi.Ptr, data []byte) bool {
	return m.mem.Write(uint32(ptr), data)
}

// LoadHeap instantiates wasmBytes in runtime, with WASI available, and binds
// a GuestHeap to it. Reactor modules are initialised through _initialize.
// The module lives as long as runtime.
func LoadHeap(ctx context.Context, runtime wazero.Runtime, wasmBytes []byte, opts ...HeapOption) (*GuestHeap, error) {
	if runtime.Module(wasi_snapshot_preview1.ModuleName) == nil {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
			return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
		}
	}

	mod, err := runtime.Instantiate(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	return NewGuestHeap(ctx, mod, opts...)
}
