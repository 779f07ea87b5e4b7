// Package wazero places host memory inside a WebAssembly guest.
//
// GuestHeap implements hostapi.Allocator over a module instantiated with
// wazero. The module must export its linear memory and an allocator pair:
//
//	allocate(size i32) -> ptr i32
//	deallocate(ptr i32 [, size i32])
//
// Any host built on a hostapi.Allocator can then keep its buffers in guest
// memory, so the bridge exchanges bytes with the guest the same way it does
// with a native host.
//
// # Basic Usage
//
//	runtime := wazero.NewRuntime(ctx)
//	defer runtime.Close(ctx)
//
//	heap, err := wazero.LoadHeap(ctx, runtime, wasmBytes)
//	if err != nil {
//	    return err
//	}
//
//	host, err := memhost.NewBuiltin(memhost.WithAllocator(heap))
package wazero
