// Package hostapi describes the boundary between the bridge and the embedding host.
//
// The host exposes its extension API as a table of C-style entry points that
// operate on opaque handles: contexts, call replies, keys and strings. This
// package gives each handle a distinct Go type and groups the entry points into
// narrow ports so that every consumer depends only on what it calls.
//
// # Handles
//
// Handles are plain integers. The zero value of every handle type is the null
// handle; callers check IsNull before use. The bridge never interprets a handle
// beyond passing it back to the host.
//
// # Memory
//
// Text crosses the boundary as a Buf, a pointer and length into host-owned
// memory. Buffers handed to the host are allocated with the host allocator and
// released by the party that allocated them:
//
//	┌──────────────┐  Alloc/Write  ┌──────────────┐
//	│    bridge    │ ────────────→ │ host memory  │
//	│ (Go values)  │ ←──────────── │   (Buf)      │
//	└──────────────┘   Read/copy   └──────────────┘
//
// Bytes read from a Buf are copied out before the call that produced them
// returns; decoded values never alias host memory.
package hostapi
