package hostapi

import "fmt"

// Ptr is an address in host memory.
type Ptr uint32

// IsNull reports whether the pointer is null (zero).
func (p Ptr) IsNull() bool { return p == 0 }

func (p Ptr) String() string { return fmt.Sprintf("Ptr(0x%x)", uint32(p)) }

// ContextPtr is a host execution context handle. The host hands one to every
// command callback; detached contexts are acquired through ThreadSafe.
type ContextPtr uint64

// IsNull reports whether the handle is null (zero).
func (p ContextPtr) IsNull() bool { return p == 0 }

func (p ContextPtr) String() string { return fmt.Sprintf("ContextPtr(0x%x)", uint64(p)) }

// ReplyPtr is a host call reply handle.
type ReplyPtr uint64

// IsNull reports whether the handle is null (zero).
func (p ReplyPtr) IsNull() bool { return p == 0 }

func (p ReplyPtr) String() string { return fmt.Sprintf("ReplyPtr(0x%x)", uint64(p)) }

// KeyPtr is an open key handle.
type KeyPtr uint64

// IsNull reports whether the handle is null (zero).
func (p KeyPtr) IsNull() bool { return p == 0 }

func (p KeyPtr) String() string { return fmt.Sprintf("KeyPtr(0x%x)", uint64(p)) }

// StringPtr is a host string handle.
type StringPtr uint64

// IsNull reports whether the handle is null (zero).
func (p StringPtr) IsNull() bool { return p == 0 }

func (p StringPtr) String() string { return fmt.Sprintf("StringPtr(0x%x)", uint64(p)) }

// Buf is a byte range in host memory.
type Buf struct {
	Ptr Ptr
	Len uint32
}

// IsNull reports whether the buffer points nowhere.
func (b Buf) IsNull() bool { return b.Ptr.IsNull() }

// Pack returns the buffer in packed ptr+len form.
func (b Buf) Pack() uint64 { return PackPtrLen(uint32(b.Ptr), b.Len) }

// UnpackBuf is the inverse of Buf.Pack.
func UnpackBuf(packed uint64) Buf {
	ptr, length := UnpackPtrLen(packed)
	return Buf{Ptr: Ptr(ptr), Len: length}
}

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("hostapi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << 32) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32) //nolint:gosec // G115: packed format stores 32-bit values
	length = uint32(packed)    //nolint:gosec // G115: packed format stores 32-bit values
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("hostapi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}
