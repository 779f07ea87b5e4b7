package bridge

import (
	"sync"

	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/internal/abi"
)

// String is a host-owned string. Free it when done; Free is idempotent.
type String struct {
	ctx  *Context
	once sync.Once
	ptr  hostapi.StringPtr
}

// CreateString copies s into a new host string. On a dummy context the
// result is a null handle that reads as empty.
func (c *Context) CreateString(s string) *String {
	str := &String{ctx: c}
	if c.mod == nil {
		return str
	}
	b := c.mod.alloc.CopyString(s)
	defer c.mod.alloc.Free(b)
	str.ptr = c.mod.host.CreateString(c.ptr, b)
	return str
}

// Ptr returns the host handle.
func (s *String) Ptr() hostapi.StringPtr { return s.ptr }

// String returns a Go copy of the host string.
func (s *String) String() string {
	if s.ptr.IsNull() {
		return ""
	}
	h := s.ctx.mod.host
	data, ok := abi.CopyOut(h.Memory(), h.StringPtrLen(s.ptr))
	if !ok {
		return ""
	}
	return string(data)
}

// Free releases the host string.
func (s *String) Free() {
	s.once.Do(func() {
		if !s.ptr.IsNull() {
			s.ctx.mod.host.FreeString(s.ctx.ptr, s.ptr)
		}
	})
}
