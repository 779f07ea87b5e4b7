package memhost

import (
	"github.com/reglet-dev/hostbridge/hostapi"
)

// Reply is a host reply tree before it is handed out as a handle.
type Reply struct {
	Str   string
	Elems []*Reply
	Int   int64
	Type  hostapi.ReplyType
}

// StatusReply returns a string-typed reply such as "OK".
func StatusReply(s string) *Reply {
	return &Reply{Type: hostapi.ReplyString, Str: s}
}

// BulkReply returns a string-typed reply carrying binary-safe data.
// The host reports bulk and status strings with the same type tag.
func BulkReply(s string) *Reply {
	return &Reply{Type: hostapi.ReplyString, Str: s}
}

// IntReply returns an integer reply.
func IntReply(n int64) *Reply {
	return &Reply{Type: hostapi.ReplyInteger, Int: n}
}

// ArrayReply returns an array reply. Nil elements become nil replies.
func ArrayReply(elems ...*Reply) *Reply {
	r := &Reply{Type: hostapi.ReplyArray, Elems: make([]*Reply, len(elems))}
	for i, e := range elems {
		if e == nil {
			e = NilReply()
		}
		r.Elems[i] = e
	}
	return r
}

// StringsReply returns an array of bulk replies.
func StringsReply(items []string) *Reply {
	elems := make([]*Reply, len(items))
	for i, s := range items {
		elems[i] = BulkReply(s)
	}
	return ArrayReply(elems...)
}

// NilReply returns a nil reply.
func NilReply() *Reply {
	return &Reply{Type: hostapi.ReplyNil}
}

// ErrorReply returns an error reply with the given message.
func ErrorReply(msg string) *Reply {
	return &Reply{Type: hostapi.ReplyError, Str: msg}
}

// UnknownReply returns a reply whose type the host cannot name.
func UnknownReply(msg string) *Reply {
	return &Reply{Type: hostapi.ReplyUnknown, Str: msg}
}

// replyNode is a materialised reply. Only roots may be freed.
type replyNode struct {
	elems []hostapi.ReplyPtr
	str   hostapi.Buf
	n     int64
	typ   hostapi.ReplyType
	root  bool
}

// materialize registers r and its children. The caller holds h.mu.
func (h *Host) materialize(r *Reply, root bool) hostapi.ReplyPtr {
	if r == nil {
		r = NilReply()
	}
	node := &replyNode{typ: r.Type, n: r.Int, root: root}
	switch r.Type {
	case hostapi.ReplyString, hostapi.ReplyError, hostapi.ReplyUnknown:
		node.str = h.copyIn([]byte(r.Str))
	case hostapi.ReplyArray:
		node.elems = make([]hostapi.ReplyPtr, len(r.Elems))
		for i, e := range r.Elems {
			node.elems[i] = h.materialize(e, false)
		}
	}
	h.nextHandle++
	ptr := hostapi.ReplyPtr(h.nextHandle)
	h.replies[ptr] = node
	return ptr
}

// release frees a reply node and its children. The caller holds h.mu.
func (h *Host) release(ptr hostapi.ReplyPtr) {
	node, ok := h.replies[ptr]
	if !ok {
		return
	}
	delete(h.replies, ptr)
	if !node.str.IsNull() {
		h.alloc.Free(node.str.Ptr)
	}
	for _, e := range node.elems {
		h.release(e)
	}
}

// NewReply hands out r as a reply handle, as if a command had produced it.
// Release it with FreeCallReply.
func (h *Host) NewReply(r *Reply) hostapi.ReplyPtr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.materialize(r, true)
}

// LiveReplies returns the number of reply handles not yet freed, nested ones included.
func (h *Host) LiveReplies() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.replies)
}

// CallReplyType implements hostapi.ReplyReader.
func (h *Host) CallReplyType(reply hostapi.ReplyPtr) hostapi.ReplyType {
	h.mu.Lock()
	defer h.mu.Unlock()
	node, ok := h.replies[reply]
	if !ok {
		return hostapi.ReplyUnknown
	}
	return node.typ
}

// CallReplyString implements hostapi.ReplyReader.
func (h *Host) CallReplyString(reply hostapi.ReplyPtr) hostapi.Buf {
	h.mu.Lock()
	defer h.mu.Unlock()
	node, ok := h.replies[reply]
	if !ok {
		return hostapi.Buf{}
	}
	return node.str
}

// CallReplyInteger implements hostapi.ReplyReader.
func (h *Host) CallReplyInteger(reply hostapi.ReplyPtr) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	node, ok := h.replies[reply]
	if !ok {
		return 0
	}
	return node.n
}

// CallReplyLength implements hostapi.ReplyReader.
func (h *Host) CallReplyLength(reply hostapi.ReplyPtr) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	node, ok := h.replies[reply]
	if !ok {
		return 0
	}
	if node.typ == hostapi.ReplyString || node.typ == hostapi.ReplyError {
		return int(node.str.Len)
	}
	return len(node.elems)
}

// CallReplyArrayElement implements hostapi.ReplyReader.
func (h *Host) CallReplyArrayElement(reply hostapi.ReplyPtr, idx int) hostapi.ReplyPtr {
	h.mu.Lock()
	defer h.mu.Unlock()
	node, ok := h.replies[reply]
	if !ok || idx < 0 || idx >= len(node.elems) {
		return 0
	}
	return node.elems[idx]
}

// FreeCallReply implements hostapi.Caller. Nested handles are freed with
// their root; freeing them directly is a no-op.
func (h *Host) FreeCallReply(reply hostapi.ReplyPtr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	node, ok := h.replies[reply]
	if !ok || !node.root {
		return
	}
	h.release(reply)
}
