package memhost

import (
	"fmt"

	"github.com/reglet-dev/hostbridge/hostapi"
)

// FrameKind identifies which reply entry point produced a Frame.
type FrameKind int

const (
	FrameSimpleString FrameKind = iota
	FrameBulkString
	FrameError
	FrameInteger
	FrameDouble
	FrameArray
	FrameNull
)

func (k FrameKind) String() string {
	switch k {
	case FrameSimpleString:
		return "simple"
	case FrameBulkString:
		return "bulk"
	case FrameError:
		return "error"
	case FrameInteger:
		return "integer"
	case FrameDouble:
		return "double"
	case FrameArray:
		return "array"
	case FrameNull:
		return "null"
	default:
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
}

// Frame is one reply call recorded by the host.
type Frame struct {
	Text  string
	Int   int64
	Float float64
	Kind  FrameKind
}

// Replies returns the frames written to ctx, in call order.
func (h *Host) Replies(ctx hostapi.ContextPtr) []Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.contexts[ctx]
	if !ok {
		return nil
	}
	out := make([]Frame, len(st.frames))
	copy(out, st.frames)
	return out
}

func (h *Host) record(ctx hostapi.ContextPtr, f Frame) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.liveContext(ctx)
	if !ok {
		return hostapi.StatusErr
	}
	st.frames = append(st.frames, f)
	return hostapi.StatusOK
}

func (h *Host) recordText(ctx hostapi.ContextPtr, kind FrameKind, b hostapi.Buf) hostapi.Status {
	s, ok := h.readString(b)
	if !ok {
		return hostapi.StatusErr
	}
	return h.record(ctx, Frame{Kind: kind, Text: s})
}

// ReplyWithSimpleString implements hostapi.Replier.
func (h *Host) ReplyWithSimpleString(ctx hostapi.ContextPtr, msg hostapi.Buf) hostapi.Status {
	return h.recordText(ctx, FrameSimpleString, msg)
}

// ReplyWithStringBuffer implements hostapi.Replier.
func (h *Host) ReplyWithStringBuffer(ctx hostapi.ContextPtr, data hostapi.Buf) hostapi.Status {
	return h.recordText(ctx, FrameBulkString, data)
}

// ReplyWithError implements hostapi.Replier.
func (h *Host) ReplyWithError(ctx hostapi.ContextPtr, msg hostapi.Buf) hostapi.Status {
	return h.recordText(ctx, FrameError, msg)
}

// ReplyWithLongLong implements hostapi.Replier.
func (h *Host) ReplyWithLongLong(ctx hostapi.ContextPtr, n int64) hostapi.Status {
	return h.record(ctx, Frame{Kind: FrameInteger, Int: n})
}

// ReplyWithDouble implements hostapi.Replier.
func (h *Host) ReplyWithDouble(ctx hostapi.ContextPtr, f float64) hostapi.Status {
	return h.record(ctx, Frame{Kind: FrameDouble, Float: f})
}

// ReplyWithArray implements hostapi.Replier.
func (h *Host) ReplyWithArray(ctx hostapi.ContextPtr, length int) hostapi.Status {
	return h.record(ctx, Frame{Kind: FrameArray, Int: int64(length)})
}

// ReplyWithNull implements hostapi.Replier.
func (h *Host) ReplyWithNull(ctx hostapi.ContextPtr) hostapi.Status {
	return h.record(ctx, Frame{Kind: FrameNull})
}
