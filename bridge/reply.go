package bridge

import (
	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/reglet-dev/hostbridge/hostapi"
)

// Reply sends the outcome of the current command to the host and returns the
// host's status. A non-nil err takes precedence over v.
//
// Arrays are written as a header followed by their elements; the result is
// the first failing status among them, or the header's status.
func (c *Context) Reply(v value.Value, err error) hostapi.Status {
	if c.mod == nil {
		return hostapi.StatusErr
	}
	if err != nil {
		return c.replyText(c.mod.host.ReplyWithError, errors.Message(err))
	}
	return c.replyValue(v)
}

// ReplyError sends err as an error reply.
func (c *Context) ReplyError(err error) hostapi.Status {
	return c.Reply(nil, err)
}

// ReplyOK sends the "OK" status reply.
func (c *Context) ReplyOK() hostapi.Status {
	return c.Reply(value.OK, nil)
}

func (c *Context) replyValue(v value.Value) hostapi.Status {
	h := c.mod.host
	switch x := v.(type) {
	case value.StaticSimpleString:
		return c.replyText(h.ReplyWithSimpleString, string(x))
	case value.SimpleString:
		return c.replyText(h.ReplyWithSimpleString, string(x))
	case value.BulkString:
		return c.replyText(h.ReplyWithStringBuffer, string(x))
	case value.Integer:
		return h.ReplyWithLongLong(c.ptr, int64(x))
	case value.Float:
		return h.ReplyWithDouble(c.ptr, float64(x))
	case value.Array:
		status := h.ReplyWithArray(c.ptr, len(x))
		for _, elem := range x {
			if st := c.replyValue(elem); st != hostapi.StatusOK && status == hostapi.StatusOK {
				status = st
			}
		}
		return status
	default:
		// Nil, and a nil interface.
		return h.ReplyWithNull(c.ptr)
	}
}

func (c *Context) replyText(send func(hostapi.ContextPtr, hostapi.Buf) hostapi.Status, s string) hostapi.Status {
	b := c.mod.alloc.CopyString(s)
	defer c.mod.alloc.Free(b)
	return send(c.ptr, b)
}
