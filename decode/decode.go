// Package decode turns host call replies into values.
//
// A reply is a tree of host-owned handles. The Decoder walks it recursively,
// copying every payload out of host memory, and stops at the first element
// that fails: a failed decode never yields a partial array.
//
//	┌───────────┐  type tag   ┌───────────────────────────────┐
//	│ ReplyPtr  │ ──────────→ │ string  → value.SimpleString  │
//	└───────────┘             │ integer → value.Integer       │
//	                          │ array   → value.Array (recurse)│
//	                          │ nil     → value.None          │
//	                          │ error / unknown → HostError   │
//	                          └───────────────────────────────┘
//
// The decoder never frees a handle; whoever obtained the reply does.
package decode

import (
	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/internal/abi"
)

// DefaultMaxDepth bounds array nesting. Host replies produced by ordinary
// commands nest a few levels at most.
const DefaultMaxDepth = 128

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxDepth sets the deepest array nesting accepted. The top-level reply
// is depth 1. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(d *Decoder) {
		if n >= 1 {
			d.maxDepth = n
		}
	}
}

// Decoder reads replies through a hostapi.ReplyReader. It holds no per-call
// state and is safe for concurrent use.
type Decoder struct {
	host     hostapi.ReplyReader
	maxDepth int
}

// New returns a Decoder reading from host.
func New(host hostapi.ReplyReader, opts ...Option) *Decoder {
	d := &Decoder{host: host, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxDepth returns the configured nesting limit.
func (d *Decoder) MaxDepth() int { return d.maxDepth }

// Decode converts reply into a value. The handle must stay valid for the
// duration of the call.
func (d *Decoder) Decode(reply hostapi.ReplyPtr) (value.Value, error) {
	return d.decode(reply, 1)
}

func (d *Decoder) decode(reply hostapi.ReplyPtr, depth int) (value.Value, error) {
	switch d.host.CallReplyType(reply) {
	case hostapi.ReplyString:
		s, err := d.text(reply)
		if err != nil {
			return nil, err
		}
		return value.SimpleString(s), nil

	case hostapi.ReplyInteger:
		return value.Integer(d.host.CallReplyInteger(reply)), nil

	case hostapi.ReplyArray:
		if depth > d.maxDepth {
			return nil, errors.Str("reply nesting exceeds %d levels", d.maxDepth)
		}
		n := d.host.CallReplyLength(reply)
		arr := make(value.Array, 0, n)
		for i := 0; i < n; i++ {
			elem, err := d.decode(d.host.CallReplyArrayElement(reply, i), depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil

	case hostapi.ReplyNil:
		return value.None, nil

	default:
		// Error and unknown replies both surface the host's message.
		msg, err := d.text(reply)
		if err != nil {
			return nil, err
		}
		return nil, errors.Host(msg)
	}
}

func (d *Decoder) text(reply hostapi.ReplyPtr) (string, error) {
	b := d.host.CallReplyString(reply)
	data, ok := abi.CopyOut(d.host.Memory(), b)
	if !ok {
		return "", errors.Str("reply %s: string payload at %s is not readable", reply, b.Ptr)
	}
	return string(data), nil
}
