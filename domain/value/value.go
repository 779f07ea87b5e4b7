// Package value defines the tagged union every host reply is decoded into.
//
// Value is a closed interface: only the variants declared here implement it.
// Values own all of their data; none of them refers to host memory.
package value

// Kind identifies a Value variant.
type Kind int

const (
	KindNil Kind = iota
	KindStaticSimpleString
	KindSimpleString
	KindBulkString
	KindInteger
	KindFloat
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindStaticSimpleString:
		return "static_simple_string"
	case KindSimpleString:
		return "simple_string"
	case KindBulkString:
		return "bulk_string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is one reply shape.
type Value interface {
	Kind() Kind
	isValue()
}

// StaticSimpleString is a simple string known at compile time, such as "OK".
type StaticSimpleString string

// SimpleString is a status-style string.
type SimpleString string

// BulkString is a binary-safe string.
type BulkString string

// Integer is a 64-bit signed integer.
type Integer int64

// Float is a 64-bit floating point number.
type Float float64

// Array is an ordered sequence of values. Arrays nest as deep as the reply
// they were decoded from.
type Array []Value

// Nil is the absent value.
type Nil struct{}

// None is the canonical Nil.
var None Value = Nil{}

// OK is the conventional success status.
const OK = StaticSimpleString("OK")

func (StaticSimpleString) Kind() Kind { return KindStaticSimpleString }
func (SimpleString) Kind() Kind       { return KindSimpleString }
func (BulkString) Kind() Kind         { return KindBulkString }
func (Integer) Kind() Kind            { return KindInteger }
func (Float) Kind() Kind              { return KindFloat }
func (Array) Kind() Kind              { return KindArray }
func (Nil) Kind() Kind                { return KindNil }

func (StaticSimpleString) isValue() {}
func (SimpleString) isValue()       {}
func (BulkString) isValue()         {}
func (Integer) isValue()            {}
func (Float) isValue()              {}
func (Array) isValue()              {}
func (Nil) isValue()                {}

// IsNil reports whether v is absent. A nil interface counts as absent.
func IsNil(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Nil)
	return ok
}
