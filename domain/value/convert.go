package value

import (
	"fmt"
	"reflect"
)

// Integral is the set of types that convert to Integer.
type Integral interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Floating is the set of types that convert to Float.
type Floating interface {
	~float32 | ~float64
}

// Textual is the set of types that convert to BulkString.
type Textual interface {
	~string | ~[]byte
}

// FromUnit returns None.
func FromUnit() Value { return None }

// FromInt converts any integer to Integer.
//
// Precondition: the value fits in an int64. Unsigned values above
// math.MaxInt64 wrap around to negative numbers.
func FromInt[T Integral](n T) Value { return Integer(int64(n)) }

// FromFloat converts a float to Float.
func FromFloat[T Floating](f T) Value { return Float(float64(f)) }

// FromString copies text into a BulkString.
func FromString[T Textual](s T) Value { return BulkString(string(s)) }

// FromOptional returns None for a nil pointer and Of(*p) otherwise.
func FromOptional[T any](p *T) Value {
	if p == nil {
		return None
	}
	return Of(*p)
}

// FromSlice converts each element with Of, preserving order. A nil slice
// yields an empty Array.
func FromSlice[T any](items []T) Value {
	arr := make(Array, len(items))
	for i := range items {
		arr[i] = Of(items[i])
	}
	return arr
}

// Of converts a Go value into a Value:
//
//   - nil and struct{} become None
//   - a Value is returned as is
//   - integers become Integer (see FromInt for the range precondition)
//   - floats become Float
//   - string and []byte become a BulkString copy
//   - a pointer becomes None when nil, else the conversion of its target
//   - slices and arrays become an Array of converted elements
//
// Of panics on any other type; converting one is a programming error.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return None
	case StaticSimpleString, SimpleString, BulkString, Integer, Float, Array, Nil:
		return x.(Value)
	case struct{}:
		return None
	case string:
		return BulkString(x)
	case []byte:
		return BulkString(string(x))
	case int:
		return Integer(int64(x))
	case int64:
		return Integer(x)
	case int32:
		return Integer(int64(x))
	case uint:
		return Integer(int64(x)) //nolint:gosec // G115: documented precondition
	case uint64:
		return Integer(int64(x)) //nolint:gosec // G115: documented precondition
	case float64:
		return Float(x)
	case []string:
		return FromSlice(x)
	case []Value:
		return FromSlice(x)
	}
	return ofReflect(reflect.ValueOf(v))
}

var valueType = reflect.TypeOf((*Value)(nil)).Elem()

func ofReflect(rv reflect.Value) Value {
	if !rv.IsValid() {
		return None
	}
	// Pointers to variants also satisfy Value; they are dereferenced below.
	if k := rv.Kind(); k != reflect.Pointer && k != reflect.Interface && rv.Type().Implements(valueType) && rv.CanInterface() {
		return rv.Interface().(Value)
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Integer(int64(rv.Uint())) //nolint:gosec // G115: documented precondition
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	case reflect.String:
		return BulkString(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return None
		}
		return ofReflect(rv.Elem())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return BulkString(string(b))
		}
		arr := make(Array, rv.Len())
		for i := range arr {
			arr[i] = ofReflect(rv.Index(i))
		}
		return arr
	case reflect.Struct:
		if rv.NumField() == 0 {
			return None
		}
	}
	panic(fmt.Sprintf("value: cannot convert %s", rv.Type()))
}
