package value

import (
	"github.com/reglet-dev/hostbridge/domain/errors"
)

// Text returns the text of any string variant.
func Text(v Value) (string, bool) {
	switch x := v.(type) {
	case StaticSimpleString:
		return string(x), true
	case SimpleString:
		return string(x), true
	case BulkString:
		return string(x), true
	default:
		return "", false
	}
}

// AsText returns the text of a string variant, or errors.ErrWrongType.
func AsText(v Value) (string, error) {
	s, ok := Text(v)
	if !ok {
		return "", errors.ErrWrongType
	}
	return s, nil
}

// AsInteger returns the integer held by v, or errors.ErrWrongType.
func AsInteger(v Value) (int64, error) {
	n, ok := v.(Integer)
	if !ok {
		return 0, errors.ErrWrongType
	}
	return int64(n), nil
}

// AsArray returns the elements of an Array, or errors.ErrWrongType.
func AsArray(v Value) (Array, error) {
	arr, ok := v.(Array)
	if !ok {
		return nil, errors.ErrWrongType
	}
	return arr, nil
}

// AsStrings returns the texts of an Array of string variants. Nil elements
// and any other variant are a type mismatch.
func AsStrings(v Value) ([]string, error) {
	arr, err := AsArray(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		s, err := AsText(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
