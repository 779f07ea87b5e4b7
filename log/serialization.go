package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// attrWire is a single slog attribute rendered for the host log line.
type attrWire struct {
	Key   string
	Type  string // "string", "int64", "uint64", "bool", "float64", "time", "duration", "error", "json", "any"
	Value string // String representation of the value
}

// writeTo appends " key=value", quoting values that would not read back as
// one token.
func (a attrWire) writeTo(b *strings.Builder) {
	b.WriteByte(' ')
	b.WriteString(a.Key)
	b.WriteByte('=')
	if a.Value == "" || strings.ContainsAny(a.Value, " =\"\t\n") {
		b.WriteString(strconv.Quote(a.Value))
		return
	}
	b.WriteString(a.Value)
}

// appendAttr flattens attr into dst. Group members get dotted keys and empty
// attributes are dropped, as slog handlers should.
func appendAttr(dst []attrWire, prefix string, attr slog.Attr) []attrWire {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		if len(members) == 0 {
			return dst
		}
		// An unnamed group is inlined.
		if attr.Key != "" {
			prefix = prefix + attr.Key + "."
		}
		for _, m := range members {
			dst = appendAttr(dst, prefix, m)
		}
		return dst
	}
	wire := toAttrWire(attr)
	wire.Key = prefix + wire.Key
	return append(dst, wire)
}

// toAttrWire converts a resolved, non-group slog.Attr to attrWire.
func toAttrWire(attr slog.Attr) attrWire {
	wire := attrWire{
		Key: attr.Key,
	}
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type = "string"
		wire.Value = attr.Value.String()
	case slog.KindInt64:
		wire.Type = "int64"
		wire.Value = strconv.FormatInt(attr.Value.Int64(), 10)
	case slog.KindUint64:
		wire.Type = "uint64"
		wire.Value = strconv.FormatUint(attr.Value.Uint64(), 10)
	case slog.KindBool:
		wire.Type = "bool"
		wire.Value = strconv.FormatBool(attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type = "float64"
		wire.Value = strconv.FormatFloat(attr.Value.Float64(), 'g', -1, 64)
	case slog.KindTime:
		wire.Type = "time"
		wire.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type = "duration"
		wire.Value = attr.Value.Duration().String()
	case slog.KindAny:
		v := attr.Value.Any()
		switch x := v.(type) {
		case nil:
			wire.Type = "any"
			wire.Value = "<nil>"
		case error:
			wire.Type = "error"
			wire.Value = x.Error()
		case fmt.Stringer:
			wire.Type = "any"
			wire.Value = x.String()
		default:
			if data, err := json.Marshal(v); err == nil {
				wire.Type = "json"
				wire.Value = string(data)
			} else {
				wire.Type = "any"
				wire.Value = fmt.Sprintf("%v", v)
			}
		}
	default:
		wire.Type = "any"
		wire.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return wire
}
