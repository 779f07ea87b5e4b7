package value

import (
	"strconv"
	"strings"
)

// Format renders v the way an interactive client prints replies:
//
//	(nil)
//	(integer) 1
//	"text"
//	1) "a"
//	2) (integer) 2
func Format(v Value) string {
	var b strings.Builder
	format(&b, v, 0)
	return b.String()
}

func format(b *strings.Builder, v Value, indent int) {
	switch x := v.(type) {
	case nil, Nil:
		b.WriteString("(nil)")
	case StaticSimpleString:
		b.WriteString(string(x))
	case SimpleString:
		b.WriteString(string(x))
	case BulkString:
		b.WriteString(strconv.Quote(string(x)))
	case Integer:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case Float:
		b.WriteString("(double) ")
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 64))
	case Array:
		if len(x) == 0 {
			b.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(x)))
		for i, e := range x {
			if i > 0 {
				b.WriteByte('\n')
				b.WriteString(strings.Repeat(" ", indent))
			}
			label := strconv.Itoa(i + 1)
			b.WriteString(strings.Repeat(" ", width-len(label)))
			b.WriteString(label)
			b.WriteString(") ")
			format(b, e, indent+width+2)
		}
	}
}
