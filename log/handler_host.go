package log

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// Handle renders record and writes it to the sink. It never fails; the host
// log has no error path.
func (h *HostLogHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Message)

	for _, a := range h.attrs {
		a.writeTo(&b)
	}
	var attrs []attrWire
	record.Attrs(func(attr slog.Attr) bool {
		attrs = appendAttr(attrs, h.group, attr)
		return true
	})
	for _, a := range attrs {
		a.writeTo(&b)
	}

	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		attrWire{Key: slog.SourceKey, Value: fmt.Sprintf("%s:%d", f.File, f.Line)}.writeTo(&b)
	}

	h.sink.Log(HostLevel(record.Level), b.String())
	return nil
}
