package memhost

import (
	"github.com/reglet-dev/hostbridge/hostapi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEntry is one record written to the host log sink.
type LogEntry struct {
	Message string
	Ctx     hostapi.ContextPtr
	Level   hostapi.LogLevel
}

// Log implements hostapi.LogSink. The null context is accepted, as hosts
// allow logging outside a callback. Records through a released detached
// context are dropped and counted in Stats.StaleContextUses.
func (h *Host) Log(ctx hostapi.ContextPtr, level hostapi.LogLevel, msg hostapi.Buf) {
	text, ok := h.readString(msg)
	if !ok {
		return
	}
	h.mu.Lock()
	if st, known := h.contexts[ctx]; known && st.freed {
		h.stats.StaleContextUses++
		h.mu.Unlock()
		h.logger.Error("log through released context", zap.Stringer("ctx", ctx))
		return
	}
	h.logs = append(h.logs, LogEntry{Ctx: ctx, Level: level, Message: text})
	h.mu.Unlock()

	if ce := h.logger.Check(zapLevel(level), text); ce != nil {
		ce.Write(zap.String("level", level.String()), zap.Stringer("ctx", ctx))
	}
}

// Logs returns every record written to the host log sink.
func (h *Host) Logs() []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogEntry, len(h.logs))
	copy(out, h.logs)
	return out
}

func zapLevel(level hostapi.LogLevel) zapcore.Level {
	switch level {
	case hostapi.LogDebug, hostapi.LogVerbose:
		return zapcore.DebugLevel
	case hostapi.LogNotice:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}
