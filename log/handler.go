// Package log provides structured logging (slog) that writes to a host log.
//
// Records are rendered as one line of text, the message followed by
// key=value attributes, and handed to a Sink at the matching host severity.
// Both bridge.Context and bridge.ThreadSafeContext are sinks:
//
//	logger := slog.New(log.NewHandler(ctx, log.WithLevel(slog.LevelDebug)))
//	logger.Info("loaded", "keys", 12)
package log

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/hostbridge/hostapi"
)

// Sink receives rendered log lines.
type Sink interface {
	Log(level hostapi.LogLevel, msg string)
}

// HostLogHandler implements slog.Handler on top of a Sink.
type HostLogHandler struct {
	sink  Sink
	attrs []attrWire // pre-rendered, group prefix applied
	group string     // dotted prefix for attributes added later
	opts  handlerConfig
}

// HandlerOption configures the HostLogHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level never reach the host.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewHandler creates a HostLogHandler writing to sink.
func NewHandler(sink Sink, opts ...HandlerOption) *HostLogHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HostLogHandler{sink: sink, opts: cfg}
}

// Enabled reports whether the handler handles records at the given level.
func (h *HostLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// WithAttrs returns a new HostLogHandler that includes the given attributes.
func (h *HostLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	newHandler := *h
	newHandler.attrs = make([]attrWire, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newHandler.attrs, h.attrs)
	for _, a := range attrs {
		newHandler.attrs = appendAttr(newHandler.attrs, h.group, a)
	}
	return &newHandler
}

// WithGroup returns a new HostLogHandler whose later attributes are
// qualified by name.
func (h *HostLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newHandler := *h
	newHandler.group = h.group + name + "."
	return &newHandler
}

// HostLevel maps a slog level to the host severity it is logged at.
func HostLevel(level slog.Level) hostapi.LogLevel {
	switch {
	case level < slog.LevelInfo:
		return hostapi.LogDebug
	case level < slog.LevelWarn:
		return hostapi.LogVerbose
	case level < slog.LevelError:
		return hostapi.LogNotice
	default:
		return hostapi.LogWarning
	}
}
