package bridge

import (
	"fmt"

	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/internal/logging"
	"go.uber.org/zap"
)

// Context wraps one host context handle.
type Context struct {
	mod    *Module // nil for a dummy context
	logger *zap.Logger
	ptr    hostapi.ContextPtr
}

// Dummy returns a context bound to no host. Calls fail, replies report
// StatusErr and log records go to the package zap logger.
func Dummy() *Context {
	return &Context{logger: logging.Named(nil, "bridge")}
}

// Ptr returns the wrapped handle. It is null for a dummy context.
func (c *Context) Ptr() hostapi.ContextPtr { return c.ptr }

// IsDummy reports whether the context is bound to no host.
func (c *Context) IsDummy() bool { return c.mod == nil }

// Call invokes a host command once and decodes its reply. Argument buffers
// and the reply handle are released before Call returns.
func (c *Context) Call(command string, args ...string) (value.Value, error) {
	if c.mod == nil {
		return nil, errors.Str("%s: no host context", command)
	}
	m := c.mod

	cmd := m.alloc.CopyString(command)
	defer m.alloc.Free(cmd)

	argv := make([]hostapi.Buf, len(args))
	for i, a := range args {
		argv[i] = m.alloc.CopyString(a)
	}
	defer func() {
		for _, b := range argv {
			m.alloc.Free(b)
		}
	}()

	reply := m.host.Call(c.ptr, cmd, argv)
	if reply.IsNull() {
		return nil, errors.Host(fmt.Sprintf("ERR host failed to run command '%s'", command))
	}
	defer m.host.FreeCallReply(reply)

	v, err := m.decoder.Decode(reply)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Log writes msg to the host log. Logging has no failure path.
func (c *Context) Log(level hostapi.LogLevel, msg string) {
	if c.mod == nil {
		c.logDummy(level, msg)
		return
	}
	b := c.mod.alloc.CopyString(msg)
	defer c.mod.alloc.Free(b)
	c.mod.host.Log(c.ptr, level, b)
}

func (c *Context) logDummy(level hostapi.LogLevel, msg string) {
	switch level {
	case hostapi.LogDebug, hostapi.LogVerbose:
		c.logger.Debug(msg, zap.Stringer("level", level))
	case hostapi.LogNotice:
		c.logger.Info(msg, zap.Stringer("level", level))
	default:
		c.logger.Warn(msg, zap.Stringer("level", level))
	}
}

// LogDebug logs at debug severity.
func (c *Context) LogDebug(msg string) { c.Log(hostapi.LogDebug, msg) }

// LogVerbose logs at verbose severity.
func (c *Context) LogVerbose(msg string) { c.Log(hostapi.LogVerbose, msg) }

// LogNotice logs at notice severity.
func (c *Context) LogNotice(msg string) { c.Log(hostapi.LogNotice, msg) }

// LogWarning logs at warning severity.
func (c *Context) LogWarning(msg string) { c.Log(hostapi.LogWarning, msg) }

// AutoMemory opts the context into the host's automatic cleanup of handles
// allocated from now on.
func (c *Context) AutoMemory() {
	if c.mod == nil {
		return
	}
	c.mod.host.AutoMemory(c.ptr)
}

// ReplicateVerbatim asks the host to propagate the current command as is.
func (c *Context) ReplicateVerbatim() {
	if c.mod == nil {
		return
	}
	if st := c.mod.host.ReplicateVerbatim(c.ptr); st != hostapi.StatusOK {
		c.logger.Debug("replicate verbatim refused", zap.Stringer("ctx", c.ptr))
	}
}
