package bridge

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reglet-dev/hostbridge/domain/errors"
	"github.com/reglet-dev/hostbridge/domain/value"
	"github.com/reglet-dev/hostbridge/hostapi"
	"github.com/reglet-dev/hostbridge/memhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// exclusionProbe is a command body that records how many invocations overlap.
type exclusionProbe struct {
	inside  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (p *exclusionProbe) command(_ *memhost.CallContext, _ []string) *memhost.Reply {
	n := p.inside.Add(1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(p.delay)
	p.inside.Add(-1)
	return memhost.StatusReply("OK")
}

func TestThreadSafeContext_MutualExclusion(t *testing.T) {
	probe := &exclusionProbe{delay: time.Millisecond}
	h := newHost(t, memhost.WithCommand("SLOW", probe.command))
	m := newModule(t, h)

	const workers, callsPerWorker = 8, 10

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			tsc, err := m.ThreadSafeContext()
			if err != nil {
				return err
			}
			defer tsc.Close()
			for j := 0; j < callsPerWorker; j++ {
				if _, err := tsc.Call("SLOW"); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), probe.maxSeen.Load(), "calls overlapped inside the lock")
	stats := h.Stats()
	assert.Equal(t, workers*callsPerWorker, stats.Calls)
	assert.Zero(t, stats.UnlockedCalls)
	assert.Equal(t, workers, stats.DetachedAcquired)
	assert.Equal(t, workers, stats.DetachedFreed)
	requireNoLeaks(t, m, h)
}

func TestThreadSafeContext_SharedAcrossGoroutines(t *testing.T) {
	probe := &exclusionProbe{delay: 200 * time.Microsecond}
	h := newHost(t, memhost.WithCommand("SLOW", probe.command))
	m := newModule(t, h)

	tsc, err := m.ThreadSafeContext()
	require.NoError(t, err)
	defer tsc.Close()

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := tsc.Call("SLOW")
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), probe.maxSeen.Load())
}

func TestThreadSafeContext_FailureReleasesLock(t *testing.T) {
	h := newHost(t, memhost.WithCommand("FAIL", failWith("ERR bad args")))
	m := newModule(t, h)

	tsc, err := m.ThreadSafeContext()
	require.NoError(t, err)
	defer tsc.Close()

	for _, cmd := range []string{"FAIL", "NOPE"} {
		_, err = tsc.Call(cmd)
		require.Error(t, err)
		assert.Equal(t, errors.KindHost, errors.KindOf(err))
		assert.True(t, h.TryLock(), "lock still held after failing %s", cmd)
	}

	// A second call proceeds without deadlock.
	got, err := tsc.Call("PING")
	require.NoError(t, err)
	assert.Equal(t, value.SimpleString("PONG"), got)
}

func TestThreadSafeContext_PanicReleasesLock(t *testing.T) {
	registry, err := memhost.NewRegistry(
		memhost.WithBundle(memhost.BuiltinBundle()),
		memhost.WithCommand("BOOM", func(*memhost.CallContext, []string) *memhost.Reply {
			panic("boom")
		}),
	)
	require.NoError(t, err)
	h := memhost.New(memhost.WithRegistry(registry))
	m := newModule(t, h)

	tsc, err := m.ThreadSafeContext()
	require.NoError(t, err)
	defer tsc.Close()

	assert.PanicsWithValue(t, "boom", func() { _, _ = tsc.Call("BOOM", "arg") })
	assert.True(t, h.TryLock())
	requireNoLeaks(t, m, h)

	_, err = tsc.Call("PING")
	assert.NoError(t, err)
}

func TestThreadSafeContext_ReleasesExactlyOnce(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)

	tsc, err := m.ThreadSafeContext()
	require.NoError(t, err)
	require.False(t, tsc.Ptr().IsNull())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tsc.Close()
		}()
	}
	wg.Wait()
	tsc.Close()

	stats := h.Stats()
	assert.Equal(t, 1, stats.DetachedAcquired)
	assert.Equal(t, 1, stats.DetachedFreed)
	assert.Zero(t, stats.DoubleFrees)
	assert.Zero(t, stats.MisreleasedContexts)

	_, err = tsc.Call("PING")
	assert.ErrorIs(t, err, ErrReleased)
}

func TestThreadSafeContext_PassThroughWithoutLock(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)

	tsc, err := m.ThreadSafeContext()
	require.NoError(t, err)
	defer tsc.Close()

	// Another holder owns the global lock; none of these may wait for it.
	h.ThreadSafeContextLock(hostapi.ContextPtr(1))
	done := make(chan struct{})
	go func() {
		defer close(done)
		tsc.LogNotice("unlocked")
		tsc.AutoMemory()
		tsc.ReplicateVerbatim()
		k := tsc.OpenKeyWritable("k")
		_ = k.Write("v")
		k.Close()
		tsc.CreateString("s").Free()
		tsc.Reply(value.OK, nil)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pass-through operation waited for the global lock")
	}
	h.ThreadSafeContextUnlock(hostapi.ContextPtr(1))

	assert.True(t, h.AutoMemoryEnabled(tsc.Ptr()))
	assert.Equal(t, 1, h.Replicated(tsc.Ptr()))
	assert.Equal(t, []memhost.Frame{{Kind: memhost.FrameSimpleString, Text: "OK"}}, h.Replies(tsc.Ptr()))
	logs := h.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, tsc.Ptr(), logs[0].Ctx)
}

func TestThreadSafeContext_NothingReachesHostAfterClose(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)

	tsc, err := m.ThreadSafeContext()
	require.NoError(t, err)
	require.False(t, tsc.IsDummy())
	tsc.Close()
	before := h.Stats()

	tsc.Log(hostapi.LogWarning, "after close")
	tsc.LogDebug("after close")
	tsc.LogVerbose("after close")
	tsc.LogNotice("after close")
	tsc.LogWarning("after close")
	tsc.AutoMemory()
	tsc.ReplicateVerbatim()

	k := tsc.OpenKey("k")
	_, _, err = k.Read()
	assert.Error(t, err)
	k.Close()

	w := tsc.OpenKeyWritable("k")
	assert.Error(t, w.Write("v"))
	w.Close()

	s := tsc.CreateString("s")
	assert.True(t, s.Ptr().IsNull())
	assert.Empty(t, s.String())
	s.Free()

	assert.Equal(t, hostapi.StatusErr, tsc.Reply(value.OK, nil))
	_, err = tsc.Call("PING")
	assert.ErrorIs(t, err, ErrReleased)

	after := h.Stats()
	assert.Zero(t, after.StaleContextUses)
	assert.Equal(t, before, after)
	assert.Empty(t, h.Logs())
	assert.Empty(t, h.Replies(tsc.Ptr()))
	assert.False(t, h.AutoMemoryEnabled(tsc.Ptr()))
	assert.Zero(t, h.Replicated(tsc.Ptr()))
	assert.Zero(t, h.OpenKeys())
	assert.Zero(t, h.LiveStrings())
	assert.Equal(t, hostapi.KeyTypeEmpty, h.Store().Type("k"))
	requireNoLeaks(t, m, h)
}

func TestThreadSafeContext_CallsOnlyThroughLock(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)

	tsc, err := m.ThreadSafeContext()
	require.NoError(t, err)
	defer tsc.Close()

	for i := 0; i < 3; i++ {
		_, err := tsc.Call("PING")
		require.NoError(t, err)
	}
	stats := h.Stats()
	assert.Equal(t, 3, stats.Calls)
	assert.Zero(t, stats.UnlockedCalls)
}

func TestDummyThreadSafeContext(t *testing.T) {
	tsc := DummyThreadSafeContext()
	assert.True(t, tsc.IsDummy())

	_, err := tsc.Call("PING")
	require.Error(t, err)
	assert.Equal(t, errors.KindStr, errors.KindOf(err))
	assert.Equal(t, hostapi.StatusErr, tsc.Reply(value.OK, nil))
	tsc.LogDebug("quiet")

	tsc.Close()
	tsc.Close()
	_, err = tsc.Call("PING")
	assert.ErrorIs(t, err, ErrReleased)
}

func TestContext_HasNoReleasePath(t *testing.T) {
	h := newBuiltinHost(t)
	m := newModule(t, h)
	ctx := m.Context(h.NewContext())

	_, err := ctx.Call("PING")
	require.NoError(t, err)

	stats := h.Stats()
	assert.Zero(t, stats.DetachedFreed)
	assert.Zero(t, stats.MisreleasedContexts)
}
