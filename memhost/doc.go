// Package memhost is an in-memory implementation of hostapi.Host.
//
// It stands in for the embedding host in tests and in the bridgectl demo: it
// owns a small key/value store, dispatches commands through an immutable
// Registry, hands out handles for contexts, replies, keys and strings, and
// records every reply, log line and context release so that callers can
// assert on what crossed the boundary.
//
// The host's global lock is a plain mutex. Command bodies run without any
// other host-side lock held, so mutual exclusion between detached contexts
// comes only from the lock bracket the caller takes.
//
// # Basic Usage
//
//	registry, err := memhost.NewRegistry(
//	    memhost.WithMiddleware(memhost.PanicRecoveryMiddleware()),
//	    memhost.WithBundle(memhost.BuiltinBundle()),
//	)
//	if err != nil {
//	    return err
//	}
//	host := memhost.New(memhost.WithRegistry(registry))
//	ctx := host.NewContext()
package memhost
