package main

import (
	"context"
	"fmt"
	"os"

	"github.com/reglet-dev/hostbridge/bridge"
	"github.com/reglet-dev/hostbridge/infrastructure/wazero"
	"github.com/reglet-dev/hostbridge/memhost"
	wz "github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// session is one in-memory host with a bridge bound to it.
type session struct {
	host    *memhost.Host
	module  *bridge.Module
	closers []func()
}

// openSession builds the host the subcommands run against.
func (a *app) openSession(ctx context.Context) (*session, error) {
	s := &session{}
	hostOpts := []memhost.Option{memhost.WithLogger(a.logger.Named("memhost"))}

	if a.wasmHeap != "" {
		wasmBytes, err := os.ReadFile(a.wasmHeap)
		if err != nil {
			return nil, fmt.Errorf("read wasm heap: %w", err)
		}
		runtime := wz.NewRuntime(ctx)
		s.closers = append(s.closers, func() { _ = runtime.Close(ctx) })

		heap, err := wazero.LoadHeap(ctx, runtime, wasmBytes, wazero.WithLogger(a.logger))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("load wasm heap: %w", err)
		}
		a.logger.Debug("host memory placed in guest heap", zap.String("module", a.wasmHeap))
		hostOpts = append(hostOpts, memhost.WithAllocator(heap))
	}

	host, err := memhost.NewBuiltin(hostOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	module, err := bridge.NewModule(host,
		bridge.WithConfig(a.config.Bridge),
		bridge.WithLogger(a.logger),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.host = host
	s.module = module
	return s, nil
}

// Close releases the bridge and the guest runtime, if any.
func (s *session) Close() {
	if s.module != nil {
		s.module.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
