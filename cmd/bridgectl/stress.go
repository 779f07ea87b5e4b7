package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reglet-dev/hostbridge/domain/value"
	hostlog "github.com/reglet-dev/hostbridge/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newStressCmd(a *app) *cobra.Command {
	var workers, calls int

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run concurrent calls through thread-safe contexts",
		Long: `Start workers that each acquire a thread-safe context and run the
configured command repeatedly. Every call holds the host's global lock, so
the host must never see two calls at once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config.Stress
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("calls") {
				cfg.Calls = calls
			}
			if err := validate.Struct(cfg); err != nil {
				return fmt.Errorf("stress options: %w", err)
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			start := time.Now()
			g, gctx := errgroup.WithContext(cmd.Context())
			for w := 0; w < cfg.Workers; w++ {
				worker := w
				g.Go(func() error {
					return a.stressWorker(gctx, s, cfg, worker)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			elapsed := time.Since(start)

			stats := s.host.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "workers:          %d\n", cfg.Workers)
			fmt.Fprintf(out, "calls:            %d\n", stats.Calls)
			fmt.Fprintf(out, "elapsed:          %s\n", elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "unlocked calls:   %d\n", stats.UnlockedCalls)
			fmt.Fprintf(out, "detached freed:   %d/%d\n", stats.DetachedFreed, stats.DetachedAcquired)
			fmt.Fprintf(out, "host log records: %d\n", len(s.host.Logs()))

			if stats.UnlockedCalls != 0 || stats.DoubleFrees != 0 || stats.StaleContextUses != 0 {
				return fmt.Errorf("host saw %d unlocked calls, %d double frees and %d uses of released contexts",
					stats.UnlockedCalls, stats.DoubleFrees, stats.StaleContextUses)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers (overrides the config file)")
	cmd.Flags().IntVar(&calls, "calls", 0, "Calls per worker (overrides the config file)")
	return cmd
}

func (a *app) stressWorker(ctx context.Context, s *session, cfg StressConfig, worker int) error {
	tsc, err := s.module.ThreadSafeContext()
	if err != nil {
		return err
	}
	defer tsc.Close()

	logger := slog.New(hostlog.NewHandler(tsc)).With("worker", worker)
	var last value.Value
	for i := 0; i < cfg.Calls; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := tsc.Call(cfg.Command, cfg.Args...)
		if err != nil {
			a.logger.Debug("stress call failed", zap.Int("worker", worker), zap.Error(err))
			return fmt.Errorf("worker %d call %d: %w", worker, i, err)
		}
		last = v
	}
	logger.Info("worker finished", "calls", cfg.Calls, "last", value.Format(last))
	return nil
}
