// Command bridgectl drives the host bridge against the in-memory reference
// host: run commands, stress the thread-safe context and print the config
// schema.
package main

import (
	"fmt"
	"os"

	"github.com/reglet-dev/hostbridge/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the state shared by every subcommand.
type app struct {
	logger     *zap.Logger
	configPath string
	wasmHeap   string
	config     Config
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "bridgectl",
		Short: "Exercise the host bridge against an in-memory host",
		Long: `bridgectl runs host commands through the bridge and prints the decoded
replies the way an interactive client would.

Every invocation starts with an empty in-memory host. Use "script" to run
several commands against the same host.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.config = cfg

			logger, err := buildLogger(cfg.Log, a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			logging.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			logging.SetLogger(nil)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.wasmHeap, "wasm-heap", "", "Place host memory in this WebAssembly module's heap")

	rootCmd.AddCommand(newCallCmd(a))
	rootCmd.AddCommand(newScriptCmd(a))
	rootCmd.AddCommand(newStressCmd(a))
	rootCmd.AddCommand(newSchemaCmd(a))
	return rootCmd
}

func buildLogger(cfg LogConfig, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	return config.Build()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
