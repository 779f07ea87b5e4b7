package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/hostbridge/bridge"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// Config is the bridgectl configuration file.
type Config struct {
	Log    LogConfig     `toml:"log" json:"log"`
	Stress StressConfig  `toml:"stress" json:"stress"`
	Bridge bridge.Config `toml:"bridge" json:"bridge"`
}

// LogConfig selects the diagnostics output.
type LogConfig struct {
	Level       string `toml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=warn"`
	Development bool   `toml:"development" json:"development" jsonschema:"description=Human-readable console output"`
}

// StressConfig drives the stress command.
type StressConfig struct {
	Command string   `toml:"command" json:"command" validate:"required" jsonschema:"default=INCR"`
	Args    []string `toml:"args" json:"args"`
	Workers int      `toml:"workers" json:"workers" validate:"min=1,max=1024" jsonschema:"minimum=1,maximum=1024,default=8"`
	Calls   int      `toml:"calls" json:"calls" validate:"min=1" jsonschema:"minimum=1,default=100,description=Calls per worker"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		Log:    LogConfig{Level: "warn"},
		Stress: StressConfig{Command: "INCR", Args: []string{"stress:counter"}, Workers: 8, Calls: 100},
		Bridge: bridge.DefaultConfig(),
	}
}

// fileConfig mirrors Config with every field optional.
type fileConfig struct {
	Log struct {
		Level       string `toml:"level"`
		Development bool   `toml:"development"`
	} `toml:"log"`
	Stress struct {
		Command string   `toml:"command"`
		Args    []string `toml:"args"`
		Workers int      `toml:"workers"`
		Calls   int      `toml:"calls"`
	} `toml:"stress"`
	Bridge struct {
		MaxReplyDepth int `toml:"max_reply_depth"`
		AllocLimit    int `toml:"alloc_limit"`
	} `toml:"bridge"`
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
		}

		if meta.IsDefined("log", "level") {
			cfg.Log.Level = strings.ToLower(strings.TrimSpace(raw.Log.Level))
		}
		if meta.IsDefined("log", "development") {
			cfg.Log.Development = raw.Log.Development
		}
		if meta.IsDefined("stress", "command") {
			cfg.Stress.Command = strings.TrimSpace(raw.Stress.Command)
		}
		if meta.IsDefined("stress", "args") {
			cfg.Stress.Args = raw.Stress.Args
		}
		if meta.IsDefined("stress", "workers") {
			cfg.Stress.Workers = raw.Stress.Workers
		}
		if meta.IsDefined("stress", "calls") {
			cfg.Stress.Calls = raw.Stress.Calls
		}
		if meta.IsDefined("bridge", "max_reply_depth") {
			cfg.Bridge.MaxReplyDepth = raw.Bridge.MaxReplyDepth
		}
		if meta.IsDefined("bridge", "alloc_limit") {
			cfg.Bridge.AllocLimit = raw.Bridge.AllocLimit
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
