// Package config loads arnmc's compiler and runtime settings, layering
// CLI flags over an optional arnm.toml file the way the ternarybob pack's
// internal/config layers flags over its own TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is arnmc's full configuration surface: compiler behavior and the
// runtime tuning knobs a compiled program's own main() reads at startup.
type Config struct {
	Compiler CompilerConfig `toml:"compiler"`
	Runtime  RuntimeConfig  `toml:"runtime"`
	Logging  LoggingConfig  `toml:"logging"`
}

// CompilerConfig controls arnmc's pipeline stages.
type CompilerConfig struct {
	TargetArch string `toml:"target_arch"` // "x86-64" or "llvm"
	EmitIR     bool   `toml:"emit_ir"`
	CheckOnly  bool   `toml:"check_only"`
}

// RuntimeConfig controls the generated program's M:N scheduler and
// per-process defaults; these mirror the #defines in the original
// runtime's arnm.h (ARNM_DEFAULT_STACK_SIZE, ARNM_MAX_WORKERS,
// ARNM_MAILBOX_CAPACITY).
type RuntimeConfig struct {
	Workers            int    `toml:"workers"`
	StackSizeBytes     int    `toml:"stack_size_bytes"`
	MailboxCapacity    int    `toml:"mailbox_capacity"`
	MailboxOverflow    string `toml:"mailbox_overflow"` // "block", "drop", "panic"
	DeadlockAdvisoryMs int    `toml:"deadlock_advisory_ms"`
}

// LoggingConfig selects arbor's level/format, consumed by internal/logx.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

const (
	DefaultStackSize        = 64 * 1024
	DefaultMailboxCapacity  = 1024
	DefaultMaxWorkers       = 64
	DefaultDeadlockAdvisory = 2000
)

// Default returns a Config populated with the runtime's documented
// defaults, used both as arnmc's zero-flag behavior and as the base a
// loaded arnm.toml is merged over.
func Default() *Config {
	return &Config{
		Compiler: CompilerConfig{
			TargetArch: "x86-64",
		},
		Runtime: RuntimeConfig{
			Workers:            0, // 0 means "use runtime.NumCPU()" at startup.
			StackSizeBytes:     DefaultStackSize,
			MailboxCapacity:    DefaultMailboxCapacity,
			MailboxOverflow:    "block",
			DeadlockAdvisoryMs: DefaultDeadlockAdvisory,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path as TOML and merges it over Default(); a missing file is
// not an error, matching arnmc's "config is optional" CLI contract.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate reports a descriptive error for any out-of-range setting
// before arnmc or the generated runtime acts on it.
func (c *Config) Validate() error {
	if c.Runtime.Workers < 0 || c.Runtime.Workers > DefaultMaxWorkers {
		return fmt.Errorf("runtime.workers must be between 0 and %d, got %d", DefaultMaxWorkers, c.Runtime.Workers)
	}
	if c.Runtime.StackSizeBytes <= 0 {
		return fmt.Errorf("runtime.stack_size_bytes must be positive, got %d", c.Runtime.StackSizeBytes)
	}
	if c.Runtime.MailboxCapacity <= 0 {
		return fmt.Errorf("runtime.mailbox_capacity must be positive, got %d", c.Runtime.MailboxCapacity)
	}
	switch c.Runtime.MailboxOverflow {
	case "block", "drop", "panic":
	default:
		return fmt.Errorf("runtime.mailbox_overflow must be block, drop or panic, got %q", c.Runtime.MailboxOverflow)
	}
	switch c.Compiler.TargetArch {
	case "x86-64", "llvm":
	default:
		return fmt.Errorf("compiler.target_arch must be x86-64 or llvm, got %q", c.Compiler.TargetArch)
	}
	return nil
}
