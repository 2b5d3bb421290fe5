// Package config handles configuration loading, validation and reloading
// for grablock.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"grablock/internal/input"
	"grablock/internal/locker"
	"grablock/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete grablock configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Modules selects the authentication, background, cursor and input
	// feedback modules.
	Modules ModulesConfig `toml:"modules" json:"modules" yaml:"modules"`

	// Lock holds the timings of a lock.
	Lock LockConfig `toml:"lock" json:"lock" yaml:"lock"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Daemon configures "grablock daemon".
	Daemon DaemonConfig `toml:"daemon" json:"daemon" yaml:"daemon"`
}

// ModulesConfig holds one "<name>:<args>" string per module family.
// Empty strings select the default module.
type ModulesConfig struct {
	Auth       string `toml:"auth" json:"auth" yaml:"auth"`
	Background string `toml:"background" json:"background" yaml:"background"`
	Cursor     string `toml:"cursor" json:"cursor" yaml:"cursor"`
	Input      string `toml:"input" json:"input" yaml:"input"`
}

// LockConfig holds reducer and grab timings.
type LockConfig struct {
	// IdleTimeoutMs discards a partially typed password after this long
	// without a key press.
	IdleTimeoutMs int `toml:"idle_timeout_ms" json:"idle_timeout_ms" yaml:"idle_timeout_ms"`

	// PollIntervalMs is the shortest wait for the next event.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`

	// GrabRetryDelayMs is the pause before the second keyboard grab
	// attempt.
	GrabRetryDelayMs int `toml:"grab_retry_delay_ms" json:"grab_retry_delay_ms" yaml:"grab_retry_delay_ms"`

	// PasswordCapacity is the maximum number of password bytes.
	PasswordCapacity int `toml:"password_capacity" json:"password_capacity" yaml:"password_capacity"`

	// DisableCoreDumps drops RLIMIT_CORE while locked.
	DisableCoreDumps bool `toml:"disable_core_dumps" json:"disable_core_dumps" yaml:"disable_core_dumps"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file when Output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the rotation threshold in megabytes.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// DaemonConfig configures the logind-driven daemon mode.
type DaemonConfig struct {
	// SessionID is the logind session to follow. Empty uses
	// XDG_SESSION_ID or the session of the process.
	SessionID string `toml:"session_id" json:"session_id" yaml:"session_id"`

	// SetLockedHint publishes the session's LockedHint while locked.
	SetLockedHint bool `toml:"set_locked_hint" json:"set_locked_hint" yaml:"set_locked_hint"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	reducer := input.DefaultConfig()
	opts := locker.DefaultOptions()
	logCfg := logging.DefaultConfig()

	return &Config{
		Version: Version,
		Lock: LockConfig{
			IdleTimeoutMs:    int(reducer.IdleTimeout / time.Millisecond),
			PollIntervalMs:   int(reducer.PollInterval / time.Millisecond),
			GrabRetryDelayMs: int(opts.GrabRetryDelay / time.Millisecond),
			PasswordCapacity: reducer.Capacity,
			DisableCoreDumps: opts.DisableCoreDumps,
		},
		Logging: LoggingConfig{
			Level:      logging.LevelString(logCfg.Level),
			Format:     logCfg.Format.String(),
			Output:     logCfg.Output,
			FilePath:   logCfg.FilePath,
			MaxSizeMB:  int(logCfg.MaxSizeMB),
			MaxBackups: logCfg.MaxBackups,
		},
		Daemon: DaemonConfig{
			SetLockedHint: true,
		},
	}
}

// Load reads the configuration at path, falling back to defaults when
// the file does not exist, then applies environment overrides and
// validates the result. An empty path searches the standard locations.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FindConfigFile()
	}

	cfg := DefaultConfig()
	if path != "" {
		loaded, err := loadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies GRABLOCK_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"GRABLOCK_AUTH", &c.Modules.Auth},
		{"GRABLOCK_BACKGROUND", &c.Modules.Background},
		{"GRABLOCK_CURSOR", &c.Modules.Cursor},
		{"GRABLOCK_INPUT", &c.Modules.Input},
		{"GRABLOCK_LOG_LEVEL", &c.Logging.Level},
		{"GRABLOCK_LOG_FORMAT", &c.Logging.Format},
		{"GRABLOCK_LOG_OUTPUT", &c.Logging.Output},
		{"GRABLOCK_LOG_PATH", &c.Logging.FilePath},
		{"GRABLOCK_SESSION_ID", &c.Daemon.SessionID},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.name); ok {
			*s.dst = v
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"GRABLOCK_IDLE_TIMEOUT_MS", &c.Lock.IdleTimeoutMs},
		{"GRABLOCK_POLL_INTERVAL_MS", &c.Lock.PollIntervalMs},
		{"GRABLOCK_GRAB_RETRY_DELAY_MS", &c.Lock.GrabRetryDelayMs},
		{"GRABLOCK_PASSWORD_CAPACITY", &c.Lock.PasswordCapacity},
	}
	for _, i := range ints {
		v, ok := os.LookupEnv(i.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", i.name, err)
		}
		*i.dst = n
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"GRABLOCK_DISABLE_CORE_DUMPS", &c.Lock.DisableCoreDumps},
		{"GRABLOCK_SET_LOCKED_HINT", &c.Daemon.SetLockedHint},
	}
	for _, b := range bools {
		v, ok := os.LookupEnv(b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", b.name, err)
		}
		*b.dst = parsed
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// LockerOptions converts the configuration into the options of one lock.
func (c *Config) LockerOptions() locker.Options {
	opts := locker.DefaultOptions()
	opts.Auth = c.Modules.Auth
	opts.Background = c.Modules.Background
	opts.Cursor = c.Modules.Cursor
	opts.Input = c.Modules.Input
	opts.Reducer = input.Config{
		IdleTimeout:  time.Duration(c.Lock.IdleTimeoutMs) * time.Millisecond,
		PollInterval: time.Duration(c.Lock.PollIntervalMs) * time.Millisecond,
		Capacity:     c.Lock.PasswordCapacity,
	}
	opts.GrabRetryDelay = time.Duration(c.Lock.GrabRetryDelayMs) * time.Millisecond
	opts.DisableCoreDumps = c.Lock.DisableCoreDumps
	return opts
}

// LoggingOptions converts the logging section. The configuration must
// have passed Validate.
func (c *Config) LoggingOptions() *logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		cfg.Level = level
	}
	if format, err := logging.ParseFormat(c.Logging.Format); err == nil {
		cfg.Format = format
	}
	if c.Logging.Output != "" {
		cfg.Output = c.Logging.Output
	}
	if c.Logging.FilePath != "" {
		cfg.FilePath = expandPath(c.Logging.FilePath)
	}
	if c.Logging.MaxSizeMB > 0 {
		cfg.MaxSizeMB = int64(c.Logging.MaxSizeMB)
	}
	if c.Logging.MaxBackups > 0 {
		cfg.MaxBackups = c.Logging.MaxBackups
	}
	return cfg
}

// EncodeTOML renders the configuration as TOML.
func (c *Config) EncodeTOML() ([]byte, error) {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return nil, fmt.Errorf("encode TOML: %w", err)
	}
	return []byte(sb.String()), nil
}
