package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"grablock/internal/auth"
	"grablock/internal/config"
	"grablock/internal/locker"
	"grablock/internal/logging"
)

// lockFlags are the flags shared by lock and daemon. Module and logging
// flags override the configuration file when given.
type lockFlags struct {
	configPath string
	display    string
	auth       string
	background string
	cursor     string
	input      string
	logLevel   string
	logFormat  string

	fs *pflag.FlagSet
}

func (f *lockFlags) register(fs *pflag.FlagSet) {
	f.fs = fs
	fs.StringVarP(&f.configPath, "config", "c", "", "configuration file (default $XDG_CONFIG_HOME/grablock/config.toml)")
	fs.StringVarP(&f.display, "display", "d", "", "X display to lock (default $DISPLAY)")
	fs.StringVar(&f.auth, "auth", "", "authentication module, e.g. hash:type=sha256,file=~/.digest ('list' to enumerate)")
	fs.StringVar(&f.background, "bg", "", "background module, e.g. blank:color=black ('list' to enumerate)")
	fs.StringVar(&f.cursor, "cursor", "", "cursor module, e.g. glyph:name=watch ('list' to enumerate)")
	fs.StringVar(&f.input, "input", "", "input feedback module, e.g. frame:width=10 ('list' to enumerate)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
}

// loadConfig loads the configuration file and applies the logging flags.
// Module flags are applied by options, after validation, so that "list"
// can pass through.
func (f *lockFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if err := f.applyLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *lockFlags) applyLogging(cfg *config.Config) error {
	if f.fs.Changed("log-level") {
		if _, err := logging.ParseLevel(f.logLevel); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
		cfg.Logging.Level = f.logLevel
	}
	if f.fs.Changed("log-format") {
		if _, err := logging.ParseFormat(f.logFormat); err != nil {
			return fmt.Errorf("--log-format: %w", err)
		}
		cfg.Logging.Format = f.logFormat
	}
	return nil
}

// options converts cfg and overlays the module flags.
func (f *lockFlags) options(cfg *config.Config) locker.Options {
	opts := cfg.LockerOptions()
	overrides := []struct {
		flag string
		val  string
		dst  *string
	}{
		{"auth", f.auth, &opts.Auth},
		{"bg", f.background, &opts.Background},
		{"cursor", f.cursor, &opts.Cursor},
		{"input", f.input, &opts.Input},
	}
	for _, o := range overrides {
		if f.fs.Changed(o.flag) {
			*o.dst = o.val
		}
	}
	return opts
}

// newLogger builds the process logger from cfg and installs it as the
// slog default.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	slog.SetDefault(logger.Logger)
	return logger, nil
}

func runLock(ctx context.Context, e *env, args []string) (err error) {
	var flags lockFlags
	fs := newFlagSet(e, "lock", "[lock] [--auth spec] [--bg spec] [--cursor spec] [--input spec] [flags]")
	flags.register(fs)
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	opts := flags.options(cfg)

	if listed, ok := locker.Listing(opts); ok {
		return listed
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	defer logger.RecoverPanic(&err)

	lockLogger := logger.WithLockID(logger.NewLockID())
	lockLogger.Debug("locking", "display", flags.display, "modules", opts.String())

	err = locker.LockDisplay(ctx, flags.display, opts, nil, lockLogger.Logger)
	logResult(lockLogger, err)
	return err
}

// logResult records how a lock ended. The diagnostic itself is printed
// by main.
func logResult(logger *logging.Logger, err error) {
	switch {
	case err == nil:
		logger.Debug("lock finished")
	case errors.Is(err, auth.ErrListed):
	case errors.Is(err, context.Canceled):
		logger.Info("lock cancelled")
	default:
		class := "unclassified"
		if c := locker.Classify(err); c != nil {
			class = c.Error()
		}
		logger.Debug("lock failed", "class", class, "error", err)
	}
}
