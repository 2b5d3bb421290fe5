package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"grablock/internal/auth"
	"grablock/internal/clock"
	"grablock/internal/config"
	"grablock/internal/display"
	"grablock/internal/health"
	"grablock/internal/instance"
	"grablock/internal/locker"
	"grablock/internal/logind"
	"grablock/internal/security"
)

var errPreflight = errors.New("preflight check failed")

func runCheck(ctx context.Context, e *env, args []string) error {
	var (
		flags   lockFlags
		session string
		asJSON  bool
	)
	fs := newFlagSet(e, "check", "check [--json] [--session id] [--auth spec] [flags]")
	flags.register(fs)
	fs.StringVar(&session, "session", "", "logind session id to probe (default $XDG_SESSION_ID)")
	fs.BoolVar(&asJSON, "json", false, "print the report as JSON")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	opts := flags.options(cfg)
	if !fs.Changed("session") {
		session = cfg.Daemon.SessionID
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	checker := health.NewChecker()
	checker.RegisterFunc("auth", true, authCheck(opts))
	checker.Register(&health.Component{
		Name:     "display",
		Critical: true,
		Timeout:  10 * time.Second,
		Check:    displayCheck(flags.display, logger),
	})
	checker.RegisterFunc("logind", false, logindCheck(session, logger))
	checker.RegisterFunc("process", false, processCheck(opts))
	checker.RegisterFunc("config", false, configFileCheck(flags.configPath))

	report := checker.Run(ctx)
	if asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(e.stdout, report)
	}

	if report.Status == health.StatusUnhealthy || report.Status == health.StatusUnknown {
		return errPreflight
	}
	return nil
}

func printReport(w io.Writer, report health.Report) {
	for _, r := range report.Results {
		line := fmt.Sprintf("%-8s %-9s %s", r.Name, r.Status, r.Message)
		if r.Error != "" {
			line += ": " + r.Error
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "overall: %s\n", report.Status)
}

// authCheck initializes the configured verifier and releases it again.
func authCheck(opts locker.Options) health.Check {
	return func(context.Context) health.CheckResult {
		sel, err := auth.Registry().Lookup(opts.Auth)
		if err != nil {
			return health.Unhealthy("unknown auth module", err)
		}
		v := sel.New()
		defer v.Release()
		if err := v.Init(sel.Args); err != nil {
			return health.Unhealthy(
				fmt.Sprintf("auth module %s cannot initialize", sel.Name),
				errors.New(security.RedactModuleArgs(err.Error())),
			)
		}
		return health.Healthy("auth module %s ready", sel.Name)
	}
}

// displayCheck connects to the display and looks for a running locker.
func displayCheck(name string, logger *slog.Logger) health.Check {
	return func(context.Context) health.CheckResult {
		d, err := display.Open(name, clock.Real(), logger)
		if err != nil {
			return health.Unhealthy("display unreachable", err)
		}
		defer d.Close()

		if err := instance.NewGuard(d, logger).DetectExisting(); err != nil {
			return health.Unhealthy("display already locked", err)
		}
		return health.Healthy("%d screen(s) available", len(d.Screens()))
	}
}

// logindCheck resolves the session used by daemon mode.
func logindCheck(session string, logger *slog.Logger) health.Check {
	return func(context.Context) health.CheckResult {
		client, err := logind.Connect(session, logger)
		if err != nil {
			return health.Degraded("logind session unavailable, daemon mode will not work", err)
		}
		defer client.Close()

		locked, err := client.Locked()
		if err != nil {
			return health.Degraded("LockedHint unreadable", err)
		}
		return health.Healthy("session %s (locked hint %t)", client.SessionPath(), locked)
	}
}

// processCheck reports process state that would weaken a lock. Core
// dumps are only a problem when the session will not disable them.
func processCheck(opts locker.Options) health.Check {
	return func(context.Context) health.CheckResult {
		state := security.CaptureProcessSecurityState()
		var problems []string
		if state.IsRoot {
			problems = append(problems, "running as root")
		}
		if state.Debugger {
			problems = append(problems, "debugger attached")
		}
		if state.CoreDumps && !opts.DisableCoreDumps {
			problems = append(problems, "core dumps enabled and disable_core_dumps is off")
		}
		if len(problems) > 0 {
			return health.Degraded(strings.Join(problems, ", "), nil)
		}
		return health.Healthy("pid %d", state.PID)
	}
}

// configFileCheck flags a configuration file that others can read; it
// may carry a digest in the auth module string.
func configFileCheck(path string) health.Check {
	return func(context.Context) health.CheckResult {
		if path == "" {
			path = config.FindConfigFile()
		}
		if path == "" {
			return health.Healthy("no configuration file, using defaults")
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return health.Healthy("%s not found, using defaults", path)
		}
		return health.FromError("permissions of "+path, security.VerifyFilePermissions(path))
	}
}
