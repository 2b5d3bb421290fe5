// grablock locks an X11 display until the configured authentication
// module accepts a password.
//
// Usage:
//
//	grablock [lock] [flags]    lock the display (default)
//	grablock hash [flags]      print the digest of a password
//	grablock daemon [flags]    lock on every logind Lock request
//	grablock config [flags]    print or write the effective configuration
//	grablock check [flags]     run preflight checks without locking
//	grablock version           print the version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"grablock/internal/auth"
	"grablock/internal/locker"
)

// version is set with -ldflags "-X main.version=...".
var version = ""

// env is the process environment a command runs against.
type env struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

func commands() []command {
	return []command{
		{"lock", "lock the display until authenticated (default)", runLock},
		{"hash", "print the hex digest of a password for the hash module", runHash},
		{"daemon", "lock on every logind Lock request for this session", runDaemon},
		{"config", "print or write the effective configuration", runConfig},
		{"check", "check that a lock would succeed, without locking", runCheck},
		{"version", "print the version", runVersion},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	e := &env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}

	err := run(ctx, e, os.Args[1:])
	stop()

	var listed *auth.ListedError
	if errors.As(err, &listed) {
		printListing(e.stdout, listed)
	} else if err != nil {
		fmt.Fprintf(e.stderr, "grablock: %v\n", err)
	}
	os.Exit(locker.ExitCode(err))
}

func run(ctx context.Context, e *env, args []string) error {
	name := "lock"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	if name == "help" {
		printUsage(e.stdout)
		return nil
	}
	for _, c := range commands() {
		if c.name == name {
			return c.run(ctx, e, args)
		}
	}
	printUsage(e.stderr)
	return fmt.Errorf("unknown command %q", name)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: grablock [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'grablock <command> --help' for the flags of a command.")
	fmt.Fprintln(w, "Module flags accept 'list' to print the available modules.")
}

// newFlagSet returns a flag set whose --help prints usage and yields
// pflag.ErrHelp.
func newFlagSet(e *env, name, synopsis string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stdout, "usage: grablock %s\n\n", synopsis)
		fs.SetOutput(e.stdout)
		fs.PrintDefaults()
		fs.SetOutput(e.stderr)
	}
	return fs
}

// parseFlags parses args and reports whether the command should stop
// because help was printed.
func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	if fs.NArg() > 0 {
		return false, fmt.Errorf("%s: unexpected arguments %q", fs.Name(), fs.Args())
	}
	return false, nil
}

func printListing(w io.Writer, listed *auth.ListedError) {
	fmt.Fprintf(w, "%s:\n", listed.Module)
	for _, item := range listed.Items {
		fmt.Fprintf(w, "  %s\n", item)
	}
}

func versionString() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "devel"
}

func runVersion(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "version", "version")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "grablock %s\n", versionString())
	return nil
}
