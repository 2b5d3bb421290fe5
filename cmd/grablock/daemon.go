package main

import (
	"context"
	"errors"
	"fmt"

	"grablock/internal/config"
	"grablock/internal/locker"
	"grablock/internal/logging"
	"grablock/internal/logind"
)

var errRequestsClosed = errors.New("logind request stream closed")

// lockFunc runs one complete lock.
type lockFunc func(ctx context.Context, opts locker.Options, logger *logging.Logger) error

// daemon turns logind Lock and Unlock requests into sequential locks.
type daemon struct {
	logger  *logging.Logger
	current func() *config.Config
	options func(*config.Config) locker.Options
	lock    lockFunc
}

func runDaemon(ctx context.Context, e *env, args []string) (err error) {
	var (
		flags   lockFlags
		session string
	)
	fs := newFlagSet(e, "daemon", "daemon [--session id] [--auth spec] [--bg spec] [--cursor spec] [--input spec] [flags]")
	flags.register(fs)
	fs.StringVar(&session, "session", "", "logind session id (default $XDG_SESSION_ID)")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	if listed, ok := locker.Listing(flags.options(cfg)); ok {
		return listed
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	defer logger.RecoverPanic(&err)
	logger = logger.WithComponent("daemon")

	loader := config.NewLoader(flags.configPath, logger.Logger)
	if _, err := loader.Load(); err != nil {
		return err
	}
	if err := loader.Watch(); err != nil {
		logger.Warn("configuration reload disabled", "error", err)
	}
	defer loader.Close()

	if !fs.Changed("session") {
		session = cfg.Daemon.SessionID
	}
	client, err := logind.Connect(session, logger.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if locked, err := client.Locked(); err == nil {
		logger.Debug("session attached", "path", string(client.SessionPath()), "locked_hint", locked)
	}

	requests, err := client.Requests(ctx)
	if err != nil {
		return err
	}

	d := &daemon{
		logger:  logger,
		current: loader.Config,
		options: flags.options,
		lock: func(ctx context.Context, opts locker.Options, l *logging.Logger) error {
			var notifier locker.LockNotifier
			if loader.Config().Daemon.SetLockedHint {
				notifier = client
			}
			return locker.LockDisplay(ctx, flags.display, opts, notifier, l.Logger)
		},
	}
	logger.Info("waiting for lock requests", "session", string(client.SessionPath()))
	return d.loop(ctx, requests)
}

// loop handles requests until ctx ends. At most one lock runs at a time:
// Lock while locked is ignored, Unlock cancels the running lock. A lock
// that fails is logged and the daemon keeps waiting.
func (d *daemon) loop(ctx context.Context, requests <-chan logind.Request) error {
	var (
		cancelLock context.CancelFunc
		done       chan error
	)
	stop := func() {
		if cancelLock != nil {
			cancelLock()
			<-done
			cancelLock, done = nil, nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case err := <-done:
			cancelLock()
			cancelLock, done = nil, nil
			if err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Warn("lock failed", "error", err)
			}

		case req, ok := <-requests:
			if !ok {
				stop()
				if ctx.Err() != nil {
					return nil
				}
				return errRequestsClosed
			}

			switch req {
			case logind.LockRequest:
				if done != nil {
					d.logger.Debug("lock request ignored, already locked")
					continue
				}
				var lockCtx context.Context
				lockCtx, cancelLock = context.WithCancel(ctx)
				done = make(chan error, 1)
				opts := d.options(d.current())
				lockLogger := d.logger.WithLockID(d.logger.NewLockID())
				lockLogger.Info("lock requested", "modules", opts.String())
				go func(ch chan<- error) {
					ch <- d.lock(lockCtx, opts, lockLogger)
				}(done)

			case logind.UnlockRequest:
				if cancelLock == nil {
					continue
				}
				d.logger.Info("unlock requested by session manager")
				cancelLock()

			default:
				d.logger.Debug("unknown request", "request", fmt.Sprint(req))
			}
		}
	}
}
