package locker

import (
	"context"
	"log/slog"

	"grablock/internal/clock"
	"grablock/internal/display"
)

// LockDisplay opens the named X display and runs one Session on it.
// notifier may be nil.
func LockDisplay(ctx context.Context, name string, opts Options, notifier LockNotifier, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	clk := clock.Real()

	d, err := display.Open(name, clk, logger)
	if err != nil {
		return err
	}

	session := NewSession(opts, Deps{
		Display:   d,
		Presenter: NewModulePresenter(d, opts),
		Notifier:  notifier,
		Clock:     clk,
		Logger:    logger,
	})
	return session.Run(ctx)
}
