// Package locker runs one complete screen lock: it wires the display,
// the instance guard, the verifier, the presentation modules, the grab
// negotiator and the input reducer together in a fixed order, and tears
// them down in a fixed order.
//
// Startup: instance check, verifier, presentation, surfaces shown,
// keyboard and pointer grabbed, instance registered, reducer run.
// Teardown: grabs released, instance unregistered (success only),
// verifier released, presentation torn down, display closed.
package locker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/auth"
	"grablock/internal/clock"
	"grablock/internal/grab"
	"grablock/internal/input"
	"grablock/internal/instance"
	"grablock/internal/module"
	"grablock/internal/security"
)

// Display is what a lock needs from the display connection.
type Display interface {
	grab.Grabber
	instance.MarkerStore
	input.EventSource

	// ShowSurfaces selects input on, maps and raises the surfaces.
	ShowSurfaces() error
	// Anchor returns the grab target and the cursor shown during the
	// pointer grab.
	Anchor() (xproto.Window, xproto.Cursor, error)
	Close() error
}

// Presenter owns the visible side of the lock. Setup runs after the
// verifier is ready and before any grab.
type Presenter interface {
	input.Feedback
	input.ExposeHandler
	Setup() error
	Teardown()
}

// LockNotifier is told when the screen becomes locked and unlocked.
type LockNotifier interface {
	SetLocked(locked bool) error
}

// Deps are the collaborators of a Session. Display and Presenter are
// required.
type Deps struct {
	Display   Display
	Presenter Presenter
	Verifiers *module.Registry[auth.Verifier]
	Notifier  LockNotifier
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Session is a single lock from startup to unlock.
type Session struct {
	opts   Options
	deps   Deps
	logger *slog.Logger

	verifier   auth.Verifier
	negotiator *grab.Negotiator
	guard      *instance.Guard
	presented  bool
}

// NewSession prepares a lock. Nothing touches the display until Run.
func NewSession(opts Options, deps Deps) *Session {
	if deps.Verifiers == nil {
		deps.Verifiers = auth.Registry()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	logger := deps.Logger.With("component", "locker")

	negotiator := grab.NewNegotiator(deps.Display, deps.Clock, deps.Logger)
	if opts.GrabRetryDelay > 0 {
		negotiator.RetryDelay = opts.GrabRetryDelay
	}

	return &Session{
		opts:       opts,
		deps:       deps,
		logger:     logger,
		negotiator: negotiator,
		guard:      instance.NewGuard(deps.Display, deps.Logger),
	}
}

// Run locks the screen and returns once the password has been accepted,
// or with the first fatal error. A listing request comes back as an
// error matching auth.ErrListed. The display is closed in every case.
func (s *Session) Run(ctx context.Context) error {
	unlocked := false
	defer func() { s.teardown(unlocked) }()

	if s.opts.DisableCoreDumps {
		if err := security.DisableCoreDumps(); err != nil {
			s.logger.Warn("could not disable core dumps", "error", err)
		}
	}
	for _, warning := range security.CaptureProcessSecurityState().Warnings {
		s.logger.Warn(warning)
	}

	if err := s.guard.DetectExisting(); err != nil {
		return err
	}

	if err := s.initVerifier(); err != nil {
		return err
	}

	if err := s.deps.Presenter.Setup(); err != nil {
		return err
	}
	s.presented = true

	if err := s.deps.Display.ShowSurfaces(); err != nil {
		return err
	}

	anchor, cur, err := s.deps.Display.Anchor()
	if err != nil {
		return err
	}
	if err := s.negotiator.Acquire(ctx, anchor, cur); err != nil {
		return err
	}

	if err := s.guard.Register(); err != nil {
		return err
	}
	s.logger.Info("screen locked", "auth", s.verifier.Name())
	s.notify(true)

	reducer, err := input.NewReducer(s.opts.Reducer, s.verifier, s.deps.Clock)
	if err != nil {
		return err
	}
	defer reducer.Close()
	reducer.SetFeedback(s.deps.Presenter)
	reducer.SetExposeHandler(s.deps.Presenter)
	reducer.SetLogger(s.deps.Logger.With("component", "input"))

	if err := reducer.Run(ctx, s.deps.Display); err != nil {
		return err
	}

	unlocked = true
	return nil
}

func (s *Session) initVerifier() error {
	sel, err := s.deps.Verifiers.Lookup(s.opts.Auth)
	if err != nil {
		return newModuleError("auth", moduleName(s.opts.Auth), s.opts.Auth, err)
	}

	v := sel.New()
	if err := v.Init(sel.Args); err != nil {
		var listed *auth.ListedError
		if errors.As(err, &listed) {
			return listed
		}
		return newModuleError("auth", sel.Name, sel.Raw, err)
	}
	s.verifier = v
	s.logger.Debug("verifier ready", "module", sel.Name)
	return nil
}

func (s *Session) notify(locked bool) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.SetLocked(locked); err != nil {
		s.logger.Warn("lock notification failed", "locked", locked, "error", err)
	}
}

// teardown releases everything Run acquired, in order. The instance
// marker is removed only after a successful unlock; a marker left by a
// failed run names a dead process and is ignored by the next start.
func (s *Session) teardown(unlocked bool) {
	wasLocked := s.negotiator.State() == grab.KeyboardAndPointer

	if err := s.negotiator.Release(); err != nil {
		s.logger.Warn("release grabs", "error", err)
	}

	if unlocked {
		if err := s.guard.Unregister(); err != nil {
			s.logger.Warn("remove instance marker", "error", err)
		}
		s.logger.Info("screen unlocked")
	}
	if wasLocked {
		s.notify(false)
	}

	if s.verifier != nil {
		s.verifier.Release()
		s.verifier = nil
	}

	if s.presented {
		s.deps.Presenter.Teardown()
		s.presented = false
	}

	if err := s.deps.Display.Close(); err != nil {
		s.logger.Warn("close display", "error", err)
	}
}

// String names the selected modules for diagnostics, with secrets
// redacted.
func (o Options) String() string {
	return fmt.Sprintf("auth=%q bg=%q cursor=%q input=%q",
		security.RedactModuleArgs(o.Auth), o.Background, o.Cursor, o.Input)
}
