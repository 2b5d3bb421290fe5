package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"grablock/internal/clock"
	"grablock/internal/security"
)

// Defaults for Config.
const (
	DefaultIdleTimeout  = 5000 * time.Millisecond
	DefaultPollInterval = 25 * time.Millisecond
)

// ErrInvalidConfig is returned by NewReducer for non-positive settings.
var ErrInvalidConfig = errors.New("input: invalid reducer configuration")

// Verifier checks a submitted password.
type Verifier interface {
	Verify(candidate []byte) bool
}

// Config tunes the reducer.
type Config struct {
	// IdleTimeout is how long Armed survives without a key press.
	IdleTimeout time.Duration
	// PollInterval is the shortest wait while Armed, so an almost
	// expired budget never turns into a busy loop.
	PollInterval time.Duration
	// Capacity is the maximum password length in bytes.
	Capacity int
}

// DefaultConfig returns the standard timings and capacity.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:  DefaultIdleTimeout,
		PollInterval: DefaultPollInterval,
		Capacity:     security.DefaultPasswordCapacity,
	}
}

// Reducer is the password-entry state machine. It is not safe for
// concurrent use: Handle, Tick and Run belong to one goroutine.
type Reducer struct {
	cfg      Config
	verifier Verifier
	clock    clock.Clock
	feedback Feedback
	expose   ExposeHandler
	logger   *slog.Logger

	state   State
	buffer  *security.PasswordBuffer
	lastKey time.Time
}

// NewReducer creates a reducer in Idle. Call Close to wipe and release
// the password buffer.
func NewReducer(cfg Config, verifier Verifier, clk clock.Clock) (*Reducer, error) {
	if cfg.IdleTimeout <= 0 || cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: idle timeout %v, poll interval %v",
			ErrInvalidConfig, cfg.IdleTimeout, cfg.PollInterval)
	}
	if verifier == nil {
		return nil, fmt.Errorf("%w: nil verifier", ErrInvalidConfig)
	}
	if clk == nil {
		clk = clock.Real()
	}

	buffer, err := security.NewPasswordBuffer(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &Reducer{
		cfg:      cfg,
		verifier: verifier,
		clock:    clk,
		feedback: NopFeedback{},
		logger:   slog.Default().With("component", "input"),
		state:    Idle,
		buffer:   buffer,
	}, nil
}

// SetFeedback installs the state observer.
func (r *Reducer) SetFeedback(f Feedback) {
	if f == nil {
		f = NopFeedback{}
	}
	r.feedback = f
}

// SetExposeHandler installs the redraw handler.
func (r *Reducer) SetExposeHandler(h ExposeHandler) { r.expose = h }

// SetLogger replaces the logger. Only state names are ever logged.
func (r *Reducer) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// State returns the current state.
func (r *Reducer) State() State { return r.state }

// Len returns the number of buffered password bytes.
func (r *Reducer) Len() int { return r.buffer.Len() }

// Close wipes the buffer and releases its memory lock.
func (r *Reducer) Close() { r.buffer.Destroy() }

func (r *Reducer) enter(s State) {
	r.state = s
	r.logger.Debug("input state", "state", s.String())
	r.feedback.OnStateChanged(s)
}

// Handle applies one event.
func (r *Reducer) Handle(ev Event) {
	switch ev.Kind {
	case ExposeEvent:
		if r.expose != nil {
			r.expose.OnExpose(ev.Expose)
		}
		return
	case KeyRelease:
		return
	}

	switch r.state {
	case Idle:
		// The first key only wakes the lock up; it is not part of the
		// password.
		r.buffer.Wipe()
		r.lastKey = r.clock.Now()
		r.enter(Armed)
	case Armed:
		r.lastKey = r.clock.Now()
		r.handleArmed(ev.Keysym)
	}
}

func (r *Reducer) handleArmed(k Keysym) {
	class, c := Classify(k)
	switch class {
	case ClassChar:
		if r.buffer.Append(c) {
			r.feedback.OnCharEntered()
		}
	case ClassErase:
		r.buffer.Backspace()
	case ClassClear:
		r.buffer.Wipe()
	case ClassSubmit:
		r.submit()
	}
}

func (r *Reducer) submit() {
	r.enter(Checking)

	candidate := r.buffer.Snapshot()
	ok := r.verifier.Verify(candidate)
	security.Wipe(candidate)
	r.buffer.Wipe()

	if ok {
		r.enter(Valid)
		return
	}
	r.enter(Invalid)
	r.lastKey = r.clock.Now()
	r.enter(Armed)
}

// Tick applies the idle timeout. Armed reverts to Idle, with the buffer
// wiped, once more than IdleTimeout has passed since the last key press.
func (r *Reducer) Tick() {
	if r.state != Armed {
		return
	}
	if r.clock.Now().Sub(r.lastKey) > r.cfg.IdleTimeout {
		r.buffer.Wipe()
		r.enter(Idle)
	}
}

// waitBudget returns how long the next NextEvent may block: forever in
// Idle, the remaining idle budget (at least PollInterval) in Armed.
func (r *Reducer) waitBudget() time.Duration {
	if r.state != Armed {
		return NoTimeout
	}
	remaining := r.cfg.IdleTimeout - r.clock.Now().Sub(r.lastKey)
	if remaining < r.cfg.PollInterval {
		return r.cfg.PollInterval
	}
	return remaining
}

// Run consumes events until the password is accepted. It returns nil on
// Valid, or the first error from src or ctx.
func (r *Reducer) Run(ctx context.Context, src EventSource) error {
	for r.state != Valid {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, ok, err := src.NextEvent(ctx, r.waitBudget())
		if err != nil {
			return fmt.Errorf("input: next event: %w", err)
		}
		if ok {
			r.Handle(ev)
		}
		r.Tick()
	}
	return nil
}
