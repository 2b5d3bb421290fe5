// Package grab negotiates exclusive keyboard and pointer ownership.
//
// The keyboard is always grabbed first. A busy keyboard gets one retry
// after RetryDelay; a busy pointer is fatal at once and gives the
// keyboard back before returning, so a failed acquisition never leaves
// a half-held grab behind.
package grab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/clock"
)

// DefaultRetryDelay is the pause before the second keyboard attempt.
const DefaultRetryDelay = time.Second

var (
	// ErrKeyboardBusy means another client kept the keyboard grabbed
	// through both attempts.
	ErrKeyboardBusy = errors.New("grab: keyboard busy")

	// ErrPointerBusy means another client holds the pointer.
	ErrPointerBusy = errors.New("grab: pointer busy")
)

// State is the negotiator's view of what it holds.
type State int

const (
	Unacquired State = iota
	KeyboardOnly
	KeyboardAndPointer
	Failed
)

func (s State) String() string {
	switch s {
	case Unacquired:
		return "unacquired"
	case KeyboardOnly:
		return "keyboard"
	case KeyboardAndPointer:
		return "keyboard+pointer"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Grabber performs the display requests. A (false, nil) result means the
// server refused because another client owns the device.
type Grabber interface {
	GrabKeyboard(anchor xproto.Window) (bool, error)
	GrabPointer(anchor xproto.Window, cursor xproto.Cursor) (bool, error)
	UngrabKeyboard() error
	UngrabPointer() error
}

// Negotiator drives a Grabber through the acquisition protocol.
type Negotiator struct {
	RetryDelay time.Duration

	grabber Grabber
	clock   clock.Clock
	logger  *slog.Logger
	state   State
}

// NewNegotiator returns a negotiator in Unacquired. A nil clock uses the
// real one; a nil logger uses slog.Default().
func NewNegotiator(g Grabber, clk clock.Clock, logger *slog.Logger) *Negotiator {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		RetryDelay: DefaultRetryDelay,
		grabber:    g,
		clock:      clk,
		logger:     logger.With("component", "grab"),
		state:      Unacquired,
	}
}

// State returns what is currently held.
func (n *Negotiator) State() State { return n.state }

// AcquireKeyboard grabs the keyboard on anchor, retrying once after
// RetryDelay.
func (n *Negotiator) AcquireKeyboard(ctx context.Context, anchor xproto.Window) error {
	for attempt := 1; ; attempt++ {
		ok, err := n.grabber.GrabKeyboard(anchor)
		if err != nil {
			n.state = Failed
			return fmt.Errorf("grab keyboard: %w", err)
		}
		if ok {
			n.state = KeyboardOnly
			return nil
		}
		if attempt == 2 {
			n.state = Failed
			return ErrKeyboardBusy
		}

		n.logger.Info("keyboard busy, retrying", "delay", n.RetryDelay)
		select {
		case <-ctx.Done():
			n.state = Failed
			return ctx.Err()
		case <-n.clock.After(n.RetryDelay):
		}
	}
}

// AcquirePointer grabs the pointer with the given cursor. The keyboard
// must already be held; on failure it is released before returning.
func (n *Negotiator) AcquirePointer(anchor xproto.Window, cursor xproto.Cursor) error {
	if n.state != KeyboardOnly {
		return fmt.Errorf("grab: pointer requested in state %s", n.state)
	}

	ok, err := n.grabber.GrabPointer(anchor, cursor)
	if err == nil && ok {
		n.state = KeyboardAndPointer
		return nil
	}

	if uerr := n.grabber.UngrabKeyboard(); uerr != nil {
		n.logger.Warn("ungrab keyboard after pointer failure", "error", uerr)
	}
	n.state = Failed
	if err != nil {
		return fmt.Errorf("grab pointer: %w", err)
	}
	return ErrPointerBusy
}

// Acquire grabs the keyboard and then the pointer. The pointer is never
// attempted when the keyboard cannot be had.
func (n *Negotiator) Acquire(ctx context.Context, anchor xproto.Window, cursor xproto.Cursor) error {
	if err := n.AcquireKeyboard(ctx, anchor); err != nil {
		return err
	}
	return n.AcquirePointer(anchor, cursor)
}

// Release gives up the pointer and then the keyboard. Parts that are not
// held are skipped. The state is Unacquired afterwards.
func (n *Negotiator) Release() error {
	var errs []error
	if n.state == KeyboardAndPointer {
		if err := n.grabber.UngrabPointer(); err != nil {
			errs = append(errs, fmt.Errorf("ungrab pointer: %w", err))
		}
	}
	if n.state == KeyboardOnly || n.state == KeyboardAndPointer {
		if err := n.grabber.UngrabKeyboard(); err != nil {
			errs = append(errs, fmt.Errorf("ungrab keyboard: %w", err))
		}
	}
	n.state = Unacquired
	return errors.Join(errs...)
}
