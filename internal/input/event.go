package input

import (
	"context"
	"time"
)

// EventKind distinguishes the events the reducer consumes.
type EventKind int

const (
	KeyPress EventKind = iota
	KeyRelease
	ExposeEvent
)

// Expose describes a surface region that needs redrawing.
type Expose struct {
	Screen int
	X, Y   int
	Width  int
	Height int
	// Count is the number of Expose events still to follow for the same
	// surface; handlers may redraw only when it reaches zero.
	Count int
}

// Event is a display event already translated to keysyms.
type Event struct {
	Kind   EventKind
	Keysym Keysym
	Expose Expose
}

// Press returns a KeyPress event for k.
func Press(k Keysym) Event { return Event{Kind: KeyPress, Keysym: k} }

// EventSource delivers display events in order.
type EventSource interface {
	// NextEvent waits for the next event. A negative timeout waits
	// without limit. ok is false when the timeout elapsed first.
	NextEvent(ctx context.Context, timeout time.Duration) (ev Event, ok bool, err error)
}

// NoTimeout makes NextEvent wait without limit.
const NoTimeout time.Duration = -1
