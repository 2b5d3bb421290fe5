package display

import (
	"context"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"grablock/internal/input"
)

type pumpItem struct {
	event xgb.Event
	err   xgb.Error
}

// pump forwards everything wait yields until the connection closes or
// Close is called, then closes the channel. A full channel nobody reads
// any more does not keep it alive.
func (s *Session) pump(wait func() (xgb.Event, xgb.Error)) {
	defer close(s.events)
	for {
		ev, err := wait()
		if ev == nil && err == nil {
			return
		}
		select {
		case s.events <- pumpItem{event: ev, err: err}:
		case <-s.done:
			return
		}
	}
}

// NextEvent implements input.EventSource. Protocol errors from earlier
// unchecked requests are logged and skipped; events the reducer does not
// consume are dropped.
func (s *Session) NextEvent(ctx context.Context, timeout time.Duration) (input.Event, bool, error) {
	var expired <-chan time.Time
	if timeout >= 0 {
		expired = s.clock.After(timeout)
	}

	for {
		select {
		case <-ctx.Done():
			return input.Event{}, false, ctx.Err()
		case <-expired:
			return input.Event{}, false, nil
		case item, open := <-s.events:
			if !open {
				return input.Event{}, false, ErrClosed
			}
			if item.err != nil {
				s.logger.Warn("x protocol error", "error", item.err.Error())
				continue
			}
			if ev, ok := s.translate(item.event); ok {
				return ev, true, nil
			}
		}
	}
}

func (s *Session) translate(ev xgb.Event) (input.Event, bool) {
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		return input.Event{Kind: input.KeyPress, Keysym: s.keymap.Lookup(e.Detail, e.State)}, true
	case xproto.KeyReleaseEvent:
		return input.Event{Kind: input.KeyRelease, Keysym: s.keymap.Lookup(e.Detail, e.State)}, true
	case xproto.ExposeEvent:
		return input.Event{Kind: input.ExposeEvent, Expose: input.Expose{
			Screen: s.screenOf(e.Window),
			X:      int(e.X),
			Y:      int(e.Y),
			Width:  int(e.Width),
			Height: int(e.Height),
			Count:  int(e.Count),
		}}, true
	case xproto.MappingNotifyEvent:
		if e.Request == xproto.MappingKeyboard || e.Request == xproto.MappingModifier {
			if err := s.loadKeymap(); err != nil {
				s.logger.Warn("reload keyboard mapping", "error", err)
			}
		}
	}
	return input.Event{}, false
}

func (s *Session) screenOf(w xproto.Window) int {
	for _, screen := range s.screens {
		if screen.Surface == w {
			return screen.Index
		}
	}
	return -1
}
