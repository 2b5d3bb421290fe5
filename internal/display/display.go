// Package display owns the X11 connection of a lock session.
//
// A Session wraps one xgb connection and one ScreenContext per screen.
// It implements the grab requests, the instance marker on the root
// window, and the event stream consumed by the input reducer. Surfaces
// and cursors are created by the background and cursor modules and
// recorded on the ScreenContext.
//
// Every request is issued from the goroutine that runs the lock. The
// only other goroutine is the event pump started by Open, which blocks
// in WaitForEvent and hands events over on a channel.
package display

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil"

	"grablock/internal/clock"
)

// MarkerAtomName is the root-window property holding the locker pid.
const MarkerAtomName = "_GRABLOCK_PID"

var (
	// ErrClosed is returned once the connection is gone.
	ErrClosed = errors.New("display: connection closed")

	// ErrNoScreens is returned for a server without screens.
	ErrNoScreens = errors.New("display: server reports no screens")

	// ErrNoSurface is returned when input is requested before a
	// background module created the surfaces.
	ErrNoSurface = errors.New("display: lock surface not created")
)

// ScreenContext is the per-screen state of a lock session.
type ScreenContext struct {
	Index    int
	Root     xproto.Window
	Width    uint16
	Height   uint16
	Depth    byte
	Visual   xproto.Visualid
	Colormap xproto.Colormap

	BlackPixel uint32
	WhitePixel uint32

	// Surface is the override-redirect window covering the screen.
	Surface xproto.Window
	// InputOnly is true when Surface cannot be drawn on.
	InputOnly bool
	// Cursor is shown over Surface and used for the pointer grab.
	Cursor xproto.Cursor
}

// Session is an open display connection.
type Session struct {
	conn    *xgb.Conn
	xu      *xgbutil.XUtil
	setup   *xproto.SetupInfo
	screens []*ScreenContext

	markerAtom xproto.Atom
	keymap     *Keymap

	events   chan pumpItem
	done     chan struct{}
	clock    clock.Clock
	logger   *slog.Logger
	closeMux sync.Once
}

// Open connects to the named display ("" means $DISPLAY), reads the
// screen layout and keyboard mapping, and starts the event pump.
func Open(name string, clk clock.Clock, logger *slog.Logger) (*Session, error) {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := xgb.NewConnDisplay(name)
	if err != nil {
		return nil, fmt.Errorf("display: connect %q: %w", name, err)
	}

	s := &Session{
		conn:   conn,
		setup:  xproto.Setup(conn),
		events: make(chan pumpItem, 64),
		done:   make(chan struct{}),
		clock:  clk,
		logger: logger.With("component", "display"),
	}

	if len(s.setup.Roots) == 0 {
		conn.Close()
		return nil, ErrNoScreens
	}
	for i, root := range s.setup.Roots {
		s.screens = append(s.screens, &ScreenContext{
			Index:      i,
			Root:       root.Root,
			Width:      root.WidthInPixels,
			Height:     root.HeightInPixels,
			Depth:      root.RootDepth,
			Visual:     root.RootVisual,
			Colormap:   root.DefaultColormap,
			BlackPixel: root.BlackPixel,
			WhitePixel: root.WhitePixel,
		})
	}

	if s.xu, err = xgbutil.NewConnXgb(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("display: %w", err)
	}
	if s.markerAtom, err = s.InternAtom(MarkerAtomName); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.loadKeymap(); err != nil {
		conn.Close()
		return nil, err
	}

	go s.pump(conn.WaitForEvent)

	s.logger.Debug("display opened", "screens", len(s.screens))
	return s, nil
}

// Conn returns the underlying connection for presentation modules.
func (s *Session) Conn() *xgb.Conn { return s.conn }

// Screens returns the screen contexts in server order.
func (s *Session) Screens() []*ScreenContext { return s.screens }

// Anchor returns screen 0's surface, the target of both grabs and the
// source of key events.
func (s *Session) Anchor() (xproto.Window, xproto.Cursor, error) {
	first := s.screens[0]
	if first.Surface == 0 {
		return 0, 0, ErrNoSurface
	}
	return first.Surface, first.Cursor, nil
}

// InternAtom returns the atom for name, creating it if needed.
func (s *Session) InternAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("display: intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}

// ShowSurfaces selects key and expose events on every surface, then
// maps and raises them.
func (s *Session) ShowSurfaces() error {
	mask := uint32(xproto.EventMaskKeyPress | xproto.EventMaskKeyRelease | xproto.EventMaskExposure)
	for _, screen := range s.screens {
		if screen.Surface == 0 {
			return fmt.Errorf("%w on screen %d", ErrNoSurface, screen.Index)
		}
		if err := xproto.ChangeWindowAttributesChecked(s.conn, screen.Surface,
			xproto.CwEventMask, []uint32{mask}).Check(); err != nil {
			return fmt.Errorf("display: select input on screen %d: %w", screen.Index, err)
		}
		if err := xproto.MapWindowChecked(s.conn, screen.Surface).Check(); err != nil {
			return fmt.Errorf("display: map surface on screen %d: %w", screen.Index, err)
		}
		if err := xproto.ConfigureWindowChecked(s.conn, screen.Surface,
			xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check(); err != nil {
			return fmt.Errorf("display: raise surface on screen %d: %w", screen.Index, err)
		}
	}
	return nil
}

// Close shuts the connection down. The server releases anything this
// client still holds. Safe to call more than once.
func (s *Session) Close() error {
	s.closeMux.Do(func() {
		close(s.done)
		s.conn.Close()
	})
	return nil
}
