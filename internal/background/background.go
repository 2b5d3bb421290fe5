// Package background creates the lock surfaces: one override-redirect
// window per screen, recorded on the screen's ScreenContext.
package background

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/display"
	"grablock/internal/input"
	"grablock/internal/module"
)

// ErrConfig reports bad background options.
var ErrConfig = errors.New("background: invalid configuration")

// Background owns the lock surfaces.
type Background interface {
	Name() string
	// Init creates and records a surface on every screen.
	Init(args string, d *display.Session) error
	// OnExpose repaints an exposed region.
	OnExpose(input.Expose)
	// Teardown destroys the surfaces. Safe to call more than once.
	Teardown()
}

// Registry lists the background modules; blank is the default.
func Registry() *module.Registry[Background] {
	return module.NewRegistry[Background]("bg").
		Register("blank", func() Background { return &Blank{} }).
		Register("none", func() Background { return &None{} })
}

// DefaultColor fills a blank background unless color= is given.
const DefaultColor = "black"

func createSurface(d *display.Session, screen *display.ScreenContext, class uint16,
	mask uint32, values []uint32) error {
	conn := d.Conn()
	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return fmt.Errorf("background: allocate window id: %w", err)
	}

	depth, visual := screen.Depth, screen.Visual
	if class == xproto.WindowClassInputOnly {
		depth, visual = 0, 0
	}

	err = xproto.CreateWindowChecked(conn, depth, wid, screen.Root,
		0, 0, screen.Width, screen.Height, 0,
		class, visual, mask, values).Check()
	if err != nil {
		return fmt.Errorf("background: create surface on screen %d: %w", screen.Index, err)
	}

	screen.Surface = wid
	screen.InputOnly = class == xproto.WindowClassInputOnly
	return nil
}

func destroySurfaces(d *display.Session) {
	if d == nil {
		return
	}
	for _, screen := range d.Screens() {
		if screen.Surface != 0 {
			xproto.DestroyWindow(d.Conn(), screen.Surface)
			screen.Surface = 0
		}
	}
}
