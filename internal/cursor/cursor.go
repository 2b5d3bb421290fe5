// Package cursor provides the pointer shapes shown over the lock
// surfaces and during the pointer grab.
package cursor

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/display"
	"grablock/internal/module"
)

// ErrConfig reports bad cursor options.
var ErrConfig = errors.New("cursor: invalid configuration")

// Cursor creates a cursor and attaches it to every surface. It must be
// initialized after the background.
type Cursor interface {
	Name() string
	Init(args string, d *display.Session) error
	Teardown()
}

// Registry lists the cursor modules; none is the default.
func Registry() *module.Registry[Cursor] {
	return module.NewRegistry[Cursor]("cursor").
		Register("none", func() Cursor { return &None{} }).
		Register("glyph", func() Cursor { return &Glyph{} })
}

// attach records c on every screen and sets it on the surfaces.
func attach(d *display.Session, c xproto.Cursor) error {
	for _, screen := range d.Screens() {
		screen.Cursor = c
		if screen.Surface == 0 {
			continue
		}
		err := xproto.ChangeWindowAttributesChecked(d.Conn(), screen.Surface,
			xproto.CwCursor, []uint32{uint32(c)}).Check()
		if err != nil {
			return fmt.Errorf("cursor: set on screen %d: %w", screen.Index, err)
		}
	}
	return nil
}

func detach(d *display.Session, c xproto.Cursor) {
	for _, screen := range d.Screens() {
		if screen.Cursor == c {
			screen.Cursor = 0
		}
	}
	xproto.FreeCursor(d.Conn(), c)
}
