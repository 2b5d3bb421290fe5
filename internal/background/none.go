package background

import (
	"fmt"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/display"
	"grablock/internal/input"
	"grablock/internal/module"
)

// None leaves the screen visible: the surfaces are input-only windows
// that only catch input.
type None struct {
	display *display.Session
}

// Name implements Background.
func (n *None) Name() string { return "none" }

// Init implements Background.
func (n *None) Init(args string, d *display.Session) error {
	if opts := module.ParseOptions(args); len(opts) > 0 {
		return &UnknownOptionError{Module: "none", Option: opts[0].Key}
	}
	n.display = d

	for _, screen := range d.Screens() {
		if err := createSurface(d, screen, xproto.WindowClassInputOnly,
			xproto.CwOverrideRedirect, []uint32{1}); err != nil {
			n.Teardown()
			return err
		}
	}
	return nil
}

// OnExpose implements Background. Input-only windows are never exposed.
func (n *None) OnExpose(input.Expose) {}

// Teardown implements Background.
func (n *None) Teardown() {
	destroySurfaces(n.display)
	n.display = nil
}

// UnknownOptionError names an option a module does not accept.
type UnknownOptionError struct {
	Module string
	Option string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("background: %s does not accept option %q", e.Module, e.Option)
}

// Unwrap makes errors.Is(err, ErrConfig) match.
func (e *UnknownOptionError) Unwrap() error { return ErrConfig }
