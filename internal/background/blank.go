package background

import (
	"log/slog"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/display"
	"grablock/internal/input"
	"grablock/internal/module"
)

// Blank covers every screen with a solid color.
//
// Options:
//
//	color=<name>  X color name or #rrggbb (default black)
type Blank struct {
	display *display.Session
	color   string
}

// Name implements Background.
func (b *Blank) Name() string { return "blank" }

// Color returns the configured color name.
func (b *Blank) Color() string { return b.color }

// ParseArgs applies the option string without touching the display.
func (b *Blank) ParseArgs(args string) error {
	b.color = DefaultColor
	for _, opt := range module.ParseOptions(args) {
		switch opt.Key {
		case "color":
			if opt.Value == "" {
				return ErrConfig
			}
			b.color = opt.Value
		default:
			return &UnknownOptionError{Module: "blank", Option: opt.Key}
		}
	}
	return nil
}

// Init implements Background. An unknown color falls back to black.
func (b *Blank) Init(args string, d *display.Session) error {
	if err := b.ParseArgs(args); err != nil {
		return err
	}
	b.display = d

	for _, screen := range d.Screens() {
		pixel, err := d.AllocNamedColor(screen, b.color)
		if err != nil {
			slog.Default().Warn("background color unavailable, using black",
				"component", "background", "color", b.color, "error", err)
			pixel = screen.BlackPixel
		}

		mask := uint32(xproto.CwBackPixel | xproto.CwOverrideRedirect)
		if err := createSurface(d, screen, xproto.WindowClassInputOutput, mask,
			[]uint32{pixel, 1}); err != nil {
			b.Teardown()
			return err
		}
	}
	return nil
}

// OnExpose implements Background by repainting with the window
// background.
func (b *Blank) OnExpose(ev input.Expose) {
	if b.display == nil || ev.Screen < 0 || ev.Screen >= len(b.display.Screens()) {
		return
	}
	screen := b.display.Screens()[ev.Screen]
	xproto.ClearArea(b.display.Conn(), false, screen.Surface,
		int16(ev.X), int16(ev.Y), uint16(ev.Width), uint16(ev.Height))
}

// Teardown implements Background.
func (b *Blank) Teardown() {
	destroySurfaces(b.display)
	b.display = nil
}
