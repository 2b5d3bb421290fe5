package display

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
)

// AllocNamedColor returns the pixel for an X color name ("black",
// "#ff0000") in the screen's default colormap.
func (s *Session) AllocNamedColor(screen *ScreenContext, name string) (uint32, error) {
	reply, err := xproto.AllocNamedColor(s.conn, screen.Colormap, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("display: allocate color %q: %w", name, err)
	}
	return reply.Pixel, nil
}

// RGB is a 16-bit-per-channel color as the cursor requests expect it.
type RGB struct {
	Red, Green, Blue uint16
}

// LookupColor resolves an X color name without allocating a cell.
func (s *Session) LookupColor(screen *ScreenContext, name string) (RGB, error) {
	reply, err := xproto.LookupColor(s.conn, screen.Colormap, uint16(len(name)), name).Reply()
	if err != nil {
		return RGB{}, fmt.Errorf("display: lookup color %q: %w", name, err)
	}
	return RGB{Red: reply.ExactRed, Green: reply.ExactGreen, Blue: reply.ExactBlue}, nil
}
