package feedback

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/display"
	"grablock/internal/input"
	"grablock/internal/module"
)

// Frame defaults.
const (
	DefaultFrameWidth = 10
	DefaultColor      = "gray"
	DefaultCheckColor = "orange"
	DefaultErrorColor = "red"
)

// FrameOptions is the parsed option string of the frame feedback.
type FrameOptions struct {
	Width      int
	Color      string
	CheckColor string
	ErrorColor string
}

// ParseFrameOptions parses "width=<px>,color=,checkcolor=,errcolor=".
func ParseFrameOptions(args string) (FrameOptions, error) {
	opts := FrameOptions{
		Width:      DefaultFrameWidth,
		Color:      DefaultColor,
		CheckColor: DefaultCheckColor,
		ErrorColor: DefaultErrorColor,
	}
	for _, opt := range module.ParseOptions(args) {
		switch opt.Key {
		case "width":
			w, err := strconv.Atoi(opt.Value)
			if err != nil || w <= 0 {
				return opts, fmt.Errorf("%w: width must be a positive integer, got %q", ErrConfig, opt.Value)
			}
			opts.Width = w
		case "color":
			opts.Color = opt.Value
		case "checkcolor":
			opts.CheckColor = opt.Value
		case "errcolor":
			opts.ErrorColor = opt.Value
		default:
			return opts, fmt.Errorf("%w: frame does not accept option %q", ErrConfig, opt.Key)
		}
	}
	return opts, nil
}

// Edges returns the four rectangles of a frame of width w inside a
// surface of the given size, clamped so they never overlap past the
// center.
func Edges(width, height uint16, w int) []xproto.Rectangle {
	fw := uint16(w)
	if limit := width / 2; fw > limit {
		fw = limit
	}
	if limit := height / 2; fw > limit {
		fw = limit
	}
	if fw == 0 {
		return nil
	}
	return []xproto.Rectangle{
		{X: 0, Y: 0, Width: width, Height: fw},
		{X: 0, Y: int16(height - fw), Width: width, Height: fw},
		{X: 0, Y: int16(fw), Width: fw, Height: height - 2*fw},
		{X: int16(width - fw), Y: int16(fw), Width: fw, Height: height - 2*fw},
	}
}

type frameScreen struct {
	screen *display.ScreenContext
	gc     xproto.Gcontext
	pixels map[input.State]uint32
}

// Frame draws a colored border around every surface: one color while
// typing, one while checking, one after a mismatch. The border is
// removed when the lock goes back to idle.
type Frame struct {
	display *display.Session
	opts    FrameOptions
	screens []frameScreen
	state   input.State
	logger  *slog.Logger
}

// Name implements Feedback.
func (f *Frame) Name() string { return "frame" }

// Init implements Feedback.
func (f *Frame) Init(args string, d *display.Session) error {
	opts, err := ParseFrameOptions(args)
	if err != nil {
		return err
	}
	f.opts, f.display, f.state = opts, d, input.Idle
	f.logger = slog.Default().With("component", "feedback")

	conn := d.Conn()
	for _, screen := range d.Screens() {
		if screen.Surface == 0 || screen.InputOnly {
			continue
		}

		pixels := map[input.State]uint32{}
		for state, name := range map[input.State]string{
			input.Armed:    opts.Color,
			input.Checking: opts.CheckColor,
			input.Invalid:  opts.ErrorColor,
		} {
			pixel, err := d.AllocNamedColor(screen, name)
			if err != nil {
				f.logger.Warn("frame color unavailable", "color", name, "error", err)
				pixel = screen.WhitePixel
			}
			pixels[state] = pixel
		}

		gc, err := xproto.NewGcontextId(conn)
		if err != nil {
			f.Teardown()
			return fmt.Errorf("feedback: allocate gc id: %w", err)
		}
		if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(screen.Surface),
			xproto.GcForeground, []uint32{pixels[input.Armed]}).Check(); err != nil {
			f.Teardown()
			return fmt.Errorf("feedback: create gc on screen %d: %w", screen.Index, err)
		}
		f.screens = append(f.screens, frameScreen{screen: screen, gc: gc, pixels: pixels})
	}
	return nil
}

// OnStateChanged implements input.Feedback.
func (f *Frame) OnStateChanged(s input.State) {
	f.state = s
	f.redraw()
}

// OnCharEntered implements input.Feedback.
func (f *Frame) OnCharEntered() {
	f.redraw()
}

// OnExpose implements input.ExposeHandler. The frame is redrawn after
// the last expose of a series.
func (f *Frame) OnExpose(ev input.Expose) {
	if ev.Count == 0 {
		f.redraw()
	}
}

func (f *Frame) redraw() {
	if f.display == nil {
		return
	}
	conn := f.display.Conn()
	for _, fs := range f.screens {
		pixel, ok := fs.pixels[f.state]
		if !ok {
			// Idle and Valid show no frame.
			xproto.ClearArea(conn, false, fs.screen.Surface, 0, 0, 0, 0)
			continue
		}
		xproto.ChangeGC(conn, fs.gc, xproto.GcForeground, []uint32{pixel})
		xproto.PolyFillRectangle(conn, xproto.Drawable(fs.screen.Surface), fs.gc,
			Edges(fs.screen.Width, fs.screen.Height, f.opts.Width))
	}
}

// Teardown implements Feedback.
func (f *Frame) Teardown() {
	if f.display == nil {
		return
	}
	for _, fs := range f.screens {
		xproto.FreeGC(f.display.Conn(), fs.gc)
	}
	f.screens = nil
	f.display = nil
}
