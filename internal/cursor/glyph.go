package cursor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/display"
	"grablock/internal/module"
)

// Glyph indices in the standard X "cursor" font (X11/cursorfont.h). The
// mask of glyph n is glyph n+1.
var glyphs = map[string]uint16{
	"x_cursor":       0,
	"arrow":          2,
	"circle":         24,
	"cross":          30,
	"crosshair":      34,
	"dot":            38,
	"hand1":          58,
	"hand2":          60,
	"left_ptr":       68,
	"pirate":         88,
	"question_arrow": 92,
	"target":         128,
	"tcross":         130,
	"watch":          150,
	"xterm":          152,
}

// Glyph defaults.
const (
	DefaultGlyph = "watch"
	DefaultFg    = "white"
	DefaultBg    = "black"
)

// GlyphNames returns the accepted glyph names, sorted.
func GlyphNames() []string {
	names := make([]string, 0, len(glyphs))
	for name := range glyphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GlyphOptions is the parsed option string of the glyph cursor.
type GlyphOptions struct {
	Glyph uint16
	Name  string
	Fg    string
	Bg    string
}

// ParseGlyphOptions parses "name=<glyph>,fg=<color>,bg=<color>".
func ParseGlyphOptions(args string) (GlyphOptions, error) {
	opts := GlyphOptions{Name: DefaultGlyph, Glyph: glyphs[DefaultGlyph], Fg: DefaultFg, Bg: DefaultBg}
	for _, opt := range module.ParseOptions(args) {
		switch opt.Key {
		case "name":
			idx, ok := glyphs[strings.ToLower(opt.Value)]
			if !ok {
				return opts, fmt.Errorf("%w: unknown glyph %q, one of %s",
					ErrConfig, opt.Value, strings.Join(GlyphNames(), ", "))
			}
			opts.Name, opts.Glyph = strings.ToLower(opt.Value), idx
		case "fg":
			opts.Fg = opt.Value
		case "bg":
			opts.Bg = opt.Value
		default:
			return opts, fmt.Errorf("%w: glyph does not accept option %q", ErrConfig, opt.Key)
		}
	}
	return opts, nil
}

// Glyph shows a shape from the core cursor font.
type Glyph struct {
	display *display.Session
	cursor  xproto.Cursor
}

// Name implements Cursor.
func (g *Glyph) Name() string { return "glyph" }

// Init implements Cursor.
func (g *Glyph) Init(args string, d *display.Session) error {
	opts, err := ParseGlyphOptions(args)
	if err != nil {
		return err
	}

	screen := d.Screens()[0]
	fg, err := d.LookupColor(screen, opts.Fg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	bg, err := d.LookupColor(screen, opts.Bg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	conn := d.Conn()
	font, err := xproto.NewFontId(conn)
	if err != nil {
		return fmt.Errorf("cursor: allocate font id: %w", err)
	}
	const fontName = "cursor"
	if err := xproto.OpenFontChecked(conn, font, uint16(len(fontName)), fontName).Check(); err != nil {
		return fmt.Errorf("cursor: open cursor font: %w", err)
	}
	defer xproto.CloseFont(conn, font)

	cid, err := xproto.NewCursorId(conn)
	if err != nil {
		return fmt.Errorf("cursor: allocate cursor id: %w", err)
	}
	err = xproto.CreateGlyphCursorChecked(conn, cid, font, font, opts.Glyph, opts.Glyph+1,
		fg.Red, fg.Green, fg.Blue, bg.Red, bg.Green, bg.Blue).Check()
	if err != nil {
		return fmt.Errorf("cursor: create glyph %s: %w", opts.Name, err)
	}

	g.display, g.cursor = d, cid
	if err := attach(d, cid); err != nil {
		g.Teardown()
		return err
	}
	return nil
}

// Teardown implements Cursor.
func (g *Glyph) Teardown() {
	if g.display == nil {
		return
	}
	detach(g.display, g.cursor)
	g.display, g.cursor = nil, 0
}
