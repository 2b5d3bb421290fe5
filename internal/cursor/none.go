package cursor

import (
	"fmt"

	"github.com/jezek/xgb/xproto"

	"grablock/internal/display"
	"grablock/internal/module"
)

// None hides the pointer with a cursor built from an empty 1x1 bitmap.
type None struct {
	display *display.Session
	cursor  xproto.Cursor
}

// Name implements Cursor.
func (n *None) Name() string { return "none" }

// Init implements Cursor.
func (n *None) Init(args string, d *display.Session) error {
	if opts := module.ParseOptions(args); len(opts) > 0 {
		return fmt.Errorf("%w: none takes no options, got %q", ErrConfig, opts[0].Key)
	}

	conn := d.Conn()
	root := d.Screens()[0].Root

	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return fmt.Errorf("cursor: allocate pixmap id: %w", err)
	}
	if err := xproto.CreatePixmapChecked(conn, 1, pix, xproto.Drawable(root), 1, 1).Check(); err != nil {
		return fmt.Errorf("cursor: create pixmap: %w", err)
	}
	defer xproto.FreePixmap(conn, pix)

	// Pixmap contents are undefined until drawn; clear the single bit so
	// the mask hides everything.
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return fmt.Errorf("cursor: allocate gc id: %w", err)
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(pix),
		xproto.GcForeground, []uint32{0}).Check(); err != nil {
		return fmt.Errorf("cursor: create gc: %w", err)
	}
	xproto.PolyFillRectangle(conn, xproto.Drawable(pix), gc, []xproto.Rectangle{{Width: 1, Height: 1}})
	xproto.FreeGC(conn, gc)

	cid, err := xproto.NewCursorId(conn)
	if err != nil {
		return fmt.Errorf("cursor: allocate cursor id: %w", err)
	}
	if err := xproto.CreateCursorChecked(conn, cid, pix, pix,
		0, 0, 0, 0, 0, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("cursor: create cursor: %w", err)
	}

	n.display, n.cursor = d, cid
	if err := attach(d, cid); err != nil {
		n.Teardown()
		return err
	}
	return nil
}

// Teardown implements Cursor.
func (n *None) Teardown() {
	if n.display == nil {
		return
	}
	detach(n.display, n.cursor)
	n.display, n.cursor = nil, 0
}
