package display

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// ReadMarker reads the locker pid from screen 0's root window.
func (s *Session) ReadMarker() (int, bool, error) {
	reply, err := xproto.GetProperty(s.conn, false, s.screens[0].Root, s.markerAtom,
		xproto.AtomCardinal, 0, 1).Reply()
	if err != nil {
		return 0, false, fmt.Errorf("display: get %s: %w", MarkerAtomName, err)
	}
	if reply.Format != 32 || reply.ValueLen == 0 || len(reply.Value) < 4 {
		return 0, false, nil
	}
	return int(int32(xgb.Get32(reply.Value))), true, nil
}

// WriteMarker stores pid as a single 32-bit CARDINAL.
func (s *Session) WriteMarker(pid int) error {
	buf := make([]byte, 4)
	xgb.Put32(buf, uint32(pid))
	err := xproto.ChangePropertyChecked(s.conn, xproto.PropModeReplace, s.screens[0].Root,
		s.markerAtom, xproto.AtomCardinal, 32, 1, buf).Check()
	if err != nil {
		return fmt.Errorf("display: set %s: %w", MarkerAtomName, err)
	}
	return nil
}

// DeleteMarker removes the property.
func (s *Session) DeleteMarker() error {
	if err := xproto.DeletePropertyChecked(s.conn, s.screens[0].Root, s.markerAtom).Check(); err != nil {
		return fmt.Errorf("display: delete %s: %w", MarkerAtomName, err)
	}
	return nil
}
