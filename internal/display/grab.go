package display

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
)

const pointerEventMask = xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion

// GrabKeyboard requests an asynchronous keyboard grab on anchor.
func (s *Session) GrabKeyboard(anchor xproto.Window) (bool, error) {
	reply, err := xproto.GrabKeyboard(s.conn, true, anchor, xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	if err != nil {
		return false, fmt.Errorf("display: grab keyboard: %w", err)
	}
	return reply.Status == xproto.GrabStatusSuccess, nil
}

// GrabPointer requests an asynchronous pointer grab without a confine
// window, showing cursor.
func (s *Session) GrabPointer(anchor xproto.Window, cursor xproto.Cursor) (bool, error) {
	reply, err := xproto.GrabPointer(s.conn, false, anchor, uint16(pointerEventMask),
		xproto.GrabModeAsync, xproto.GrabModeAsync, xproto.WindowNone, cursor,
		xproto.TimeCurrentTime).Reply()
	if err != nil {
		return false, fmt.Errorf("display: grab pointer: %w", err)
	}
	return reply.Status == xproto.GrabStatusSuccess, nil
}

// UngrabKeyboard releases the keyboard.
func (s *Session) UngrabKeyboard() error {
	return xproto.UngrabKeyboardChecked(s.conn, xproto.TimeCurrentTime).Check()
}

// UngrabPointer releases the pointer.
func (s *Session) UngrabPointer() error {
	return xproto.UngrabPointerChecked(s.conn, xproto.TimeCurrentTime).Check()
}
