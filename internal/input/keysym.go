package input

import (
	"errors"
	"fmt"

	"grablock/internal/security"
)

// Keysym is an X11 keysym value.
type Keysym uint32

// NoSymbol is the empty keysym.
const NoSymbol Keysym = 0

// Keysyms with special meaning to the reducer, from X11/keysymdef.h.
const (
	XKBackSpace   Keysym = 0xff08
	XKLinefeed    Keysym = 0xff0a
	XKClear       Keysym = 0xff0b
	XKReturn      Keysym = 0xff0d
	XKEscape      Keysym = 0xff1b
	XKDelete      Keysym = 0xffff
	XKKPSpace     Keysym = 0xff80
	XKKPEnter     Keysym = 0xff8d
	XKKPMultiply  Keysym = 0xffaa
	XKKPAdd       Keysym = 0xffab
	XKKPSeparator Keysym = 0xffac
	XKKPSubtract  Keysym = 0xffad
	XKKPDecimal   Keysym = 0xffae
	XKKPDivide    Keysym = 0xffaf
	XKKP0         Keysym = 0xffb0
	XKKP9         Keysym = 0xffb9
	XKKPEqual     Keysym = 0xffbd
	XKNumLock     Keysym = 0xff7f
	XKModeSwitch  Keysym = 0xff7e

	XKISOLevel3Shift Keysym = 0xfe03
)

// Class is what a key press means to the reducer.
type Class int

const (
	// ClassIgnored keys refresh the idle timer and do nothing else.
	ClassIgnored Class = iota
	ClassChar
	ClassErase
	ClassClear
	ClassSubmit
)

var keypadChars = map[Keysym]byte{
	XKKPSpace:     ' ',
	XKKPMultiply:  '*',
	XKKPAdd:       '+',
	XKKPSeparator: ',',
	XKKPSubtract:  '-',
	XKKPDecimal:   '.',
	XKKPDivide:    '/',
	XKKPEqual:     '=',
}

// Classify maps a keysym to its reducer class and, for ClassChar, the
// Latin-1 byte it contributes to the password.
func Classify(k Keysym) (Class, byte) {
	switch k {
	case XKReturn, XKLinefeed, XKKPEnter:
		return ClassSubmit, 0
	case XKBackSpace, XKDelete:
		return ClassErase, 0
	case XKEscape, XKClear:
		return ClassClear, 0
	}

	if isLatin1Printable(uint32(k)) {
		return ClassChar, byte(k)
	}
	if k >= XKKP0 && k <= XKKP9 {
		return ClassChar, byte('0' + (k - XKKP0))
	}
	if c, ok := keypadChars[k]; ok {
		return ClassChar, c
	}
	return ClassIgnored, 0
}

func isLatin1Printable(c uint32) bool {
	return (c >= 0x20 && c <= 0x7e) || (c >= 0xa0 && c <= 0xff)
}

// IsKeypad reports whether k is on the numeric keypad.
func IsKeypad(k Keysym) bool {
	return k >= XKKPSpace && k <= XKKPEqual
}

// ResolveKeysym picks the keysym for a key press from one group of its
// keyboard mapping (unshifted, shifted). Shift and Num Lock follow the
// core protocol. Caps Lock follows XKB's default: it capitalizes
// letters, and Shift cancels it, so Shift+Caps Lock yields lowercase
// where the core protocol would keep uppercase.
func ResolveKeysym(column []Keysym, shift, capsLock, numLock bool) Keysym {
	var lower, upper Keysym
	if len(column) > 0 {
		lower = column[0]
	}
	if len(column) > 1 {
		upper = column[1]
	}
	if upper == NoSymbol {
		lower, upper = convertCase(lower)
	}

	if numLock && IsKeypad(upper) {
		if shift {
			return lower
		}
		return upper
	}

	switch {
	case !shift && !capsLock:
		return lower
	case !shift && capsLock:
		_, u := convertCase(lower)
		return u
	case shift && capsLock:
		l, _ := convertCase(upper)
		return l
	default:
		return upper
	}
}

// convertCase returns the lower and upper case forms of a Latin-1
// keysym. Non-letters map to themselves.
func convertCase(k Keysym) (lower, upper Keysym) {
	switch {
	case k >= 'A' && k <= 'Z':
		return k + 0x20, k
	case k >= 'a' && k <= 'z':
		return k, k - 0x20
	case k >= 0xc0 && k <= 0xde && k != 0xd7:
		return k + 0x20, k
	case k >= 0xe0 && k <= 0xfe && k != 0xf7:
		return k, k - 0x20
	default:
		return k, k
	}
}

// ErrUnencodable is returned by EncodePassword for text that cannot be
// typed as Latin-1 keysyms.
var ErrUnencodable = errors.New("input: character cannot be entered on the lock screen")

// EncodePassword converts text into the bytes the reducer would build
// from typing it: one Latin-1 byte per character, whichever level or
// group (Shift, AltGr, Mode_switch) produces it. Case is taken as
// written; Caps Lock handling only affects which keys produce it.
func EncodePassword(text string) ([]byte, error) {
	out := make([]byte, 0, len(text))
	for i, r := range text {
		if !isLatin1Printable(uint32(r)) {
			security.Wipe(out)
			return nil, fmt.Errorf("%w: %U at offset %d", ErrUnencodable, r, i)
		}
		out = append(out, byte(r))
	}
	return out, nil
}
