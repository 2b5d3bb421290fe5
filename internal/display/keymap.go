package display

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil/keybind"

	"grablock/internal/input"
)

// Keymap translates keycodes to keysyms using the core keyboard mapping.
type Keymap struct {
	minCode        xproto.Keycode
	perCode        int
	syms           []xproto.Keysym
	numLockMask    uint16
	modeSwitchMask uint16
	level3Mask     uint16
}

// NewKeymap builds a Keymap from a GetKeyboardMapping reply starting at
// minCode and a GetModifierMapping reply. The modifiers carrying
// Num_Lock, Mode_switch and ISO_Level3_Shift are found by looking for
// those keysyms among the modifier keycodes.
func NewKeymap(minCode xproto.Keycode, perCode int, syms []xproto.Keysym,
	modCodes []xproto.Keycode, perMod int) *Keymap {
	k := &Keymap{minCode: minCode, perCode: perCode, syms: syms}
	if perMod <= 0 {
		return k
	}
	for i, code := range modCodes {
		if code == 0 {
			continue
		}
		bit := uint16(1) << uint(i/perMod)
		for _, sym := range k.column(code) {
			switch input.Keysym(sym) {
			case input.XKNumLock:
				k.numLockMask |= bit
			case input.XKModeSwitch:
				k.modeSwitchMask |= bit
			case input.XKISOLevel3Shift:
				k.level3Mask |= bit
			}
		}
	}
	return k
}

func (k *Keymap) column(code xproto.Keycode) []xproto.Keysym {
	if code < k.minCode || k.perCode <= 0 {
		return nil
	}
	start := int(code-k.minCode) * k.perCode
	if start+k.perCode > len(k.syms) {
		return nil
	}
	return k.syms[start : start+k.perCode]
}

// NumLockMask returns the modifier bits bound to Num_Lock, or 0.
func (k *Keymap) NumLockMask() uint16 { return k.numLockMask }

// ModeSwitchMask returns the modifier bits bound to Mode_switch, or 0.
func (k *Keymap) ModeSwitchMask() uint16 { return k.modeSwitchMask }

// Level3Mask returns the modifier bits bound to ISO_Level3_Shift (AltGr),
// or 0.
func (k *Keymap) Level3Mask() uint16 { return k.level3Mask }

// pair returns the two keysyms of the column starting at index first.
func pair(col []xproto.Keysym, first int) []input.Keysym {
	out := make([]input.Keysym, 0, 2)
	for i := first; i < len(col) && i < first+2; i++ {
		out = append(out, input.Keysym(col[i]))
	}
	return out
}

func empty(group []input.Keysym) bool {
	for _, k := range group {
		if k != input.NoSymbol {
			return false
		}
	}
	return true
}

// Lookup returns the keysym for a key event with the given modifier
// state. AltGr selects columns 4 and 5 (XKB's third and fourth level of
// group 1), Mode_switch selects columns 2 and 3 (group 2). A key with
// nothing bound there falls back to group 1.
func (k *Keymap) Lookup(code xproto.Keycode, state uint16) input.Keysym {
	col := k.column(code)

	first := 0
	switch {
	case k.level3Mask != 0 && state&k.level3Mask != 0:
		first = 4
	case k.modeSwitchMask != 0 && state&k.modeSwitchMask != 0:
		first = 2
	}
	group := pair(col, first)
	if first != 0 && empty(group) {
		group = pair(col, 0)
	}

	return input.ResolveKeysym(group,
		state&xproto.KeyButMaskShift != 0,
		state&xproto.KeyButMaskLock != 0,
		k.numLockMask != 0 && state&k.numLockMask != 0)
}

// loadKeymap fetches the keyboard and modifier mappings through keybind.
// MapsGet panics when the server refuses either request.
func (s *Session) loadKeymap() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("display: keyboard mapping: %v", r)
		}
	}()

	km, mm := keybind.MapsGet(s.xu)
	s.keymap = NewKeymap(s.setup.MinKeycode, int(km.KeysymsPerKeycode), km.Keysyms,
		mm.Keycodes, int(mm.KeycodesPerModifier))
	return nil
}
