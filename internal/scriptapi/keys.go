package scriptapi

import (
	"fmt"
	"strings"
)

// Modifier bits, packed the way a parsed key sequence carries them through
// to InputSynth.PressKey.
const (
	ModShift = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// namedKeys maps the sequence's terminal-key names to the toolkit's native
// key codes (Qt's own Key_* values, since the recorder and this dialect
// both speak Qt's naming).
var namedKeys = map[string]int{
	"Escape":    0x01000000,
	"Tab":       0x01000001,
	"Backspace": 0x01000003,
	"Return":    0x01000004,
	"Enter":     0x01000005,
	"Delete":    0x01000007,
	"Left":      0x01000012,
	"Up":        0x01000013,
	"Right":     0x01000014,
	"Down":      0x01000015,
	"Space":     0x20,
	"F1":        0x01000030,
	"F2":        0x01000031,
	"F3":        0x01000032,
	"F4":        0x01000033,
	"F5":        0x01000034,
	"F6":        0x01000035,
	"F7":        0x01000036,
	"F8":        0x01000037,
	"F9":        0x01000038,
	"F10":       0x01000039,
	"F11":       0x0100003a,
	"F12":       0x0100003b,
}

// parseKeySequence parses a `Ctrl+Shift+S`-style sequence: every token but
// the last is a modifier chord name, the last is the terminal key (a named
// key or a single character).
func parseKeySequence(seq string) (key, modifiers int, err error) {
	tokens := strings.Split(seq, "+")
	if len(tokens) == 0 || strings.TrimSpace(tokens[len(tokens)-1]) == "" {
		return 0, 0, fmt.Errorf("invalid key sequence: %q", seq)
	}
	for _, tok := range tokens[:len(tokens)-1] {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "ctrl", "control":
			modifiers |= ModCtrl
		case "shift":
			modifiers |= ModShift
		case "alt":
			modifiers |= ModAlt
		case "meta", "cmd", "command":
			modifiers |= ModMeta
		default:
			return 0, 0, fmt.Errorf("unknown modifier %q in key sequence %q", tok, seq)
		}
	}
	last := strings.TrimSpace(tokens[len(tokens)-1])
	if code, ok := namedKeys[last]; ok {
		return code, modifiers, nil
	}
	if len([]rune(last)) == 1 {
		return int([]rune(last)[0]), modifiers, nil
	}
	return 0, 0, fmt.Errorf("unknown key %q in key sequence %q", last, seq)
}
