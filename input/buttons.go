package input

import (
	"fmt"
	"sort"
	"strings"
)

// Key codes from linux/input-event-codes.h. Aliases share a code; the first
// name listed for a code is its canonical name.
var buttonTable = []struct {
	name string
	code uint16
}{
	// gamepad
	{"BTN_SOUTH", 0x130}, {"BTN_A", 0x130},
	{"BTN_EAST", 0x131}, {"BTN_B", 0x131},
	{"BTN_C", 0x132},
	{"BTN_NORTH", 0x133}, {"BTN_X", 0x133},
	{"BTN_WEST", 0x134}, {"BTN_Y", 0x134},
	{"BTN_Z", 0x135},
	{"BTN_TL", 0x136},
	{"BTN_TR", 0x137},
	{"BTN_TL2", 0x138},
	{"BTN_TR2", 0x139},
	{"BTN_SELECT", 0x13a},
	{"BTN_START", 0x13b},
	{"BTN_MODE", 0x13c},
	{"BTN_THUMBL", 0x13d},
	{"BTN_THUMBR", 0x13e},
	{"BTN_DPAD_UP", 0x220},
	{"BTN_DPAD_DOWN", 0x221},
	{"BTN_DPAD_LEFT", 0x222},
	{"BTN_DPAD_RIGHT", 0x223},

	// generic joysticks, as exposed by many USB arcade encoders
	{"BTN_TRIGGER", 0x120},
	{"BTN_THUMB", 0x121},
	{"BTN_THUMB2", 0x122},
	{"BTN_TOP", 0x123},
	{"BTN_TOP2", 0x124},
	{"BTN_PINKIE", 0x125},
	{"BTN_BASE", 0x126},
	{"BTN_BASE2", 0x127},
	{"BTN_BASE3", 0x128},
	{"BTN_BASE4", 0x129},
	{"BTN_BASE5", 0x12a},
	{"BTN_BASE6", 0x12b},
	{"BTN_TRIGGER_HAPPY1", 0x2c0},
	{"BTN_TRIGGER_HAPPY2", 0x2c1},
	{"BTN_TRIGGER_HAPPY3", 0x2c2},
	{"BTN_TRIGGER_HAPPY4", 0x2c3},

	// keyboards and handheld function keys
	{"KEY_ESC", 1},
	{"KEY_BACKSPACE", 14},
	{"KEY_TAB", 15},
	{"KEY_ENTER", 28},
	{"KEY_LEFTCTRL", 29},
	{"KEY_LEFTSHIFT", 42},
	{"KEY_LEFTALT", 56},
	{"KEY_SPACE", 57},
	{"KEY_F1", 59}, {"KEY_F2", 60}, {"KEY_F3", 61}, {"KEY_F4", 62},
	{"KEY_F5", 63}, {"KEY_F6", 64}, {"KEY_F7", 65}, {"KEY_F8", 66},
	{"KEY_F9", 67}, {"KEY_F10", 68}, {"KEY_F11", 87}, {"KEY_F12", 88},
	{"KEY_UP", 103},
	{"KEY_LEFT", 105},
	{"KEY_RIGHT", 106},
	{"KEY_DOWN", 108},
	{"KEY_VOLUMEDOWN", 114},
	{"KEY_VOLUMEUP", 115},
	{"KEY_POWER", 116},
	{"KEY_BACK", 158},
	{"KEY_HOMEPAGE", 172},
}

var (
	codesByName   = make(map[string]uint16, len(buttonTable))
	canonicalName = make(map[uint16]string, len(buttonTable))
)

func init() {
	for _, b := range buttonTable {
		codesByName[b.name] = b.code
		if _, ok := canonicalName[b.code]; !ok {
			canonicalName[b.code] = b.name
		}
	}
}

// ButtonCode resolves a button name (case-insensitive) to its key code
func ButtonCode(name string) (uint16, bool) {
	code, ok := codesByName[strings.ToUpper(strings.TrimSpace(name))]
	return code, ok
}

// ButtonName returns the canonical name of a key code, or a hex placeholder
func ButtonName(code uint16) string {
	if name, ok := canonicalName[code]; ok {
		return name
	}
	return fmt.Sprintf("KEY_0x%03x", code)
}

// KnownButtons lists every accepted button name, sorted
func KnownButtons() []string {
	names := make([]string, 0, len(codesByName))
	for name := range codesByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
