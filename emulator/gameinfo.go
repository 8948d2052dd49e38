package emulator

import (
	"path/filepath"
	"strings"
)

const (
	UnknownSystem = "Unknown System"
	UnknownGame   = "Unknown Game"
)

// Substrings of libretro core names, checked in order; more specific
// names come before the names they contain.
var coreSystems = []struct {
	core   string
	system string
}{
	{"snes9x", "SNES"},
	{"bsnes", "SNES"},
	{"mesen-s", "SNES"},
	{"genesis_plus_gx", "Genesis"},
	{"picodrive", "Genesis"},
	{"blastem", "Genesis"},
	{"mgba", "GBA"},
	{"vba_next", "GBA"},
	{"gambatte", "Game Boy"},
	{"sameboy", "Game Boy"},
	{"nestopia", "NES"},
	{"mesen", "NES"},
	{"fceumm", "NES"},
	{"mupen64plus_next", "N64"},
	{"parallel_n64", "N64"},
	{"pcsx_rearmed", "PlayStation"},
	{"duckstation", "PlayStation"},
	{"swanstation", "PlayStation"},
	{"beetle_psx", "PlayStation"},
	{"flycast", "Dreamcast"},
	{"mednafen_saturn", "Saturn"},
	{"yabause", "Saturn"},
	{"stella", "Atari 2600"},
	{"prosystem", "Atari 7800"},
	{"mame", "Arcade"},
	{"fbneo", "Arcade"},
	{"dosbox_pure", "DOS"},
	{"scummvm", "ScummVM"},
	{"puae", "Amiga"},
	{"commodore_amiga", "Amiga"},
	{"fsuae", "Amiga"},
	{"vice", "C64"},
	{"hatari", "Atari ST"},
	{"px68k", "X68000"},
	{"quasi88", "PC-88"},
	{"np2kai", "PC-98"},
}

// GameInfo derives the system and game labels shown to the hint source
func GameInfo(s Status) (system, game string) {
	game = UnknownGame
	if s.Content != "" {
		base := filepath.Base(s.Content)
		if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
			game = stem
		}
	}

	system = UnknownSystem
	core := strings.ToLower(s.Core)
	if core == "" {
		return system, game
	}
	for _, cs := range coreSystems {
		if strings.Contains(core, cs.core) {
			system = cs.system
			break
		}
	}
	return system, game
}
