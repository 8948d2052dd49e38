package display

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Technique is one way of getting a full-screen picture in front of the player
type Technique int

// Ordered from most to least capable
const (
	DirectFramebuffer Technique = iota
	ExternalPlayerDRM
	FramebufferViewer
	LegacyFramebufferImage
	WindowedViewer
	PausedOverlayText
)

var techniqueNames = map[Technique]string{
	DirectFramebuffer:      "direct_fb",
	ExternalPlayerDRM:      "mpv",
	FramebufferViewer:      "fbv",
	LegacyFramebufferImage: "fbi",
	WindowedViewer:         "feh",
	PausedOverlayText:      "osd",
}

func (t Technique) String() string {
	if name, ok := techniqueNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseTechnique accepts the names used in the display.prefer setting
func ParseTechnique(name string) (Technique, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "retroarch_pause" {
		return PausedOverlayText, true
	}
	for t, n := range techniqueNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Env answers the capability checks made while probing
type Env interface {
	Exists(path string) bool
	HasBinary(name string) bool
}

// SystemEnv checks the real filesystem and PATH
type SystemEnv struct{}

func (SystemEnv) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (SystemEnv) HasBinary(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Probe picks the most capable technique whose preconditions hold.
// PausedOverlayText has none, so probing always succeeds.
func Probe(env Env, fbSysfs string) Technique {
	if env.Exists(filepath.Join(fbSysfs, "virtual_size")) && env.Exists(filepath.Join(fbSysfs, "bits_per_pixel")) {
		return DirectFramebuffer
	}

	binaries := []struct {
		name string
		t    Technique
	}{
		{"mpv", ExternalPlayerDRM},
		{"fbv", FramebufferViewer},
		{"fbi", LegacyFramebufferImage},
		{"feh", WindowedViewer},
	}
	for _, b := range binaries {
		if env.HasBinary(b.name) {
			return b.t
		}
	}
	return PausedOverlayText
}
