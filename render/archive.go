package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archiver keeps every generated hint under archive/<system>/<game>/
type Archiver struct {
	logger *slog.Logger
	dir    string
	now    func() time.Time
}

func NewArchiver(logger *slog.Logger, hintsDir string) *Archiver {
	return &Archiver{
		logger: logger.With("component", "archive"),
		dir:    filepath.Join(hintsDir, "archive"),
		now:    time.Now,
	}
}

// Dir returns the archive root
func (a *Archiver) Dir() string {
	return a.dir
}

// Save copies the hint image into the archive and returns the archived path
func (a *Archiver) Save(imagePath, system, game string) (string, error) {
	destDir := filepath.Join(a.dir, SafeName(system), SafeName(game))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	dest := filepath.Join(destDir, a.now().Format("20060102_150405")+".png")
	if err := copyFile(imagePath, dest); err != nil {
		return "", err
	}

	a.logger.Info("Hint archived", "path", dest)
	return dest, nil
}

var unsafeChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_",
	`\`, "_", "|", "_", "?", "_", "*", "_",
)

// SafeName makes a label usable as a single path element, capped at 50 characters
func SafeName(name string) string {
	s := unsafeChars.Replace(name)
	if r := []rune(s); len(r) > 50 {
		s = string(r[:50])
	}
	switch s {
	case "", ".", "..":
		return "_"
	}
	return s
}
