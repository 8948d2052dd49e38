package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"retrohint/hintd/config"
)

const (
	ImageFile = "current-hint.png"
	TextFile  = "current-hint.txt"

	Footer = "Press any button to return to game"

	margin = 40
)

var (
	headerColor = color.RGBA{180, 180, 180, 255}
	footerColor = color.RGBA{120, 120, 120, 255}
)

// Font locations tried when no font_path is configured
var systemFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
}

// Artifact is a rendered hint: the picture and a plain-text copy for
// presentations that can only show text
type Artifact struct {
	ImagePath string
	TextPath  string
}

// Renderer draws hint text onto a full-screen picture
type Renderer struct {
	logger        *slog.Logger
	cfg           config.RenderConfig
	hintsDir      string
	screenshotDir string
	font          *opentype.Font
	fontName      string

	now func() time.Time
}

// NewRenderer loads the font once. A configured font that cannot be read is
// an error; missing system fonts fall back to the embedded Go font.
func NewRenderer(logger *slog.Logger, cfg config.RenderConfig, hintsDir, screenshotDir string) (*Renderer, error) {
	f, name, err := loadFont(cfg.FontPath)
	if err != nil {
		return nil, err
	}
	logger = logger.With("component", "render")
	logger.Debug("Font loaded", "font", name)

	return &Renderer{
		logger:        logger,
		cfg:           cfg,
		hintsDir:      hintsDir,
		screenshotDir: screenshotDir,
		font:          f,
		fontName:      name,
		now:           time.Now,
	}, nil
}

func loadFont(path string) (*opentype.Font, string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read font: %w", err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse font %s: %w", path, err)
		}
		return f, path, nil
	}

	for _, p := range systemFonts {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if f, err := opentype.Parse(data); err == nil {
			return f, p, nil
		}
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return f, "goregular", nil
}

func (r *Renderer) face(size int) (font.Face, error) {
	return opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(max(size, 1)),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Render writes current-hint.png and current-hint.txt into the hints directory
func (r *Renderer) Render(text, game, system string) (Artifact, error) {
	if err := os.MkdirAll(r.hintsDir, 0755); err != nil {
		return Artifact{}, fmt.Errorf("failed to create hints directory: %w", err)
	}

	header := system + " - " + game
	art := Artifact{
		ImagePath: filepath.Join(r.hintsDir, ImageFile),
		TextPath:  filepath.Join(r.hintsDir, TextFile),
	}

	// text first: the overlay fallback only needs this file
	if err := writeFileAtomic(art.TextPath, func(w io.Writer) error {
		_, err := io.WriteString(w, header+"\n\n"+text)
		return err
	}); err != nil {
		return Artifact{}, fmt.Errorf("failed to write hint text: %w", err)
	}

	img, err := r.Draw(text, header)
	if err != nil {
		return Artifact{}, err
	}
	if err := writeFileAtomic(art.ImagePath, func(w io.Writer) error {
		return png.Encode(w, img)
	}); err != nil {
		return Artifact{}, fmt.Errorf("failed to write hint image: %w", err)
	}
	r.logger.Info("Hint image saved", "path", art.ImagePath)

	r.backup(art.ImagePath, game)
	return art, nil
}

// Draw renders the hint picture in memory
func (r *Renderer) Draw(text, header string) (*image.RGBA, error) {
	w, h := r.cfg.Width, r.cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(rgb(r.cfg.BgColor)), image.Point{}, draw.Src)

	body, err := r.face(r.cfg.FontSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer body.Close()

	headerFace, err := r.face(r.cfg.FontSize * 8 / 10)
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer headerFace.Close()

	footerFace, err := r.face(r.cfg.FontSize * 6 / 10)
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer footerFace.Close()

	drawText(img, headerFace, margin, 30, headerColor, header)

	lines := Wrap(body, text, w-2*margin)
	lineHeight := r.cfg.FontSize + 10
	y := (h - len(lines)*lineHeight) / 2
	fg := rgb(r.cfg.TextColor)
	for i, line := range lines {
		drawText(img, body, margin, y+i*lineHeight, fg, line)
	}

	drawText(img, footerFace, margin, h-50, footerColor, Footer)
	return img, nil
}

// drawText draws s with its top edge at y
func drawText(dst draw.Image, face font.Face, x, y int, c color.Color, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent},
	}
	d.DrawString(s)
}

// Wrap breaks text into lines no wider than maxWidth pixels. A single word
// wider than maxWidth gets a line of its own.
func Wrap(face font.Face, text string, maxWidth int) []string {
	var lines []string
	var current []string

	for _, word := range strings.Fields(text) {
		candidate := strings.Join(append(current, word), " ")
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			current = append(current, word)
			continue
		}
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
		}
		current = []string{word}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}

// backup drops a copy next to the emulator's screenshots so the hint shows up in its gallery
func (r *Renderer) backup(src, game string) {
	if r.screenshotDir == "" {
		return
	}
	if info, err := os.Stat(r.screenshotDir); err != nil || !info.IsDir() {
		return
	}

	name := fmt.Sprintf("HINT_%s_%s.png", backupName(game), r.now().Format("20060102_150405"))
	dst := filepath.Join(r.screenshotDir, name)
	if err := copyFile(src, dst); err != nil {
		r.logger.Debug("Could not save hint backup", "error", err)
		return
	}
	r.logger.Info("Hint backup saved", "path", dst)
}

func backupName(game string) string {
	var sb strings.Builder
	n := 0
	for _, c := range game {
		if n == 30 {
			break
		}
		if unicode.IsLetter(c) || unicode.IsDigit(c) || strings.ContainsRune("._-", c) {
			sb.WriteRune(c)
		} else {
			sb.WriteRune('_')
		}
		n++
	}
	return sb.String()
}

func rgb(c [3]int) color.RGBA {
	clamp := func(v int) uint8 { return uint8(min(max(v, 0), 255)) }
	return color.RGBA{clamp(c[0]), clamp(c[1]), clamp(c[2]), 255}
}
