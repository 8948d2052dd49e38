package display

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

var (
	// ErrUnsupportedDepth is returned for framebuffers that are not 16, 24 or 32 bits per pixel
	ErrUnsupportedDepth = errors.New("unsupported framebuffer depth")
	// ErrPermission means the framebuffer device is not writable by this process
	ErrPermission = errors.New("permission denied writing framebuffer")
)

// Descriptor is a snapshot of the framebuffer geometry
type Descriptor struct {
	Width        int
	Height       int
	BitsPerPixel int
	// Stride is the length of one line in bytes; 0 means tightly packed
	Stride int
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%dx%d@%dbpp", d.Width, d.Height, d.BitsPerPixel)
}

// Supported reports whether pixels can be encoded for this depth
func (d Descriptor) Supported() bool {
	switch d.BitsPerPixel {
	case 16, 24, 32:
		return d.Width > 0 && d.Height > 0
	}
	return false
}

// LineLength is the number of bytes between the start of two lines
func (d Descriptor) LineLength() int {
	packed := d.Width * d.BitsPerPixel / 8
	if d.Stride > packed {
		return d.Stride
	}
	return packed
}

// Framebuffer is a raw video output device
type Framebuffer interface {
	Describe() (Descriptor, error)
	Write(buf []byte) error
}

// FBDevice is a Linux fbdev device with its sysfs descriptor directory
type FBDevice struct {
	Device string
	Sysfs  string
}

func (f FBDevice) Describe() (Descriptor, error) {
	size, err := readSysfs(f.Sysfs, "virtual_size")
	if err != nil {
		return Descriptor{}, err
	}
	w, h, ok := strings.Cut(size, ",")
	if !ok {
		return Descriptor{}, fmt.Errorf("unexpected virtual_size %q", size)
	}

	var d Descriptor
	if d.Width, err = strconv.Atoi(w); err != nil {
		return Descriptor{}, fmt.Errorf("unexpected virtual_size %q: %w", size, err)
	}
	if d.Height, err = strconv.Atoi(h); err != nil {
		return Descriptor{}, fmt.Errorf("unexpected virtual_size %q: %w", size, err)
	}

	bpp, err := readSysfs(f.Sysfs, "bits_per_pixel")
	if err != nil {
		return Descriptor{}, err
	}
	if d.BitsPerPixel, err = strconv.Atoi(bpp); err != nil {
		return Descriptor{}, fmt.Errorf("unexpected bits_per_pixel %q: %w", bpp, err)
	}

	// not every driver exposes stride
	if s, err := readSysfs(f.Sysfs, "stride"); err == nil {
		d.Stride, _ = strconv.Atoi(s)
	}
	return d, nil
}

func (f FBDevice) Write(buf []byte) error {
	fb, err := os.OpenFile(f.Device, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return fmt.Errorf("failed to open framebuffer: %w", err)
	}
	defer fb.Close()

	if _, err := fb.WriteAt(buf, 0); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrPermission, err)
		}
		return fmt.Errorf("failed to write framebuffer: %w", err)
	}
	return nil
}

func readSysfs(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to read framebuffer %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Prepare decodes the image file and returns it letterboxed and encoded for d
func Prepare(path string, d Descriptor) ([]byte, error) {
	if !d.Supported() {
		return nil, fmt.Errorf("%w: %d bpp", ErrUnsupportedDepth, d.BitsPerPixel)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hint image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hint image: %w", err)
	}
	return Encode(Letterbox(src, d.Width, d.Height), d)
}

// Letterbox scales src to fit w×h, keeping its aspect ratio, centred on black
func Letterbox(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return dst
	}

	nw, nh := w, h
	if sb.Dx()*h > w*sb.Dy() {
		// wider than the screen: fit width
		nh = max(1, w*sb.Dy()/sb.Dx())
	} else {
		nw = max(1, h*sb.Dx()/sb.Dy())
	}

	x := (w - nw) / 2
	y := (h - nh) / 2
	target := image.Rect(x, y, x+nw, y+nh)
	if nw == sb.Dx() && nh == sb.Dy() {
		draw.Draw(dst, target, src, sb.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, target, src, sb, draw.Src, nil)
	}
	return dst
}

// Encode converts img to the framebuffer's native pixel layout:
// 32bpp is B,G,R,A; 24bpp is B,G,R; 16bpp is little-endian RGB565.
func Encode(img *image.RGBA, d Descriptor) ([]byte, error) {
	if !d.Supported() {
		return nil, fmt.Errorf("%w: %d bpp", ErrUnsupportedDepth, d.BitsPerPixel)
	}

	bpp := d.BitsPerPixel / 8
	line := d.LineLength()
	buf := make([]byte, line*d.Height)
	b := img.Bounds()

	for y := 0; y < d.Height && y < b.Dy(); y++ {
		row := buf[y*line:]
		for x := 0; x < d.Width && x < b.Dx(); x++ {
			i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			r, g, bl, a := img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
			px := row[x*bpp:]

			switch d.BitsPerPixel {
			case 32:
				px[0], px[1], px[2], px[3] = bl, g, r, a
			case 24:
				px[0], px[1], px[2] = bl, g, r
			case 16:
				v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(bl>>3)
				binary.LittleEndian.PutUint16(px, v)
			}
		}
	}
	return buf, nil
}
