package detection

import (
	"errors"
	"image"
)

// Foreground and Background are the only values a Mask holds.
const (
	Foreground uint8 = 255
	Background uint8 = 0
)

var (
	// ErrEmptyImage is returned when an input image or mask has no pixels.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrNoDetection is returned by Detector.Detect when no region survives
	// area filtering.
	ErrNoDetection = errors.New("no object detected")
)

// Mask is a single-channel binary image stored row-major.
// Pix[y*Width+x] is Foreground or Background.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Empty reports whether the mask has no pixels.
func (m *Mask) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0
}

// At returns the value at (x, y). Out-of-range coordinates read as background.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Background
	}
	return m.Pix[y*m.Width+x]
}

// Set writes v at (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// IsForeground reports whether (x, y) is a foreground pixel.
func (m *Mask) IsForeground(x, y int) bool {
	return m.At(x, y) != Background
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != Background {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Bounds returns the mask rectangle anchored at the origin.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Crop copies the part of the mask inside r into a new mask whose origin is
// r.Min. r is clipped to the mask bounds first.
func (m *Mask) Crop(r image.Rectangle) *Mask {
	r = r.Intersect(m.Bounds())
	out := NewMask(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		src := (r.Min.Y+y)*m.Width + r.Min.X
		copy(out.Pix[y*out.Width:(y+1)*out.Width], m.Pix[src:src+out.Width])
	}
	return out
}

// Gray returns the mask as an 8-bit grayscale image, for encoding or display.
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		copy(g.Pix[y*g.Stride:y*g.Stride+m.Width], m.Pix[y*m.Width:(y+1)*m.Width])
	}
	return g
}

// MaskFromGray converts a grayscale image into a mask: any non-zero pixel
// becomes foreground.
func MaskFromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < m.Width; x++ {
			if row[x] != 0 {
				m.Pix[y*m.Width+x] = Foreground
			}
		}
	}
	return m
}
