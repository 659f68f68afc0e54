package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

// maskFromRows builds a mask from strings where '#' marks foreground.
func maskFromRows(rows ...string) *Mask {
	m := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				m.Set(x, y, Foreground)
			}
		}
	}
	return m
}

// fillRect marks the w x h block at (x0, y0) as foreground.
func fillRect(m *Mask, x0, y0, w, h int) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			m.Set(x, y, Foreground)
		}
	}
}

// paintImage returns a white RGBA image with black w x h blocks at each origin.
func paintImage(width, height int, blocks ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, b := range blocks {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestMaskAccessors(t *testing.T) {
	m := maskFromRows(
		"#..",
		".##",
	)

	assert.Equal(t, 3, m.Count())
	assert.True(t, m.IsForeground(0, 0))
	assert.False(t, m.IsForeground(1, 0))
	assert.Equal(t, Background, m.At(-1, 0), "out of range reads as background")
	assert.Equal(t, Background, m.At(3, 1))

	m.Set(10, 10, Foreground)
	assert.Equal(t, 3, m.Count(), "out of range writes are ignored")
}

func TestMaskCloneIsIndependent(t *testing.T) {
	m := maskFromRows("##", "..")
	c := m.Clone()
	c.Set(0, 1, Foreground)

	assert.Equal(t, 2, m.Count())
	assert.Equal(t, 3, c.Count())
}

func TestMaskCrop(t *testing.T) {
	m := maskFromRows(
		"....",
		".##.",
		".#..",
		"....",
	)

	got := m.Crop(image.Rect(1, 1, 3, 3))
	want := maskFromRows(
		"##",
		"#.",
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Crop mismatch (-want +got):\n%s", diff)
	}

	clipped := m.Crop(image.Rect(2, 2, 10, 10))
	assert.Equal(t, 2, clipped.Width)
	assert.Equal(t, 2, clipped.Height)
}

func TestMaskGrayRoundTrip(t *testing.T) {
	m := maskFromRows(
		"#.#",
		".#.",
	)
	if diff := cmp.Diff(m, MaskFromGray(m.Gray())); diff != "" {
		t.Errorf("gray round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMaskEmpty(t *testing.T) {
	var nilMask *Mask
	assert.True(t, nilMask.Empty())
	assert.True(t, NewMask(0, 5).Empty())
	assert.False(t, NewMask(1, 1).Empty())
}
