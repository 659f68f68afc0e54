package imaging

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
)

// ColorizeLabels renders a label map with one colour per label. Background
// (label 0) stays black. The palette is drawn from seed, so the same seed
// always gives the same colours.
func ColorizeLabels(labels *detection.LabelMap, seed uint64) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, labels.Width, labels.Height))
	palette := labelPalette(labels.Count, seed)

	for y := 0; y < labels.Height; y++ {
		for x := 0; x < labels.Width; x++ {
			dst.SetNRGBA(x, y, palette[labels.At(x, y)])
		}
	}
	return dst
}

// labelPalette returns count+1 colours; index 0 is opaque black. Hues are
// random, saturation and value stay high enough to read against black.
func labelPalette(count int, seed uint64) []color.NRGBA {
	rng := rand.New(rand.NewPCG(seed, 0x6c6162656c73))
	palette := make([]color.NRGBA, count+1)
	palette[0] = color.NRGBA{A: 255}

	for i := 1; i <= count; i++ {
		c := colorful.Hsv(rng.Float64()*360, 0.6+rng.Float64()*0.4, 0.7+rng.Float64()*0.3)
		r, g, b := c.Clamped().RGB255()
		palette[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return palette
}
