package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
)

// AnnotateOptions controls the detection overlay.
type AnnotateOptions struct {
	// CandidateColor and BestColor are hex strings such as "#ffcc00".
	CandidateColor string
	BestColor      string

	// BestThickness is the stroke width of the selected region's box.
	BestThickness int

	// Caption draws the summary line in the top-left corner.
	Caption bool
}

// DefaultAnnotateOptions returns yellow candidates, a thick red best box
// and a caption.
func DefaultAnnotateOptions() AnnotateOptions {
	return AnnotateOptions{
		CandidateColor: "#ffcc00",
		BestColor:      "#ff2020",
		BestThickness:  3,
		Caption:        true,
	}
}

// AnnotateDetection draws det over a copy of img: every candidate's
// oriented box with a thin stroke, the selected region's box with a thick
// stroke and a dot on its centroid.
//
// det may be the partial result returned alongside detection.ErrNoDetection;
// then only the caption is drawn.
func AnnotateDetection(img image.Image, det *detection.Detection, opts AnnotateOptions) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, detection.ErrEmptyImage
	}
	if det == nil {
		return nil, fmt.Errorf("detection is nil")
	}

	candidate, err := parseColor(opts.CandidateColor)
	if err != nil {
		return nil, err
	}
	best, err := parseColor(opts.BestColor)
	if err != nil {
		return nil, err
	}
	thickness := max(opts.BestThickness, 1)

	dst := imaging.Clone(img)

	for _, r := range det.Regions {
		if r.ID == det.Best.Region.ID {
			continue
		}
		drawBox(dst, r.Corners(), candidate, 1)
	}

	found := len(det.Regions) > 0
	if found {
		b := det.Best.Region
		drawBox(dst, b.Corners(), best, thickness)
		c := image.Pt(int(math.Round(b.Centroid.X)), int(math.Round(b.Centroid.Y)))
		fillSquare(dst, c, thickness+1, best)
	}

	if opts.Caption {
		drawCaption(dst, captionFor(det, found))
	}
	return dst, nil
}

func captionFor(det *detection.Detection, found bool) string {
	if !found {
		return fmt.Sprintf("no detection t=%d min=%d", det.Threshold, det.MinArea)
	}
	return fmt.Sprintf("best area=%d peak=%d regions=%d",
		det.Best.Region.Area, det.Best.PeakDistance, len(det.Regions))
}

func parseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

func drawBox(dst *image.NRGBA, corners [4]detection.Vec2, c color.NRGBA, thickness int) {
	for i := range corners {
		a, b := corners[i], corners[(i+1)%len(corners)]
		drawLine(dst,
			image.Pt(int(math.Round(a.X)), int(math.Round(a.Y))),
			image.Pt(int(math.Round(b.X)), int(math.Round(b.Y))),
			c, thickness)
	}
}

// drawLine is Bresenham's algorithm with a square brush.
func drawLine(dst *image.NRGBA, p0, p1 image.Point, c color.NRGBA, thickness int) {
	dx := abs(p1.X - p0.X)
	dy := -abs(p1.Y - p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}

	e := dx + dy
	for {
		fillSquare(dst, p0, thickness, c)
		if p0 == p1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p0.X += sx
		}
		if e2 <= dx {
			e += dx
			p0.Y += sy
		}
	}
}

func fillSquare(dst *image.NRGBA, center image.Point, size int, c color.NRGBA) {
	lo := (size - 1) / 2
	r := image.Rect(center.X-lo, center.Y-lo, center.X-lo+size, center.Y-lo+size)
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func drawCaption(dst *image.NRGBA, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	bg := image.Rect(0, 0, width+6, face.Height+4)
	draw.Draw(dst, bg.Intersect(dst.Bounds()), image.NewUniform(color.NRGBA{A: 200}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(3, face.Ascent+2),
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
