package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
)

func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func twoObjectDetection(t *testing.T) (image.Image, *detection.Detection) {
	t.Helper()
	img := createObjectImage(200, 200, image.Rect(20, 20, 120, 120))
	for y := 140; y < 185; y++ {
		for x := 140; x < 190; x++ {
			img.Set(x, y, color.Black)
		}
	}
	det, err := detection.NewDetector(detection.DefaultOptions()).Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(det.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(det.Regions))
	}
	return img, det
}

func TestAnnotateDetection(t *testing.T) {
	img, det := twoObjectDetection(t)

	out, err := AnnotateDetection(img, det, DefaultAnnotateOptions())
	if err != nil {
		t.Fatalf("AnnotateDetection failed: %v", err)
	}
	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), img.Bounds())
	}

	tests := []struct {
		name    string
		x, y    int
		r, g, b uint8
	}{
		{"best box top edge", 70, 20, 0xff, 0x20, 0x20},
		{"best box thick stroke", 70, 21, 0xff, 0x20, 0x20},
		{"best centroid dot", 70, 70, 0xff, 0x20, 0x20},
		{"candidate box top edge", 165, 140, 0xff, 0xcc, 0x00},
		{"untouched background", 100, 160, 0xff, 0xff, 0xff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := rgb8(out.At(tt.x, tt.y))
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("pixel (%d,%d): got (%d,%d,%d), want (%d,%d,%d)", tt.x, tt.y, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}

	// The input frame is never drawn on.
	if r, _, _ := rgb8(img.At(70, 20)); r != 0 {
		t.Error("AnnotateDetection modified its input")
	}
}

func TestAnnotateDetection_Caption(t *testing.T) {
	img, det := twoObjectDetection(t)

	opts := DefaultAnnotateOptions()
	opts.Caption = false
	plain, err := AnnotateDetection(img, det, opts)
	if err != nil {
		t.Fatalf("AnnotateDetection failed: %v", err)
	}
	if r, _, _ := rgb8(plain.At(1, 1)); r != 0xff {
		t.Errorf("without caption (1,1) should stay white, got r=%d", r)
	}

	captioned, err := AnnotateDetection(img, det, DefaultAnnotateOptions())
	if err != nil {
		t.Fatalf("AnnotateDetection failed: %v", err)
	}
	if !isDark(captioned.At(1, 1)) {
		t.Error("caption background should darken the top-left corner")
	}

	want := "best area=10000"
	if got := captionFor(det, true); len(got) < len(want) || got[:len(want)] != want {
		t.Errorf("caption: got %q, want prefix %q", got, want)
	}
}

func TestAnnotateDetection_NoDetection(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)
	partial := &detection.Detection{Threshold: 12, MinArea: 2000}

	out, err := AnnotateDetection(img, partial, DefaultAnnotateOptions())
	if err != nil {
		t.Fatalf("AnnotateDetection failed: %v", err)
	}
	if r, g, b := rgb8(out.At(25, 40)); r != 0xff || g != 0xff || b != 0xff {
		t.Errorf("no boxes expected, got (%d,%d,%d) at (25,40)", r, g, b)
	}
	if got := captionFor(partial, false); got != "no detection t=12 min=2000" {
		t.Errorf("caption: got %q", got)
	}
}

func TestAnnotateDetection_Errors(t *testing.T) {
	img, det := twoObjectDetection(t)

	if _, err := AnnotateDetection(img, nil, DefaultAnnotateOptions()); err == nil {
		t.Error("nil detection should fail")
	}
	if _, err := AnnotateDetection(nil, det, DefaultAnnotateOptions()); err == nil {
		t.Error("nil image should fail")
	}

	opts := DefaultAnnotateOptions()
	opts.BestColor = "red"
	if _, err := AnnotateDetection(img, det, opts); err == nil {
		t.Error("invalid colour should fail")
	}
}

func TestDrawLine(t *testing.T) {
	tests := []struct {
		name   string
		p0, p1 image.Point
		want   int
	}{
		{"horizontal", image.Pt(1, 5), image.Pt(8, 5), 8},
		{"vertical", image.Pt(3, 9), image.Pt(3, 0), 10},
		{"diagonal", image.Pt(0, 0), image.Pt(6, 6), 7},
		{"single point", image.Pt(4, 4), image.Pt(4, 4), 1},
		{"off canvas", image.Pt(-5, 2), image.Pt(15, 2), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := image.NewNRGBA(image.Rect(0, 0, 10, 10))
			drawLine(dst, tt.p0, tt.p1, color.NRGBA{R: 255, A: 255}, 1)

			count := 0
			for i := 0; i < len(dst.Pix); i += 4 {
				if dst.Pix[i] == 255 {
					count++
				}
			}
			if count != tt.want {
				t.Errorf("painted %d pixels, want %d", count, tt.want)
			}
		})
	}
}
