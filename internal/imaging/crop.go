package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
)

// ErrCropTooSmall is returned when an aligned crop collapses to a line or a
// single pixel.
var ErrCropTooSmall = errors.New("crop is too small")

// EncodedImage is a PNG ready to hand back to an MCP client.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// CropSelection cuts the selected region's bounding rectangle out of img,
// grown by margin pixels on every side and clipped to the frame.
func CropSelection(img image.Image, sel detection.Selection, margin int) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, detection.ErrEmptyImage
	}
	if margin < 0 {
		return nil, fmt.Errorf("margin must be >= 0, got %d", margin)
	}

	src := imaging.Clone(img)
	r := sel.Crop.Inset(-margin).Intersect(src.Bounds())
	if r.Dx() <= 1 || r.Dy() <= 1 {
		return nil, fmt.Errorf("selection %v: %w", sel.Crop, ErrCropTooSmall)
	}
	return imaging.Crop(src, r), nil
}

// AlignRegion rotates img about the region's centroid so that the region's
// primary axis lies horizontal, then crops the region's oriented box.
//
// The region must come from a mask the same size as img. The returned
// image is roughly Box.Width by Box.Height pixels; parts of the box that
// fall outside the frame are clipped.
func AlignRegion(img image.Image, region detection.Region) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, detection.ErrEmptyImage
	}
	if region.Area <= 0 {
		return nil, fmt.Errorf("region %d has no area: %w", region.ID, ErrCropTooSmall)
	}

	src := imaging.Clone(img)

	// Centroids are pixel-centre coordinates; bild pivots on a pixel corner.
	centre := region.Centroid.Add(detection.Vec2{X: 0.5, Y: 0.5})
	pivot := image.Pt(int(math.Round(centre.X)), int(math.Round(centre.Y)))

	// bild rotates clockwise in screen space; undo the axis angle.
	angle := -region.Theta * 180 / math.Pi
	rotated := transform.Rotate(src, angle, &transform.RotationOptions{Pivot: &pivot})

	// After rotation E1 and E2 lie along x and y, so the centroid's offset
	// from the pivot is its projection onto them.
	off := centre.Add(detection.Vec2{X: -float64(pivot.X), Y: -float64(pivot.Y)})
	cx := float64(pivot.X) + off.Dot(region.E1)
	cy := float64(pivot.Y) + off.Dot(region.E2)
	r := image.Rect(
		int(math.Floor(cx+region.MinE1)),
		int(math.Floor(cy+region.MinE2)),
		int(math.Ceil(cx+region.MaxE1)),
		int(math.Ceil(cy+region.MaxE2)),
	).Intersect(rotated.Bounds())
	if r.Dx() <= 1 || r.Dy() <= 1 {
		return nil, fmt.Errorf("region %d aligned to %v: %w", region.ID, r, ErrCropTooSmall)
	}

	return imaging.Crop(rotated, r), nil
}

// PrepareEmbedding produces the size x size input an embedding extractor
// expects: the region aligned by AlignRegion, then resized with Lanczos
// filtering. The aspect ratio is not preserved.
func PrepareEmbedding(img image.Image, region detection.Region, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedding size must be > 0, got %d", size)
	}

	aligned, err := AlignRegion(img, region)
	if err != nil {
		return nil, err
	}
	return imaging.Resize(aligned, size, size, imaging.Lanczos), nil
}
