package detection

import (
	"fmt"
	"image"
)

// Options gathers the tuning of every pipeline stage.
type Options struct {
	Binarize     BinarizeOptions
	Clean        CleanOptions
	Connectivity Connectivity

	// The minimum region area is max(MinAreaPixels, frameArea/MinAreaDivisor).
	MinAreaPixels  int
	MinAreaDivisor int

	Select SelectOptions
}

// DefaultOptions returns the tuning the recognizer ships with.
func DefaultOptions() Options {
	return Options{
		Binarize:       DefaultBinarizeOptions(),
		Clean:          DefaultCleanOptions(),
		Connectivity:   Eight,
		MinAreaPixels:  2000,
		MinAreaDivisor: 300,
		Select:         DefaultSelectOptions(),
	}
}

// MinArea returns the area threshold for a frame of the given size.
func MinArea(frame image.Rectangle, floor, divisor int) int {
	area := frame.Dx() * frame.Dy()
	if divisor <= 0 {
		return floor
	}
	return max(floor, area/divisor)
}

// Detection is the full result of one Detector run. The intermediate masks
// are kept for debug output.
type Detection struct {
	Threshold int
	MinArea   int

	Mask    *Mask
	Cleaned *Mask
	Labels  *LabelMap

	// Regions lists every region that passed the area filter, by id.
	Regions []Region

	// Best is valid only when Regions is non-empty.
	Best Selection
}

// Detector runs binarize, clean, label, extract and select in sequence.
type Detector struct {
	opts Options
}

// NewDetector creates a detector with fixed options.
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts}
}

// Options returns the detector's tuning.
func (d *Detector) Options() Options {
	return d.opts
}

// Detect finds the object in img.
//
// When no region survives the area filter the partially filled Detection is
// returned together with ErrNoDetection, so callers can still inspect the
// masks.
func (d *Detector) Detect(img image.Image) (*Detection, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	mask, threshold, err := Binarize(img, d.opts.Binarize)
	if err != nil {
		return nil, fmt.Errorf("failed to binarize: %w", err)
	}

	cleaned, err := Clean(mask, d.opts.Clean)
	if err != nil {
		return nil, fmt.Errorf("failed to clean mask: %w", err)
	}

	labels := Label(cleaned, d.opts.Connectivity)
	minArea := MinArea(img.Bounds(), d.opts.MinAreaPixels, d.opts.MinAreaDivisor)

	det := &Detection{
		Threshold: threshold,
		MinArea:   minArea,
		Mask:      mask,
		Cleaned:   cleaned,
		Labels:    labels,
		Regions:   ExtractRegions(labels, minArea),
	}

	best, ok := SelectBest(det.Regions, cleaned, labels, d.opts.Select)
	if !ok {
		return det, ErrNoDetection
	}
	det.Best = best
	return det, nil
}
