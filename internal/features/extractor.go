package features

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
)

// ErrExtractFailed is returned when an extractor cannot produce a vector.
var ErrExtractFailed = errors.New("feature extraction failed")

// Extractor turns an image into a fixed-length feature vector.
type Extractor interface {
	// Name identifies the extractor; it also keys the unknown-rejection
	// threshold.
	Name() string

	// Extract returns the vector, or an error wrapping ErrExtractFailed.
	Extract(img image.Image) ([]float64, error)
}

// ShapeExtractorName is the Name of ShapeExtractor.
const ShapeExtractorName = "shape"

// ShapeExtractor detects the object and returns its 9-dimensional shape
// vector.
type ShapeExtractor struct {
	detector *detection.Detector
}

// NewShapeExtractor creates a ShapeExtractor around d.
func NewShapeExtractor(d *detection.Detector) *ShapeExtractor {
	return &ShapeExtractor{detector: d}
}

// Name implements Extractor.
func (e *ShapeExtractor) Name() string { return ShapeExtractorName }

// Extract implements Extractor.
func (e *ShapeExtractor) Extract(img image.Image) ([]float64, error) {
	det, err := e.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}
	return det.Best.Region.ShapeVector().Slice(), nil
}

// ExtractorFunc adapts a function, such as a call into an external embedding
// model, to the Extractor interface.
type ExtractorFunc struct {
	name string
	fn   func(image.Image) ([]float64, error)
}

// NewExtractorFunc wraps fn under the given name.
func NewExtractorFunc(name string, fn func(image.Image) ([]float64, error)) *ExtractorFunc {
	return &ExtractorFunc{name: name, fn: fn}
}

// Name implements Extractor.
func (e *ExtractorFunc) Name() string { return e.name }

// Extract implements Extractor.
func (e *ExtractorFunc) Extract(img image.Image) ([]float64, error) {
	vec, err := e.fn(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtractFailed, e.name, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty vector", ErrExtractFailed, e.name)
	}
	return vec, nil
}
