package features

import (
	"fmt"
	"image"
)

// UnknownLabel is reported when the nearest row is too far away.
const UnknownLabel = "unknown"

// ClassifierConfig selects the database, metric and rejection rule.
type ClassifierConfig struct {
	DBPath string
	Metric MetricType

	// RejectUnknown enables the distance threshold.
	RejectUnknown bool
	Threshold     float64
}

// Classification is a labelled answer for one image.
type Classification struct {
	// Label is the nearest row's label, or UnknownLabel when rejected.
	Label string `json:"label"`

	// Nearest is the raw nearest row, kept even when rejected. It is nil
	// when nothing could be compared.
	Nearest *MatchResult `json:"nearest,omitempty"`

	Known bool `json:"known"`
}

// Classifier combines an Extractor and a Matcher.
type Classifier struct {
	extractor Extractor
	matcher   *Matcher
	cfg       ClassifierConfig
}

// NewClassifier creates a classifier.
func NewClassifier(extractor Extractor, matcher *Matcher, cfg ClassifierConfig) *Classifier {
	return &Classifier{extractor: extractor, matcher: matcher, cfg: cfg}
}

// Classify extracts img's vector and labels it.
func (c *Classifier) Classify(img image.Image) (Classification, error) {
	vec, err := c.extractor.Extract(img)
	if err != nil {
		return Classification{}, err
	}
	return c.ClassifyVector(vec)
}

// ClassifyVector labels an already extracted vector.
func (c *Classifier) ClassifyVector(vec []float64) (Classification, error) {
	nearest, err := c.matcher.Match(vec, c.cfg.DBPath, c.cfg.Metric)
	if err != nil {
		return Classification{}, fmt.Errorf("failed to classify with %s: %w", c.extractor.Name(), err)
	}

	if c.cfg.RejectUnknown && nearest.Distance > c.cfg.Threshold {
		return Classification{Label: UnknownLabel, Nearest: &nearest}, nil
	}
	return Classification{Label: nearest.Label, Nearest: &nearest, Known: true}, nil
}
