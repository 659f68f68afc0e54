package features

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImageFile reports whether path has an extension the trainer decodes.
func IsImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Trainer appends extracted vectors to feature databases.
type Trainer struct {
	fs        fsutil.FileSystem
	extractor Extractor
	log       logrus.FieldLogger
}

// NewTrainer creates a trainer that extracts with extractor and writes
// through fsys.
func NewTrainer(fsys fsutil.FileSystem, extractor Extractor, opts ...Option) *Trainer {
	o := buildOptions(opts)
	return &Trainer{fs: fsys, extractor: extractor, log: o.log}
}

// Extractor returns the trainer's extractor.
func (t *Trainer) Extractor() Extractor {
	return t.extractor
}

// Enroll extracts img's vector and appends it to dbPath under label.
func (t *Trainer) Enroll(img image.Image, label, source, dbPath string) (Entry, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Entry{}, fmt.Errorf("label must not be blank")
	}

	vec, err := t.extractor.Extract(img)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{Label: label, Source: source, Vector: vec}
	if err := Append(t.fs, dbPath, e); err != nil {
		return Entry{}, err
	}

	t.log.WithFields(logrus.Fields{
		"label":     label,
		"source":    source,
		"db":        dbPath,
		"extractor": t.extractor.Name(),
		"dim":       len(vec),
	}).Info("enrolled sample")
	return e, nil
}

// SaveSample writes img as a PNG named "<label>_<id>.png" under dir and
// returns its path. LabelFromFilename recovers label from the name.
func (t *Trainer) SaveSample(img image.Image, label, dir string) (string, error) {
	if err := t.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode sample: %w", err)
	}

	name := fmt.Sprintf("%s_%s.png", label, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	path := filepath.Join(dir, name)
	if err := t.fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write sample: %w", err)
	}
	return path, nil
}

// SkippedFile records an image the trainer could not enroll.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// EnrollReport summarises an EnrollDir run.
type EnrollReport struct {
	Enrolled int            `json:"enrolled"`
	Labels   map[string]int `json:"labels"`
	Skipped  []SkippedFile  `json:"skipped,omitempty"`
}

// EnrollDir enrolls every image directly inside dir, labelling each one with
// LabelFromFilename. Files that fail to decode or extract are reported in
// Skipped; only a failure to list dir is returned as an error.
func (t *Trainer) EnrollDir(dir, dbPath string) (EnrollReport, error) {
	report := EnrollReport{Labels: make(map[string]int)}

	entries, err := t.fs.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		img, err := t.decode(path)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Reason: err.Error()})
			t.log.WithField("path", path).WithError(err).Warn("skipping image")
			continue
		}

		label := LabelFromFilename(path)
		if _, err := t.Enroll(img, label, path, dbPath); err != nil {
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Reason: err.Error()})
			t.log.WithField("path", path).WithError(err).Warn("skipping image")
			continue
		}
		report.Enrolled++
		report.Labels[label]++
	}
	return report, nil
}

func (t *Trainer) decode(path string) (image.Image, error) {
	data, err := t.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
