package features

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
)

// objectImage returns a white 200x200 image with a black rectangle.
func objectImage(r image.Rectangle) *image.NRGBA {
	img := imaging.New(200, 200, color.White)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestShapeExtractor(t *testing.T) {
	ext := NewShapeExtractor(detection.NewDetector(detection.DefaultOptions()))
	assert.Equal(t, ShapeExtractorName, ext.Name())

	vec, err := ext.Extract(objectImage(image.Rect(60, 70, 140, 130)))
	require.NoError(t, err)
	require.Len(t, vec, detection.ShapeVectorLen)
	assert.InDelta(t, 1.0, vec[0], 1e-9)
	assert.InDelta(t, 80.0/60.0, vec[1], 1e-9)

	_, err = ext.Extract(objectImage(image.Rect(10, 10, 12, 12)))
	assert.ErrorIs(t, err, ErrExtractFailed)
	assert.ErrorIs(t, err, detection.ErrNoDetection)
}

func TestExtractorFunc(t *testing.T) {
	boom := errors.New("model not loaded")
	failing := NewExtractorFunc("cnn", func(image.Image) ([]float64, error) { return nil, boom })
	_, err := failing.Extract(nil)
	assert.ErrorIs(t, err, ErrExtractFailed)
	assert.ErrorIs(t, err, boom)

	empty := NewExtractorFunc("cnn", func(image.Image) ([]float64, error) { return nil, nil })
	_, err = empty.Extract(nil)
	assert.ErrorIs(t, err, ErrExtractFailed)

	ok := NewExtractorFunc("cnn", func(image.Image) ([]float64, error) { return []float64{1, 2}, nil })
	vec, err := ok.Extract(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, vec)
	assert.Equal(t, "cnn", ok.Name())
}

func TestClassifier(t *testing.T) {
	m := newTestMatcher(t, "A,0,0\nB,10,10\n")
	var query []float64
	ext := NewExtractorFunc("fixed", func(image.Image) ([]float64, error) { return query, nil })

	strict := NewClassifier(ext, m, ClassifierConfig{DBPath: "/db.csv", Metric: SSD, RejectUnknown: true, Threshold: 1})
	lenient := NewClassifier(ext, m, ClassifierConfig{DBPath: "/db.csv", Metric: SSD})

	query = []float64{0.5, 0}
	got, err := strict.Classify(nil)
	require.NoError(t, err)
	assert.True(t, got.Known)
	assert.Equal(t, "A", got.Label)

	query = []float64{5, 0}
	got, err = strict.Classify(nil)
	require.NoError(t, err)
	assert.False(t, got.Known)
	assert.Equal(t, UnknownLabel, got.Label)
	require.NotNil(t, got.Nearest)
	assert.Equal(t, "A", got.Nearest.Label)
	assert.Equal(t, 25.0, got.Nearest.Distance)

	got, err = lenient.Classify(nil)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Label)

	_, err = strict.ClassifyVector([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestTrainer_EnrollDir(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/shots/nested", 0755))
	require.NoError(t, mfs.WriteFile("/shots/mug_1.png", encodePNG(t, objectImage(image.Rect(50, 50, 150, 100))), 0644))
	require.NoError(t, mfs.WriteFile("/shots/mug_2.png", encodePNG(t, objectImage(image.Rect(40, 60, 150, 110))), 0644))
	require.NoError(t, mfs.WriteFile("/shots/cup.png", encodePNG(t, objectImage(image.Rect(70, 70, 130, 130))), 0644))
	require.NoError(t, mfs.WriteFile("/shots/dot_1.png", encodePNG(t, objectImage(image.Rect(5, 5, 7, 7))), 0644))
	require.NoError(t, mfs.WriteFile("/shots/broken.png", []byte("not a png"), 0644))
	require.NoError(t, mfs.WriteFile("/shots/notes.txt", []byte("ignore me"), 0644))

	ext := NewShapeExtractor(detection.NewDetector(detection.DefaultOptions()))
	trainer := NewTrainer(mfs, ext, WithLogger(quietLogger()))

	report, err := trainer.EnrollDir("/shots", "/data/features_shape.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Enrolled)
	assert.Equal(t, map[string]int{"mug": 2, "cup": 1}, report.Labels)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, "/shots/broken.png", report.Skipped[0].Path)
	assert.Equal(t, "/shots/dot_1.png", report.Skipped[1].Path)

	db, err := NewCache(mfs).Load("/data/features_shape.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, db.Len())
	assert.Equal(t, []int{detection.ShapeVectorLen}, db.Dimensions())
	assert.Equal(t, "/shots/cup.png", db.Entries()[0].Source)

	_, err = trainer.EnrollDir("/missing", "/data/x.csv")
	assert.Error(t, err)
}

func TestTrainer_EnrollAndSaveSample(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	ext := NewExtractorFunc("fixed", func(image.Image) ([]float64, error) { return []float64{0.5, 2}, nil })
	trainer := NewTrainer(mfs, ext)
	img := objectImage(image.Rect(60, 60, 140, 140))

	path, err := trainer.SaveSample(img, "bottle", "/samples")
	require.NoError(t, err)
	assert.Equal(t, "bottle", LabelFromFilename(path))
	assert.True(t, IsImageFile(path))

	data, err := mfs.ReadFile(path)
	require.NoError(t, err)
	decoded, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	entry, err := trainer.Enroll(img, "bottle", path, "/db.csv")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 2}, entry.Vector)

	_, err = trainer.Enroll(img, "  ", path, "/db.csv")
	assert.Error(t, err)

	match, err := NewMatcher(NewCache(mfs)).Match([]float64{0.5, 2}, "/db.csv", SSD)
	require.NoError(t, err)
	assert.Equal(t, "bottle", match.Label)
	assert.Equal(t, path, match.Source)
}
