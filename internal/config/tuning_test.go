package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
)

func TestEmptyConfigMatchesDetectionDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if diff := cmp.Diff(detection.DefaultOptions(), cfg.DetectorOptions()); diff != "" {
		t.Errorf("DetectorOptions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 224, cfg.GetEmbeddingSize())
	assert.Equal(t, "ssd", cfg.GetDefaultMetric())
	assert.True(t, cfg.GetRejectUnknown())
	assert.Equal(t, filepath.Join("data", "features_shape.csv"), cfg.GetFeatureDB())
}

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	require.NotNil(t, cfg.KernelSize)
	assert.Equal(t, 3, *cfg.KernelSize)
	require.NotNil(t, cfg.MinAreaPixels)
	assert.Equal(t, 2000, *cfg.MinAreaPixels)
	assert.NoError(t, cfg.Validate())

	if diff := cmp.Diff(EmptyTuningConfig().DetectorOptions(), cfg.DetectorOptions()); diff != "" {
		t.Errorf("populated defaults drift from getters (-want +got):\n%s", diff)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testJSON := `{
  "kernel_size": 5,
  "erode_steps": 1,
  "connectivity": 4,
  "select_top_k": 3,
  "feature_db": "/abs/db.csv",
  "default_metric": "std",
  "unknown_thresholds": {"shape": 2.5}
}`
	require.NoError(t, mfs.WriteFile("/etc/objrec.json", []byte(testJSON), 0644))

	cfg, err := LoadTuningConfig(mfs, "/etc/objrec.json")
	require.NoError(t, err)

	opts := cfg.DetectorOptions()
	assert.Equal(t, 5, opts.Clean.KernelSize)
	assert.Equal(t, 1, opts.Clean.ErodeSteps)
	assert.Equal(t, 3, opts.Clean.DilateSteps, "omitted fields keep defaults")
	assert.Equal(t, detection.Four, opts.Connectivity)
	assert.Equal(t, 3, opts.Select.TopK)
	assert.Equal(t, "/abs/db.csv", cfg.GetFeatureDB())
	assert.Equal(t, "std", cfg.GetDefaultMetric())
	assert.Equal(t, 2.5, cfg.GetUnknownThreshold("shape"))
	assert.Equal(t, 0.35, cfg.GetUnknownThreshold("cnn"))
	assert.Equal(t, 5.0, EmptyTuningConfig().GetUnknownThreshold("shape"))
	assert.Equal(t, 5.0, EmptyTuningConfig().GetUnknownThreshold("other"), "unnamed extractors use the shape threshold")
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/bad.json", []byte(`{"kernel_size": 4}`), 0644))
	require.NoError(t, mfs.WriteFile("/broken.json", []byte(`{`), 0644))
	require.NoError(t, mfs.WriteFile("/conf.yaml", []byte(`{}`), 0644))
	require.NoError(t, mfs.WriteFile("/huge.json", []byte(strings.Repeat(" ", maxFileSize+1)), 0644))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"invalid value", "/bad.json", "kernel_size"},
		{"bad json", "/broken.json", "failed to parse"},
		{"wrong extension", "/conf.yaml", ".json extension"},
		{"missing", "/missing.json", "failed to stat"},
		{"too large", "/huge.json", "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(mfs, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate(t *testing.T) {
	bad := []*TuningConfig{
		{BinarizeAttempts: ptrInt(0)},
		{BinarizeEpsilon: ptrFloat64(0)},
		{Connectivity: ptrInt(6)},
		{SelectTopK: ptrInt(0)},
		{AreaWeight: ptrFloat64(-1)},
		{EmbeddingSize: ptrInt(1)},
		{DefaultMetric: ptrString("euclid")},
		{UnknownThresholds: map[string]float64{"shape": -1}},
	}
	for i, cfg := range bad {
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
}

func TestValidate_DefaultMetricMatchesParser(t *testing.T) {
	for _, name := range []string{"ssd", "Cosine", " HIST_IX ", "Std", ""} {
		cfg := &TuningConfig{DefaultMetric: ptrString(name)}
		assert.NoError(t, cfg.Validate(), "metric %q", name)
	}
}

func TestLoadFromEnv(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/objrec.json", []byte(`{"data_dir": "/srv/objrec"}`), 0644))

	t.Setenv(EnvConfigPath, "")
	cfg, err := LoadFromEnv(mfs)
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.GetDataDir())

	t.Setenv(EnvConfigPath, "/objrec.json")
	cfg, err = LoadFromEnv(mfs)
	require.NoError(t, err)
	assert.Equal(t, "/srv/objrec", cfg.GetDataDir())
	assert.Equal(t, filepath.Join("/srv/objrec", "features_shape.csv"), cfg.GetFeatureDB())
}

func TestLoadTuningConfig_OSFileSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dilate_steps": 0}`), 0644))

	cfg, err := LoadTuningConfig(fsutil.OSFileSystem{}, path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.GetDilateSteps())
}
