// Package config loads the recognizer's tuning from a JSON file.
//
// Every field is optional. Omitted fields fall back to the defaults returned
// by the Get* accessors, so a partial file only overrides what it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
	"github.com/ironsheep/object-recognition-mcp/internal/features"
	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
)

// EnvConfigPath names the environment variable holding the tuning file path.
const EnvConfigPath = "OBJREC_CONFIG"

// maxFileSize bounds the tuning file (1MB).
const maxFileSize = 1 * 1024 * 1024

// TuningConfig is the root configuration document.
type TuningConfig struct {
	// Binarizer
	BinarizeAttempts      *int     `json:"binarize_attempts,omitempty"`
	BinarizeMaxIterations *int     `json:"binarize_max_iterations,omitempty"`
	BinarizeEpsilon       *float64 `json:"binarize_epsilon,omitempty"`
	BinarizeSeed          *uint64  `json:"binarize_seed,omitempty"`

	// Mask cleaner
	KernelSize  *int  `json:"kernel_size,omitempty"`
	ErodeSteps  *int  `json:"erode_steps,omitempty"`
	DilateSteps *int  `json:"dilate_steps,omitempty"`
	FourWay     *bool `json:"four_way,omitempty"`

	// Labeler and region filter
	Connectivity   *int `json:"connectivity,omitempty"` // 4 or 8
	MinAreaPixels  *int `json:"min_area_pixels,omitempty"`
	MinAreaDivisor *int `json:"min_area_divisor,omitempty"`

	// Selector
	SelectTopK *int     `json:"select_top_k,omitempty"`
	AreaWeight *float64 `json:"area_weight,omitempty"`
	DistWeight *float64 `json:"dist_weight,omitempty"`

	// Matching and enrollment
	EmbeddingSize     *int               `json:"embedding_size,omitempty"`
	DataDir           *string            `json:"data_dir,omitempty"`
	FeatureDB         *string            `json:"feature_db,omitempty"`
	DefaultMetric     *string            `json:"default_metric,omitempty"`
	RejectUnknown     *bool              `json:"reject_unknown,omitempty"`
	UnknownThresholds map[string]float64 `json:"unknown_thresholds,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated with
// its default, suitable for writing out as a starting file.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		BinarizeAttempts:      ptrInt(e.GetBinarizeAttempts()),
		BinarizeMaxIterations: ptrInt(e.GetBinarizeMaxIterations()),
		BinarizeEpsilon:       ptrFloat64(e.GetBinarizeEpsilon()),
		BinarizeSeed:          ptrUint64(e.GetBinarizeSeed()),
		KernelSize:            ptrInt(e.GetKernelSize()),
		ErodeSteps:            ptrInt(e.GetErodeSteps()),
		DilateSteps:           ptrInt(e.GetDilateSteps()),
		FourWay:               ptrBool(e.GetFourWay()),
		Connectivity:          ptrInt(e.GetConnectivity()),
		MinAreaPixels:         ptrInt(e.GetMinAreaPixels()),
		MinAreaDivisor:        ptrInt(e.GetMinAreaDivisor()),
		SelectTopK:            ptrInt(e.GetSelectTopK()),
		AreaWeight:            ptrFloat64(e.GetAreaWeight()),
		DistWeight:            ptrFloat64(e.GetDistWeight()),
		EmbeddingSize:         ptrInt(e.GetEmbeddingSize()),
		DataDir:               ptrString(e.GetDataDir()),
		FeatureDB:             ptrString(e.GetFeatureDB()),
		DefaultMetric:         ptrString(e.GetDefaultMetric()),
		RejectUnknown:         ptrBool(e.GetRejectUnknown()),
		UnknownThresholds:     defaultUnknownThresholds(),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file on fsys.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(fsys fsutil.FileSystem, path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by OBJREC_CONFIG, or returns an empty
// (all-defaults) config when the variable is unset.
func LoadFromEnv(fsys fsutil.FileSystem) (*TuningConfig, error) {
	path := strings.TrimSpace(os.Getenv(EnvConfigPath))
	if path == "" {
		return EmptyTuningConfig(), nil
	}
	return LoadTuningConfig(fsys, path)
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.BinarizeAttempts != nil && *c.BinarizeAttempts < 1 {
		return fmt.Errorf("binarize_attempts must be >= 1, got %d", *c.BinarizeAttempts)
	}
	if c.BinarizeMaxIterations != nil && *c.BinarizeMaxIterations < 1 {
		return fmt.Errorf("binarize_max_iterations must be >= 1, got %d", *c.BinarizeMaxIterations)
	}
	if c.BinarizeEpsilon != nil && *c.BinarizeEpsilon <= 0 {
		return fmt.Errorf("binarize_epsilon must be positive, got %f", *c.BinarizeEpsilon)
	}
	if c.KernelSize != nil && (*c.KernelSize < 3 || *c.KernelSize%2 == 0) {
		return fmt.Errorf("kernel_size must be odd and >= 3, got %d", *c.KernelSize)
	}
	if c.ErodeSteps != nil && *c.ErodeSteps < 0 {
		return fmt.Errorf("erode_steps must be non-negative, got %d", *c.ErodeSteps)
	}
	if c.DilateSteps != nil && *c.DilateSteps < 0 {
		return fmt.Errorf("dilate_steps must be non-negative, got %d", *c.DilateSteps)
	}
	if c.Connectivity != nil && *c.Connectivity != 4 && *c.Connectivity != 8 {
		return fmt.Errorf("connectivity must be 4 or 8, got %d", *c.Connectivity)
	}
	if c.MinAreaPixels != nil && *c.MinAreaPixels < 0 {
		return fmt.Errorf("min_area_pixels must be non-negative, got %d", *c.MinAreaPixels)
	}
	if c.MinAreaDivisor != nil && *c.MinAreaDivisor < 0 {
		return fmt.Errorf("min_area_divisor must be non-negative, got %d", *c.MinAreaDivisor)
	}
	if c.SelectTopK != nil && *c.SelectTopK < 1 {
		return fmt.Errorf("select_top_k must be >= 1, got %d", *c.SelectTopK)
	}
	if c.AreaWeight != nil && *c.AreaWeight < 0 {
		return fmt.Errorf("area_weight must be non-negative, got %f", *c.AreaWeight)
	}
	if c.DistWeight != nil && *c.DistWeight < 0 {
		return fmt.Errorf("dist_weight must be non-negative, got %f", *c.DistWeight)
	}
	if c.EmbeddingSize != nil && *c.EmbeddingSize < 2 {
		return fmt.Errorf("embedding_size must be >= 2, got %d", *c.EmbeddingSize)
	}
	if c.DefaultMetric != nil && strings.TrimSpace(*c.DefaultMetric) != "" {
		if _, err := features.ParseMetric(*c.DefaultMetric); err != nil {
			return fmt.Errorf("default_metric: %w", err)
		}
	}
	for name, v := range c.UnknownThresholds {
		if v < 0 {
			return fmt.Errorf("unknown_thresholds[%s] must be non-negative, got %f", name, v)
		}
	}
	return nil
}

// GetBinarizeAttempts returns the binarize_attempts value or the default.
func (c *TuningConfig) GetBinarizeAttempts() int {
	if c.BinarizeAttempts == nil {
		return 3 // default
	}
	return *c.BinarizeAttempts
}

// GetBinarizeMaxIterations returns the binarize_max_iterations value or the default.
func (c *TuningConfig) GetBinarizeMaxIterations() int {
	if c.BinarizeMaxIterations == nil {
		return 10 // default
	}
	return *c.BinarizeMaxIterations
}

// GetBinarizeEpsilon returns the binarize_epsilon value or the default.
func (c *TuningConfig) GetBinarizeEpsilon() float64 {
	if c.BinarizeEpsilon == nil {
		return 1.0 // default
	}
	return *c.BinarizeEpsilon
}

// GetBinarizeSeed returns the binarize_seed value or the default.
func (c *TuningConfig) GetBinarizeSeed() uint64 {
	if c.BinarizeSeed == nil {
		return 1 // default
	}
	return *c.BinarizeSeed
}

// GetKernelSize returns the kernel_size value or the default.
func (c *TuningConfig) GetKernelSize() int {
	if c.KernelSize == nil {
		return 3 // default
	}
	return *c.KernelSize
}

// GetErodeSteps returns the erode_steps value or the default.
func (c *TuningConfig) GetErodeSteps() int {
	if c.ErodeSteps == nil {
		return 3 // default
	}
	return *c.ErodeSteps
}

// GetDilateSteps returns the dilate_steps value or the default.
func (c *TuningConfig) GetDilateSteps() int {
	if c.DilateSteps == nil {
		return 3 // default
	}
	return *c.DilateSteps
}

// GetFourWay returns the four_way value or the default.
func (c *TuningConfig) GetFourWay() bool {
	if c.FourWay == nil {
		return false // default
	}
	return *c.FourWay
}

// GetConnectivity returns the connectivity value or the default.
func (c *TuningConfig) GetConnectivity() int {
	if c.Connectivity == nil {
		return 8 // default
	}
	return *c.Connectivity
}

// GetMinAreaPixels returns the min_area_pixels value or the default.
func (c *TuningConfig) GetMinAreaPixels() int {
	if c.MinAreaPixels == nil {
		return 2000 // default
	}
	return *c.MinAreaPixels
}

// GetMinAreaDivisor returns the min_area_divisor value or the default.
func (c *TuningConfig) GetMinAreaDivisor() int {
	if c.MinAreaDivisor == nil {
		return 300 // default
	}
	return *c.MinAreaDivisor
}

// GetSelectTopK returns the select_top_k value or the default.
func (c *TuningConfig) GetSelectTopK() int {
	if c.SelectTopK == nil {
		return 5 // default
	}
	return *c.SelectTopK
}

// GetAreaWeight returns the area_weight value or the default.
func (c *TuningConfig) GetAreaWeight() float64 {
	if c.AreaWeight == nil {
		return 0.8 // default
	}
	return *c.AreaWeight
}

// GetDistWeight returns the dist_weight value or the default.
func (c *TuningConfig) GetDistWeight() float64 {
	if c.DistWeight == nil {
		return 0.2 // default
	}
	return *c.DistWeight
}

// GetEmbeddingSize returns the embedding_size value or the default.
func (c *TuningConfig) GetEmbeddingSize() int {
	if c.EmbeddingSize == nil {
		return 224 // default
	}
	return *c.EmbeddingSize
}

// GetDataDir returns the data_dir value or the default.
func (c *TuningConfig) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return "data" // default
	}
	return *c.DataDir
}

// GetFeatureDB returns the feature_db path. A relative path is resolved
// against the data directory.
func (c *TuningConfig) GetFeatureDB() string {
	name := "features_shape.csv" // default
	if c.FeatureDB != nil && *c.FeatureDB != "" {
		name = *c.FeatureDB
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.GetDataDir(), name)
}

// GetDefaultMetric returns the default_metric value or the default.
func (c *TuningConfig) GetDefaultMetric() string {
	if c.DefaultMetric == nil || *c.DefaultMetric == "" {
		return "ssd" // default
	}
	return *c.DefaultMetric
}

// GetRejectUnknown returns the reject_unknown value or the default.
func (c *TuningConfig) GetRejectUnknown() bool {
	if c.RejectUnknown == nil {
		return true // default
	}
	return *c.RejectUnknown
}

// GetUnknownThreshold returns the distance above which a match against the
// named extractor's database is reported as unknown.
func (c *TuningConfig) GetUnknownThreshold(extractor string) float64 {
	if v, ok := c.UnknownThresholds[extractor]; ok {
		return v
	}
	if v, ok := defaultUnknownThresholds()[extractor]; ok {
		return v
	}
	return defaultUnknownThresholds()["shape"]
}

func defaultUnknownThresholds() map[string]float64 {
	return map[string]float64{
		"shape": 5.0,
		"cnn":   0.35,
	}
}

// DetectorOptions assembles the pipeline options for detection.NewDetector.
func (c *TuningConfig) DetectorOptions() detection.Options {
	conn := detection.Eight
	if c.GetConnectivity() == 4 {
		conn = detection.Four
	}
	return detection.Options{
		Binarize: detection.BinarizeOptions{
			Attempts:      c.GetBinarizeAttempts(),
			MaxIterations: c.GetBinarizeMaxIterations(),
			Epsilon:       c.GetBinarizeEpsilon(),
			Seed:          c.GetBinarizeSeed(),
		},
		Clean: detection.CleanOptions{
			KernelSize:  c.GetKernelSize(),
			ErodeSteps:  c.GetErodeSteps(),
			DilateSteps: c.GetDilateSteps(),
			FourWay:     c.GetFourWay(),
		},
		Connectivity:   conn,
		MinAreaPixels:  c.GetMinAreaPixels(),
		MinAreaDivisor: c.GetMinAreaDivisor(),
		Select: detection.SelectOptions{
			TopK:       c.GetSelectTopK(),
			AreaWeight: c.GetAreaWeight(),
			DistWeight: c.GetDistWeight(),
		},
	}
}
