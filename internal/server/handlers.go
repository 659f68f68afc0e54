package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/object-recognition-mcp/internal/detection"
	"github.com/ironsheep/object-recognition-mcp/internal/features"
	"github.com/ironsheep/object-recognition-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "object_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	entry := s.log.WithFields(logrus.Fields{
		"tool":     params.Name,
		"duration": time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	entry.Debug("tool succeeded")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Frames
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Detection
	case "object_detect":
		return s.handleObjectDetect(args)
	case "object_shape_vector":
		return s.handleObjectShapeVector(args)
	case "object_embedding_crop":
		return s.handleObjectEmbeddingCrop(args)

	// Recognition
	case "object_match":
		return s.handleObjectMatch(args)
	case "object_enroll":
		return s.handleObjectEnroll(args)
	case "feature_db_info":
		return s.handleFeatureDBInfo(args)

	// Debug views
	case "object_label_map":
		return s.handleObjectLabelMap(args)
	case "object_annotate":
		return s.handleObjectAnnotate(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// detect loads path and runs the detector. A frame with no object is not an
// error here; callers check len(det.Regions).
func (s *Server) detect(path string) (image.Image, *detection.Detection, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, nil, err
	}
	det, err := s.detector.Detect(img)
	if err != nil && !errors.Is(err, detection.ErrNoDetection) {
		return nil, nil, err
	}
	return img, det, nil
}

// detectObject is detect for tools that need a selected region.
func (s *Server) detectObject(path string) (image.Image, *detection.Detection, error) {
	img, det, err := s.detect(path)
	if err != nil {
		return nil, nil, err
	}
	if len(det.Regions) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", path, detection.ErrNoDetection)
	}
	return img, det, nil
}

func (s *Server) dbPath(arg string) string {
	if arg = strings.TrimSpace(arg); arg != "" {
		return arg
	}
	return s.cfg.GetFeatureDB()
}

func (s *Server) metric(arg string) (features.MetricType, error) {
	if arg = strings.TrimSpace(arg); arg == "" {
		arg = s.cfg.GetDefaultMetric()
	}
	return features.ParseMetric(arg)
}

// === Result types ===

type pointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type rectJSON struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type boxJSON struct {
	Center       pointJSON    `json:"center"`
	Width        float64      `json:"width"`
	Height       float64      `json:"height"`
	AngleDegrees float64      `json:"angle_degrees"`
	Corners      [4]pointJSON `json:"corners"`
}

type regionJSON struct {
	ID           int       `json:"id"`
	Area         int       `json:"area"`
	Bounds       rectJSON  `json:"bounds"`
	Centroid     pointJSON `json:"centroid"`
	Box          boxJSON   `json:"box"`
	FillRatio    float64   `json:"fill_ratio"`
	AspectRatio  float64   `json:"aspect_ratio"`
	ThetaDegrees float64   `json:"theta_degrees"`
}

type selectionJSON struct {
	Region       regionJSON `json:"region"`
	Score        float64    `json:"score"`
	PeakDistance int        `json:"peak_distance"`
	Crop         rectJSON   `json:"crop"`
}

func toPoint(v detection.Vec2) pointJSON {
	return pointJSON{X: round3(v.X), Y: round3(v.Y)}
}

func toRect(r image.Rectangle) rectJSON {
	return rectJSON{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

func toRegion(r detection.Region) regionJSON {
	out := regionJSON{
		ID:       r.ID,
		Area:     r.Area,
		Bounds:   toRect(r.Bounds),
		Centroid: toPoint(r.Centroid),
		Box: boxJSON{
			Center:       toPoint(r.Box.Center),
			Width:        round3(r.Box.Width),
			Height:       round3(r.Box.Height),
			AngleDegrees: round3(r.Box.Angle * 180 / math.Pi),
		},
		FillRatio:    round3(r.FillRatio),
		AspectRatio:  round3(r.AspectRatio),
		ThetaDegrees: round3(r.Theta * 180 / math.Pi),
	}
	for i, c := range r.Corners() {
		out.Box.Corners[i] = toPoint(c)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// === Frame Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := s.detector.Options()
	return imaging.LoadImageInfo(s.cache, a.Path, func(r image.Rectangle) int {
		return detection.MinArea(r, opts.MinAreaPixels, opts.MinAreaDivisor)
	})
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Detection Handlers ===

type objectDetectArgs struct {
	Path           string `json:"path"`
	IncludeRegions bool   `json:"include_regions"`
	IncludeCrop    bool   `json:"include_crop"`
	CropMargin     int    `json:"crop_margin"`
}

type objectDetectResult struct {
	Found       bool                  `json:"found"`
	Threshold   int                   `json:"threshold"`
	MinArea     int                   `json:"min_area"`
	RegionCount int                   `json:"region_count"`
	Best        *selectionJSON        `json:"best,omitempty"`
	Regions     []regionJSON          `json:"regions,omitempty"`
	Crop        *imaging.EncodedImage `json:"crop,omitempty"`
}

func (s *Server) handleObjectDetect(args json.RawMessage) (interface{}, error) {
	var a objectDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, det, err := s.detect(a.Path)
	if err != nil {
		return nil, err
	}

	result := &objectDetectResult{
		Found:       len(det.Regions) > 0,
		Threshold:   det.Threshold,
		MinArea:     det.MinArea,
		RegionCount: len(det.Regions),
	}
	if a.IncludeRegions {
		for _, r := range det.Regions {
			result.Regions = append(result.Regions, toRegion(r))
		}
	}
	if !result.Found {
		return result, nil
	}

	result.Best = &selectionJSON{
		Region:       toRegion(det.Best.Region),
		Score:        round3(det.Best.Score),
		PeakDistance: det.Best.PeakDistance,
		Crop:         toRect(det.Best.Crop),
	}
	if a.IncludeCrop {
		crop, err := imaging.CropSelection(img, det.Best, a.CropMargin)
		if err != nil {
			return nil, err
		}
		if result.Crop, err = imaging.EncodePNG(crop); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type shapeVectorResult struct {
	RegionID   int       `json:"region_id"`
	Components []string  `json:"components"`
	Vector     []float64 `json:"vector"`
}

var shapeComponents = []string{"fill_ratio", "aspect_ratio", "hu1", "hu2", "hu3", "hu4", "hu5", "hu6", "hu7"}

func (s *Server) handleObjectShapeVector(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, det, err := s.detectObject(a.Path)
	if err != nil {
		return nil, err
	}
	return &shapeVectorResult{
		RegionID:   det.Best.Region.ID,
		Components: shapeComponents,
		Vector:     det.Best.Region.ShapeVector().Slice(),
	}, nil
}

type objectEmbeddingCropArgs struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

func (s *Server) handleObjectEmbeddingCrop(args json.RawMessage) (interface{}, error) {
	var a objectEmbeddingCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Size == 0 {
		a.Size = s.cfg.GetEmbeddingSize()
	}
	img, det, err := s.detectObject(a.Path)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.PrepareEmbedding(img, det.Best.Region, a.Size)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(crop)
}

// === Recognition Handlers ===

type objectMatchArgs struct {
	Path          string `json:"path"`
	DB            string `json:"db"`
	Metric        string `json:"metric"`
	TopN          int    `json:"top_n"`
	RejectUnknown *bool  `json:"reject_unknown"`
}

type objectMatchResult struct {
	// Found is false when the frame holds no object.
	Found bool `json:"found"`
	features.Classification

	// Reason explains an answer with no nearest row.
	Reason string `json:"reason,omitempty"`

	Extractor  string                 `json:"extractor"`
	Metric     string                 `json:"metric"`
	DB         string                 `json:"db"`
	Threshold  float64                `json:"threshold"`
	Candidates []features.MatchResult `json:"candidates,omitempty"`
}

func (s *Server) handleObjectMatch(args json.RawMessage) (interface{}, error) {
	var a objectMatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	metric, err := s.metric(a.Metric)
	if err != nil {
		return nil, err
	}
	reject := s.cfg.GetRejectUnknown()
	if a.RejectUnknown != nil {
		reject = *a.RejectUnknown
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	cfg := features.ClassifierConfig{
		DBPath:        s.dbPath(a.DB),
		Metric:        metric,
		RejectUnknown: reject,
		Threshold:     s.cfg.GetUnknownThreshold(s.extractor.Name()),
	}
	result := &objectMatchResult{
		Found:          true,
		Classification: features.Classification{Label: features.UnknownLabel},
		Extractor:      s.extractor.Name(),
		Metric:         metric.String(),
		DB:             cfg.DBPath,
		Threshold:      cfg.Threshold,
	}

	// No object and no comparable row are answers, not failures.
	vec, err := s.extractor.Extract(img)
	if errors.Is(err, detection.ErrNoDetection) {
		result.Found = false
		result.Reason = err.Error()
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	cls, err := features.NewClassifier(s.extractor, s.matcher, cfg).ClassifyVector(vec)
	if errors.Is(err, features.ErrNoMatch) {
		result.Reason = err.Error()
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Classification = cls

	if a.TopN > 1 {
		if result.Candidates, err = s.matcher.TopN(vec, cfg.DBPath, metric, a.TopN); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type objectEnrollArgs struct {
	Path       string `json:"path"`
	Label      string `json:"label"`
	DB         string `json:"db"`
	SampleDir  string `json:"sample_dir"`
	CropMargin int    `json:"crop_margin"`
}

type objectEnrollResult struct {
	Label     string    `json:"label"`
	Source    string    `json:"source"`
	DB        string    `json:"db"`
	Extractor string    `json:"extractor"`
	Vector    []float64 `json:"vector"`
}

func (s *Server) handleObjectEnroll(args json.RawMessage) (interface{}, error) {
	var a objectEnrollArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Label) == "" {
		return nil, fmt.Errorf("label is required")
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	source := a.Path
	if a.SampleDir != "" {
		_, det, err := s.detectObject(a.Path)
		if err != nil {
			return nil, err
		}
		crop, err := imaging.CropSelection(img, det.Best, a.CropMargin)
		if err != nil {
			return nil, err
		}
		if source, err = s.trainer.SaveSample(crop, strings.TrimSpace(a.Label), a.SampleDir); err != nil {
			return nil, err
		}
	}

	db := s.dbPath(a.DB)
	entry, err := s.trainer.Enroll(img, a.Label, source, db)
	if err != nil {
		return nil, err
	}
	return &objectEnrollResult{
		Label:     entry.Label,
		Source:    entry.Source,
		DB:        db,
		Extractor: s.trainer.Extractor().Name(),
		Vector:    entry.Vector,
	}, nil
}

type featureDBInfoArgs struct {
	DB string `json:"db"`
}

type featureDBInfoResult struct {
	Path       string    `json:"path"`
	Rows       int       `json:"rows"`
	Skipped    int       `json:"skipped"`
	Labels     []string  `json:"labels"`
	Dimensions []int     `json:"dimensions"`
	SizeBytes  int64     `json:"size_bytes"`
	ModTime    time.Time `json:"mod_time"`
}

func (s *Server) handleFeatureDBInfo(args json.RawMessage) (interface{}, error) {
	var a featureDBInfoArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}
	db, err := s.matcher.Cache().Load(s.dbPath(a.DB))
	if err != nil {
		return nil, err
	}
	fp := db.Fingerprint()
	return &featureDBInfoResult{
		Path:       db.Path(),
		Rows:       db.Len(),
		Skipped:    db.Skipped(),
		Labels:     db.Labels(),
		Dimensions: db.Dimensions(),
		SizeBytes:  fp.Size,
		ModTime:    fp.ModTime,
	}, nil
}

// === Debug View Handlers ===

type objectLabelMapArgs struct {
	Path string `json:"path"`
	View string `json:"view"`
	Seed uint64 `json:"seed"`
}

type labelMapResult struct {
	*imaging.EncodedImage
	View        string `json:"view"`
	Threshold   int    `json:"threshold"`
	LabelCount  int    `json:"label_count"`
	RegionCount int    `json:"region_count"`
}

func (s *Server) handleObjectLabelMap(args json.RawMessage) (interface{}, error) {
	var a objectLabelMapArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.View == "" {
		a.View = "labels"
	}
	if a.Seed == 0 {
		a.Seed = 1
	}

	_, det, err := s.detect(a.Path)
	if err != nil {
		return nil, err
	}

	var view image.Image
	switch a.View {
	case "labels":
		view = imaging.ColorizeLabels(det.Labels, a.Seed)
	case "mask":
		view = det.Mask.Gray()
	case "cleaned":
		view = det.Cleaned.Gray()
	default:
		return nil, fmt.Errorf("unknown view: %s (want labels, mask or cleaned)", a.View)
	}

	encoded, err := imaging.EncodePNG(view)
	if err != nil {
		return nil, err
	}
	return &labelMapResult{
		EncodedImage: encoded,
		View:         a.View,
		Threshold:    det.Threshold,
		LabelCount:   det.Labels.Count,
		RegionCount:  len(det.Regions),
	}, nil
}

type objectAnnotateArgs struct {
	Path    string `json:"path"`
	Caption *bool  `json:"caption"`
}

type annotateResult struct {
	*imaging.EncodedImage
	Found bool `json:"found"`
}

func (s *Server) handleObjectAnnotate(args json.RawMessage) (interface{}, error) {
	var a objectAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, det, err := s.detect(a.Path)
	if err != nil {
		return nil, err
	}

	opts := imaging.DefaultAnnotateOptions()
	if a.Caption != nil {
		opts.Caption = *a.Caption
	}
	out, err := imaging.AnnotateDetection(img, det, opts)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(out)
	if err != nil {
		return nil, err
	}
	return &annotateResult{EncodedImage: encoded, Found: len(det.Regions) > 0}, nil
}
