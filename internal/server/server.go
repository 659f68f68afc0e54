package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/object-recognition-mcp/internal/config"
	"github.com/ironsheep/object-recognition-mcp/internal/detection"
	"github.com/ironsheep/object-recognition-mcp/internal/features"
	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
	"github.com/ironsheep/object-recognition-mcp/internal/imaging"
)

// ServerName and ServerVersion are reported in the initialize handshake.
const (
	ServerName    = "object-recognition-mcp"
	ServerVersion = "0.1.0"
)

// Server handles MCP protocol communication
type Server struct {
	cfg *config.TuningConfig
	fs  fsutil.FileSystem
	log logrus.FieldLogger

	in  io.Reader
	out io.Writer

	cache     *imaging.ImageCache
	detector  *detection.Detector
	extractor features.Extractor
	matcher   *features.Matcher
	trainer   *features.Trainer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. The default discards output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// WithFileSystem replaces the OS file system, mainly for tests.
func WithFileSystem(fsys fsutil.FileSystem) Option {
	return func(s *Server) { s.fs = fsys }
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// WithExtractor replaces the shape extractor used by object_match and
// object_enroll, for example with an embedding model.
func WithExtractor(e features.Extractor) Option {
	return func(s *Server) { s.extractor = e }
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server tuned by cfg. A nil cfg uses the defaults.
func New(cfg *config.TuningConfig, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		cfg: cfg,
		fs:  fsutil.OSFileSystem{},
		log: discard,
		in:  os.Stdin,
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cache = imaging.NewImageCache(s.fs)
	s.detector = detection.NewDetector(cfg.DetectorOptions())
	if s.extractor == nil {
		s.extractor = features.NewShapeExtractor(s.detector)
	}
	s.matcher = features.NewMatcher(features.NewCache(s.fs, features.WithLogger(s.log)), features.WithLogger(s.log))
	s.trainer = features.NewTrainer(s.fs, s.extractor, features.WithLogger(s.log))
	return s
}

// Run reads newline-delimited requests until the input closes.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(s.out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("failed to parse request")
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.WithError(err).Error("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.log.WithField("method", req.Method).Debug("request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    ServerName,
				"version": ServerVersion,
			},
		},
	}
}
