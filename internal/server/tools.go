package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func dbProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Feature database CSV. Defaults to the configured feature_db",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frames
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, file size and the minimum region area the detector applies to it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name:        "object_detect",
			Description: "Find the single dominant object in an image. Binarizes the frame, cleans the mask, labels connected regions and picks the best one by area and interior thickness. Returns found=false when no region is large enough.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"include_regions": map[string]interface{}{
						"type":        "boolean",
						"description": "Also list every region that passed the area filter",
						"default":     false,
					},
					"include_crop": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the selected region's bounding crop as base64 PNG",
						"default":     false,
					},
					"crop_margin": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels added around the crop on every side",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "object_shape_vector",
			Description: "Return the 9-value shape descriptor (fill ratio, aspect ratio, seven log-scaled Hu moments) of the detected object.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "object_embedding_crop",
			Description: "Rotate the detected object so its long axis is horizontal, crop it and resize it to a square embedding input. Returns base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Output side length in pixels. Defaults to the configured embedding_size",
					},
				},
				"required": []string{"path"},
			},
		},

		// Recognition
		{
			Name:        "object_match",
			Description: "Identify the object in an image against a feature database. Returns the nearest label, or \"unknown\" when the distance exceeds the extractor's threshold. A frame with no object (found=false) or a database with no comparable row is reported as unknown with a reason.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"db":   dbProperty(),
					"metric": map[string]interface{}{
						"type":        "string",
						"description": "Distance metric. Defaults to the configured default_metric",
						"enum":        []string{"ssd", "hist_ix", "cosine", "std"},
					},
					"top_n": map[string]interface{}{
						"type":        "integer",
						"description": "Also return the N nearest rows when N > 1",
						"default":     1,
					},
					"reject_unknown": map[string]interface{}{
						"type":        "boolean",
						"description": "Report \"unknown\" for distant matches. Defaults to the configured reject_unknown",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "object_enroll",
			Description: "Extract the object's feature vector and append it to a feature database under a label. Optionally saves the object crop as a sample image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"label": map[string]interface{}{
						"type":        "string",
						"description": "Object label to store",
					},
					"db": dbProperty(),
					"sample_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to save the object crop in, named <label>_<id>.png",
					},
					"crop_margin": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels added around the saved crop",
						"default":     0,
					},
				},
				"required": []string{"path", "label"},
			},
		},
		{
			Name:        "feature_db_info",
			Description: "Describe a feature database: row count, skipped rows, labels and vector dimensions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"db": dbProperty(),
				},
			},
		},

		// Debug views
		{
			Name:        "object_label_map",
			Description: "Render an intermediate detection stage as base64 PNG: the colourised label map, the raw binary mask or the cleaned mask.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"view": map[string]interface{}{
						"type":        "string",
						"description": "Stage to render",
						"enum":        []string{"labels", "mask", "cleaned"},
						"default":     "labels",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Palette seed for the labels view",
						"default":     1,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "object_annotate",
			Description: "Draw every candidate region's oriented box and highlight the selected one. Returns base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"caption": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw a summary caption in the top-left corner",
						"default":     true,
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
