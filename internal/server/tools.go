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

// detectProperties are the inputs shared by every tool that runs the region
// detector.
func detectProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"min_size": map[string]interface{}{
			"type":        "integer",
			"description": "Smallest region size in pixels to report (inclusive). Default from configuration",
		},
		"max_size": map[string]interface{}{
			"type":        "integer",
			"description": "Largest region size in pixels to report (inclusive). Default from configuration",
		},
		"min_value": map[string]interface{}{
			"type":        "integer",
			"description": "Lowest pixel value of reported regions, 0-255 (inclusive)",
		},
		"max_value": map[string]interface{}{
			"type":        "integer",
			"description": "Highest pixel value of reported regions, 0-255 (inclusive)",
		},
		"threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Binarise the luminance at this level (0-255) before detection; -1 detects on raw values",
		},
		"create_tree": map[string]interface{}{
			"type":        "boolean",
			"description": "Compute which region encloses which (parent_id / child_ids)",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, channel count and bit depth. Cached for subsequent operations.",
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

		// Region Detection
		{
			Name:        "image_detect_regions",
			Description: "Find connected regions of equal pixel value (4-connectivity). Colour images are reduced to luminance first. Returns size, bounding box, centroid and optionally boundary, shape measures, nesting and an annotated overlay.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectProperties(), map[string]interface{}{
					"boundary": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the ordered outer boundary pixels of each region",
						"default":     false,
					},
					"shape": map[string]interface{}{
						"type":        "boolean",
						"description": "Include form factor and principal axes of each region",
						"default":     false,
					},
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Return a PNG with region outlines and IDs drawn over the image",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_crop_region",
			Description: "Crop a region found by the last image_detect_regions or track_frame call on the same image, returned as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"region_id": map[string]interface{}{
						"type":        "integer",
						"description": "Region ID from the last detection",
					},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels added around the bounding box, clipped to the image. Default 0",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "region_id"},
			},
		},

		// Assignment
		{
			Name:        "assignment_solve",
			Description: "Solve a square assignment problem with the Hungarian method. Returns the column assigned to each row and the total of the chosen entries.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"matrix": map[string]interface{}{
						"type":        "array",
						"description": "N×N matrix of finite numbers, one array per row",
						"items": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "number"},
						},
					},
					"maximize": map[string]interface{}{
						"type":        "boolean",
						"description": "Treat the matrix as benefits and maximise the total. Default false (minimise cost)",
						"default":     false,
					},
					"epsilon": map[string]interface{}{
						"type":        "number",
						"description": "Tolerance below which reduced entries count as zero. Default from configuration",
					},
				},
				"required": []string{"matrix"},
			},
		},

		// Tracking
		{
			Name:        "track_frame",
			Description: "Detect regions in a frame and match their centroids to the existing tracks. Returns the track ID of every region plus the active tracks.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectProperties(), map[string]interface{}{
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Return a PNG with region outlines drawn in their track colours",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "track_points",
			Description: "Match a list of points to the existing tracks. Returns the track ID of every point plus the active tracks.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Observed positions for this frame",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "number"},
								"y": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x", "y"},
						},
					},
				},
				"required": []string{"points"},
			},
		},
		{
			Name:        "track_reset",
			Description: "Drop all tracks and restart track IDs at zero.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}
