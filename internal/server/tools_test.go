package server

import (
	"testing"
)

func toolsByName() map[string]Tool {
	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}
	return toolMap
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"image_detect_regions",
		"image_crop_region",
		"assignment_solve",
		"track_frame",
		"track_points",
		"track_reset",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}

	toolMap := toolsByName()
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// Every required parameter must be declared
			required, _ := tool.InputSchema["required"].([]string)
			for _, name := range required {
				if _, ok := props[name]; !ok {
					t.Errorf("required parameter %s not in properties", name)
				}
			}

			for name, p := range props {
				param, ok := p.(map[string]interface{})
				if !ok {
					t.Errorf("%s: parameter should be a map", name)
					continue
				}
				if _, ok := param["type"]; !ok {
					t.Errorf("%s: missing type", name)
				}
			}
		})
	}
}

func TestToolDefinitions_Required(t *testing.T) {
	tests := []struct {
		tool     string
		required []string
	}{
		{"image_load", []string{"path"}},
		{"image_dimensions", []string{"path"}},
		{"image_detect_regions", []string{"path"}},
		{"image_crop_region", []string{"path", "region_id"}},
		{"assignment_solve", []string{"matrix"}},
		{"track_frame", []string{"path"}},
		{"track_points", []string{"points"}},
		{"track_reset", nil},
	}

	toolMap := toolsByName()
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			tool, ok := toolMap[tt.tool]
			if !ok {
				t.Fatalf("Tool %s not found", tt.tool)
			}
			required, _ := tool.InputSchema["required"].([]string)
			if len(required) != len(tt.required) {
				t.Fatalf("required: got %v, want %v", required, tt.required)
			}
			for i := range required {
				if required[i] != tt.required[i] {
					t.Errorf("required: got %v, want %v", required, tt.required)
				}
			}
		})
	}
}

func TestToolDefinitions_DetectorInputs(t *testing.T) {
	detectorInputs := []string{"min_size", "max_size", "min_value", "max_value", "threshold", "create_tree"}

	toolMap := toolsByName()
	for _, name := range []string{"image_detect_regions", "track_frame"} {
		props := toolMap[name].InputSchema["properties"].(map[string]interface{})
		for _, input := range detectorInputs {
			if _, ok := props[input]; !ok {
				t.Errorf("%s: missing detector input %s", name, input)
			}
		}
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	toolDefaults := map[string]map[string]interface{}{
		"image_detect_regions": {"boundary": false, "shape": false, "overlay": false},
		"image_crop_region":    {"padding": 0, "scale": 1.0},
		"assignment_solve":     {"maximize": false},
		"track_frame":          {"overlay": false},
	}

	toolMap := toolsByName()
	for toolName, expectedDefaults := range toolDefaults {
		tool, ok := toolMap[toolName]
		if !ok {
			t.Errorf("Tool %s not found", toolName)
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})

		for paramName, expectedDefault := range expectedDefaults {
			param, ok := props[paramName].(map[string]interface{})
			if !ok {
				t.Errorf("%s.%s: parameter not found or not a map", toolName, paramName)
				continue
			}
			actualDefault, ok := param["default"]
			if !ok {
				t.Errorf("%s.%s: missing default value", toolName, paramName)
				continue
			}
			if actualDefault != expectedDefault {
				t.Errorf("%s.%s: default got %v (%T), want %v (%T)",
					toolName, paramName, actualDefault, actualDefault, expectedDefault, expectedDefault)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}

	expected := GetToolDefinitions()
	if len(toolsList) != len(expected) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(expected))
	}
}
