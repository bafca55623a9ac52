package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/blob-tracker-mcp/internal/detection"
	"github.com/ironsheep/blob-tracker-mcp/internal/hungarian"
	"github.com/ironsheep/blob-tracker-mcp/internal/imaging"
)

// createBlobFile writes a 20x16 grayscale PNG with two 4x4 squares of value
// 220 on black, shifted right by dx, and returns its path.
func createBlobFile(t *testing.T, dx int) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 20, 16))
	blob := &image.Uniform{C: color.Gray{Y: 220}}
	draw.Draw(img, image.Rect(2+dx, 2, 6+dx, 6), blob, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10+dx, 8, 14+dx, 12), blob, image.Point{}, draw.Src)

	path := filepath.Join(t.TempDir(), "blobs.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content of a
// successful response into out.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	if out != nil {
		if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
			t.Fatalf("failed to decode %s result: %v", name, err)
		}
	}
	return nil
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	path := createBlobFile(t, 0)

	var info imaging.ImageInfo
	if e := callTool(t, s, "image_load", map[string]interface{}{"path": path}, &info); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}

	if info.Width != 20 || info.Height != 16 {
		t.Errorf("size: got %dx%d, want 20x16", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %q, want png", info.Format)
	}
	if !info.SingleChannel || info.Channels != 1 {
		t.Errorf("gray frame: got channels=%d single=%v", info.Channels, info.SingleChannel)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer(t)
	path := createBlobFile(t, 0)

	var dims imaging.DimensionsResult
	if e := callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}, &dims); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if dims.Width != 20 || dims.Height != 16 {
		t.Errorf("got %dx%d, want 20x16", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_DetectRegions(t *testing.T) {
	s := newTestServer(t)
	path := createBlobFile(t, 0)

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantCount int
	}{
		{"all values", map[string]interface{}{"path": path}, 3},
		{"bright only", map[string]interface{}{"path": path, "min_value": 200}, 2},
		{"background only", map[string]interface{}{"path": path, "max_value": 0}, 1},
		{"too small", map[string]interface{}{"path": path, "min_size": 17, "max_size": 100}, 0},
		{"thresholded", map[string]interface{}{"path": path, "threshold": 128, "min_value": 255}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result DetectRegionsResult
			if e := callTool(t, s, "image_detect_regions", tt.args, &result); e != nil {
				t.Fatalf("Unexpected error: %+v", e)
			}
			if result.Count != tt.wantCount || len(result.Regions) != tt.wantCount {
				t.Errorf("count: got %d (%d regions), want %d", result.Count, len(result.Regions), tt.wantCount)
			}
			if result.Width != 20 || result.Height != 16 {
				t.Errorf("size: got %dx%d", result.Width, result.Height)
			}
		})
	}
}

func TestHandleToolsCall_DetectRegions_Details(t *testing.T) {
	s := newTestServer(t)
	path := createBlobFile(t, 0)

	var result DetectRegionsResult
	args := map[string]interface{}{
		"path":        path,
		"create_tree": true,
		"boundary":    true,
		"shape":       true,
		"overlay":     true,
	}
	if e := callTool(t, s, "image_detect_regions", args, &result); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if result.Count != 3 {
		t.Fatalf("count: got %d, want 3", result.Count)
	}

	var background RegionInfo
	var blobs []RegionInfo
	for _, r := range result.Regions {
		if r.Value == 0 {
			background = r
		} else {
			blobs = append(blobs, r)
		}
	}
	if background.Size != 20*16-32 {
		t.Errorf("background size: got %d", background.Size)
	}
	if len(background.ChildIDs) != 2 {
		t.Errorf("background children: got %v, want 2", background.ChildIDs)
	}
	for _, b := range blobs {
		if b.Size != 16 {
			t.Errorf("blob %d size: got %d, want 16", b.ID, b.Size)
		}
		if b.ParentID != background.ID {
			t.Errorf("blob %d parent: got %d, want %d", b.ID, b.ParentID, background.ID)
		}
		if len(b.Boundary) != 12 {
			t.Errorf("blob %d boundary: got %d pixels, want 12", b.ID, len(b.Boundary))
		}
		if b.PCA == nil || b.FormFactor <= 0 {
			t.Errorf("blob %d: missing shape measures", b.ID)
		}
	}

	if result.Overlay == nil {
		t.Fatal("overlay requested but missing")
	}
	if result.Overlay.Marks != 3 || result.Overlay.MimeType != "image/png" || result.Overlay.ImageBase64 == "" {
		t.Errorf("overlay: got %d marks, mime %q", result.Overlay.Marks, result.Overlay.MimeType)
	}
}

func TestHandleToolsCall_CropRegion(t *testing.T) {
	s := newTestServer(t)
	path := createBlobFile(t, 0)

	var detected DetectRegionsResult
	if e := callTool(t, s, "image_detect_regions", map[string]interface{}{"path": path, "min_value": 200}, &detected); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	region := detected.Regions[0].Snapshot

	var crop imaging.CropResult
	args := map[string]interface{}{"path": path, "region_id": region.ID, "padding": 1}
	if e := callTool(t, s, "image_crop_region", args, &crop); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if crop.Width != 6 || crop.Height != 6 {
		t.Errorf("crop size: got %dx%d, want 6x6", crop.Width, crop.Height)
	}
	if crop.Rect != region.Bounds.Inset(-1) {
		t.Errorf("crop rect: got %v, want %v", crop.Rect, region.Bounds.Inset(-1))
	}

	args["scale"] = 2.0
	if e := callTool(t, s, "image_crop_region", args, &crop); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if crop.Width != 12 || crop.Height != 12 {
		t.Errorf("scaled crop size: got %dx%d, want 12x12", crop.Width, crop.Height)
	}
}

func TestHandleToolsCall_CropRegion_BeforeDetect(t *testing.T) {
	s := newTestServer(t)
	path := createBlobFile(t, 0)

	e := callTool(t, s, "image_crop_region", map[string]interface{}{"path": path, "region_id": 0}, nil)
	if e == nil {
		t.Fatal("crop before detection should fail")
	}
	if e.Code != codeToolFailed {
		t.Errorf("code: got %d, want %d", e.Code, codeToolFailed)
	}
}

func TestHandleToolsCall_AssignmentSolve(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantRows []int
		wantCost float64
	}{
		{
			"minimize",
			map[string]interface{}{"matrix": [][]float64{{4, 1, 3}, {2, 0, 5}, {3, 2, 2}}},
			[]int{1, 0, 2},
			5,
		},
		{
			"maximize",
			map[string]interface{}{"matrix": [][]float64{{1, 5}, {3, 2}}, "maximize": true},
			[]int{1, 0},
			8,
		},
		{
			"empty",
			map[string]interface{}{"matrix": [][]float64{}},
			[]int{},
			0,
		},
		{
			"epsilon",
			map[string]interface{}{"matrix": [][]float64{{1, 2}, {2, 1}}, "epsilon": 0.5},
			[]int{0, 1},
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got hungarian.Assignment[float64]
			if e := callTool(t, s, "assignment_solve", tt.args, &got); e != nil {
				t.Fatalf("Unexpected error: %+v", e)
			}
			if len(got.Rows) != len(tt.wantRows) {
				t.Fatalf("rows: got %v, want %v", got.Rows, tt.wantRows)
			}
			for i := range got.Rows {
				if got.Rows[i] != tt.wantRows[i] {
					t.Errorf("rows: got %v, want %v", got.Rows, tt.wantRows)
					break
				}
			}
			if got.Cost != tt.wantCost {
				t.Errorf("cost: got %v, want %v", got.Cost, tt.wantCost)
			}
		})
	}
}

func TestHandleToolsCall_TrackPoints(t *testing.T) {
	s := newTestServer(t)

	var first TrackResult
	points := []map[string]float64{{"x": 0, "y": 0}, {"x": 100, "y": 100}}
	if e := callTool(t, s, "track_points", map[string]interface{}{"points": points}, &first); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if len(first.IDs) != 2 || first.IDs[0] != 0 || first.IDs[1] != 1 {
		t.Fatalf("first frame IDs: got %v, want [0 1]", first.IDs)
	}

	var second TrackResult
	points = []map[string]float64{{"x": 101, "y": 100}, {"x": 1, "y": 0}}
	if e := callTool(t, s, "track_points", map[string]interface{}{"points": points}, &second); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if len(second.IDs) != 2 || second.IDs[0] != 1 || second.IDs[1] != 0 {
		t.Errorf("second frame IDs: got %v, want [1 0]", second.IDs)
	}
	if len(second.Tracks) != 2 {
		t.Errorf("tracks: got %d, want 2", len(second.Tracks))
	}

	if e := callTool(t, s, "track_reset", nil, nil); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}

	var third TrackResult
	points = []map[string]float64{{"x": 101, "y": 100}}
	if e := callTool(t, s, "track_points", map[string]interface{}{"points": points}, &third); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if len(third.IDs) != 1 || third.IDs[0] != 0 {
		t.Errorf("IDs after reset: got %v, want [0]", third.IDs)
	}
}

func TestHandleToolsCall_TrackFrame(t *testing.T) {
	s := newTestServer(t)
	frame1 := createBlobFile(t, 0)
	frame2 := createBlobFile(t, 1)

	positions := make(map[int]detection.Snapshot)

	var first TrackResult
	args := map[string]interface{}{"path": frame1, "min_value": 200}
	if e := callTool(t, s, "track_frame", args, &first); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if len(first.IDs) != 2 || len(first.Regions) != 2 {
		t.Fatalf("first frame: got %d IDs and %d regions", len(first.IDs), len(first.Regions))
	}
	for i, id := range first.IDs {
		positions[id] = first.Regions[i]
	}

	var second TrackResult
	args = map[string]interface{}{"path": frame2, "min_value": 200, "overlay": true}
	if e := callTool(t, s, "track_frame", args, &second); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if len(second.IDs) != 2 {
		t.Fatalf("second frame: got %d IDs", len(second.IDs))
	}
	for i, id := range second.IDs {
		prev, ok := positions[id]
		if !ok {
			t.Errorf("region %d got new track %d", i, id)
			continue
		}
		if dx := second.Regions[i].CX - prev.CX; dx != 1 {
			t.Errorf("track %d moved by %v in x, want 1", id, dx)
		}
	}
	if second.Overlay == nil || second.Overlay.Marks != 2 {
		t.Errorf("overlay: got %+v", second.Overlay)
	}

	// Regions from track_frame can be cropped too
	var crop imaging.CropResult
	if e := callTool(t, s, "image_crop_region", map[string]interface{}{"path": frame2, "region_id": second.Regions[0].ID}, &crop); e != nil {
		t.Fatalf("Unexpected error: %+v", e)
	}
	if crop.Width != 4 || crop.Height != 4 {
		t.Errorf("crop size: got %dx%d, want 4x4", crop.Width, crop.Height)
	}
}

func TestHandleToolsCall_ErrorCodes(t *testing.T) {
	path := createBlobFile(t, 0)

	tests := []struct {
		name     string
		tool     string
		args     interface{}
		wantCode int
	}{
		{"missing file", "image_load", map[string]interface{}{"path": "/nonexistent/image.png"}, codeToolFailed},
		{"unknown tool", "image_unknown", map[string]interface{}{}, codeToolFailed},
		{"detect without path", "image_detect_regions", map[string]interface{}{}, codeInvalidParams},
		{"value out of range", "image_detect_regions", map[string]interface{}{"path": path, "max_value": 300}, codeInvalidParams},
		{"inverted sizes", "image_detect_regions", map[string]interface{}{"path": path, "min_size": 10, "max_size": 5}, codeInvalidParams},
		{"threshold out of range", "track_frame", map[string]interface{}{"path": path, "threshold": 256}, codeInvalidParams},
		{"non-square matrix", "assignment_solve", map[string]interface{}{"matrix": [][]float64{{1, 2}}}, codeInvalidParams},
		{"ragged matrix", "assignment_solve", map[string]interface{}{"matrix": [][]float64{{1, 2}, {3}}}, codeInvalidParams},
		{"negative epsilon", "assignment_solve", map[string]interface{}{"matrix": [][]float64{{1}}, "epsilon": -1}, codeInvalidParams},
		{"malformed points", "track_points", map[string]interface{}{"points": "here"}, codeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			e := callTool(t, s, tt.tool, tt.args, nil)
			if e == nil {
				t.Fatal("expected an error response")
			}
			if e.Code != tt.wantCode {
				t.Errorf("code: got %d (%s), want %d", e.Code, e.Data, tt.wantCode)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`"not an object"`)})

	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Errorf("got %+v, want invalid params", resp.Error)
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := newTestServer(t)
	path := createBlobFile(t, 0)

	// Order matters: image_crop_region uses the preceding detection
	toolTests := []struct {
		name string
		args map[string]interface{}
	}{
		{"image_load", map[string]interface{}{"path": path}},
		{"image_dimensions", map[string]interface{}{"path": path}},
		{"image_detect_regions", map[string]interface{}{"path": path}},
		{"image_crop_region", map[string]interface{}{"path": path, "region_id": 0}},
		{"assignment_solve", map[string]interface{}{"matrix": [][]float64{{1}}}},
		{"track_frame", map[string]interface{}{"path": path}},
		{"track_points", map[string]interface{}{"points": []map[string]float64{{"x": 1, "y": 2}}}},
		{"track_reset", map[string]interface{}{}},
	}

	if len(toolTests) != len(GetToolDefinitions()) {
		t.Fatalf("test covers %d tools, %d defined", len(toolTests), len(GetToolDefinitions()))
	}

	for _, tt := range toolTests {
		t.Run(tt.name, func(t *testing.T) {
			argsJSON, _ := json.Marshal(tt.args)
			result, err := s.executeTool(tt.name, argsJSON)
			if err != nil {
				t.Fatalf("executeTool(%s) failed: %v", tt.name, err)
			}
			if result == nil {
				t.Errorf("executeTool(%s) returned nil result", tt.name)
			}
		})
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	_, err := s.executeTool("image_load", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
