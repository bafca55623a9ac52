package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/ironsheep/blob-tracker-mcp/internal/detection"
	"github.com/ironsheep/blob-tracker-mcp/internal/hungarian"
	"github.com/ironsheep/blob-tracker-mcp/internal/imaging"
	"github.com/ironsheep/blob-tracker-mcp/internal/tracking"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "track_frame").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errInvalidArgs marks tool failures caused by malformed arguments; they are
// reported as invalid params rather than tool failures.
var errInvalidArgs = errors.New("invalid arguments")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed arguments return -32602, every other tool error -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Error("server", err, map[string]interface{}{"op": params.Name})
		if errors.Is(err, errInvalidArgs) || errors.Is(err, hungarian.ErrInvalidArgument) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

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
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Fills unset optional parameters from the server configuration
//  3. Loads frames through the cache as needed
//  4. Calls the detection, hungarian or tracking package
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Region Detection
	case "image_detect_regions":
		return s.handleDetectRegions(args)
	case "image_crop_region":
		return s.handleCropRegion(args)

	// Assignment
	case "assignment_solve":
		return s.handleAssignmentSolve(args)

	// Tracking
	case "track_frame":
		return s.handleTrackFrame(args)
	case "track_points":
		return s.handleTrackPoints(args)
	case "track_reset":
		return s.handleTrackReset(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{
		Code:    code,
		Message: message,
	}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. Missing arguments decode as an
// empty object.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Region Detection Handlers ===

// detectArgs are shared by every tool that runs the detector. Unset fields
// fall back to the configured defaults.
type detectArgs struct {
	Path       string `json:"path"`
	MinSize    *int   `json:"min_size"`
	MaxSize    *int   `json:"max_size"`
	MinValue   *int   `json:"min_value"`
	MaxValue   *int   `json:"max_value"`
	Threshold  *int   `json:"threshold"`
	CreateTree *bool  `json:"create_tree"`
}

// detect runs the detector on the frame at a.Path. The returned regions are
// valid until the next call.
func (s *Server) detect(a detectArgs) ([]*detection.Region, image.Rectangle, error) {
	if a.Path == "" {
		return nil, image.Rectangle{}, fmt.Errorf("%w: path is required", errInvalidArgs)
	}

	r := s.cfg.Detector.Restrictions
	override := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	override(&r.MinSize, a.MinSize)
	override(&r.MaxSize, a.MaxSize)
	override(&r.MinValue, a.MinValue)
	override(&r.MaxValue, a.MaxValue)
	threshold := s.cfg.Detector.Threshold
	override(&threshold, a.Threshold)
	tree := s.cfg.Detector.CreateTree
	if a.CreateTree != nil {
		tree = *a.CreateTree
	}

	if r.MinValue < 0 || r.MaxValue > 255 || r.MinValue > r.MaxValue || r.MinSize < 0 || r.MaxSize < r.MinSize {
		return nil, image.Rectangle{}, fmt.Errorf("%w: restrictions %+v", errInvalidArgs, r)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	var frame image.Image = img
	switch {
	case threshold >= 0:
		if frame, err = imaging.Threshold(img, threshold); err != nil {
			return nil, image.Rectangle{}, fmt.Errorf("%w: %v", errInvalidArgs, err)
		}
	case !imaging.IsSingleChannel(img):
		if frame, err = s.cache.Luminance(a.Path); err != nil {
			return nil, image.Rectangle{}, err
		}
	}

	s.detector.SetRestrictions(r.MinSize, r.MaxSize, r.MinValue, r.MaxValue)
	s.detector.SetCreateTree(tree)
	regions, err := s.detector.Detect(frame)
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to detect regions: %w", err)
	}

	s.log.Debug("detector", "frame processed", map[string]interface{}{
		"path":    a.Path,
		"regions": len(regions),
		"all":     len(s.detector.AllRegions()),
	})
	return regions, img.Bounds(), nil
}

type detectRegionsArgs struct {
	detectArgs
	Boundary bool `json:"boundary"`
	Shape    bool `json:"shape"`
	Overlay  bool `json:"overlay"`
}

// RegionInfo is the reported form of one detected region.
type RegionInfo struct {
	detection.Snapshot
	FormFactor float64            `json:"form_factor,omitempty"`
	PCA        *detection.PCAInfo `json:"pca,omitempty"`
}

// DetectRegionsResult is returned by image_detect_regions.
type DetectRegionsResult struct {
	Width   int                    `json:"width"`
	Height  int                    `json:"height"`
	Count   int                    `json:"count"`
	Regions []RegionInfo           `json:"regions"`
	Overlay *imaging.OverlayResult `json:"overlay,omitempty"`
}

func (s *Server) handleDetectRegions(args json.RawMessage) (interface{}, error) {
	var a detectRegionsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	regions, bounds, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}

	result := &DetectRegionsResult{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Count:   len(regions),
		Regions: make([]RegionInfo, len(regions)),
	}
	snaps := make([]detection.Snapshot, len(regions))
	for i, r := range regions {
		info := RegionInfo{Snapshot: r.Snapshot(a.Boundary)}
		if a.Shape {
			info.FormFactor = r.FormFactor()
			pca := r.PCA()
			info.PCA = &pca
		}
		result.Regions[i] = info
		snaps[i] = info.Snapshot
	}
	s.last = lastDetection{path: a.Path, regions: snaps}

	if a.Overlay {
		marks := make([]imaging.Mark, len(regions))
		for i, r := range regions {
			marks[i] = imaging.Mark{
				Outline: r.Boundary(),
				Label:   strconv.Itoa(r.ID()),
				Anchor:  r.Bounds().Min,
				Color:   tracking.TrackColor(r.ID()),
			}
		}
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		if result.Overlay, err = imaging.Overlay(img, marks); err != nil {
			return nil, err
		}
	}

	return result, nil
}

type cropRegionArgs struct {
	Path     string  `json:"path"`
	RegionID int     `json:"region_id"`
	Padding  int     `json:"padding"`
	Scale    float64 `json:"scale"`
}

func (s *Server) handleCropRegion(args json.RawMessage) (interface{}, error) {
	var a cropRegionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if s.last.path == "" || s.last.path != a.Path {
		return nil, fmt.Errorf("no detection for %s: call image_detect_regions first", a.Path)
	}

	for _, r := range s.last.regions {
		if r.ID != a.RegionID {
			continue
		}
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		return imaging.CropRegion(img, r.Bounds, a.Padding, a.Scale)
	}
	return nil, fmt.Errorf("%w: region %d not in the last detection of %s", errInvalidArgs, a.RegionID, a.Path)
}

// === Assignment Handlers ===

type assignmentArgs struct {
	Matrix   [][]float64 `json:"matrix"`
	Maximize bool        `json:"maximize"`
	Epsilon  *float64    `json:"epsilon"`
}

func (s *Server) handleAssignmentSolve(args json.RawMessage) (interface{}, error) {
	var a assignmentArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	solver := s.solver
	if a.Epsilon != nil {
		if *a.Epsilon < 0 {
			return nil, fmt.Errorf("%w: epsilon %v is negative", errInvalidArgs, *a.Epsilon)
		}
		solver.Epsilon = *a.Epsilon
	}
	if a.Matrix == nil {
		a.Matrix = [][]float64{}
	}
	return solver.Solve(a.Matrix, !a.Maximize)
}

// === Tracking Handlers ===

// TrackResult is returned by the tracking tools.
type TrackResult struct {
	// IDs holds the track ID of every input point or region, in input order.
	IDs     []int                  `json:"ids"`
	Regions []detection.Snapshot   `json:"regions,omitempty"`
	Tracks  []tracking.Track       `json:"tracks"`
	Overlay *imaging.OverlayResult `json:"overlay,omitempty"`
}

type trackFrameArgs struct {
	detectArgs
	Overlay bool `json:"overlay"`
}

func (s *Server) handleTrackFrame(args json.RawMessage) (interface{}, error) {
	var a trackFrameArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	regions, _, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}
	ids, err := s.tracker.PushRegions(regions)
	if err != nil {
		return nil, err
	}

	result := &TrackResult{
		IDs:     ids,
		Regions: make([]detection.Snapshot, len(regions)),
		Tracks:  s.tracker.Tracks(),
	}
	for i, r := range regions {
		result.Regions[i] = r.Snapshot(false)
	}
	s.last = lastDetection{path: a.Path, regions: result.Regions}

	if a.Overlay {
		marks := make([]imaging.Mark, len(regions))
		for i, r := range regions {
			marks[i] = imaging.Mark{
				Outline: r.Boundary(),
				Label:   strconv.Itoa(ids[i]),
				Anchor:  r.Bounds().Min,
				Color:   tracking.TrackColor(ids[i]),
			}
		}
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		if result.Overlay, err = imaging.Overlay(img, marks); err != nil {
			return nil, err
		}
	}

	s.log.Info("tracker", "frame tracked", map[string]interface{}{
		"path":   a.Path,
		"points": len(ids),
		"tracks": len(result.Tracks),
	})
	return result, nil
}

type trackPointsArgs struct {
	Points []tracking.Point `json:"points"`
}

func (s *Server) handleTrackPoints(args json.RawMessage) (interface{}, error) {
	var a trackPointsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	ids, err := s.tracker.Push(a.Points)
	if err != nil {
		return nil, err
	}
	return &TrackResult{
		IDs:    ids,
		Tracks: s.tracker.Tracks(),
	}, nil
}

func (s *Server) handleTrackReset(args json.RawMessage) (interface{}, error) {
	s.tracker.Reset()
	s.log.Info("tracker", "tracks reset", nil)
	return map[string]interface{}{"reset": true}, nil
}
