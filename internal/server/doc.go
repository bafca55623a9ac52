// Package server implements the MCP (Model Context Protocol) server for blob
// detection and tracking.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//   - Logs: stderr, through the logger package
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Region Detection:
//   - image_detect_regions: Connected regions with size, bounds, centroid,
//     boundary, shape and nesting
//   - image_crop_region: Crop a detected region
//
// Assignment:
//   - assignment_solve: Optimal row to column assignment of a square matrix
//
// Tracking:
//   - track_frame: Detect regions and assign persistent track IDs
//   - track_points: Assign track IDs to caller supplied points
//   - track_reset: Forget all tracks
//
// # State
//
// Frames are cached by path. The server owns one region detector and one
// tracker; tool calls are serialised so that the detector's reusable memory
// and the tracks are never shared between concurrent calls. Defaults for
// optional tool arguments come from the configuration file.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for malformed or out of range arguments, -32000 for any
//     other tool failure
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	cfg, err := config.LoadConfig(path)
//	...
//	srv, err := server.New(cfg, logger.NewZerolog(os.Stderr, zerolog.InfoLevel))
//	...
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
