// Package imaging provides the image plumbing around region detection:
// loading and caching frames, reducing them to a single channel, cropping
// detected regions and drawing region overlays.
//
// All operations work with standard Go image.Image types and use a coordinate system
// where (0,0) is at the top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based. Rectangles are
// image.Rectangle values: Min is inclusive, Max is exclusive. Luminance and
// Threshold keep the bounds of their input, so a region found in a sub-image
// reports coordinates of the parent frame.
//
// # Channel Reduction
//
// The region detector only accepts single-channel images. Colour frames are
// reduced with Luminance (bild's weighted grayscale) or binarised with
// Threshold before detection.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Regions outside image bounds or empty regions
//   - Threshold levels outside 0-255
//   - Overlay colours that are not "#rrggbb" hex strings
//   - File I/O and decode errors during image loading
package imaging
