// Package detection finds connected regions in single-channel images.
//
// The RegionDetector groups 4-connected pixels of equal value into regions in a
// single pass over the image. It is the first stage of the blob tracking
// pipeline: regions are reduced to centroids which the tracking package matches
// from frame to frame.
//
// # Algorithm Overview
//
// Labeling works on runs rather than pixels:
//
//  1. Run decomposition: each row is split into maximal runs of pixels with the
//     same classification (exact value inside the value window, one of two
//     background classes outside it)
//  2. Merging: a run touching runs of the same class in the previous row joins
//     their region part; touching several parts merges them in a union-find
//     forest whose segment chains are spliced, never copied
//  3. Finalisation: every surviving root becomes a Region; size, bounds and
//     centroid are computed from run arithmetic
//  4. Nesting (optional): each region is attached to its innermost enclosing
//     region
//  5. Filtering: size and value restrictions select the returned regions
//
// Boundaries are traced lazily with Moore-neighbour tracing the first time
// Region.Boundary is called.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin at the top-left corner of the image bounds
//   - X increases rightward, Y increases downward
//   - Bounding boxes use inclusive Min and exclusive Max
//   - Centroids are means of pixel indices, so a region covering the single
//     pixel (3, 4) has centroid (3, 4)
//
// # Input Depths
//
// The detector labels 8-bit values. 16-bit single-channel images are narrowed
// to their high byte and FloatImage samples are quantised through their window
// before labeling. Multi-channel images are rejected with ErrMultiChannel;
// reduce them first (see imaging.Luminance).
//
// # Lifetime
//
// Regions returned by Detect are owned by the detector and overwritten by the
// next Detect call. Take a Snapshot of anything that must outlive the frame.
package detection
