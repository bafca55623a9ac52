// Package tracking assigns persistent identities to blobs observed across
// frames.
//
// Each frame's observations, usually region centroids from the detection
// package, are matched to the previous frame's tracks by solving a distance
// assignment problem with the hungarian package. Matches farther apart than
// Config.MaxDistance are rejected, unmatched observations open new tracks and
// tracks that go unmatched for more than Config.MaxMissed frames are dropped.
package tracking
