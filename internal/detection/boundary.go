package detection

import "image"

// Moore neighbourhood in clockwise order (image coordinates, y down):
// E, SE, S, SW, W, NW, N, NE.
var mooreOffsets = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const dirWest = 4

func mooreDir(d image.Point) int {
	for i, o := range mooreOffsets {
		if o == d {
			return i
		}
	}
	return dirWest
}

// Boundary returns the outer boundary of the region as an ordered, closed
// sequence of pixels (the last pixel connects back to the first). Pixels on
// thin parts of the region may appear more than once.
//
// The boundary is traced on first use and cached until the next Detect call.
func (r *Region) Boundary() []image.Point {
	if r.boundaryDone {
		return r.boundary
	}
	r.d.ensureLabels()
	r.boundary = r.d.traceBoundary(int32(r.id), r.first, r.size, r.boundary[:0])
	o := r.d.origin
	for i := range r.boundary {
		r.boundary[i] = r.boundary[i].Add(o)
	}
	r.boundaryDone = true
	return r.boundary
}

// traceBoundary follows the outer contour of region id with Moore-neighbour
// tracing, starting at its first pixel. start is the topmost-leftmost pixel,
// so its west neighbour is outside the region. Tracing stops when the first
// move (start to second pixel) is about to be repeated.
func (d *RegionDetector) traceBoundary(id int32, start image.Point, size int, pts []image.Point) []image.Point {
	pts = append(pts, start)
	cur, back := start, dirWest
	maxSteps := 8*size + 8

	for step := 0; step < maxSteps; step++ {
		next, nextBack, ok := d.mooreStep(id, cur, back)
		if !ok {
			break // isolated pixel
		}
		if cur == start && len(pts) > 1 && next == pts[1] {
			break
		}
		pts = append(pts, next)
		cur, back = next, nextBack
	}

	if n := len(pts); n > 1 && pts[n-1] == pts[0] {
		pts = pts[:n-1]
	}
	return pts
}

// mooreStep scans the neighbours of cur clockwise, starting after the
// backtrack direction, and returns the first one in region id together with
// the backtrack direction seen from that pixel.
func (d *RegionDetector) mooreStep(id int32, cur image.Point, back int) (image.Point, int, bool) {
	for k := 1; k <= 8; k++ {
		dir := (back + k) % 8
		n := cur.Add(mooreOffsets[dir])
		if d.labelAt(n.X, n.Y) != id {
			continue
		}
		prev := cur.Add(mooreOffsets[(dir+7)%8])
		return n, mooreDir(prev.Sub(n)), true
	}
	return image.Point{}, 0, false
}
