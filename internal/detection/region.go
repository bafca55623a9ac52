package detection

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Region is a connected component found by a RegionDetector.
//
// All coordinates are in the coordinate space of the detected image. A Region
// belongs to the detector that produced it and is only valid until that
// detector's next Detect call.
type Region struct {
	d    *RegionDetector
	id   int
	part int32

	key   int
	value int
	size  int

	// Local (unshifted) geometry.
	bounds image.Rectangle
	first  image.Point
	sumX2  int64 // twice the sum of x over all pixels
	sumY   int64

	parent   *Region
	children []*Region

	boundary     []image.Point
	boundaryDone bool
}

func (r *Region) reset(d *RegionDetector, id int, part int32) {
	p := &d.f.parts[part]
	*r = Region{
		d:        d,
		id:       id,
		part:     part,
		key:      p.key,
		value:    int(p.value),
		children: r.children[:0],
		boundary: r.boundary[:0],
	}
}

// finalize derives size, bounds, centroid sums and first pixel from the
// region's segment chain.
func (r *Region) finalize() {
	f := &r.d.f
	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := math.MinInt, math.MinInt
	first := image.Point{X: math.MaxInt, Y: math.MaxInt}

	for s := f.parts[r.part].head; s >= 0; s = f.segs[s].next {
		seg := &f.segs[s]
		n := seg.len()
		r.size += n
		r.sumX2 += int64(seg.x0+seg.x1-1) * int64(n)
		r.sumY += int64(seg.y) * int64(n)

		minX = min(minX, seg.x0)
		maxX = max(maxX, seg.x1)
		minY = min(minY, seg.y)
		maxY = max(maxY, seg.y+1)
		if seg.y < first.Y || (seg.y == first.Y && seg.x0 < first.X) {
			first = image.Point{X: seg.x0, Y: seg.y}
		}
	}
	r.bounds = image.Rect(minX, minY, maxX, maxY)
	r.first = first
}

// ID is the index of the region among all regions of its frame, in scan
// order. IDs are stable only within one Detect result.
func (r *Region) ID() int { return r.id }

// Size returns the number of pixels in the region.
func (r *Region) Size() int { return r.size }

// Value returns the pixel value of the region. Background regions (outside
// the value window) report the value of their first pixel.
func (r *Region) Value() int { return r.value }

// Bounds returns the bounding rectangle; Max is exclusive.
func (r *Region) Bounds() image.Rectangle {
	return r.bounds.Add(r.d.origin)
}

// FirstPixel returns the topmost, then leftmost pixel of the region.
func (r *Region) FirstPixel() image.Point {
	return r.first.Add(r.d.origin)
}

// Centroid returns the center of gravity in pixel coordinates. It is the
// length weighted mean of the segment midpoints and exact for regions whose
// coordinate sums fit in a float64 mantissa.
func (r *Region) Centroid() (x, y float64) {
	n := float64(r.size)
	x = float64(r.sumX2)/(2*n) + float64(r.d.origin.X)
	y = float64(r.sumY)/n + float64(r.d.origin.Y)
	return x, y
}

// Parent returns the innermost region enclosing r, or nil. Always nil unless
// the detector builds a tree. The parent may be a region that was filtered
// out of the Detect result.
func (r *Region) Parent() *Region { return r.parent }

// Children returns the regions directly enclosed by r.
func (r *Region) Children() []*Region { return r.children }

// Segments returns the runs making up the region. Order is unspecified.
func (r *Region) Segments() []LineSegment {
	f := &r.d.f
	out := make([]LineSegment, 0, f.parts[r.part].segCount)
	o := r.d.origin
	for s := f.parts[r.part].head; s >= 0; s = f.segs[s].next {
		seg := &f.segs[s]
		out = append(out, LineSegment{
			Y:     seg.y + o.Y,
			X0:    seg.x0 + o.X,
			X1:    seg.x1 + o.X,
			Value: int(seg.value),
		})
	}
	return out
}

// Contains reports whether pixel p belongs to the region.
func (r *Region) Contains(p image.Point) bool {
	p = p.Sub(r.d.origin)
	if !p.In(r.bounds) {
		return false
	}
	if r.d.labelsReady {
		return r.d.labelAt(p.X, p.Y) == int32(r.id)
	}
	f := &r.d.f
	for s := f.parts[r.part].head; s >= 0; s = f.segs[s].next {
		seg := &f.segs[s]
		if seg.y == p.Y && p.X >= seg.x0 && p.X < seg.x1 {
			return true
		}
	}
	return false
}

// touchesBorder reports whether the region reaches the image edge.
func (r *Region) touchesBorder() bool {
	return r.bounds.Min.X == 0 || r.bounds.Min.Y == 0 ||
		r.bounds.Max.X == r.d.width || r.bounds.Max.Y == r.d.height
}

// BoundaryLength returns the length of the closed boundary polyline.
func (r *Region) BoundaryLength() float64 {
	b := r.Boundary()
	if len(b) < 2 {
		return 0
	}
	var l float64
	prev := b[len(b)-1]
	for _, p := range b {
		l += math.Hypot(float64(p.X-prev.X), float64(p.Y-prev.Y))
		prev = p
	}
	return l
}

// FormFactor returns BoundaryLength² / (4π·Size). Compact shapes score close
// to 1, elongated or ragged ones higher.
func (r *Region) FormFactor() float64 {
	if r.size == 0 {
		return 0
	}
	l := r.BoundaryLength()
	return l * l / (4 * math.Pi * float64(r.size))
}

// PCAInfo describes the second moments of a region as an ellipse.
type PCAInfo struct {
	// MajorRadius and MinorRadius are the semi-axes of the ellipse with the
	// same second moments as the region.
	MajorRadius float64 `json:"major_radius"`
	MinorRadius float64 `json:"minor_radius"`

	// Angle is the orientation of the major axis in radians, in (-π/2, π/2],
	// measured from the x axis towards increasing y.
	Angle float64 `json:"angle"`
}

// PCA returns the principal axes of the region's pixel distribution.
func (r *Region) PCA() PCAInfo {
	if r.size < 2 {
		return PCAInfo{}
	}
	var sx, sy, sxx, syy, sxy float64
	f := &r.d.f
	for s := f.parts[r.part].head; s >= 0; s = f.segs[s].next {
		seg := &f.segs[s]
		n := float64(seg.len())
		y := float64(seg.y)
		rowX := float64(seg.x0+seg.x1-1) * n / 2
		rowXX := sumSquares(seg.x1-1) - sumSquares(seg.x0-1)
		sx += rowX
		sxx += rowXX
		sy += y * n
		syy += y * y * n
		sxy += y * rowX
	}
	n := float64(r.size)
	mx, my := sx/n, sy/n
	cxx := sxx/n - mx*mx
	cyy := syy/n - my*my
	cxy := sxy/n - mx*my

	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(2, []float64{cxx, cxy, cxy, cyy}), true) {
		return PCAInfo{}
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	angle := math.Atan2(vecs.At(1, 1), vecs.At(0, 1))
	if angle <= -math.Pi/2 {
		angle += math.Pi
	} else if angle > math.Pi/2 {
		angle -= math.Pi
	}
	return PCAInfo{
		MajorRadius: 2 * math.Sqrt(math.Max(vals[1], 0)),
		MinorRadius: 2 * math.Sqrt(math.Max(vals[0], 0)),
		Angle:       angle,
	}
}

// sumSquares returns 0² + 1² + ... + n² for n >= -1.
func sumSquares(n int) float64 {
	if n <= 0 {
		return 0
	}
	v := float64(n)
	return v * (v + 1) * (2*v + 1) / 6
}

// Snapshot is a caller-owned copy of a Region that survives later Detect
// calls.
type Snapshot struct {
	ID       int             `json:"id"`
	Size     int             `json:"size"`
	Value    int             `json:"value"`
	Bounds   image.Rectangle `json:"bounds"`
	CX       float64         `json:"cx"`
	CY       float64         `json:"cy"`
	ParentID int             `json:"parent_id"`
	ChildIDs []int           `json:"child_ids,omitempty"`
	Boundary []image.Point   `json:"boundary,omitempty"`
}

// Snapshot copies the region's attributes. ParentID is -1 for regions without
// a parent. The boundary is traced and copied only if withBoundary is set.
func (r *Region) Snapshot(withBoundary bool) Snapshot {
	cx, cy := r.Centroid()
	s := Snapshot{
		ID:       r.id,
		Size:     r.size,
		Value:    r.value,
		Bounds:   r.Bounds(),
		CX:       cx,
		CY:       cy,
		ParentID: -1,
	}
	if r.parent != nil {
		s.ParentID = r.parent.id
	}
	for _, c := range r.children {
		s.ChildIDs = append(s.ChildIDs, c.id)
	}
	if withBoundary {
		s.Boundary = append([]image.Point(nil), r.Boundary()...)
	}
	return s
}
