package detection

import "image"

// buildTree assigns every region its innermost enclosing region.
//
// Regions touching the image border have no parent. For any other region B,
// let N be the region holding the pixel left of B's first pixel. N lies
// outside B's outer contour and is 4-adjacent to B, so either B sits in a hole
// of N, or B and N sit in the same hole of the same ancestors; in that case B
// inherits N's parent. Regions are visited in scan order and N always comes
// before B, so N's parent is known when B is processed.
func (d *RegionDetector) buildTree() {
	d.ensureLabels()

	for i := range d.regions {
		r := &d.regions[i]
		if r.touchesBorder() {
			continue
		}
		n := &d.regions[d.labelAt(r.first.X-1, r.first.Y)]

		parent := n.parent
		if n.encloses(r) {
			parent = n
		}
		r.parent = parent
		if parent != nil {
			parent.children = append(parent.children, r)
		}
	}
}

// encloses reports whether r lies inside the outer contour of n. r must not
// share pixels with n, so testing a single pixel of r is sufficient.
func (n *Region) encloses(r *Region) bool {
	if !r.bounds.In(n.bounds) || r.bounds == n.bounds {
		return false
	}
	return insidePolygon(n.Boundary(), r.first.Add(n.d.origin))
}

// insidePolygon is a crossing-number test of p against the closed polygon
// through the centers of the given pixels. p must not be a vertex; a pixel
// center outside the region never lies on an edge between two 8-adjacent
// boundary pixels.
func insidePolygon(poly []image.Point, p image.Point) bool {
	inside := false
	j := len(poly) - 1
	for i := range poly {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			// x coordinate of the edge at row p.Y, compared without division.
			lhs := (p.X - a.X) * (b.Y - a.Y)
			rhs := (b.X - a.X) * (p.Y - a.Y)
			if b.Y > a.Y {
				if lhs < rhs {
					inside = !inside
				}
			} else if lhs > rhs {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
