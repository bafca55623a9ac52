package detection

// Classification keys for pixels outside the value window. In-range pixels use
// their own value (0-255) as key, so runs of different in-range values never
// merge while all out-of-range pixels collapse into two background classes.
const (
	keyBelow = -1
	keyAbove = 256
)

// LineSegment is a maximal horizontal run of equally classified pixels.
//
// The run covers columns [X0, X1) of row Y. Value is the pixel value of the
// run's first pixel; for in-range runs every pixel has this value.
type LineSegment struct {
	Y     int `json:"y"`
	X0    int `json:"x0"`
	X1    int `json:"x1"`
	Value int `json:"value"`
}

// Len returns the number of pixels in the run.
func (s LineSegment) Len() int {
	return s.X1 - s.X0
}

// segment is the arena form of a LineSegment. Segments of one region part are
// chained through next; -1 terminates the chain.
type segment struct {
	y, x0, x1 int
	key       int
	value     uint8
	part      int32
	next      int32
}

func (s *segment) len() int {
	return s.x1 - s.x0
}

// overlaps reports whether two runs from adjacent rows touch under
// 4-connectivity.
func (s *segment) overlaps(o *segment) bool {
	return s.x0 < o.x1 && o.x0 < s.x1
}

// classify maps a pixel value to its run key.
func classify(v uint8, minVal, maxVal int) int {
	switch {
	case int(v) < minVal:
		return keyBelow
	case int(v) > maxVal:
		return keyAbove
	default:
		return int(v)
	}
}

// scanRow appends the runs of one row to segs and returns the extended slice.
func scanRow(segs []segment, row []uint8, y, minVal, maxVal int) []segment {
	if len(row) == 0 {
		return segs
	}
	start := 0
	key := classify(row[0], minVal, maxVal)
	for x := 1; x < len(row); x++ {
		k := classify(row[x], minVal, maxVal)
		if k == key {
			continue
		}
		segs = append(segs, segment{y: y, x0: start, x1: x, key: key, value: row[start], part: -1, next: -1})
		start, key = x, k
	}
	return append(segs, segment{y: y, x0: start, x1: len(row), key: key, value: row[start], part: -1, next: -1})
}
