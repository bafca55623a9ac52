package tracking

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/blob-tracker-mcp/internal/detection"
	"github.com/ironsheep/blob-tracker-mcp/internal/hungarian"
)

// Point is a 2D position in image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Config controls how observations are matched to tracks.
type Config struct {
	// MaxDistance gates matches: a track and a point farther apart than this
	// are never matched. Zero or less disables gating.
	MaxDistance float64 `yaml:"maxDistance" json:"max_distance"`

	// MaxMissed is the number of consecutive frames a track may go unmatched
	// before it is dropped. Zero drops it on the first miss.
	MaxMissed int `yaml:"maxMissed" json:"max_missed"`

	// Epsilon is the zero tolerance handed to the assignment solver.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
}

// Track is the public view of one tracked object.
type Track struct {
	ID       int    `json:"id"`
	Position Point  `json:"position"`
	Age      int    `json:"age"`
	Missed   int    `json:"missed"`
	Color    string `json:"color"`
}

type track struct {
	id     int
	pos    Point
	age    int // frames since creation, including the first
	missed int
}

// Tracker keeps persistent identities for points observed across frames.
// It is not safe for concurrent use.
type Tracker struct {
	cfg    Config
	tracks []*track
	nextID int
}

// New creates a tracker. It returns an error for negative MaxMissed or
// Epsilon values.
func New(cfg Config) (*Tracker, error) {
	if cfg.MaxMissed < 0 {
		return nil, fmt.Errorf("%w: max_missed %d is negative", hungarian.ErrInvalidArgument, cfg.MaxMissed)
	}
	if cfg.Epsilon < 0 || math.IsNaN(cfg.Epsilon) {
		return nil, fmt.Errorf("%w: epsilon %v must be >= 0", hungarian.ErrInvalidArgument, cfg.Epsilon)
	}
	return &Tracker{cfg: cfg}, nil
}

// Config returns the tracker's configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Push matches one frame of points against the active tracks and returns
// the track ID of every point, in input order.
//
// # Algorithm
//
//  1. Build an N×N matrix, N = max(tracks, points), holding track-to-point
//     distances. Padding rows and columns are zero so they do not bias the
//     solution
//  2. Pairs beyond MaxDistance cost more than every admissible pairing
//     combined, so the solver only uses them when forced by the padding
//  3. Solve with the Hungarian method and discard gated pairs
//  4. Unmatched points open new tracks; unmatched tracks age and are dropped
//     after more than MaxMissed consecutive misses
func (t *Tracker) Push(points []Point) ([]int, error) {
	ids := make([]int, len(points))
	nt, np := len(t.tracks), len(points)
	n := max(nt, np)
	if n == 0 {
		return ids, nil
	}

	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, fmt.Errorf("%w: point %d at (%v, %v)", hungarian.ErrNonFinite, i, p.X, p.Y)
		}
	}

	cost := mat.NewDense(n, n, nil)
	var sum float64
	for i := 0; i < nt; i++ {
		for j := 0; j < np; j++ {
			d := t.tracks[i].pos.Distance(points[j])
			cost.Set(i, j, d)
			if t.admissible(d) {
				sum += d
			}
		}
	}
	gated := sum + 1
	for i := 0; i < nt; i++ {
		for j := 0; j < np; j++ {
			if !t.admissible(cost.At(i, j)) {
				cost.Set(i, j, gated)
			}
		}
	}

	var rows []int
	if nt > 0 && np > 0 {
		var err error
		rows, err = hungarian.ApplyMatrix(cost, true, t.cfg.Epsilon)
		if err != nil {
			return nil, fmt.Errorf("failed to assign points to tracks: %w", err)
		}
	}

	matched := make([]bool, np)
	kept := t.tracks[:0]
	for i, tr := range t.tracks {
		j := -1
		if rows != nil {
			j = rows[i]
		}
		if j >= 0 && j < np && t.admissible(tr.pos.Distance(points[j])) {
			tr.pos = points[j]
			tr.age++
			tr.missed = 0
			ids[j] = tr.id
			matched[j] = true
			kept = append(kept, tr)
			continue
		}
		tr.missed++
		if tr.missed <= t.cfg.MaxMissed {
			tr.age++
			kept = append(kept, tr)
		}
	}
	clear(t.tracks[len(kept):])
	t.tracks = kept

	for j, p := range points {
		if matched[j] {
			continue
		}
		tr := &track{id: t.nextID, pos: p, age: 1}
		t.nextID++
		t.tracks = append(t.tracks, tr)
		ids[j] = tr.id
	}
	return ids, nil
}

// PushRegions pushes the centroids of regions.
func (t *Tracker) PushRegions(regions []*detection.Region) ([]int, error) {
	points := make([]Point, len(regions))
	for i, r := range regions {
		x, y := r.Centroid()
		points[i] = Point{X: x, Y: y}
	}
	return t.Push(points)
}

// Tracks returns the active tracks in creation order.
func (t *Tracker) Tracks() []Track {
	out := make([]Track, len(t.tracks))
	for i, tr := range t.tracks {
		out[i] = Track{
			ID:       tr.id,
			Position: tr.pos,
			Age:      tr.age,
			Missed:   tr.missed,
			Color:    TrackColor(tr.id),
		}
	}
	return out
}

// Reset drops all tracks and restarts ID numbering at zero.
func (t *Tracker) Reset() {
	t.tracks = nil
	t.nextID = 0
}

func (t *Tracker) admissible(d float64) bool {
	return t.cfg.MaxDistance <= 0 || d <= t.cfg.MaxDistance
}

// goldenAngle spreads consecutive hues evenly around the wheel.
const goldenAngle = 137.50776405003785

// TrackColor returns a stable display colour for a track ID as a hex string.
func TrackColor(id int) string {
	h := math.Mod(float64(id)*goldenAngle, 360)
	return colorful.Hcl(h, 0.6, 0.7).Clamped().Hex()
}
