package detection

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	// ErrInvalidArgument is wrapped by every precondition violation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMultiChannel is returned when Detect receives an image with more
	// than one channel.
	ErrMultiChannel = fmt.Errorf("%w: multi-channel image, expected a single channel", ErrInvalidArgument)
)

// Restrictions are the filter bounds a region must satisfy to be returned by
// Detect. All bounds are inclusive.
type Restrictions struct {
	MinSize  int `json:"min_size" yaml:"minSize"`
	MaxSize  int `json:"max_size" yaml:"maxSize"`
	MinValue int `json:"min_value" yaml:"minValue"`
	MaxValue int `json:"max_value" yaml:"maxValue"`
}

// DefaultRestrictions accepts every region of every value.
func DefaultRestrictions() Restrictions {
	return Restrictions{
		MinSize:  0,
		MaxSize:  math.MaxInt,
		MinValue: 0,
		MaxValue: 255,
	}
}

// Option configures a RegionDetector.
type Option func(*RegionDetector)

// WithRestrictions sets the initial filter bounds.
func WithRestrictions(r Restrictions) Option {
	return func(d *RegionDetector) {
		d.restrictions = r
	}
}

// WithCreateTree enables computation of region nesting.
func WithCreateTree(enabled bool) Option {
	return func(d *RegionDetector) {
		d.createTree = enabled
	}
}

// RegionDetector finds connected components of equally valued pixels in a
// single-channel image.
//
// Pixels inside [MinValue, MaxValue] are always split by exact value,
// whether or not tree building is enabled: two touching pixels of values 10
// and 11 belong to different regions. Pixels below MinValue form one
// background class and pixels above MaxValue another; background regions
// take part in merging and nesting but are never returned.
//
// A detector owns all of its working memory and reuses it from call to call.
// The regions returned by Detect point into that memory: they stay valid until
// the next call to Detect on the same detector, after which every previously
// returned *Region describes the new frame or garbage. Use Region.Snapshot to
// keep results across frames.
//
// A RegionDetector must not be used from more than one goroutine at a time.
type RegionDetector struct {
	restrictions Restrictions
	createTree   bool

	f       forest
	regions []Region
	all     []*Region
	out     []*Region

	width, height int
	origin        image.Point

	labels      []int32
	labelsReady bool

	scratch []uint8
}

// New creates a detector with default restrictions and tree building
// disabled.
func New(opts ...Option) *RegionDetector {
	d := &RegionDetector{restrictions: DefaultRestrictions()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetRestrictions replaces the filter bounds used by the next Detect call.
//
// minSize <= maxSize and minVal <= maxVal are preconditions; when violated
// Detect returns no regions.
func (d *RegionDetector) SetRestrictions(minSize, maxSize, minVal, maxVal int) {
	d.restrictions = Restrictions{
		MinSize:  minSize,
		MaxSize:  maxSize,
		MinValue: minVal,
		MaxValue: maxVal,
	}
}

// Restrictions returns the current filter bounds.
func (d *RegionDetector) Restrictions() Restrictions {
	return d.restrictions
}

// SetCreateTree enables or disables nesting computation for the next Detect
// call.
func (d *RegionDetector) SetCreateTree(enabled bool) {
	d.createTree = enabled
}

// CreateTree reports whether nesting is computed.
func (d *RegionDetector) CreateTree() bool {
	return d.createTree
}

// Detect labels img and returns the regions passing the restrictions, in
// scan order of their first pixel.
//
// img must have a single channel. *image.Gray is used directly; *image.Gray16,
// *image.Alpha, *image.Alpha16 and *FloatImage are first narrowed to 8 bits
// (see FloatImage for the quantisation rule). Any multi-channel image yields
// ErrMultiChannel. A nil or empty image yields no regions and no error.
//
// Pixels outside [MinValue, MaxValue] still take part in labeling as two
// background classes (below and above the window) so that nesting can be
// computed around them, but they never appear in the result. Likewise regions
// rejected by the size bounds remain reachable through Parent and Children.
//
// # Algorithm
//
//  1. Each row is split into maximal runs of equally classified pixels.
//  2. Each run is joined with the 4-connected runs of equal class in the row
//     above. Touching two distinct parts merges them in the forest.
//  3. Every root part is turned into one Region; size, bounds and centroid
//     come from segment arithmetic, not from revisiting pixels.
//  4. With tree building enabled, every region's innermost enclosing region
//     is determined.
//  5. The restrictions select the returned regions.
func (d *RegionDetector) Detect(img image.Image) ([]*Region, error) {
	d.clear()

	g, err := d.toGray(img)
	if err != nil {
		return nil, err
	}
	if g == nil || g.Rect.Empty() {
		return d.out, nil
	}

	d.origin = g.Rect.Min
	d.width = g.Rect.Dx()
	d.height = g.Rect.Dy()

	d.scan(g)
	d.collect()
	if d.createTree {
		d.buildTree()
	}

	for _, r := range d.all {
		if d.accepts(r) {
			d.out = append(d.out, r)
		}
	}
	return d.out, nil
}

// AllRegions returns every region of the last Detect call, including those
// rejected by the restrictions and the background classes. The same lifetime
// rules as for Detect apply.
func (d *RegionDetector) AllRegions() []*Region {
	return d.all
}

func (d *RegionDetector) clear() {
	d.f.reset()
	d.all = d.all[:0]
	d.out = d.out[:0]
	d.width, d.height = 0, 0
	d.origin = image.Point{}
	d.labelsReady = false
}

// scan builds the merge forest for g in a single pass.
func (d *RegionDetector) scan(g *image.Gray) {
	f := &d.f
	minVal, maxVal := d.restrictions.MinValue, d.restrictions.MaxValue
	prevStart, prevEnd := 0, 0

	for y := 0; y < d.height; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+d.width]
		curStart := len(f.segs)
		f.segs = scanRow(f.segs, row, y, minVal, maxVal)
		curEnd := len(f.segs)

		j := prevStart
		for i := curStart; i < curEnd; i++ {
			cur := &f.segs[i]
			for j < prevEnd && f.segs[j].x1 <= cur.x0 {
				j++
			}
			for k := j; k < prevEnd && f.segs[k].x0 < cur.x1; k++ {
				above := &f.segs[k]
				if above.key != cur.key {
					continue
				}
				root := f.find(above.part)
				if cur.part < 0 {
					f.attach(root, int32(i))
					continue
				}
				if own := f.find(cur.part); own != root {
					f.adopt(own, root)
				}
			}
			if cur.part < 0 {
				f.newPart(int32(i))
			}
		}
		prevStart, prevEnd = curStart, curEnd
	}
}

// collect turns every root part into a Region. Walking the segments in
// arena order visits each component first at its first pixel, so regions
// come out in scan order.
func (d *RegionDetector) collect() {
	f := &d.f
	n := f.roots()
	if cap(d.regions) < n {
		d.regions = make([]Region, n)
	}
	d.regions = d.regions[:n]

	idx := 0
	for i := range f.segs {
		root := f.find(f.segs[i].part)
		p := &f.parts[root]
		if p.flags.has(partCollected) {
			continue
		}
		p.flags |= partCollected
		p.region = int32(idx)

		r := &d.regions[idx]
		r.reset(d, idx, root)
		r.finalize()
		d.all = append(d.all, r)
		idx++
	}
}

func (d *RegionDetector) accepts(r *Region) bool {
	if r.key == keyBelow || r.key == keyAbove {
		return false
	}
	rs := d.restrictions
	return r.size >= rs.MinSize && r.size <= rs.MaxSize
}

// ensureLabels fills the per-pixel region index map used by boundary tracing
// and nesting.
func (d *RegionDetector) ensureLabels() {
	if d.labelsReady {
		return
	}
	n := d.width * d.height
	if cap(d.labels) < n {
		d.labels = make([]int32, n)
	}
	d.labels = d.labels[:n]

	for i := range d.regions {
		r := &d.regions[i]
		for s := d.f.parts[r.part].head; s >= 0; s = d.f.segs[s].next {
			seg := &d.f.segs[s]
			row := d.labels[seg.y*d.width:]
			for x := seg.x0; x < seg.x1; x++ {
				row[x] = int32(i)
			}
		}
	}
	d.labelsReady = true
}

// labelAt returns the region index at local (x, y), or -1 outside the image.
func (d *RegionDetector) labelAt(x, y int) int32 {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return -1
	}
	return d.labels[y*d.width+x]
}
