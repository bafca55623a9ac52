package detection

// partFlags holds the state bits of a region part.
type partFlags uint8

const (
	// partRoot marks the surviving representative of a component.
	partRoot partFlags = 1 << iota
	// partCounted marks a root already counted while sizing the region list.
	partCounted
	// partCollected marks a root already turned into a Region.
	partCollected
)

func (f partFlags) has(flag partFlags) bool {
	return f&flag != 0
}

// regionPart is a node of the merge forest built while scanning. Parts are
// addressed by their index in the forest arena. A part that was adopted by
// another keeps a parent index leading to the current root.
type regionPart struct {
	parent int32
	flags  partFlags

	// Segment chain. Adopting splices the child's chain behind the parent's
	// tail, so merging never copies segments.
	head, tail int32
	segCount   int32

	key   int
	value uint8

	// region is the index of the finalised Region once collected.
	region int32
}

// forest is the per-detector arena owning all segments and parts of one
// Detect call. It is reset, not reallocated, between calls.
type forest struct {
	segs  []segment
	parts []regionPart
}

func (f *forest) reset() {
	f.segs = f.segs[:0]
	f.parts = f.parts[:0]
}

// newPart starts a part holding segment seg and returns its index.
func (f *forest) newPart(seg int32) int32 {
	id := int32(len(f.parts))
	s := &f.segs[seg]
	s.part = id
	s.next = -1
	f.parts = append(f.parts, regionPart{
		parent:   id,
		flags:    partRoot,
		head:     seg,
		tail:     seg,
		segCount: 1,
		key:      s.key,
		value:    s.value,
		region:   -1,
	})
	return id
}

// attach appends segment seg to the chain of root part p.
func (f *forest) attach(p, seg int32) {
	part := &f.parts[p]
	s := &f.segs[seg]
	s.part = p
	s.next = -1
	f.segs[part.tail].next = seg
	part.tail = seg
	part.segCount++
}

// find returns the root of part p, compressing the path on the way.
func (f *forest) find(p int32) int32 {
	r := p
	for f.parts[r].parent != r {
		r = f.parts[r].parent
	}
	for f.parts[p].parent != r {
		next := f.parts[p].parent
		f.parts[p].parent = r
		p = next
	}
	return r
}

// adopt merges two distinct roots and returns the surviving one. The part
// with more segments survives; the other becomes a non-root child whose chain
// is spliced into the survivor.
func (f *forest) adopt(a, b int32) int32 {
	if a == b {
		return a
	}
	if f.parts[a].segCount < f.parts[b].segCount {
		a, b = b, a
	}
	root := &f.parts[a]
	child := &f.parts[b]

	f.segs[root.tail].next = child.head
	root.tail = child.tail
	root.segCount += child.segCount

	child.parent = a
	child.flags &^= partRoot
	return a
}

// roots counts the root parts not yet counted, marking them as counted.
func (f *forest) roots() int {
	n := 0
	for i := range f.parts {
		p := &f.parts[i]
		if p.flags.has(partRoot) && !p.flags.has(partCounted) {
			p.flags |= partCounted
			n++
		}
	}
	return n
}
