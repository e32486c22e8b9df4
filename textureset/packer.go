package textureset

// box is an axis-aligned rectangle in canvas coordinates.
type box struct {
	x, y, w, h int
}

func (b box) right() int  { return b.x + b.w }
func (b box) bottom() int { return b.y + b.h }

func (b box) intersects(o box) bool {
	return b.x < o.right() && o.x < b.right() && b.y < o.bottom() && o.y < b.bottom()
}

func (b box) contains(o box) bool {
	return o.x >= b.x && o.y >= b.y && o.right() <= b.right() && o.bottom() <= b.bottom()
}

// packer tracks the maximal free boxes of a growing canvas.
type packer struct {
	width, height int
	free          []box
}

func newPacker(width, height int) *packer {
	return &packer{
		width:  width,
		height: height,
		free:   []box{{0, 0, width, height}},
	}
}

// place reserves a w x h area and returns its position, growing the
// canvas until the area fits.
func (p *packer) place(w, h int) (int, int) {
	for {
		if b, ok := p.find(w, h); ok {
			p.reserve(box{b.x, b.y, w, h})
			return b.x, b.y
		}
		p.grow(w, h)
	}
}

// find returns the free box with the lowest x, then lowest y, that can
// hold w x h.
func (p *packer) find(w, h int) (box, bool) {
	var best box
	found := false
	for _, f := range p.free {
		if f.w < w || f.h < h {
			continue
		}
		if !found || f.x < best.x || (f.x == best.x && f.y < best.y) {
			best, found = f, true
		}
	}
	return best, found
}

// reserve removes used from the free list, splitting every free box it
// overlaps into the parts left of, right of, above and below it.
func (p *packer) reserve(used box) {
	next := make([]box, 0, len(p.free)+4)
	for _, f := range p.free {
		if !f.intersects(used) {
			next = append(next, f)
			continue
		}
		if used.x > f.x {
			next = append(next, box{f.x, f.y, used.x - f.x, f.h})
		}
		if used.right() < f.right() {
			next = append(next, box{used.right(), f.y, f.right() - used.right(), f.h})
		}
		if used.y > f.y {
			next = append(next, box{f.x, f.y, f.w, used.y - f.y})
		}
		if used.bottom() < f.bottom() {
			next = append(next, box{f.x, used.bottom(), f.w, f.bottom() - used.bottom()})
		}
	}
	p.free = prune(next)
}

// grow doubles one side of the canvas. A side shorter than the pending
// area is grown first; otherwise width grows until it is twice the height.
func (p *packer) grow(w, h int) {
	switch {
	case h > p.height:
		p.growHeight()
	case w > p.width:
		p.growWidth()
	case p.width <= 2*p.height:
		p.growWidth()
	default:
		p.growHeight()
	}
}

func (p *packer) growWidth() {
	old := p.width
	p.width *= 2
	for i := range p.free {
		if p.free[i].right() == old {
			p.free[i].w += old
		}
	}
	p.free = prune(append(p.free, box{old, 0, old, p.height}))
}

func (p *packer) growHeight() {
	old := p.height
	p.height *= 2
	for i := range p.free {
		if p.free[i].bottom() == old {
			p.free[i].h += old
		}
	}
	p.free = prune(append(p.free, box{0, old, p.width, old}))
}

// prune drops boxes contained in another box, keeping the first of equal
// boxes. Order of the survivors is preserved.
func prune(free []box) []box {
	out := free[:0:0]
	for i, a := range free {
		redundant := false
		for j, b := range free {
			if i == j || !b.contains(a) {
				continue
			}
			if a != b || j < i {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, a)
		}
	}
	return out
}
