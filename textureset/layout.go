// Package textureset packs rectangles into a texture atlas.
//
// Pack places each rectangle without overlap on a canvas that starts at
// the power-of-two size of the tallest rectangle and doubles when nothing
// fits. Growth only appends space, so rectangles never move once placed.
// Identical inputs always produce identical placements.
package textureset

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"
)

// Rect is a rectangle to place. Width and Height are inputs; X and Y are
// set by Pack.
type Rect struct {
	ID     any `json:"id"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Layout is the result of Pack.
type Layout struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Rectangles []Rect `json:"rectangles"`
}

// ErrInvalidRect is returned for rectangles without a positive size.
var ErrInvalidRect = errors.New("textureset: rectangle must have positive width and height")

type config struct {
	powerOfTwo bool
	rotate     bool
}

// Option configures Pack.
type Option func(*config)

// WithPowerOfTwo rounds the final canvas up to powers of two. Enabled by
// default. When disabled the canvas is the tight bounds of the placed
// rectangles.
func WithPowerOfTwo(enabled bool) Option {
	return func(c *config) {
		c.powerOfTwo = enabled
	}
}

// WithRotation is accepted for compatibility. Rectangles are never
// rotated.
func WithRotation(enabled bool) Option {
	return func(c *config) {
		c.rotate = enabled
	}
}

// Pack places rects with margin pixels reserved after the right and bottom
// edge of each one. The returned rectangles are in input order.
//
// An empty input yields a 1x1 layout. A single rectangle yields a canvas
// of exactly its size.
func Pack(margin int, rects []Rect, opts ...Option) (Layout, error) {
	cfg := config{powerOfTwo: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if margin < 0 {
		return Layout{}, fmt.Errorf("textureset: negative margin %d", margin)
	}
	for i, r := range rects {
		if r.Width <= 0 || r.Height <= 0 {
			return Layout{}, fmt.Errorf("%w: rectangle %d (%v) is %dx%d", ErrInvalidRect, i, r.ID, r.Width, r.Height)
		}
	}

	if len(rects) == 0 {
		return Layout{Width: 1, Height: 1, Rectangles: []Rect{}}, nil
	}

	out := slices.Clone(rects)
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return out[b].Height - out[a].Height
	})

	first := out[order[0]]
	p := newPacker(nextPow2(first.Width+margin), nextPow2(first.Height+margin))
	for _, i := range order {
		x, y := p.place(out[i].Width+margin, out[i].Height+margin)
		out[i].X, out[i].Y = x, y
	}

	if len(out) == 1 {
		return Layout{Width: out[0].Width, Height: out[0].Height, Rectangles: out}, nil
	}

	var w, h int
	for _, r := range out {
		if cfg.powerOfTwo {
			w = max(w, r.X+r.Width+margin)
			h = max(h, r.Y+r.Height+margin)
		} else {
			w = max(w, r.X+r.Width)
			h = max(h, r.Y+r.Height)
		}
	}
	if cfg.powerOfTwo {
		w, h = nextPow2(w), nextPow2(h)
	}
	return Layout{Width: w, Height: h, Rectangles: out}, nil
}

// nextPow2 returns the smallest power of two >= n, for n >= 1.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
