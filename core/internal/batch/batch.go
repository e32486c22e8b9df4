// Package batch reads many archive payloads from a random access source
// with as few reads as possible.
//
// Payloads that sit next to each other in the source, separated only by
// alignment padding, are merged into one range read. Ranges can be read
// concurrently while results are still delivered in offset order, which
// matters for sources where every read is a network round trip.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/meigma/darc/core/internal/sizing"
)

// Defaults for a Reader.
const (
	DefaultMaxGap      = sizing.Alignment - 1
	DefaultMaxGroup    = 8 << 20
	DefaultConcurrency = 1
)

// ErrShortRead is returned when a source yields fewer bytes than a group
// spans.
var ErrShortRead = errors.New("batch: short read")

// Span is one payload of Size bytes at Offset in the source. Index is
// opaque to the package and identifies the payload to the caller.
type Span struct {
	Index  int
	Offset uint64
	Size   uint64
}

// group is a run of spans covered by the byte range [start, end).
type group struct {
	start uint64
	end   uint64
	spans []Span
}

// Reader fetches spans from a source.
type Reader struct {
	src         io.ReaderAt
	maxGap      uint64
	maxGroup    uint64
	concurrency int
	readAhead   int64
	logger      *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxGap sets how many unused bytes may separate two spans that are
// still read together.
func WithMaxGap(n uint64) Option {
	return func(r *Reader) {
		r.maxGap = n
	}
}

// WithMaxGroup caps the byte length of a merged read. A single span
// larger than the cap is still read whole.
func WithMaxGroup(n uint64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxGroup = n
		}
	}
}

// WithConcurrency sets the number of range reads in flight. Values < 1
// force serial reads.
func WithConcurrency(n int) Option {
	return func(r *Reader) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// WithReadAhead caps the bytes read but not yet delivered. Zero leaves
// the buffer unbounded apart from the concurrency limit.
func WithReadAhead(n int64) Option {
	return func(r *Reader) {
		r.readAhead = n
	}
}

// WithLogger sets the logger for batch reads.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader returns a Reader over src.
func NewReader(src io.ReaderAt, opts ...Option) *Reader {
	r := &Reader{
		src:         src,
		maxGap:      DefaultMaxGap,
		maxGroup:    DefaultMaxGroup,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Each reads every span and calls fn with its bytes, in ascending offset
// order. fn runs on one goroutine at a time and must not retain data.
// The first error from a read or from fn stops the run.
func (r *Reader) Each(ctx context.Context, spans []Span, fn func(Span, []byte) error) error {
	if len(spans) == 0 {
		return nil
	}
	groups := plan(spans, r.maxGap, r.maxGroup)
	r.log().Debug("batch read", "spans", len(spans), "groups", len(groups), "concurrency", r.concurrency)

	if r.concurrency < 2 || len(groups) < 2 {
		for _, g := range groups {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := r.read(g)
			if err != nil {
				return err
			}
			if err := deliver(g, data, fn); err != nil {
				return err
			}
		}
		return nil
	}
	return r.pipeline(ctx, groups, fn)
}

type result struct {
	index int
	data  []byte
}

func (r *Reader) pipeline(ctx context.Context, groups []group, fn func(Span, []byte) error) error {
	var budget *semaphore.Weighted
	if r.readAhead > 0 {
		budget = semaphore.NewWeighted(r.readAhead)
	}
	// A group larger than the whole budget would never be admitted.
	weight := func(g group) int64 {
		w := int64(g.end - g.start) //nolint:gosec // bounded by source size
		if r.readAhead > 0 && w > r.readAhead {
			return r.readAhead
		}
		return w
	}

	eg, ctx := errgroup.WithContext(ctx)
	tasks := make(chan int)
	ready := make(chan result, r.concurrency)

	eg.Go(func() error {
		defer close(tasks)
		for i := range groups {
			// Budget is taken in group order so the next group to deliver
			// always holds its share.
			if budget != nil {
				if err := budget.Acquire(ctx, weight(groups[i])); err != nil {
					return err
				}
			}
			select {
			case tasks <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	readers, readCtx := errgroup.WithContext(ctx)
	for range r.concurrency {
		readers.Go(func() error {
			for i := range tasks {
				data, err := r.read(groups[i])
				if err != nil {
					return err
				}
				select {
				case ready <- result{index: i, data: data}:
				case <-readCtx.Done():
					return readCtx.Err()
				}
			}
			return nil
		})
	}
	eg.Go(func() error {
		defer close(ready)
		return readers.Wait()
	})

	eg.Go(func() error {
		next := 0
		pending := make(map[int][]byte, r.concurrency)
		for res := range ready {
			pending[res.index] = res.data
			for {
				data, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				err := deliver(groups[next], data, fn)
				if budget != nil {
					budget.Release(weight(groups[next]))
				}
				if err != nil {
					return err
				}
				next++
			}
		}
		if next < len(groups) {
			if err := readers.Wait(); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return errors.New("batch: read pipeline ended early")
		}
		return nil
	})

	return eg.Wait()
}

// read fetches the bytes of g in one call.
func (r *Reader) read(g group) ([]byte, error) {
	size := g.end - g.start
	data := make([]byte, size)
	if size == 0 {
		return data, nil
	}
	n, err := r.src.ReadAt(data, int64(g.start)) //nolint:gosec // offsets come from 32-bit fields
	if uint64(n) == size {                       //nolint:gosec // n is non-negative
		return data, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %d of %d bytes at %d", ErrShortRead, n, size, g.start)
	}
	return nil, fmt.Errorf("batch: read %d bytes at %d: %w", size, g.start, err)
}

func deliver(g group, data []byte, fn func(Span, []byte) error) error {
	for _, s := range g.spans {
		lo := s.Offset - g.start
		if err := fn(s, data[lo:lo+s.Size]); err != nil {
			return err
		}
	}
	return nil
}

// plan sorts spans by offset and merges neighbours into groups. Spans are
// joined when the gap between them is at most maxGap and the merged range
// stays within maxGroup.
func plan(spans []Span, maxGap, maxGroup uint64) []group {
	sorted := slices.Clone(spans)
	slices.SortStableFunc(sorted, func(a, b Span) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	})

	groups := make([]group, 0, len(sorted))
	cur := group{start: sorted[0].Offset, end: sorted[0].Offset + sorted[0].Size, spans: []Span{sorted[0]}}
	for _, s := range sorted[1:] {
		end := max(cur.end, s.Offset+s.Size)
		if s.Offset >= cur.start && s.Offset <= cur.end+maxGap && end-cur.start <= maxGroup {
			cur.end = end
			cur.spans = append(cur.spans, s)
			continue
		}
		groups = append(groups, cur)
		cur = group{start: s.Offset, end: s.Offset + s.Size, spans: []Span{s}}
	}
	return append(groups, cur)
}
