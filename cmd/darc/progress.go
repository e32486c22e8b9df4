package main

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	darc "github.com/meigma/darc/core"
)

const descLength = 24

// progress renders darc progress events as a terminal bar.
type progress struct {
	container   *mpb.Progress
	bar         *mpb.Bar
	out         io.Writer
	description atomic.Value
}

// newProgress returns a bar over total steps, or nil when disabled or
// stderr is not a terminal. A nil *progress is safe to use.
func newProgress(total int, enabled bool) *progress {
	if !enabled || total == 0 || !isTerminal(os.Stderr) {
		return nil
	}
	p := &progress{out: os.Stderr}
	p.description.Store("")

	fmt.Fprintln(p.out)
	p.container = mpb.New(
		mpb.WithOutput(p.out),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(100*time.Millisecond),
	)
	p.bar = p.container.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				desc, _ := p.description.Load().(string)
				if len(desc) > descLength {
					return ".." + desc[len(desc)-descLength+2:]
				}
				return desc
			}, decor.WC{W: descLength, C: decor.DindentRight}),
			decor.Name("  "),
			decor.CountersNoUnit("%d/%d", decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)
	return p
}

// buildFunc maps build events onto the bar: staging fills the first half
// and committing the second.
func (p *progress) buildFunc() darc.ProgressFunc {
	if p == nil {
		return nil
	}
	return func(ev darc.ProgressEvent) {
		done := ev.FilesDone
		if ev.Stage == darc.StageCommitting {
			done += ev.FilesTotal
		}
		p.update(done, ev.Path)
	}
}

// extractFunc maps extraction events onto the bar.
func (p *progress) extractFunc() darc.ProgressFunc {
	if p == nil {
		return nil
	}
	return func(ev darc.ProgressEvent) {
		p.update(ev.FilesDone, ev.Path)
	}
}

func (p *progress) update(current int, description string) {
	p.description.Store(description)
	p.bar.SetCurrent(int64(current))
}

// finish completes or aborts the bar and waits for the final render.
func (p *progress) finish() {
	if p == nil {
		return
	}
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.container.Wait()
	fmt.Fprintln(p.out)
}

// isTerminal reports whether f is a terminal (TTY).
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}
