package worker

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

const barWidth = 24

// Progress follows a pool run: an overall bar on a single terminal line plus
// per-zoom tallies for the final summary.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	now     func() time.Time
	start   time.Time
	last    Snapshot
	perZoom map[uint32]int
	live    bool
}

// NewProgress prepares a tracker for total tiles of job. When live is set
// every update redraws the progress line on stderr.
func NewProgress(job Job, total int, live bool) *Progress {
	return &Progress{
		out:     os.Stderr,
		now:     time.Now,
		start:   time.Now(),
		last:    Snapshot{Job: job, Total: total},
		perZoom: make(map[uint32]int),
		live:    live,
	}
}

// SetOutput redirects the progress line.
func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	p.out = w
	p.mu.Unlock()
}

// Record stores a snapshot. It has the ProgressFunc signature.
func (p *Progress) Record(s Snapshot) {
	p.mu.Lock()
	if s.Completed > p.last.Completed {
		p.perZoom[s.Zoom] += s.Completed - p.last.Completed
	}
	p.last = s
	live := p.live
	p.mu.Unlock()

	if live {
		p.draw(false)
	}
}

// Line renders the current state, e.g.
// "terrain/color z3 [######------] 42/85 tiles (1 failed) 12.0 tiles/s ETA 4s".
func (p *Progress) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line()
}

func (p *Progress) line() string {
	s := p.last
	elapsed := p.now().Sub(p.start)

	filled := 0
	if s.Total > 0 {
		filled = min(barWidth, s.Completed*barWidth/s.Total)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s z%d [%s%s] %d/%d tiles", s.Job, s.Zoom,
		strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), s.Completed, s.Total)
	if s.Failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.Failed)
	}

	rate := tilesPerSecond(s.Completed, elapsed)
	fmt.Fprintf(&b, " %.1f tiles/s", rate)
	switch {
	case s.Completed >= s.Total:
		fmt.Fprintf(&b, " done in %s", formatDuration(elapsed))
	case rate > 0:
		eta := time.Duration(float64(s.Total-s.Completed) / rate * float64(time.Second))
		fmt.Fprintf(&b, " ETA %s", formatDuration(eta))
	}
	return b.String()
}

func (p *Progress) draw(final bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// \r plus trailing padding overwrites the previous, possibly longer, line.
	fmt.Fprintf(p.out, "\r%s    ", p.line())
	if final {
		fmt.Fprintln(p.out)
	}
}

// Done draws the final line when live output is on.
func (p *Progress) Done() {
	if p.live {
		p.draw(true)
	}
}

// Summary describes the finished run with the tiles rendered per zoom level.
func (p *Progress) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.last
	elapsed := p.now().Sub(p.start)

	zooms := make([]uint32, 0, len(p.perZoom))
	for z := range p.perZoom {
		zooms = append(zooms, z)
	}
	sort.Slice(zooms, func(i, j int) bool { return zooms[i] < zooms[j] })
	levels := make([]string, len(zooms))
	for i, z := range zooms {
		levels[i] = fmt.Sprintf("z%d:%d", z, p.perZoom[z])
	}

	summary := fmt.Sprintf("Rendered %s (%s): %d/%d tiles ok, %d failed in %s (%.1f tiles/s)",
		s.Job, s.Job.Kind, s.Completed-s.Failed, s.Total, s.Failed, formatDuration(elapsed),
		tilesPerSecond(s.Completed, elapsed))
	if len(levels) > 0 {
		summary += " [" + strings.Join(levels, " ") + "]"
	}
	return summary
}

func tilesPerSecond(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
