package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress is a point-in-time view of a ProgressTracker.
type Progress struct {
	Current int
	Total   int
	Elapsed time.Duration
}

// Percent returns the completed share in [0, 100].
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total) * 100.0
}

// Rate returns processed entries per second.
func (p Progress) Rate() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Current) / p.Elapsed.Seconds()
}

// Remaining returns the number of entries still to process.
func (p Progress) Remaining() int {
	return max(p.Total-p.Current, 0)
}

// ETA estimates the time left at the current rate. It is zero when no
// rate is known yet or nothing remains.
func (p Progress) ETA() time.Duration {
	rate := p.Rate()
	if rate == 0 || p.Remaining() == 0 {
		return 0
	}
	return time.Duration(float64(p.Remaining()) / rate * float64(time.Second)).Round(time.Second)
}

// ProgressTracker tracks and reports progress of reembedding operations.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output; nil discards it
// total: total number of entries to process
// reportInterval: report progress every N entries
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress from initial, which is non-zero when a run
// resumes.
func (p *ProgressTracker) Start(initial int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = min(initial, p.total)
	p.lastReported = p.current
}

// Update sets the current progress to the specified value.
func (p *ProgressTracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.advance(current)
}

// Increment increases the current progress by the specified amount.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || delta <= 0 {
		return
	}
	p.advance(p.current + delta)
}

// advance caps current at total and reports when a report interval has
// been crossed. Must be called with lock held.
func (p *ProgressTracker) advance(current int) {
	p.current = min(current, p.total)
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish marks the operation as complete and prints final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Snapshot returns the current progress.
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	return p.Snapshot().Elapsed
}

func (p *ProgressTracker) snapshot() Progress {
	out := Progress{Current: p.current, Total: p.total}
	if p.started {
		out.Elapsed = time.Since(p.startTime)
	}
	return out
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	s := p.snapshot()
	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.1f entries/s",
		s.Current, s.Total, s.Percent(), s.Rate())
	if eta := s.ETA(); eta > 0 {
		fmt.Fprintf(p.writer, " - eta %s", eta)
	}
}
