package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/crankpost/internal/runner"
)

// ProgressSource exposes live run counters.
type ProgressSource interface {
	Progress() runner.Progress
}

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	source   ProgressSource
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(source ProgressSource, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		source:   source,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, progressLine(p.source.Progress()))
		case <-p.done:
			return
		}
	}
}

func progressLine(pr runner.Progress) string {
	rps := 0.0
	if pr.Elapsed > 0 {
		rps = float64(pr.Total) / pr.Elapsed.Seconds()
	}
	return fmt.Sprintf("\rRequests: %d | Failures: %d | Active VUs: %d | RPS: %.1f | Elapsed: %s",
		pr.Total, pr.Errors, pr.ActiveVUs, rps, pr.Elapsed.Round(time.Second))
}
