package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/crankpost/internal/runner"
)

type staticSource struct {
	p runner.Progress
}

func (s staticSource) Progress() runner.Progress { return s.p }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressLine(t *testing.T) {
	line := progressLine(runner.Progress{Total: 40, Errors: 2, ActiveVUs: 4, Elapsed: 2 * time.Second})
	for _, want := range []string{"Requests: 40", "Failures: 2", "Active VUs: 4", "RPS: 20.0", "Elapsed: 2s"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
	if !strings.HasPrefix(line, "\r") {
		t.Error("progress line should rewrite the current terminal line")
	}
	if zero := progressLine(runner.Progress{}); !strings.Contains(zero, "RPS: 0.0") {
		t.Errorf("zero elapsed should report 0 RPS, got %q", zero)
	}
}

func TestProgressReporterWrites(t *testing.T) {
	var buf syncBuffer
	reporter := NewProgressReporter(staticSource{p: runner.Progress{Total: 5, Elapsed: time.Second}}, 20*time.Millisecond, &buf)
	reporter.Start()
	reporter.Start()

	time.Sleep(70 * time.Millisecond)
	reporter.Stop()
	reporter.Stop()

	if !strings.Contains(buf.String(), "Requests: 5") {
		t.Errorf("expected progress output, got %q", buf.String())
	}
}

func TestProgressReporterNilWriter(t *testing.T) {
	reporter := NewProgressReporter(staticSource{}, time.Millisecond, nil)
	reporter.Start()
	time.Sleep(5 * time.Millisecond)
	reporter.Stop()
}
