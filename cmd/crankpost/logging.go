package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/torosent/crankpost/internal/collection"
	"github.com/torosent/crankpost/internal/metrics"
)

const logPrefix = "[crankpost]"

// stderrLogger serializes log lines from concurrent VUs.
type stderrLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *stderrLogger) printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, logPrefix+" "+format+"\n", args...)
}

type failureLogger struct {
	*stderrLogger
}

func newFailureLogger(w io.Writer) *failureLogger {
	return &failureLogger{stderrLogger: &stderrLogger{w: w}}
}

func (l *failureLogger) LogFailure(req collection.ResolvedRequest, err error) {
	if err == nil {
		return
	}
	l.printf("request %q failed (%s): %v", req.Name, metrics.ErrorLabel(err), err)
}

type requestLogger struct {
	*stderrLogger
}

func newRequestLogger(w io.Writer) *requestLogger {
	return &requestLogger{stderrLogger: &stderrLogger{w: w}}
}

func (l *requestLogger) LogRequest(req collection.ResolvedRequest, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = metrics.ErrorLabel(err)
	}
	l.printf("%s %s %s -> %s in %s", req.Name, req.Method, req.URL, status, elapsed.Round(time.Microsecond))
}
