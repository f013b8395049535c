package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/crankpost/internal/collection"
	"github.com/torosent/crankpost/internal/config"
	"github.com/torosent/crankpost/internal/httpclient"
	"github.com/torosent/crankpost/internal/metrics"
	"github.com/torosent/crankpost/internal/output"
	"github.com/torosent/crankpost/internal/runner"
	"github.com/torosent/crankpost/internal/threshold"
	"github.com/torosent/crankpost/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	requests, err := loadRequests(cfg)
	if err != nil {
		return err
	}

	builder, err := httpclient.NewRequestBuilder(cfg.Headers)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runID := ulid.Make().String()
	tp, err := tracing.Init(ctx, cfg.Tracing, tracing.Run{ID: runID, Collection: cfg.CollectionFile})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "[crankpost] tracing shutdown: %v\n", err)
		}
	}()

	requester := &httpRequester{
		client:  httpclient.NewClient(cfg.Timeout),
		builder: builder,
		tracing: tp,
	}

	var wrapped runner.Requester = requester
	if cfg.LogErrors {
		wrapped = runner.WithLogging(wrapped, newFailureLogger(stderr))
	}
	if cfg.Verbose {
		wrapped = runner.WithRequestLog(wrapped, newRequestLogger(stderr))
	}
	if cfg.Retries > 0 {
		wrapped = runner.WithRetry(wrapped, newRetryPolicy(cfg.Retries))
	}

	r := runner.New(runner.Options{
		VUs:           cfg.VUs,
		Iterations:    cfg.Iterations,
		Duration:      cfg.Duration,
		ThinkTime:     cfg.ThinkTime,
		RatePerSecond: cfg.Rate,
		Requests:      requests,
		Requester:     wrapped,
	})

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(r, progressInterval, stdout)
		progress.Start()
	}
	result, err := r.Run(ctx)
	if progress != nil {
		progress.Stop()
		fmt.Fprintln(stdout)
	}
	if err != nil {
		return err
	}

	summary := result.Aggregator.Summarize()
	results := threshold.NewEvaluator(thresholds).Evaluate(summary, result.Duration)
	info := output.RunInfo{
		RunID:      runID,
		Collection: cfg.CollectionFile,
		VUs:        cfg.VUs,
		Iterations: result.Iterations,
		Duration:   result.Duration,
	}

	if cfg.JSONOutput {
		if err := output.EncodeSummary(stdout, summary, cfg.SummaryFormat); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, summary, info)
		output.PrintThresholdResults(stdout, results)
	}

	if cfg.SummaryFile != "" {
		if err := output.WriteSummaryFile(cfg.SummaryFile, summary, cfg.SummaryFormat); err != nil {
			return err
		}
	}
	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, summary, info, requests, results); err != nil {
			return err
		}
	}

	if !threshold.AllPassed(results) {
		return fmt.Errorf("%d of %d thresholds failed", countFailed(results), len(results))
	}
	if result.Errors > 0 {
		return fmt.Errorf("%d requests failed", result.Errors)
	}
	return nil
}

// loadRequests parses the collection and flattens it with the configured
// overrides and filters.
func loadRequests(cfg *config.Config) ([]collection.ResolvedRequest, error) {
	doc, err := collection.ParseFile(cfg.CollectionFile)
	if err != nil {
		return nil, err
	}

	vars := make([]collection.Variable, 0, len(cfg.Variables))
	for _, v := range cfg.Variables {
		vars = append(vars, collection.Variable{Key: v.Key, Value: v.Value})
	}

	requests, err := collection.Flatten(doc, collection.Options{
		Variables:      vars,
		IncludeMethods: cfg.IncludeMethods,
		IncludeNames:   cfg.IncludeNames,
	})
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("collection %s has no requests to replay", cfg.CollectionFile)
	}
	return requests, nil
}

func writeHTMLReport(path string, summary metrics.Summary, info output.RunInfo, requests []collection.ResolvedRequest, results []threshold.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := output.GenerateHTMLReport(file, summary, info, requests, results); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func countFailed(results []threshold.Result) int {
	failed := 0
	for _, r := range results {
		if !r.Pass {
			failed++
		}
	}
	return failed
}
