package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/crankpost/internal/config"
	"github.com/torosent/crankpost/internal/metrics"
	"github.com/torosent/crankpost/internal/threshold"
)

// RunInfo describes the run a summary belongs to.
type RunInfo struct {
	RunID      string
	Collection string
	VUs        int
	Iterations int64
	Duration   time.Duration
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, summary metrics.Summary, info RunInfo) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	if info.RunID != "" {
		fmt.Fprintf(w, "Run:               %s\n", info.RunID)
	}
	if info.Collection != "" {
		fmt.Fprintf(w, "Collection:        %s\n", info.Collection)
	}

	totals := summary.Totals()
	var total, failed int64
	if totals.Requests != nil {
		total = totals.Requests.Count
	}
	if totals.Failed != nil {
		failed = totals.Failed.Count
	}

	fmt.Fprintf(w, "Virtual Users:     %d\n", info.VUs)
	fmt.Fprintf(w, "Iterations:        %d\n", info.Iterations)
	fmt.Fprintf(w, "Total Requests:    %d\n", total)
	fmt.Fprintf(w, "Successful:        %d\n", total-failed)
	fmt.Fprintf(w, "Failed:            %d\n", failed)
	fmt.Fprintf(w, "Duration:          %s\n", info.Duration.Round(time.Millisecond))
	if info.Duration > 0 {
		fmt.Fprintf(w, "Requests/sec:      %.2f\n", float64(total)/info.Duration.Seconds())
	}
	if d := totals.Duration; d != nil {
		fmt.Fprintln(w, "\nLatency (ms):")
		fmt.Fprintf(w, "  Min:             %.2f\n", d.Min)
		fmt.Fprintf(w, "  Avg:             %.2f\n", d.Avg)
		fmt.Fprintf(w, "  Med:             %.2f\n", d.Med)
		fmt.Fprintf(w, "  P90:             %.2f\n", d.P90)
		fmt.Fprintf(w, "  P95:             %.2f\n", d.P95)
		fmt.Fprintf(w, "  P99:             %.2f\n", d.P99)
		fmt.Fprintf(w, "  Max:             %.2f\n", d.Max)
	}

	if summary.Len() == 0 {
		return
	}
	fmt.Fprintln(w, "\nEndpoint Breakdown:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ENDPOINT\tREQUESTS\tFAILED\tAVG\tP90\tP95\tMAX")
	for _, name := range summary.Names() {
		ep, _ := summary.Endpoint(name)
		if ep.Requests == nil {
			fmt.Fprintf(tw, "  %s\t0\t0\t-\t-\t-\t-\n", name)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%d\t%d (%.1f%%)\t%.2fms\t%.2fms\t%.2fms\t%.2fms\n",
			name,
			ep.Requests.Count,
			ep.Failed.Count,
			ep.Failed.Rate*100,
			ep.Duration.Avg,
			ep.Duration.P90,
			ep.Duration.P95,
			ep.Duration.Max,
		)
	}
	_ = tw.Flush()
}

// PrintThresholdResults writes one line per threshold and a pass count.
func PrintThresholdResults(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	passed := 0
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		if r.Pass {
			passed++
		}
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	fmt.Fprintf(w, "  %d/%d passed\n", passed, len(results))
}

// EncodeSummary writes the summary in the requested format. JSON is indented
// with two spaces.
func EncodeSummary(w io.Writer, summary metrics.Summary, format config.SummaryFormat) error {
	switch format {
	case config.SummaryFormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case config.SummaryFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported summary format %q", format)
	}
}
