package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/crankpost/internal/collection"
	"github.com/torosent/crankpost/internal/metrics"
	"github.com/torosent/crankpost/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Run              RunInfo
	Totals           metrics.EndpointSummary
	Endpoints        []htmlEndpoint
	Requests         []collection.ResolvedRequest
	ThresholdResults []threshold.Result
	ThresholdsPassed int
}

type htmlEndpoint struct {
	Name string
	metrics.EndpointSummary
}

// GenerateHTMLReport writes a standalone HTML report of a run.
func GenerateHTMLReport(w io.Writer, summary metrics.Summary, info RunInfo, requests []collection.ResolvedRequest, thresholdResults []threshold.Result) error {
	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Run:              info,
		Totals:           summary.Totals(),
		Requests:         requests,
		ThresholdResults: thresholdResults,
	}
	for _, name := range summary.Names() {
		ep, _ := summary.Endpoint(name)
		data.Endpoints = append(data.Endpoints, htmlEndpoint{Name: name, EndpointSummary: ep})
	}
	for _, r := range thresholdResults {
		if r.Pass {
			data.ThresholdsPassed++
		}
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(rate float64) string {
			return fmt.Sprintf("%.1f", rate*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Crankpost Load Test Report</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container { max-width: 1200px; margin: 0 auto; background: white; border-radius: 8px; padding: 30px; }
        header { border-bottom: 2px solid #e9ecef; margin-bottom: 20px; }
        .meta { color: #6c757d; font-size: 0.9rem; }
        table { width: 100%; border-collapse: collapse; margin: 10px 0 30px; }
        th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #e9ecef; }
        th { background: #f8f9fa; }
        .pass { color: #28a745; font-weight: bold; }
        .fail { color: #dc3545; font-weight: bold; }
        .badge { background: #e9ecef; border-radius: 4px; padding: 2px 6px; font-family: monospace; }
        .no-data { color: #6c757d; font-style: italic; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Crankpost Load Test Report</h1>
            {{if .Run.Collection}}<div class="meta">Collection: {{.Run.Collection}}</div>{{end}}
            {{if .Run.RunID}}<div class="meta">Run: {{.Run.RunID}}</div>{{end}}
            <div class="meta">Generated: {{.GeneratedAt}} | Duration: {{formatDuration .Run.Duration}} | VUs: {{.Run.VUs}} | Iterations: {{.Run.Iterations}}</div>
        </header>

        <h2>Totals</h2>
        {{with .Totals}}{{if .Requests}}
        <table>
            <tr><th>Requests</th><th>Failed</th><th>Min</th><th>Avg</th><th>Med</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr>
            <tr>
                <td>{{.Requests.Count}}</td>
                <td>{{.Failed.Count}} ({{formatPercent .Failed.Rate}}%)</td>
                <td>{{formatFloat .Duration.Min}}ms</td>
                <td>{{formatFloat .Duration.Avg}}ms</td>
                <td>{{formatFloat .Duration.Med}}ms</td>
                <td>{{formatFloat .Duration.P90}}ms</td>
                <td>{{formatFloat .Duration.P95}}ms</td>
                <td>{{formatFloat .Duration.P99}}ms</td>
                <td>{{formatFloat .Duration.Max}}ms</td>
            </tr>
        </table>
        {{else}}<p class="no-data">No requests recorded.</p>{{end}}{{end}}

        {{if .ThresholdResults}}
        <h2>Thresholds ({{.ThresholdsPassed}}/{{len .ThresholdResults}} Passed)</h2>
        <table>
            <tr><th>Threshold</th><th>Actual</th><th>Status</th></tr>
            {{range .ThresholdResults}}
            <tr>
                <td>{{.Threshold.Raw}}</td>
                <td>{{formatFloat .Actual}}</td>
                <td>{{if .Pass}}<span class="pass">PASS</span>{{else}}<span class="fail">FAIL</span>{{end}}</td>
            </tr>
            {{end}}
        </table>
        {{end}}

        <h2>Endpoints</h2>
        <table>
            <tr><th>Endpoint</th><th>Requests</th><th>Failed</th><th>Avg</th><th>P95</th><th>Max</th></tr>
            {{range .Endpoints}}
            <tr>
                <td><strong>{{.Name}}</strong></td>
                {{if .Requests}}
                <td>{{.Requests.Count}}</td>
                <td>{{.Failed.Count}} ({{formatPercent .Failed.Rate}}%)</td>
                <td>{{formatFloat .Duration.Avg}}ms</td>
                <td>{{formatFloat .Duration.P95}}ms</td>
                <td>{{formatFloat .Duration.Max}}ms</td>
                {{else}}
                <td colspan="5" class="no-data">no requests</td>
                {{end}}
            </tr>
            {{end}}
        </table>

        {{if .Requests}}
        <h2>Replayed Requests</h2>
        <table>
            <tr><th>Name</th><th>Method</th><th>URL</th></tr>
            {{range .Requests}}
            <tr><td>{{.Name}}</td><td><span class="badge">{{.Method}}</span></td><td>{{.URL}}</td></tr>
            {{end}}
        </table>
        {{end}}
    </div>
</body>
</html>
`
