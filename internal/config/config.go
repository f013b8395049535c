package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Default values applied before the config file and flags are read.
const (
	DefaultThinkTime     = time.Second
	DefaultTimeout       = 30 * time.Second
	DefaultSummaryFile   = "json-summary.json"
	DefaultSummaryFormat = SummaryFormatJSON
)

type SummaryFormat string

const (
	SummaryFormatJSON SummaryFormat = "json"
	SummaryFormatYAML SummaryFormat = "yaml"
)

type Config struct {
	CollectionFile string            `mapstructure:"collection"`
	Variables      []Variable        `mapstructure:"variables"`
	VUs            int               `mapstructure:"vus"`
	Iterations     int               `mapstructure:"iterations"`
	Duration       time.Duration     `mapstructure:"duration"`
	ThinkTime      time.Duration     `mapstructure:"think_time"`
	Rate           int               `mapstructure:"rate"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	Retries        int               `mapstructure:"retries"`
	Headers        map[string]string `mapstructure:"headers"`
	IncludeMethods []string          `mapstructure:"include_methods"`
	IncludeNames   []string          `mapstructure:"include_names"`
	SummaryFile    string            `mapstructure:"summary_file"`
	SummaryFormat  SummaryFormat     `mapstructure:"summary_format"`
	JSONOutput     bool              `mapstructure:"json_output"`
	HTMLOutput     string            `mapstructure:"html_output"`
	LogErrors      bool              `mapstructure:"log_errors"`
	Verbose        bool              `mapstructure:"verbose"`
	Thresholds     []string          `mapstructure:"thresholds"`
	Tracing        TracingConfig     `mapstructure:"tracing"`
	ConfigFile     string            `mapstructure:"-"`
}

// Variable overrides a collection variable. Overrides are applied after the
// collection's own variables.
type Variable struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`     // OTLP collector address
	Protocol    string  `mapstructure:"protocol"`     // "grpc" (default) or "http"
	Insecure    bool    `mapstructure:"insecure"`     // plaintext connection to the collector
	ServiceName string  `mapstructure:"service_name"` // defaults to OTEL_SERVICE_NAME or "crankpost"
	SampleRate  float64 `mapstructure:"sample_rate"`  // 0..1, default 1
	Propagate   *bool   `mapstructure:"propagate"`    // inject W3C headers, default true when enabled
}

// Enabled reports whether an exporter endpoint is configured, either directly
// or through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether trace context headers are sent with requests.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.CollectionFile) == "" {
		issues = append(issues, "collection is required (use --help for usage information)")
	}

	if c.VUs > 500 {
		fmt.Fprintf(os.Stderr, "WARNING: High VU count configured (%d). Ensure you have authorization to test the target system.\n", c.VUs)
	}

	if c.VUs < 1 {
		issues = append(issues, "vus must be >= 1")
	}
	if c.Iterations < 0 {
		issues = append(issues, "iterations must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.ThinkTime < 0 {
		issues = append(issues, "think-time must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}

	switch c.SummaryFormat {
	case SummaryFormatJSON, SummaryFormatYAML:
	default:
		issues = append(issues, fmt.Sprintf("summary-format must be 'json' or 'yaml', got %q", c.SummaryFormat))
	}

	for idx, v := range c.Variables {
		if strings.TrimSpace(v.Key) == "" {
			issues = append(issues, fmt.Sprintf("variables[%d]: key is required", idx))
		}
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	return issues
}
