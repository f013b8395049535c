package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crankpost",
		Short:         "Replay an API collection as a load test",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Collection flags
	flags.String("collection", "", "Path to the exported API collection (JSON)")
	flags.StringArray("var", nil, "Collection variable override in key=value form (repeatable)")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.StringSlice("include-method", nil, "Only replay requests with these methods")
	flags.StringSlice("include-name", nil, "Only replay requests with these names")

	// Load control flags
	flags.IntP("vus", "u", 1, "Number of virtual users replaying the collection")
	flags.IntP("iterations", "i", 0, "Collection passes per virtual user (0 means one pass, or unlimited with --duration)")
	flags.DurationP("duration", "d", 0, "How long to run the test (e.g. 30s, 1m)")
	flags.Duration("think-time", DefaultThinkTime, "Pause after each request")
	flags.IntP("rate", "r", 0, "Requests per second limit across all virtual users (0 means unlimited)")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")
	flags.Int("retries", 0, "Number of retries per request")

	// Output flags
	flags.String("summary-file", DefaultSummaryFile, "Path of the summary file (empty disables it)")
	flags.String("summary-format", string(DefaultSummaryFormat), "Summary encoding: 'json' or 'yaml'")
	flags.Bool("json-output", false, "Print the summary instead of the human-readable report")
	flags.String("html-output", "", "Write an HTML report to this path")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.BoolP("verbose", "v", false, "Log every request and its status to stderr")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'http_req_duration:p95 < 500')")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Use a plaintext connection to the OTLP collector")
	flags.Float64("tracing-sample-rate", 1, "Fraction of requests to trace (0.0-1.0)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("collection") {
		val, err := fs.GetString("collection")
		if err != nil {
			return err
		}
		cfg.CollectionFile = strings.TrimSpace(val)
	}
	if fs.Changed("var") {
		vals, err := fs.GetStringArray("var")
		if err != nil {
			return err
		}
		for _, raw := range vals {
			key, value, ok := strings.Cut(raw, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return fmt.Errorf("invalid variable %q (expected key=value)", raw)
			}
			cfg.Variables = append(cfg.Variables, Variable{Key: strings.TrimSpace(key), Value: value})
		}
	}
	if fs.Changed("header") {
		vals, err := fs.GetStringSlice("header")
		if err != nil {
			return err
		}
		for _, raw := range vals {
			key, value, ok := strings.Cut(raw, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return fmt.Errorf("invalid header %q (expected key=value)", raw)
			}
			if cfg.Headers == nil {
				cfg.Headers = map[string]string{}
			}
			cfg.Headers[http.CanonicalHeaderKey(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}
	}
	if fs.Changed("include-method") {
		vals, err := fs.GetStringSlice("include-method")
		if err != nil {
			return err
		}
		cfg.IncludeMethods = vals
	}
	if fs.Changed("include-name") {
		vals, err := fs.GetStringSlice("include-name")
		if err != nil {
			return err
		}
		cfg.IncludeNames = vals
	}
	if fs.Changed("vus") {
		val, err := fs.GetInt("vus")
		if err != nil {
			return err
		}
		cfg.VUs = val
	}
	if fs.Changed("iterations") {
		val, err := fs.GetInt("iterations")
		if err != nil {
			return err
		}
		cfg.Iterations = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("think-time") {
		val, err := fs.GetDuration("think-time")
		if err != nil {
			return err
		}
		cfg.ThinkTime = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("retries") {
		val, err := fs.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Retries = val
	}
	if fs.Changed("summary-file") {
		val, err := fs.GetString("summary-file")
		if err != nil {
			return err
		}
		cfg.SummaryFile = strings.TrimSpace(val)
	}
	if fs.Changed("summary-format") {
		val, err := fs.GetString("summary-format")
		if err != nil {
			return err
		}
		cfg.SummaryFormat = SummaryFormat(val)
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("threshold") {
		vals, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = vals
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}
