package config

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
// Flags override values from the config file.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		VUs:           1,
		ThinkTime:     DefaultThinkTime,
		Timeout:       DefaultTimeout,
		Headers:       map[string]string{},
		SummaryFile:   DefaultSummaryFile,
		SummaryFormat: DefaultSummaryFormat,
		Tracing:       TracingConfig{SampleRate: 1},
		ConfigFile:    configPath,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.CollectionFile = strings.TrimSpace(cfg.CollectionFile)
	cfg.SummaryFile = strings.TrimSpace(cfg.SummaryFile)
	cfg.SummaryFormat = SummaryFormat(strings.ToLower(strings.TrimSpace(string(cfg.SummaryFormat))))
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "collection"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("collection: %w", err)
		}
		cfg.CollectionFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "variables", "vars"); ok {
		vars, err := parseVariables(raw)
		if err != nil {
			return fmt.Errorf("variables: %w", err)
		}
		cfg.Variables = vars
	}

	if raw, ok := lookupSetting(settings, "vus"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("vus: %w", err)
		}
		cfg.VUs = val
	}

	if raw, ok := lookupSetting(settings, "iterations"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("iterations: %w", err)
		}
		cfg.Iterations = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "thinktime", "think_time", "think-time"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("thinkTime: %w", err)
		}
		cfg.ThinkTime = dur
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "retries"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("retries: %w", err)
		}
		cfg.Retries = val
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "includemethods", "include_methods", "include-methods"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("includeMethods: %w", err)
		}
		cfg.IncludeMethods = val
	}

	if raw, ok := lookupSetting(settings, "includenames", "include_names", "include-names"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("includeNames: %w", err)
		}
		cfg.IncludeNames = val
	}

	if raw, ok := lookupSetting(settings, "summaryfile", "summary_file", "summary-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("summaryFile: %w", err)
		}
		cfg.SummaryFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "summaryformat", "summary_format", "summary-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("summaryFormat: %w", err)
		}
		if val != "" {
			cfg.SummaryFormat = SummaryFormat(val)
		}
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "verbose"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		cfg.Verbose = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

// parseVariables reads a list of {key, value} entries. A plain mapping is not
// accepted because viper lowercases map keys, and placeholders are case-sensitive.
func parseVariables(value interface{}) ([]Variable, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	vars := make([]Variable, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		var v Variable
		if raw, ok := lookupSetting(entry, "key"); ok {
			if v.Key, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d: key: %w", idx, err)
			}
		}
		if raw, ok := lookupSetting(entry, "value"); ok {
			if v.Value, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d: value: %w", idx, err)
			}
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	tracing := base

	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if tracing.Endpoint, err = asString(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		if tracing.Protocol, err = asString(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if tracing.Insecure, err = asBool(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		if tracing.ServiceName, err = asString(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		if tracing.SampleRate, err = asFloat64(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = &val
	}

	return tracing, nil
}
