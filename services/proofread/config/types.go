// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config defines the proofread service configuration and loads it
// from YAML plus environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider backends.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendOllama    = "ollama"
	BackendMock      = "mock"
)

// Record store backends.
const (
	RecordsNone   = "none"
	RecordsBadger = "badger"
	RecordsSQLite = "sqlite"
)

// DefaultMaxTextChars is the request text limit enforced by the HTTP layer.
const DefaultMaxTextChars = 5000

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Records   RecordsConfig   `yaml:"records"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`             // e.g. 3000
	GinMode         string        `yaml:"gin_mode"`         // debug, release, test
	MaxTextChars    int           `yaml:"max_text_chars"`   // counted in runes
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // e.g. 10s
}

type ProviderConfig struct {
	// Backend is one of "openai", "anthropic", "ollama", "mock".
	Backend string `yaml:"backend"`
	// Model defaults per backend when empty.
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is normally left empty and read from the environment or a
	// mounted secret instead.
	APIKey string `yaml:"api_key,omitempty"`

	Temperature  float32       `yaml:"temperature"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// FallbackToMock answers with the mock corrector when the backend fails
	// instead of surfacing the error.
	FallbackToMock bool `yaml:"fallback_to_mock"`
}

type AnalysisConfig struct {
	// Alignment is "positional" or "sequence".
	Alignment string `yaml:"alignment"`
}

type RecordsConfig struct {
	// Backend is one of "none", "badger", "sqlite".
	Backend string `yaml:"backend"`
	// Path is a directory for badger and a file for sqlite.
	Path       string        `yaml:"path"`
	GCInterval time.Duration `yaml:"gc_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"` // debug, info, warn, error
	JSON   bool   `yaml:"json"`
	LogDir string `yaml:"log_dir,omitempty"`
}

type TelemetryConfig struct {
	// TraceExporter is "none", "stdout" or "otlp".
	TraceExporter string `yaml:"trace_exporter"`
	// MetricExporter is "none", "stdout" or "prometheus".
	MetricExporter string `yaml:"metric_exporter"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	EnableMetrics  bool   `yaml:"enable_metrics"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	// RequestsPerSecond per client IP; zero or less disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			GinMode:         "release",
			MaxTextChars:    DefaultMaxTextChars,
			ShutdownTimeout: 10 * time.Second,
		},
		Provider: ProviderConfig{
			Backend:      BackendOpenAI,
			Temperature:  0.1,
			MaxTokens:    2000,
			Timeout:      30 * time.Second,
			MaxRetries:   0,
			RetryBackoff: 500 * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			Alignment: "positional",
		},
		Records: RecordsConfig{
			Backend:    RecordsBadger,
			Path:       "./data/records",
			GCInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
			EnableMetrics:  true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             10,
		},
	}
}

// Validate checks the configuration for values the service cannot start with.
// All problems are reported together.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxTextChars <= 0 {
		errs = append(errs, fmt.Errorf("server.max_text_chars must be positive"))
	}

	switch c.Provider.Backend {
	case BackendOpenAI, BackendAnthropic, BackendOllama, BackendMock:
	default:
		errs = append(errs, fmt.Errorf("provider.backend %q is not one of openai, anthropic, ollama, mock", c.Provider.Backend))
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, fmt.Errorf("provider.temperature %.2f out of range [0, 2]", c.Provider.Temperature))
	}
	if c.Provider.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("provider.max_retries must not be negative"))
	}

	switch strings.ToLower(c.Analysis.Alignment) {
	case "", "positional", "sequence":
	default:
		errs = append(errs, fmt.Errorf("analysis.alignment %q is not positional or sequence", c.Analysis.Alignment))
	}

	switch c.Records.Backend {
	case RecordsNone:
	case RecordsBadger, RecordsSQLite:
		if c.Records.Path == "" {
			errs = append(errs, fmt.Errorf("records.path is required for the %s backend", c.Records.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("records.backend %q is not one of none, badger, sqlite", c.Records.Backend))
	}

	switch c.Telemetry.TraceExporter {
	case "", "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("telemetry.trace_exporter %q is not one of none, stdout, otlp", c.Telemetry.TraceExporter))
	}
	switch c.Telemetry.MetricExporter {
	case "", "none", "stdout", "prometheus":
	default:
		errs = append(errs, fmt.Errorf("telemetry.metric_exporter %q is not one of none, stdout, prometheus", c.Telemetry.MetricExporter))
	}

	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be positive when rate limiting is enabled"))
	}

	return errors.Join(errs...)
}
