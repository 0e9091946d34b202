// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "PROOFREAD_CONFIG"

// Load builds the effective configuration.
//
// # Description
//
// Starts from DefaultConfig, overlays the YAML file at path (or at
// $PROOFREAD_CONFIG when path is empty), applies environment overrides and
// validates the result. A missing file is not an error when the path came
// from neither argument nor environment.
//
// # Inputs
//
//   - path: Optional YAML file path.
//
// # Outputs
//
//   - Config: Effective configuration.
//   - error: Non-nil if the file cannot be read or parsed, or validation fails.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read the config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	slog.Debug("Loaded configuration file", "path", path)
	return nil
}

// WriteDefault writes DefaultConfig as YAML to path, creating parent
// directories. Existing files are left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overlays environment variables onto cfg. getenv is injected so
// tests do not have to mutate the process environment.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			slog.Warn("Ignoring invalid PORT", "value", v)
		}
	}
	if v := getenv("GIN_MODE"); v != "" {
		cfg.Server.GinMode = v
	}

	if v := getenv("PROOFREAD_PROVIDER"); v != "" {
		cfg.Provider.Backend = strings.ToLower(v)
	}
	switch cfg.Provider.Backend {
	case BackendOpenAI:
		overrideString(&cfg.Provider.Model, getenv("OPENAI_MODEL"))
		overrideString(&cfg.Provider.BaseURL, getenv("OPENAI_BASE_URL"))
		overrideString(&cfg.Provider.APIKey, getenv("OPENAI_API_KEY"))
	case BackendAnthropic:
		overrideString(&cfg.Provider.Model, getenv("CLAUDE_MODEL"))
		overrideString(&cfg.Provider.APIKey, getenv("ANTHROPIC_API_KEY"))
	case BackendOllama:
		overrideString(&cfg.Provider.Model, getenv("OLLAMA_MODEL"))
		overrideString(&cfg.Provider.BaseURL, getenv("OLLAMA_BASE_URL"))
	}
	if v := getenv("PROOFREAD_FALLBACK_TO_MOCK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Provider.FallbackToMock = b
		}
	}

	overrideString(&cfg.Analysis.Alignment, getenv("PROOFREAD_ALIGNMENT"))
	overrideString(&cfg.Records.Backend, getenv("PROOFREAD_RECORDS_BACKEND"))
	overrideString(&cfg.Records.Path, getenv("PROOFREAD_RECORDS_PATH"))
	overrideString(&cfg.Logging.Level, getenv("LOG_LEVEL"))
	overrideString(&cfg.Telemetry.TraceExporter, getenv("OTEL_TRACES_EXPORTER"))
	overrideString(&cfg.Telemetry.MetricExporter, getenv("OTEL_METRICS_EXPORTER"))
	overrideString(&cfg.Telemetry.OTLPEndpoint, getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func overrideString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
