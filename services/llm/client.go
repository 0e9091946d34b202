// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm holds the chat-completion backends used to correct text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("aleutian.proofread.llm")

// ErrMissingAPIKey is returned by constructors when no credential could be
// resolved for a hosted backend.
var ErrMissingAPIKey = errors.New("llm: api key not configured")

// secretsDir is where container secrets are mounted. Tests override it.
var secretsDir = "/run/secrets"

// maxErrorBody caps the response body kept on an APIError.
const maxErrorBody = 512

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	// Chat sends the conversation and returns the assistant's reply text.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)

	// Model returns the model identifier requests are sent to.
	Model() string
}

// APIError is a non-2xx answer from a backend.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func newAPIError(provider string, status int, body []byte) *APIError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return &APIError{Provider: provider, StatusCode: status, Body: text}
}

// Backend names accepted by New.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendOllama    = "ollama"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Model   string
	BaseURL string
	// APIKey overrides the environment and mounted secrets when set.
	APIKey  string
	Timeout time.Duration
}

// New builds the client for cfg.Backend.
//
// # Description
//
// Resolves the credential (explicit value, then environment variable, then
// `/run/secrets/<name>`) and the per-backend default model.
//
// # Outputs
//
//   - LLMClient: Ready to use.
//   - error: ErrMissingAPIKey (wrapped) when a hosted backend has no key,
//     or an error naming an unknown backend.
//
// # Limitations
//
//   - The key value is never logged; only its presence.
func New(cfg Config) (LLMClient, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	switch strings.ToLower(cfg.Backend) {
	case BackendOpenAI:
		return NewOpenAIClient(cfg)
	case BackendAnthropic:
		return NewAnthropicClient(cfg)
	case BackendOllama:
		return NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}

// resolveAPIKey returns the first non-empty of explicit, $envVar and the
// secret file named secretName.
func resolveAPIKey(explicit, envVar, secretName string) string {
	if key := strings.TrimSpace(explicit); key != "" {
		return key
	}
	if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
		return key
	}
	secretPath := filepath.Join(secretsDir, secretName)
	if content, err := os.ReadFile(secretPath); err == nil {
		if key := strings.TrimSpace(string(content)); key != "" {
			slog.Info("Read API key from mounted secret", "path", secretPath)
			return key
		}
	}
	return ""
}
