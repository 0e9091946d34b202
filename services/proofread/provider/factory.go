// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provider

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianProofread/services/llm"
	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
)

type factoryOptions struct {
	client       llm.LLMClient
	fallbackHook FallbackHook
}

// Option customizes New.
type Option func(*factoryOptions)

// WithLLMClient uses client instead of building one from the config.
func WithLLMClient(client llm.LLMClient) Option {
	return func(o *factoryOptions) { o.client = client }
}

// WithFallbackHook is called whenever the mock answers for a failed backend.
func WithFallbackHook(hook FallbackHook) Option {
	return func(o *factoryOptions) { o.fallbackHook = hook }
}

// New builds the corrector chain for cfg.
//
// # Description
//
// "mock" selects MockCorrector. Other backends get an LLMCorrector; a
// backend without credentials becomes an UnavailableCorrector so the
// service still starts. With FallbackToMock the result is wrapped in a
// FallbackCorrector backed by the mock.
//
// # Outputs
//
//   - Corrector: Never nil when err is nil.
//   - error: Only for configuration the service cannot run with.
func New(cfg config.ProviderConfig, opts ...Option) (Corrector, error) {
	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Backend == config.BackendMock {
		slog.Info("Using mock correction provider")
		return NewMockCorrector(), nil
	}

	var primary Corrector
	client := o.client
	if client == nil {
		var err error
		client, err = llm.New(llm.Config{
			Backend: cfg.Backend,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
		switch {
		case errors.Is(err, llm.ErrMissingAPIKey):
			slog.Warn("Correction provider has no credential, requests will fail with 503",
				"provider", cfg.Backend, "api_key_present", false)
			primary = &UnavailableCorrector{Backend: cfg.Backend, Reason: err}
		case err != nil:
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Backend, err)
		}
	}
	if primary == nil {
		temperature := cfg.Temperature
		primary = NewLLMCorrector(client, cfg.Backend, LLMOptions{
			Temperature:  &temperature,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		})
	}

	if cfg.FallbackToMock {
		return NewFallbackCorrector(primary, NewMockCorrector(), o.fallbackHook), nil
	}
	return primary, nil
}
