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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianProofread/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// SystemPrompt is sent with every correction request.
const SystemPrompt = "You are a professional proofreader. Correct the grammar, spelling, " +
	"and punctuation of the text the user sends. Preserve its meaning, tone, and " +
	"wording wherever they are already correct. Return only the corrected text, " +
	"with no explanations, quotes, or extra formatting."

// DefaultTemperature is used when LLMOptions.Temperature is nil.
const DefaultTemperature float32 = 0.1

// LLMOptions tunes an LLMCorrector. Zero values select the defaults.
type LLMOptions struct {
	// Temperature for generation. Nil selects DefaultTemperature; zero is
	// sent as zero.
	Temperature *float32
	// MaxTokens caps the reply length. Zero leaves it to the backend.
	MaxTokens int
	// Timeout bounds each attempt. Default: 30s
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after the first.
	MaxRetries int
	// RetryBackoff is the first retry delay; it doubles per attempt. Default: 500ms
	RetryBackoff time.Duration
}

// LLMCorrector asks a chat model to correct text.
//
// # Description
//
// Sends SystemPrompt plus the text as a single user message. Concurrent
// calls for identical text share one upstream request. Failed attempts are
// retried with exponential backoff unless the failure is a client error
// the backend will repeat.
//
// # Thread Safety
//
// Safe for concurrent use.
type LLMCorrector struct {
	client   llm.LLMClient
	name     string
	opts     LLMOptions
	inflight singleflight.Group
}

// NewLLMCorrector wraps client. name is reported by Name and in errors.
func NewLLMCorrector(client llm.LLMClient, name string, opts LLMOptions) *LLMCorrector {
	if opts.Temperature == nil {
		t := DefaultTemperature
		opts.Temperature = &t
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &LLMCorrector{client: client, name: name, opts: opts}
}

func (c *LLMCorrector) Name() string { return c.name }

// Correct returns the model's corrected version of text.
//
// # Outputs
//
//   - string: Trimmed model output with wrapping quotes or code fences removed.
//   - error: ctx.Err() when the caller's context ends, *UpstreamError for
//     every backend failure including an empty answer. One caller's
//     cancellation never fails other callers sharing the same request.
func (c *LLMCorrector) Correct(ctx context.Context, text string) (string, error) {
	ctx, span := otel.Tracer("aleutian.proofread.provider").Start(ctx, "provider.LLMCorrector.Correct",
		trace.WithAttributes(
			attribute.String("provider", c.name),
			attribute.String("llm.model", c.client.Model()),
			attribute.Int("text_length", len(text)),
		),
	)
	defer span.End()

	// The shared call outlives any single caller; each caller only stops
	// waiting on its own cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(inflightKey(text), func() (interface{}, error) {
		return c.correctWithRetry(shared, text)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	case res = <-ch:
		if res.Err != nil && ctx.Err() != nil {
			res.Err = ctx.Err()
		}
	}
	span.SetAttributes(attribute.Bool("shared", res.Shared))
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		return "", res.Err
	}
	return res.Val.(string), nil
}

func (c *LLMCorrector) correctWithRetry(ctx context.Context, text string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.opts.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		corrected, err := c.doCorrect(ctx, text)
		if err == nil {
			return corrected, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		slog.Debug("correction attempt failed, retrying",
			slog.String("provider", c.name),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", c.opts.MaxRetries),
			slog.String("error", err.Error()),
		)
	}

	return "", &UpstreamError{Provider: c.name, Err: lastErr}
}

func (c *LLMCorrector) doCorrect(ctx context.Context, text string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	temperature := *c.opts.Temperature
	params := llm.GenerationParams{Temperature: &temperature}
	if c.opts.MaxTokens > 0 {
		maxTokens := c.opts.MaxTokens
		params.MaxTokens = &maxTokens
	}
	messages := []llm.Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: text},
	}

	reply, err := c.client.Chat(reqCtx, messages, params)
	if err != nil {
		return "", err
	}
	corrected := cleanReply(reply, text)
	if corrected == "" {
		return "", errors.New("empty response")
	}
	return corrected, nil
}

// retryable reports whether another attempt could succeed. 4xx answers
// other than 429 are repeated verbatim by backends.
func retryable(err error) bool {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, llm.ErrMissingAPIKey)
}

// cleanReply strips what chat models wrap around an answer despite being
// told not to: code fences and quotes the input did not have.
func cleanReply(reply, input string) string {
	out := strings.TrimSpace(reply)

	if strings.HasPrefix(out, "```") && strings.HasSuffix(out, "```") && len(out) >= 6 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "```"), "```")
		// Drop a language tag on the opening fence line.
		if nl := strings.IndexByte(out, '\n'); nl >= 0 && !strings.ContainsAny(out[:nl], " \t") {
			out = out[nl+1:]
		}
		out = strings.TrimSpace(out)
	}

	in := strings.TrimSpace(input)
	for _, q := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}} {
		if len(out) >= len(q[0])+len(q[1]) &&
			strings.HasPrefix(out, q[0]) && strings.HasSuffix(out, q[1]) &&
			!strings.HasPrefix(in, q[0]) {
			out = strings.TrimSpace(out[len(q[0]) : len(out)-len(q[1])])
			break
		}
	}
	return out
}

func inflightKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

