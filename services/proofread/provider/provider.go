// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package provider produces corrected text for the proofread service.
//
// A Corrector is the only collaborator that talks to a language model. The
// service treats it as opaque: text in, corrected text out, or one of two
// error kinds the HTTP layer knows how to report.
//
// # Error Kinds
//
//   - ErrUnavailable: the backend is not configured (for example no API key).
//     Reported as 503.
//   - *UpstreamError: the backend was called and failed or answered with
//     something unusable. Reported as 502.
//
// Context cancellation is returned as-is so callers can tell a client that
// went away from a broken backend.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Corrector turns text into its corrected form.
type Corrector interface {
	// Correct returns the corrected version of text. The result may equal
	// the input when nothing needs fixing.
	Correct(ctx context.Context, text string) (string, error)

	// Name identifies the backend, e.g. "openai" or "mock".
	Name() string
}

// SourceCorrector is implemented by correctors that may answer from more
// than one backend.
type SourceCorrector interface {
	CorrectWithSource(ctx context.Context, text string) (corrected, source string, err error)
}

// ErrUnavailable means no usable backend is configured.
var ErrUnavailable = errors.New("correction provider unavailable")

// UpstreamError wraps a failure reported by, or while talking to, a backend.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("correction provider %s failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is, or wraps, ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsUpstream reports whether err is, or wraps, an *UpstreamError.
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}

// CorrectWithSource calls c and reports which backend produced the answer.
func CorrectWithSource(ctx context.Context, c Corrector, text string) (string, string, error) {
	if sc, ok := c.(SourceCorrector); ok {
		return sc.CorrectWithSource(ctx, text)
	}
	corrected, err := c.Correct(ctx, text)
	return corrected, c.Name(), err
}

// UnavailableCorrector fails every call with ErrUnavailable. It stands in
// for a backend that could not be configured so the service can still
// start and report the problem per request.
type UnavailableCorrector struct {
	Backend string
	Reason  error
}

func (u *UnavailableCorrector) Name() string { return u.Backend }

func (u *UnavailableCorrector) Correct(context.Context, string) (string, error) {
	if u.Reason != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, u.Backend, u.Reason)
	}
	return "", fmt.Errorf("%w: %s", ErrUnavailable, u.Backend)
}
