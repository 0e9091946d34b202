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
	"log/slog"
)

// FallbackHook is told about every answer served by the fallback.
type FallbackHook func(primary string, err error)

// FallbackCorrector answers from fallback whenever primary fails.
// Cancellation of the caller's context is never masked.
type FallbackCorrector struct {
	primary    Corrector
	fallback   Corrector
	onFallback FallbackHook
}

func NewFallbackCorrector(primary, fallback Corrector, hook FallbackHook) *FallbackCorrector {
	return &FallbackCorrector{primary: primary, fallback: fallback, onFallback: hook}
}

// Name reports the primary backend.
func (f *FallbackCorrector) Name() string { return f.primary.Name() }

func (f *FallbackCorrector) Correct(ctx context.Context, text string) (string, error) {
	corrected, _, err := f.CorrectWithSource(ctx, text)
	return corrected, err
}

// CorrectWithSource returns the corrected text and the Name of the backend
// that produced it.
func (f *FallbackCorrector) CorrectWithSource(ctx context.Context, text string) (string, string, error) {
	corrected, err := f.primary.Correct(ctx, text)
	if err == nil {
		return corrected, f.primary.Name(), nil
	}
	if ctx.Err() != nil {
		return "", f.primary.Name(), err
	}

	slog.Warn("Correction provider failed, using fallback",
		"provider", f.primary.Name(),
		"fallback", f.fallback.Name(),
		"error", err,
	)
	if f.onFallback != nil {
		f.onFallback(f.primary.Name(), err)
	}

	corrected, fbErr := f.fallback.Correct(ctx, text)
	if fbErr != nil {
		return "", f.fallback.Name(), fbErr
	}
	return corrected, f.fallback.Name(), nil
}
