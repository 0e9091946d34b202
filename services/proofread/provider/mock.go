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
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MockName is the Name reported by MockCorrector.
const MockName = "mock"

type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// mockRules are applied in order. Word rules are case-insensitive and
// anchored on word boundaries.
var mockRules = []substitution{
	{regexp.MustCompile(`(?i)\bi\b`), "I"},
	{regexp.MustCompile(`(?i)\bim\b`), "I'm"},
	{regexp.MustCompile(`(?i)\bteh\b`), "the"},
	{regexp.MustCompile(`(?i)\brecieve\b`), "receive"},
	{regexp.MustCompile(`(?i)\bdont\b`), "don't"},
	{regexp.MustCompile(`(?i)\bcant\b`), "can't"},
	{regexp.MustCompile(`(?i)\bwont\b`), "won't"},
	{regexp.MustCompile(`(?i)\balot\b`), "a lot"},
	{regexp.MustCompile(`(?i)\bthier\b`), "their"},
	{regexp.MustCompile(`(?i)\bdefinately\b`), "definitely"},
	{regexp.MustCompile(`(?i)\bseperate\b`), "separate"},
	{regexp.MustCompile(`(?i)\boccured\b`), "occurred"},
	{regexp.MustCompile(`(?i)\buntill\b`), "until"},
	{regexp.MustCompile(`\s+`), " "},
	{regexp.MustCompile(`\s+([.,!?;:])`), "$1"},
}

// MockCorrector fixes a fixed list of common typos without calling any
// model. Output is deterministic, which makes it the backend for tests,
// offline use and fallback.
type MockCorrector struct{}

func NewMockCorrector() *MockCorrector { return &MockCorrector{} }

func (m *MockCorrector) Name() string { return MockName }

// Correct never fails except on a cancelled context.
func (m *MockCorrector) Correct(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return mockCorrect(text), nil
}

func mockCorrect(text string) string {
	out := text
	for _, rule := range mockRules {
		out = rule.pattern.ReplaceAllString(out, rule.replacement)
	}
	return capitalizeFirst(strings.TrimSpace(out))
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
