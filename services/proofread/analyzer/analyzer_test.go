// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Tokenize Tests
// =============================================================================

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", " \t\n ", []string{}},
		{"lower-cases", "Hello World", []string{"hello", "world"}},
		{"collapses runs", "a   b\t\tc\n\nd", []string{"a", "b", "c", "d"}},
		{"keeps punctuation attached", "Hi, there.", []string{"hi,", "there."}},
		{"trims edges", "  lead trail  ", []string{"lead", "trail"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			assert.Equal(t, len(tt.want), len(got))
			for i := range tt.want {
				assert.Equal(t, tt.want[i], got[i])
			}
		})
	}
}

// =============================================================================
// IsLikelySpelling Tests
// =============================================================================

func TestIsLikelySpelling(t *testing.T) {
	tests := []struct {
		w1, w2 string
		want   bool
	}{
		{"cat", "bat", true},          // 2/3 > 0.6
		{"a", "abcdef", false},        // length diff 5
		{"", "word", false},           // empty side
		{"word", "", false},           // empty side
		{"mistak", "mistake", true},   // 6/6
		{"wold", "would", false},      // 2/4 = 0.5, not > 0.6
		{"no", "not", true},           // 2/2
		{"teh", "the", false},         // 1/3
		{"recieve", "receive", true},  // 5/7
		{"abcde", "abxyz", false},     // 2/5 = 0.4
		{"abcd", "abcx", true},        // 3/4 = 0.75
		{"abcde", "abcxy", false},     // 3/5 = 0.6, not strictly greater
		{"ab", "abcd", true},          // diff 2, 2/2
		{"ab", "abcde", false},        // diff 3
		{"café", "cafe", true},        // compared per rune, 3/4
	}
	for _, tt := range tests {
		t.Run(tt.w1+"_"+tt.w2, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLikelySpelling(tt.w1, tt.w2))
		})
	}
}

// =============================================================================
// Classify Tests
// =============================================================================

func TestClassify_DecisionOrder(t *testing.T) {
	tests := []struct {
		name           string
		o, c           string
		wantType       Category
		wantSuggestion string
	}{
		{"missing word", "", "extra", CategoryMissingWord, `Add "extra"`},
		{"extra word", "extra", "", CategoryExtraWord, `Remove "extra"`},
		{"spelling", "cat", "bat", CategorySpelling, `"cat" → "bat"`},
		{"grammar", "a", "abcdef", CategoryGrammar, `"a" → "abcdef"`},
		{"grammar for unrelated words", "is", "are", CategoryGrammar, `"is" → "are"`},
		// Identical tokens score 1.0 on the spelling heuristic, so the
		// capitalization rule is shadowed even for "i" against "i".
		{"identical i is spelling", "i", "i", CategorySpelling, `"i" → "i"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotSuggestion := Classify(tt.o, tt.c)
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantSuggestion, gotSuggestion)
		})
	}
}

func TestClassify_QuotesAreNotEscaped(t *testing.T) {
	_, suggestion := Classify(`"quoted"`, "")
	assert.Equal(t, `Remove ""quoted""`, suggestion)
}

// =============================================================================
// Analyze Tests
// =============================================================================

func TestAnalyze_IdenticalTextsProduceNothing(t *testing.T) {
	inputs := []string{"", "hello", "The quick brown fox.", "  spaced   out  ", "ÜBER straße"}
	for _, s := range inputs {
		got := Analyze(s, s)
		require.NotNil(t, got)
		assert.Empty(t, got, "input %q", s)
	}
}

func TestAnalyze_CaseInsensitive(t *testing.T) {
	assert.Empty(t, Analyze("i think so", "I Think SO"))
}

func TestAnalyze_MissingWord(t *testing.T) {
	got := Analyze("hello world", "hello world extra")

	require.Len(t, got, 1)
	assert.Equal(t, Annotation{
		Position:   2,
		Original:   "",
		Corrected:  "extra",
		Type:       CategoryMissingWord,
		Suggestion: `Add "extra"`,
	}, got[0])
}

func TestAnalyze_ExtraWord(t *testing.T) {
	got := Analyze("hello world extra", "hello world")

	require.Len(t, got, 1)
	assert.Equal(t, Annotation{
		Position:   2,
		Original:   "extra",
		Corrected:  "",
		Type:       CategoryExtraWord,
		Suggestion: `Remove "extra"`,
	}, got[0])
}

func TestAnalyze_SentenceExample(t *testing.T) {
	got := Analyze("i wold no make same again mistak .", "I would not make the same mistake again.")

	want := []Annotation{
		{Position: 1, Original: "wold", Corrected: "would", Type: CategoryGrammar, Suggestion: `"wold" → "would"`},
		{Position: 2, Original: "no", Corrected: "not", Type: CategorySpelling, Suggestion: `"no" → "not"`},
		{Position: 4, Original: "same", Corrected: "the", Type: CategoryGrammar, Suggestion: `"same" → "the"`},
		{Position: 5, Original: "again", Corrected: "same", Type: CategoryGrammar, Suggestion: `"again" → "same"`},
		{Position: 6, Original: "mistak", Corrected: "mistake", Type: CategorySpelling, Suggestion: `"mistak" → "mistake"`},
		{Position: 7, Original: ".", Corrected: "again.", Type: CategoryGrammar, Suggestion: `"." → "again."`},
	}
	assert.Equal(t, want, got)
}

// TestAnalyze_InsertionCascades pins the positional behavior: one inserted
// word misaligns every following column.
func TestAnalyze_InsertionCascades(t *testing.T) {
	got := Analyze("the cat sat on mat", "the big cat sat on mat")

	require.Len(t, got, 5)
	for i, a := range got {
		assert.Equal(t, i+1, a.Position)
	}
	assert.Equal(t, CategoryMissingWord, got[4].Type)
	assert.Equal(t, "mat", got[4].Corrected)
}

func TestAnalyze_EmptySides(t *testing.T) {
	got := Analyze("", "one two")
	require.Len(t, got, 2)
	assert.Equal(t, CategoryMissingWord, got[0].Type)
	assert.Equal(t, CategoryMissingWord, got[1].Type)

	got = Analyze("one two", "")
	require.Len(t, got, 2)
	assert.Equal(t, CategoryExtraWord, got[0].Type)
	assert.Equal(t, CategoryExtraWord, got[1].Type)
}

func TestAnalyze_CapitalizationNeverProduced(t *testing.T) {
	got := Analyze("i went home and i slept", "I went home, and I slept.")
	for _, a := range got {
		assert.NotEqual(t, CategoryCapitalization, a.Type)
	}
}

func TestAnalyze_BoundAndOrdering(t *testing.T) {
	words := []string{"a", "the", "cat", "bat", "i", "I", "mistake", "mistak", "would", "wold", ".", "Hello,"}
	rng := rand.New(rand.NewSource(42))
	randomText := func() (string, int) {
		n := rng.Intn(12)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = words[rng.Intn(len(words))]
		}
		return strings.Join(parts, " "), n
	}

	for i := 0; i < 500; i++ {
		o, on := randomText()
		c, cn := randomText()

		got := Analyze(o, c)
		assert.LessOrEqual(t, len(got), max(on, cn))
		for j := 1; j < len(got); j++ {
			assert.Less(t, got[j-1].Position, got[j].Position)
		}
		for _, a := range got {
			assert.NotEqual(t, a.Original, a.Corrected)
		}
		assert.Equal(t, got, Analyze(o, c), "analysis must be repeatable")
	}
}

// =============================================================================
// Analyzer / ParseAlignment Tests
// =============================================================================

func TestParseAlignment(t *testing.T) {
	a, err := ParseAlignment("")
	require.NoError(t, err)
	assert.Equal(t, AlignmentPositional, a)

	a, err = ParseAlignment(" Sequence ")
	require.NoError(t, err)
	assert.Equal(t, AlignmentSequence, a)

	_, err = ParseAlignment("lcs")
	assert.Error(t, err)
}

func TestAnalyzer_ZeroValueIsPositional(t *testing.T) {
	var a Analyzer
	assert.Equal(t,
		Analyze("the cat sat", "the big cat sat"),
		a.Analyze("the cat sat", "the big cat sat"))
}

func TestSummarize(t *testing.T) {
	got := Summarize(Analyze("hello worle extra", "hello world"))
	assert.Equal(t, 1, got[CategorySpelling])
	assert.Equal(t, 1, got[CategoryExtraWord])
	assert.Equal(t, 0, got[CategoryGrammar])
}
