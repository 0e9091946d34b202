// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSequence_Identical(t *testing.T) {
	got := AnalyzeSequence("The same text", "the SAME text")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAnalyzeSequence_InsertionDoesNotCascade(t *testing.T) {
	got := AnalyzeSequence("the cat sat on mat", "the big cat sat on mat")

	require.Len(t, got, 1)
	assert.Equal(t, Annotation{
		Position:   1,
		Original:   "",
		Corrected:  "big",
		Type:       CategoryMissingWord,
		Suggestion: `Add "big"`,
	}, got[0])
}

func TestAnalyzeSequence_Deletion(t *testing.T) {
	got := AnalyzeSequence("hello big world", "hello world")

	require.Len(t, got, 1)
	assert.Equal(t, CategoryExtraWord, got[0].Type)
	assert.Equal(t, "big", got[0].Original)
	assert.Equal(t, 1, got[0].Position)
}

func TestAnalyzeSequence_Replacement(t *testing.T) {
	got := AnalyzeSequence("the cat sat", "the bat sat")

	require.Len(t, got, 1)
	assert.Equal(t, CategorySpelling, got[0].Type)
	assert.Equal(t, "cat", got[0].Original)
	assert.Equal(t, "bat", got[0].Corrected)
	assert.Equal(t, 1, got[0].Position)
}

func TestAnalyzeSequence_TrailingAppend(t *testing.T) {
	assert.Equal(t,
		Analyze("hello world", "hello world extra"),
		AnalyzeSequence("hello world", "hello world extra"))
}

func TestAnalyzeSequence_EmptySides(t *testing.T) {
	got := AnalyzeSequence("", "one two")
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, 1, got[1].Position)
	assert.Equal(t, CategoryMissingWord, got[1].Type)
}

func TestAnalyzer_SequenceDispatch(t *testing.T) {
	a := New(AlignmentSequence)
	assert.Len(t, a.Analyze("the cat sat on mat", "the big cat sat on mat"), 1)
}

func TestTokenEncoder_RoundTrip(t *testing.T) {
	enc := newTokenEncoder()
	runes, ok := enc.encode([]string{"a", "b", "a", "ç"})
	require.True(t, ok)
	assert.Equal(t, runes[0], runes[2])
	assert.Equal(t, []string{"a", "b", "a", "ç"}, enc.decode(string(runes)))
}
