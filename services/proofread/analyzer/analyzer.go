// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer compares an original text with its corrected version and
// reports word-level changes.
//
// # Description
//
// Both texts are lower-cased and split on whitespace runs. The resulting token
// sequences are aligned and every mismatched column becomes an Annotation with
// a heuristic category (missing word, extra word, spelling, grammar).
//
// Two alignments are available:
//
//   - AlignmentPositional (default): index i of the original is compared with
//     index i of the corrected text. There is no resynchronization, so one
//     inserted or deleted word shifts every later column out of alignment.
//     Existing clients depend on this output.
//   - AlignmentSequence: tokens are aligned with a minimal word diff, so an
//     insertion only produces one annotation.
//
// # Thread Safety
//
// Everything in this package is a pure function of its inputs. Analyzer values
// hold no mutable state and can be shared between goroutines.
package analyzer

import (
	"fmt"
	"strings"
)

// =============================================================================
// Types
// =============================================================================

// Category is the heuristic error class assigned to an annotation.
type Category string

const (
	CategoryMissingWord    Category = "missing_word"
	CategoryExtraWord      Category = "extra_word"
	CategorySpelling       Category = "spelling"
	CategoryCapitalization Category = "capitalization"
	CategoryGrammar        Category = "grammar"

	// CategoryUnknown is part of the wire vocabulary but no rule produces it.
	CategoryUnknown Category = "unknown"
)

// Categories lists every category in decision order, followed by unknown.
var Categories = []Category{
	CategoryMissingWord,
	CategoryExtraWord,
	CategorySpelling,
	CategoryCapitalization,
	CategoryGrammar,
	CategoryUnknown,
}

// Annotation describes one mismatched column of the aligned token sequences.
//
// Original is empty when the corrected text has a token the original lacks;
// Corrected is empty when the original has a token the correction dropped.
type Annotation struct {
	Position   int      `json:"position"`
	Original   string   `json:"original"`
	Corrected  string   `json:"corrected"`
	Type       Category `json:"type"`
	Suggestion string   `json:"suggestion"`
}

// Alignment selects how the two token sequences are paired up.
type Alignment string

const (
	AlignmentPositional Alignment = "positional"
	AlignmentSequence   Alignment = "sequence"
)

// ParseAlignment converts a configuration or request value into an Alignment.
// The empty string maps to AlignmentPositional.
func ParseAlignment(s string) (Alignment, error) {
	switch Alignment(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlignmentPositional:
		return AlignmentPositional, nil
	case AlignmentSequence:
		return AlignmentSequence, nil
	default:
		return "", fmt.Errorf("unknown alignment %q (want %q or %q)", s, AlignmentPositional, AlignmentSequence)
	}
}

// =============================================================================
// Analyzer
// =============================================================================

// Analyzer is a stateless change analyzer bound to one alignment mode.
// The zero value uses positional alignment.
type Analyzer struct {
	Alignment Alignment
}

// New returns an Analyzer for the given alignment.
func New(alignment Alignment) Analyzer {
	return Analyzer{Alignment: alignment}
}

// Analyze compares original and corrected using the analyzer's alignment.
//
// # Outputs
//
//   - []Annotation: One entry per mismatched column, in ascending position
//     order. Never nil; an empty slice means no changes were detected.
func (a Analyzer) Analyze(original, corrected string) []Annotation {
	if a.Alignment == AlignmentSequence {
		return AnalyzeSequence(original, corrected)
	}
	return Analyze(original, corrected)
}

// Tokenize lower-cases text and splits it on runs of whitespace.
// Empty tokens are discarded and order is preserved.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Analyze compares original and corrected column by column.
//
// # Description
//
// Column i pairs originalTokens[i] with correctedTokens[i]; a side that has
// run out of tokens contributes the empty string. Equal columns are skipped,
// everything else is classified with Classify.
//
// # Limitations
//
//   - No resynchronization after an insertion or deletion: every following
//     column is compared against the wrong partner. Use AnalyzeSequence when
//     that cascade is not wanted.
//
// # Examples
//
//	Analyze("hello world", "hello world extra")
//	// [{Position: 2, Original: "", Corrected: "extra", Type: "missing_word", Suggestion: `Add "extra"`}]
func Analyze(original, corrected string) []Annotation {
	originalTokens := Tokenize(original)
	correctedTokens := Tokenize(corrected)

	n := max(len(originalTokens), len(correctedTokens))
	annotations := make([]Annotation, 0)
	for i := 0; i < n; i++ {
		o := tokenAt(originalTokens, i)
		c := tokenAt(correctedTokens, i)
		if o == c {
			continue
		}
		annotations = append(annotations, annotate(i, o, c))
	}
	return annotations
}

// Summarize counts annotations per category.
func Summarize(annotations []Annotation) map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, a := range annotations {
		counts[a.Type]++
	}
	return counts
}

func tokenAt(tokens []string, i int) string {
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}

func annotate(position int, o, c string) Annotation {
	category, suggestion := Classify(o, c)
	return Annotation{
		Position:   position,
		Original:   o,
		Corrected:  c,
		Type:       category,
		Suggestion: suggestion,
	}
}
