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
	"github.com/sergi/go-diff/diffmatchpatch"
)

// tokenRuneBase is the first rune handed out to a distinct token. It starts in
// the private use area so every assigned rune is a valid, non-surrogate code
// point and survives the string round trip inside diffmatchpatch.
const tokenRuneBase = 0xE000

// maxDistinctTokens is how many distinct tokens fit between tokenRuneBase and
// the last valid code point.
const maxDistinctTokens = 0x10FFFF - tokenRuneBase

// AnalyzeSequence compares original and corrected using a minimal word diff.
//
// # Description
//
// Each distinct token is encoded as a single rune and the two rune strings
// are diffed with diffmatchpatch. Equal runs advance the column counter.
// Inside a change block, deleted and inserted tokens are paired in order and
// classified with Classify; unpaired deletions become extra_word and unpaired
// insertions become missing_word.
//
// # Outputs
//
//   - []Annotation: Position is the column in the aligned sequence, where an
//     equal pair, a replaced pair, a lone deletion and a lone insertion each
//     take one column. Never nil.
//
// # Limitations
//
//   - The annotation count is bounded by len(original)+len(corrected) tokens,
//     not by the longer side as in positional mode.
//   - Inputs with more than maxDistinctTokens distinct words fall back to
//     positional alignment.
func AnalyzeSequence(original, corrected string) []Annotation {
	originalTokens := Tokenize(original)
	correctedTokens := Tokenize(corrected)

	enc := newTokenEncoder()
	originalRunes, ok1 := enc.encode(originalTokens)
	correctedRunes, ok2 := enc.encode(correctedTokens)
	if !ok1 || !ok2 {
		return Analyze(original, corrected)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMainRunes(originalRunes, correctedRunes, false)

	annotations := make([]Annotation, 0)
	column := 0
	var deleted, inserted []string

	flush := func() {
		n := max(len(deleted), len(inserted))
		for k := 0; k < n; k++ {
			o := tokenAt(deleted, k)
			c := tokenAt(inserted, k)
			if o != c {
				annotations = append(annotations, annotate(column, o, c))
			}
			column++
		}
		deleted = deleted[:0]
		inserted = inserted[:0]
	}

	for _, d := range diffs {
		tokens := enc.decode(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			column += len(tokens)
		case diffmatchpatch.DiffDelete:
			deleted = append(deleted, tokens...)
		case diffmatchpatch.DiffInsert:
			inserted = append(inserted, tokens...)
		}
	}
	flush()

	return annotations
}

// tokenEncoder maps tokens to runes and back. One encoder must be shared by
// both sides of a diff so equal tokens get equal runes.
type tokenEncoder struct {
	runes  map[string]rune
	tokens []string
}

func newTokenEncoder() *tokenEncoder {
	return &tokenEncoder{runes: make(map[string]rune)}
}

func (e *tokenEncoder) encode(tokens []string) ([]rune, bool) {
	out := make([]rune, len(tokens))
	for i, tok := range tokens {
		r, ok := e.runes[tok]
		if !ok {
			if len(e.tokens) >= maxDistinctTokens {
				return nil, false
			}
			r = rune(tokenRuneBase + len(e.tokens))
			e.runes[tok] = r
			e.tokens = append(e.tokens, tok)
		}
		out[i] = r
	}
	return out, true
}

func (e *tokenEncoder) decode(text string) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes))
	for _, r := range runes {
		idx := int(r) - tokenRuneBase
		if idx >= 0 && idx < len(e.tokens) {
			out = append(out, e.tokens[idx])
		}
	}
	return out
}
