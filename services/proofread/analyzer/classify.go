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

// spellingSimilarityThreshold is the share of position-aligned matching
// characters above which two words count as a misspelling of each other.
const spellingSimilarityThreshold = 0.6

// maxSpellingLengthDiff is the largest length difference still considered a
// spelling mistake.
const maxSpellingLengthDiff = 2

// Classify assigns a category and a human-readable suggestion to a mismatched
// pair of lower-cased tokens. The first matching rule wins:
//
//  1. o empty, c not empty: missing_word, `Add "c"`
//  2. o not empty, c empty: extra_word, `Remove "o"`
//  3. IsLikelySpelling(o, c): spelling, `"o" → "c"`
//  4. o == "i" and c == "i": capitalization, `Capitalize "I"`
//  5. otherwise: grammar, `"o" → "c"`
//
// Rule 4 never fires: its only input pair is o == c == "i", which rule 3
// already claims with a similarity of 1.0, and Analyze skips equal columns
// before classifying anyway. It is kept in place so the rule order matches
// existing output.
func Classify(o, c string) (Category, string) {
	switch {
	case o == "" && c != "":
		return CategoryMissingWord, `Add "` + c + `"`
	case o != "" && c == "":
		return CategoryExtraWord, `Remove "` + o + `"`
	case IsLikelySpelling(o, c):
		return CategorySpelling, replaceSuggestion(o, c)
	case o == "i" && c == "i":
		return CategoryCapitalization, `Capitalize "I"`
	default:
		return CategoryGrammar, replaceSuggestion(o, c)
	}
}

// IsLikelySpelling reports whether word2 looks like a spelling fix of word1.
//
// # Description
//
// Characters are compared at the same index from the start of both words, with
// no shifting. The words are considered a spelling pair when their lengths
// differ by at most two and more than 60% of the shorter word's characters
// match their counterpart. This is a prefix-similarity ratio, not an edit
// distance: "cat"/"bat" matches (2 of 3) but "wold"/"would" does not (2 of 4).
func IsLikelySpelling(word1, word2 string) bool {
	if word1 == "" || word2 == "" {
		return false
	}
	r1, r2 := []rune(word1), []rune(word2)
	if abs(len(r1)-len(r2)) > maxSpellingLengthDiff {
		return false
	}

	minLen := min(len(r1), len(r2))
	common := 0
	for i := 0; i < minLen; i++ {
		if r1[i] == r2[i] {
			common++
		}
	}
	return float64(common)/float64(minLen) > spellingSimilarityThreshold
}

// replaceSuggestion formats `"o" → "c"`. Tokens are inserted verbatim.
func replaceSuggestion(o, c string) string {
	return `"` + o + `" → "` + c + `"`
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
