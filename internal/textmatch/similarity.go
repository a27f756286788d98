// Package textmatch provides the string-similarity primitives the matcher is
// built on: normalization, normalized Levenshtein similarity and keyword
// overlap detection for brewery and beer names.
package textmatch

import (
	"strings"
	"unicode"
)

// Normalize lower-cases s, strips punctuation and collapses runs of
// whitespace into single spaces.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// Punctuation acts as a separator so "Birra-Viana" and
			// "Birra Viana" normalize identically.
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// Similarity returns a normalized edit-distance similarity in [0,1].
// Equal normalized strings score 1.0; two empty strings score 1.0; an empty
// string against a non-empty one scores 0.0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	dist := levenshtein(na, nb)
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}

	sim := 1.0 - float64(dist)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// Tokens splits a normalized name into word tokens longer than minLen.
func Tokens(s string, minLen int) []string {
	fields := strings.Fields(Normalize(s))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// levenshtein computes the classic single-character edit distance using the
// two-row dynamic programming formulation.
func levenshtein(s1, s2 string) int {
	len1, len2 := len(s1), len(s2)

	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	// Keep the shorter string on the inner loop.
	if len1 < len2 {
		s1, s2 = s2, s1
		len1, len2 = len2, len1
	}

	previous := make([]int, len2+1)
	current := make([]int, len2+1)

	for i := 0; i <= len2; i++ {
		previous[i] = i
	}

	for i := 1; i <= len1; i++ {
		current[0] = i
		for j := 1; j <= len2; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}

			current[j] = minOf(
				previous[j]+1,
				current[j-1]+1,
				previous[j-1]+cost,
			)
		}
		previous, current = current, previous
	}

	return previous[len2]
}

func minOf(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
