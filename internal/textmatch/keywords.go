package textmatch

import "strings"

// DefaultKeywords is the default list of well-known style and brand tokens
// used for keyword-overlap matching. Kept small on purpose: these exist to
// catch brand matches where raw edit distance is misleading (e.g. "Viana"
// against "Birrificio Indipendente Viana"). Callers substitute their own list
// through NewKeywordSet, typically from configuration.
func DefaultKeywords() []string {
	return []string{
		"ipa", "apa", "lager", "pils", "pilsner", "stout", "porter",
		"ale", "weiss", "weizen", "bock", "saison", "tripel", "dubbel",
		"heineken", "guinness", "peroni", "moretti", "ichnusa", "viana",
		"baladin", "menabrea",
	}
}

// KeywordSet detects shared brand/style tokens between two names.
type KeywordSet struct {
	tokens map[string]struct{}

	// minTokenLen and tokenSimilarity govern the fuzzy token-overlap rule:
	// two names share keywords when at least two tokens of the first, each
	// longer than minTokenLen, fuzzy-match some token of the second above
	// tokenSimilarity.
	minTokenLen     int
	tokenSimilarity float64
}

// NewKeywordSet builds a KeywordSet from the given token list. Tokens are
// stored normalized. minTokenLen 0 and tokenSimilarity 0 select the defaults
// (3 and 0.8).
func NewKeywordSet(tokens []string, minTokenLen int, tokenSimilarity float64) *KeywordSet {
	if minTokenLen <= 0 {
		minTokenLen = 3
	}
	if tokenSimilarity <= 0 {
		tokenSimilarity = 0.8
	}

	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if n := Normalize(t); n != "" {
			set[n] = struct{}{}
		}
	}

	return &KeywordSet{
		tokens:          set,
		minTokenLen:     minTokenLen,
		tokenSimilarity: tokenSimilarity,
	}
}

// Common reports whether a and b share a known keyword, or whether at least
// two long tokens of a each fuzzy-match some token of b.
func (k *KeywordSet) Common(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}

	for token := range k.tokens {
		if containsToken(na, token) && containsToken(nb, token) {
			return true
		}
	}

	aTokens := Tokens(na, k.minTokenLen)
	bTokens := strings.Fields(nb)

	matched := 0
	for _, at := range aTokens {
		for _, bt := range bTokens {
			if Similarity(at, bt) > k.tokenSimilarity {
				matched++
				break
			}
		}
		if matched >= 2 {
			return true
		}
	}

	return false
}

// containsToken reports whether the normalized name contains token as a word
// or substring of a word.
func containsToken(name, token string) bool {
	return strings.Contains(name, token)
}
