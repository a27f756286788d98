package textmatch

import "testing"

func TestCommonKeywordsKnownToken(t *testing.T) {
	ks := NewKeywordSet([]string{"ipa", "viana"}, 0, 0)

	if !ks.Common("Viana", "Birrificio Indipendente Viana") {
		t.Error("Expected shared brand token to count as common keywords")
	}
	if !ks.Common("Space IPA", "Galaxy IPA") {
		t.Error("Expected shared style token to count as common keywords")
	}
	if ks.Common("Guinness", "Heineken") {
		t.Error("Expected unrelated names to share no keywords")
	}
}

func TestCommonKeywordsFuzzyTokenOverlap(t *testing.T) {
	// No configured tokens at all: only the two-fuzzy-token rule can fire.
	ks := NewKeywordSet(nil, 0, 0)

	if !ks.Common("Birrificio Angelo Poretti", "Birrificio Poretti") {
		t.Error("Expected two matching long tokens to count as common keywords")
	}
	if ks.Common("Birrificio Viana", "Cantina Sociale") {
		t.Error("Expected names with no overlapping tokens to fail")
	}
}

func TestCommonKeywordsEmpty(t *testing.T) {
	ks := NewKeywordSet(DefaultKeywords(), 0, 0)
	if ks.Common("", "Heineken") {
		t.Error("Expected empty name to share no keywords")
	}
}

func TestScorerMemoization(t *testing.T) {
	s, err := NewScorer(nil, 8)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}

	first := s.Similarity("Heineken", "Heneken")
	second := s.Similarity("Heneken", "Heineken")
	if first != second {
		t.Errorf("Expected symmetric memoized similarity, got %f and %f", first, second)
	}
	if first != Similarity("Heineken", "Heneken") {
		t.Errorf("Memoized similarity diverges from direct computation")
	}
}
