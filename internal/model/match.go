package model

// MatchType describes which matching phase produced a result.
type MatchType string

// Match types, ordered from strongest to weakest signal.
const (
	MatchExactName           MatchType = "exact_name"
	MatchFuzzyHighConfidence MatchType = "fuzzy_high_confidence"
	MatchAuxiliaryField      MatchType = "auxiliary_field"
	MatchAmbiguousMultiple   MatchType = "ambiguous_multiple"
	MatchAmbiguousSingle     MatchType = "ambiguous_single"
	MatchPartialAmbiguous    MatchType = "partial_ambiguous"
	MatchNone                MatchType = "none"
)

// DisambiguationReason explains why a match could not be accepted silently.
type DisambiguationReason string

// Disambiguation reasons reported to the human reviewer.
const (
	ReasonMultipleKeywordMatches DisambiguationReason = "multiple_keyword_matches"
	ReasonMultipleSimilarMatches DisambiguationReason = "multiple_similar_matches"
	ReasonSingleUncertainMatch   DisambiguationReason = "single_uncertain_match"
	ReasonPartialNameMatch       DisambiguationReason = "partial_name_match"
)

// Ambiguity is one plausible canonical match presented for human review.
type Ambiguity struct {
	Brewery    CanonicalBrewery     `json:"brewery"`
	Confidence float64              `json:"confidence"`
	Reason     DisambiguationReason `json:"reason"`
}

// MatchResult is the outcome of matching one candidate name against the
// canonical brewery list. When NeedsDisambiguation is true, Matched is nil
// and Ambiguities holds at least one entry.
type MatchResult struct {
	Matched              *CanonicalBrewery    `json:"matched,omitempty"`
	Type                 MatchType            `json:"type"`
	Confidence           float64              `json:"confidence"`
	Ambiguities          []Ambiguity          `json:"ambiguities,omitempty"`
	NeedsDisambiguation  bool                 `json:"needs_disambiguation"`
	DisambiguationReason DisambiguationReason `json:"disambiguation_reason,omitempty"`
}
