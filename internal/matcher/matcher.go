// Package matcher decides whether a candidate name plus auxiliary fields
// resolves to a single canonical brewery, a set of ambiguous near-matches
// that a human must disambiguate, or no match at all. Matching is pure and
// deterministic: the same inputs always produce the same MatchResult.
//
// The thresholds are deliberately asymmetric. A false merge (claiming two
// distinct breweries are the same) is worse than a false split (creating a
// near-duplicate), so every tier that is not overwhelmingly confident routes
// to a human instead of auto-merging.
package matcher

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/brew-resolution-kernel/internal/model"
	"github.com/brew-resolution-kernel/internal/textmatch"
)

// Config holds the matching thresholds. Defaults reflect the empirically
// calibrated values; treat them as tuning knobs, not invariants.
type Config struct {
	// KeepThreshold admits a canonical entry into the fuzzy pass.
	KeepThreshold float64 `yaml:"keep_threshold"`

	// AmbiguityThreshold marks a fuzzy score strong enough to contest the
	// best match.
	AmbiguityThreshold float64 `yaml:"ambiguity_threshold"`

	// HighConfidence is the floor for accepting a fuzzy match silently.
	HighConfidence float64 `yaml:"high_confidence"`

	// PartialTokenFraction is the minimum fraction of candidate name tokens
	// that must appear inside a canonical name for the last-resort pass.
	PartialTokenFraction float64 `yaml:"partial_token_fraction"`

	// MinPartialTokenLen filters out short tokens in the partial pass.
	MinPartialTokenLen int `yaml:"min_partial_token_len"`

	// MaxAmbiguities bounds how many near-matches are reported for review.
	MaxAmbiguities int `yaml:"max_ambiguities"`
}

// DefaultConfig returns the calibrated default thresholds.
func DefaultConfig() Config {
	return Config{
		KeepThreshold:        0.6,
		AmbiguityThreshold:   0.7,
		HighConfidence:       0.85,
		PartialTokenFraction: 0.5,
		MinPartialTokenLen:   2,
		MaxAmbiguities:       5,
	}
}

// Aux carries the auxiliary identifying fields of a candidate. They are
// stronger signals than the name alone because they are far less likely to
// collide by chance.
type Aux struct {
	Website string
	Email   string
	Address string
}

// Matcher matches candidate names against canonical breweries.
type Matcher struct {
	cfg    Config
	scorer *textmatch.Scorer
	logger *zap.Logger
}

// New creates a Matcher. A nil scorer gets a default one.
func New(cfg Config, scorer *textmatch.Scorer, logger *zap.Logger) (*Matcher, error) {
	if cfg.MaxAmbiguities <= 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		var err error
		scorer, err = textmatch.NewScorer(nil, 0)
		if err != nil {
			return nil, err
		}
	}
	return &Matcher{cfg: cfg, scorer: scorer, logger: logger.Named("matcher")}, nil
}

// scored pairs a canonical brewery with its fuzzy signals.
type scored struct {
	brewery    model.CanonicalBrewery
	similarity float64
	keywords   bool
}

// Match runs the tiered matching algorithm, short-circuiting on the first
// conclusive phase: exact name, fuzzy name, auxiliary fields, partial name
// tokens, then none.
func (m *Matcher) Match(name string, aux Aux, canon []model.CanonicalBrewery) model.MatchResult {
	if exact := m.exactName(name, canon); exact != nil {
		return *exact
	}

	if fuzzy := m.fuzzyName(name, canon); fuzzy != nil {
		return *fuzzy
	}

	if byAux := m.auxiliaryFields(aux, canon); byAux != nil {
		return *byAux
	}

	if partial := m.partialTokens(name, canon); partial != nil {
		return *partial
	}

	return model.MatchResult{Type: model.MatchNone}
}

// exactName looks for a case-insensitive normalized name equality.
func (m *Matcher) exactName(name string, canon []model.CanonicalBrewery) *model.MatchResult {
	target := textmatch.Normalize(name)
	if target == "" {
		return nil
	}

	for i := range canon {
		if textmatch.Normalize(canon[i].Name) == target {
			m.logger.Debug("exact name match",
				zap.String("name", name),
				zap.String("canonical_id", canon[i].ID))
			return &model.MatchResult{
				Matched:    &canon[i],
				Type:       model.MatchExactName,
				Confidence: 1.0,
			}
		}
	}
	return nil
}

// fuzzyName runs similarity and keyword overlap against every canonical
// entry, then classifies the survivors into a confident match, an ambiguous
// set, a single uncertain match, or nothing.
func (m *Matcher) fuzzyName(name string, canon []model.CanonicalBrewery) *model.MatchResult {
	if textmatch.Normalize(name) == "" {
		return nil
	}

	var kept []scored
	for i := range canon {
		sim := m.scorer.Similarity(name, canon[i].Name)
		kw := m.scorer.CommonKeywords(name, canon[i].Name)
		if sim > m.cfg.KeepThreshold || kw {
			kept = append(kept, scored{brewery: canon[i], similarity: sim, keywords: kw})
		}
	}
	if len(kept) == 0 {
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].similarity > kept[j].similarity
	})

	best := kept[0]
	strong := 0
	keyworded := 0
	for _, s := range kept {
		if s.similarity > m.cfg.AmbiguityThreshold {
			strong++
		}
		if s.keywords {
			keyworded++
		}
	}

	// Overwhelming single winner: high similarity, shared keywords, and no
	// runner-up anywhere near it.
	if best.similarity > m.cfg.HighConfidence && best.keywords && strong <= 1 {
		m.logger.Debug("fuzzy high-confidence match",
			zap.String("name", name),
			zap.String("canonical_id", best.brewery.ID),
			zap.Float64("similarity", best.similarity))
		return &model.MatchResult{
			Matched:    &best.brewery,
			Type:       model.MatchFuzzyHighConfidence,
			Confidence: best.similarity,
		}
	}

	secondClose := len(kept) > 1 && kept[1].similarity > m.cfg.KeepThreshold
	if strong > 1 || keyworded > 1 || secondClose {
		reason := model.ReasonMultipleSimilarMatches
		if keyworded > 1 {
			reason = model.ReasonMultipleKeywordMatches
		}
		return &model.MatchResult{
			Type:                 model.MatchAmbiguousMultiple,
			NeedsDisambiguation:  true,
			DisambiguationReason: reason,
			Ambiguities:          m.ambiguities(kept, reason),
		}
	}

	if best.similarity > m.cfg.AmbiguityThreshold || best.keywords {
		// One plausible candidate, but not confident enough for a silent
		// merge; the caller must still confirm.
		return &model.MatchResult{
			Type:                 model.MatchAmbiguousSingle,
			NeedsDisambiguation:  true,
			DisambiguationReason: model.ReasonSingleUncertainMatch,
			Ambiguities: []model.Ambiguity{{
				Brewery:    best.brewery,
				Confidence: best.similarity,
				Reason:     model.ReasonSingleUncertainMatch,
			}},
		}
	}

	return nil
}

// auxiliaryFields matches on exact website or email, or address containment.
// Any hit is conclusive with no disambiguation required.
func (m *Matcher) auxiliaryFields(aux Aux, canon []model.CanonicalBrewery) *model.MatchResult {
	website := normalizeURL(aux.Website)
	email := strings.ToLower(strings.TrimSpace(aux.Email))
	address := textmatch.Normalize(aux.Address)

	for i := range canon {
		c := &canon[i]
		if website != "" && normalizeURL(c.Website) == website {
			return m.auxResult(c, "website")
		}
		if email != "" && strings.ToLower(strings.TrimSpace(c.Email)) == email {
			return m.auxResult(c, "email")
		}
		if address != "" {
			for _, canonAddr := range []string{c.LegalAddress, c.ProductionAddress} {
				n := textmatch.Normalize(canonAddr)
				if n == "" {
					continue
				}
				if strings.Contains(n, address) || strings.Contains(address, n) {
					return m.auxResult(c, "address")
				}
			}
		}
	}
	return nil
}

func (m *Matcher) auxResult(c *model.CanonicalBrewery, field string) *model.MatchResult {
	m.logger.Debug("auxiliary field match",
		zap.String("canonical_id", c.ID),
		zap.String("field", field))
	return &model.MatchResult{
		Matched:    c,
		Type:       model.MatchAuxiliaryField,
		Confidence: 1.0,
	}
}

// partialTokens is the last resort: the fraction of candidate name tokens
// contained in a canonical name. A hit always requires disambiguation.
func (m *Matcher) partialTokens(name string, canon []model.CanonicalBrewery) *model.MatchResult {
	tokens := textmatch.Tokens(name, m.cfg.MinPartialTokenLen)
	if len(tokens) == 0 {
		return nil
	}

	bestFraction := 0.0
	bestIdx := -1
	for i := range canon {
		canonName := textmatch.Normalize(canon[i].Name)
		if canonName == "" {
			continue
		}
		contained := 0
		for _, t := range tokens {
			if strings.Contains(canonName, t) {
				contained++
			}
		}
		fraction := float64(contained) / float64(len(tokens))
		if fraction > bestFraction {
			bestFraction = fraction
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestFraction < m.cfg.PartialTokenFraction {
		return nil
	}

	return &model.MatchResult{
		Type:                 model.MatchPartialAmbiguous,
		NeedsDisambiguation:  true,
		DisambiguationReason: model.ReasonPartialNameMatch,
		Ambiguities: []model.Ambiguity{{
			Brewery:    canon[bestIdx],
			Confidence: bestFraction,
			Reason:     model.ReasonPartialNameMatch,
		}},
	}
}

func (m *Matcher) ambiguities(kept []scored, reason model.DisambiguationReason) []model.Ambiguity {
	limit := m.cfg.MaxAmbiguities
	if len(kept) < limit {
		limit = len(kept)
	}
	out := make([]model.Ambiguity, 0, limit)
	for _, s := range kept[:limit] {
		out = append(out, model.Ambiguity{
			Brewery:    s.brewery,
			Confidence: s.similarity,
			Reason:     reason,
		})
	}
	return out
}

// normalizeURL reduces a URL to a comparable form: lower-case, no scheme,
// no "www." prefix, no trailing slash.
func normalizeURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}
