package textmatch

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Scorer memoizes pairwise similarity scores across a run. Matching one
// candidate against a large canonical list recomputes many identical pairs
// (the keyword rule reuses token similarities), so an LRU in front of the
// Levenshtein pass pays for itself quickly.
type Scorer struct {
	keywords *KeywordSet
	cache    *lru.Cache[string, float64]
}

// NewScorer creates a Scorer with the given keyword set and cache size.
// cacheSize 0 selects a default of 4096 entries.
func NewScorer(keywords *KeywordSet, cacheSize int) (*Scorer, error) {
	if keywords == nil {
		keywords = NewKeywordSet(DefaultKeywords(), 0, 0)
	}
	if cacheSize <= 0 {
		cacheSize = 4096
	}

	cache, err := lru.New[string, float64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create similarity cache: %w", err)
	}

	return &Scorer{keywords: keywords, cache: cache}, nil
}

// Similarity returns the memoized normalized edit-distance similarity.
// The cache key is order-independent since Similarity is symmetric.
func (s *Scorer) Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if nb < na {
		na, nb = nb, na
	}

	key := na + "\x00" + nb
	if v, ok := s.cache.Get(key); ok {
		return v
	}

	v := Similarity(na, nb)
	s.cache.Add(key, v)
	return v
}

// CommonKeywords reports keyword overlap between a and b.
func (s *Scorer) CommonKeywords(a, b string) bool {
	return s.keywords.Common(a, b)
}
