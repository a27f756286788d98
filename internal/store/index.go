package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/brew-resolution-kernel/internal/model"
)

// IndexConfig holds prefilter index settings.
type IndexConfig struct {
	// Fuzziness is the Levenshtein distance for the bleve fuzzy query.
	Fuzziness int `yaml:"fuzziness"`

	// Limit bounds how many canonical breweries the prefilter hands to the
	// matcher per candidate.
	Limit int `yaml:"limit"`

	// MinCatalog disables prefiltering below this catalog size; the matcher
	// scans small snapshots directly.
	MinCatalog int `yaml:"min_catalog"`
}

// DefaultIndexConfig returns prefilter defaults.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Fuzziness:  2,
		Limit:      50,
		MinCatalog: 200,
	}
}

// NameIndex narrows a large canonical catalog to the entries worth scoring
// for a given candidate name. The exhaustive matcher stays authoritative;
// the index only prunes, it never decides.
type NameIndex struct {
	cfg    IndexConfig
	logger *zap.Logger

	mu        sync.RWMutex
	index     bleve.Index
	breweries map[string]model.CanonicalBrewery
}

// indexDoc is the shape stored per canonical brewery.
type indexDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewNameIndex creates an empty in-memory prefilter index.
func NewNameIndex(cfg IndexConfig, logger *zap.Logger) (*NameIndex, error) {
	if cfg.Limit == 0 {
		cfg = DefaultIndexConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &NameIndex{
		cfg:       cfg,
		logger:    logger.Named("nameindex"),
		index:     idx,
		breweries: make(map[string]model.CanonicalBrewery),
	}, nil
}

func buildMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Index = true
	nameField.Store = true
	docMapping.AddFieldMappingsAt("name", nameField)

	idField := bleve.NewTextFieldMapping()
	idField.Index = true
	idField.Store = true
	idField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("id", idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("brewery", docMapping)
	indexMapping.DefaultAnalyzer = "standard"
	return indexMapping
}

// Rebuild replaces the index contents with the given snapshot.
func (ni *NameIndex) Rebuild(ctx context.Context, breweries []model.CanonicalBrewery) error {
	ni.mu.Lock()
	defer ni.mu.Unlock()

	fresh, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("failed to rebuild bleve index: %w", err)
	}

	batch := fresh.NewBatch()
	byID := make(map[string]model.CanonicalBrewery, len(breweries))
	for _, b := range breweries {
		byID[b.ID] = b
		if err := batch.Index(b.ID, indexDoc{ID: b.ID, Name: b.Name}); err != nil {
			ni.logger.Warn("failed to add brewery to index batch",
				zap.String("id", b.ID),
				zap.Error(err))
		}
	}
	if err := fresh.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute index batch: %w", err)
	}

	old := ni.index
	ni.index = fresh
	ni.breweries = byID
	if old != nil {
		old.Close()
	}

	ni.logger.Info("name index rebuilt", zap.Int("breweries", len(breweries)))
	return nil
}

// Prefilter returns the canonical breweries worth matching against name.
// Small catalogs pass through untouched; large ones are narrowed by a fuzzy
// name query, falling back to the full list when the query finds nothing.
func (ni *NameIndex) Prefilter(ctx context.Context, name string, all []model.CanonicalBrewery) []model.CanonicalBrewery {
	if len(all) < ni.cfg.MinCatalog || name == "" {
		return all
	}

	ni.mu.RLock()
	defer ni.mu.RUnlock()

	fuzzy := query.NewFuzzyQuery(name)
	fuzzy.SetField("name")
	fuzzy.SetFuzziness(ni.cfg.Fuzziness)

	match := bleve.NewMatchQuery(name)
	match.SetField("name")

	req := bleve.NewSearchRequest(query.NewDisjunctionQuery([]query.Query{fuzzy, match}))
	req.Size = ni.cfg.Limit
	req.Fields = []string{"id"}

	res, err := ni.index.Search(req)
	if err != nil || len(res.Hits) == 0 {
		// Pruning is best-effort only; never let it hide a match.
		return all
	}

	out := make([]model.CanonicalBrewery, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if b, ok := ni.breweries[hit.ID]; ok {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}

// Close releases index resources.
func (ni *NameIndex) Close() error {
	ni.mu.Lock()
	defer ni.mu.Unlock()
	if ni.index == nil {
		return nil
	}
	return ni.index.Close()
}
