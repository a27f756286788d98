// Package store supplies the canonical brewery snapshot the pipeline matches
// against. The storage engine itself stays behind the CanonicalSource
// interface; this package adds the run-facing concerns on top of it: one bulk
// fetch per run, a two-tier cache in front of slow sources, and a fuzzy name
// index to prefilter very large catalogs.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brew-resolution-kernel/internal/jsonx"
	"github.com/brew-resolution-kernel/internal/model"
)

// snapshotKey is the cache key for the full canonical brewery list.
const snapshotKey = "canonical:breweries"

// CanonicalSource is the only dependency on the storage layer: a bulk fetch
// of every canonical brewery.
type CanonicalSource interface {
	FetchBreweries(ctx context.Context) ([]model.CanonicalBrewery, error)
}

// Config holds snapshot provider settings.
type Config struct {
	// TTL bounds how stale a cached snapshot may get.
	TTL time.Duration `yaml:"ttl"`

	// L1MaxCost is the Ristretto cost budget in bytes.
	L1MaxCost int64 `yaml:"l1_max_cost"`
}

// DefaultConfig returns sensible snapshot cache defaults.
func DefaultConfig() Config {
	return Config{
		TTL:       5 * time.Minute,
		L1MaxCost: 32 << 20,
	}
}

// Provider serves canonical snapshots through a two-tier cache:
// L1 in-process Ristretto, L2 optional shared Redis, then the source.
// Fetching once per run keeps the pipeline itself non-blocking and avoids
// read skew between candidates evaluated in the same run.
type Provider struct {
	source CanonicalSource
	l1     *ristretto.Cache[string, []byte]
	l2     *redis.Client
	cfg    Config
	logger *zap.Logger

	mu sync.Mutex // serializes source fetches on cold cache
}

// NewProvider creates a snapshot provider. redisClient may be nil for
// single-process deployments.
func NewProvider(source CanonicalSource, cfg Config, redisClient *redis.Client, logger *zap.Logger) (*Provider, error) {
	if cfg.TTL == 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l1, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1 << 10,
		MaxCost:     cfg.L1MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}

	return &Provider{
		source: source,
		l1:     l1,
		l2:     redisClient,
		cfg:    cfg,
		logger: logger.Named("store"),
	}, nil
}

// Snapshot returns the canonical brewery list, serving from cache when fresh.
// On a cold cache the source is consulted once and the result promoted to
// both tiers.
func (p *Provider) Snapshot(ctx context.Context) ([]model.CanonicalBrewery, error) {
	if data, ok := p.l1.Get(snapshotKey); ok {
		return decodeSnapshot(data)
	}

	if p.l2 != nil {
		data, err := p.l2.Get(ctx, snapshotKey).Bytes()
		if err == nil && len(data) > 0 {
			p.l1.SetWithTTL(snapshotKey, data, int64(len(data)), p.cfg.TTL)
			return decodeSnapshot(data)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have filled the cache while we waited.
	if data, ok := p.l1.Get(snapshotKey); ok {
		return decodeSnapshot(data)
	}

	breweries, err := p.source.FetchBreweries(ctx)
	if err != nil {
		return nil, fmt.Errorf("canonical snapshot fetch failed: %w", err)
	}

	data, err := jsonx.Marshal(breweries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	p.l1.SetWithTTL(snapshotKey, data, int64(len(data)), p.cfg.TTL)
	if p.l2 != nil {
		if err := p.l2.Set(ctx, snapshotKey, data, p.cfg.TTL).Err(); err != nil {
			p.logger.Warn("failed to set L2 snapshot cache", zap.Error(err))
		}
	}

	p.logger.Debug("canonical snapshot refreshed",
		zap.Int("breweries", len(breweries)),
		zap.Int("bytes", len(data)))

	return breweries, nil
}

// Invalidate drops the cached snapshot from both tiers, forcing the next run
// to hit the source. Callers use it after persisting new breweries.
func (p *Provider) Invalidate(ctx context.Context) {
	p.l1.Del(snapshotKey)
	if p.l2 != nil {
		if err := p.l2.Del(ctx, snapshotKey).Err(); err != nil {
			p.logger.Warn("failed to invalidate L2 snapshot cache", zap.Error(err))
		}
	}
}

// Close releases cache resources.
func (p *Provider) Close() {
	p.l1.Close()
}

func decodeSnapshot(data []byte) ([]model.CanonicalBrewery, error) {
	var breweries []model.CanonicalBrewery
	if err := jsonx.Unmarshal(data, &breweries); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return breweries, nil
}

// StaticSource is an in-memory CanonicalSource used for seed catalogs and
// tests.
type StaticSource struct {
	breweries []model.CanonicalBrewery
}

// NewStaticSource creates a StaticSource over the given breweries.
func NewStaticSource(breweries []model.CanonicalBrewery) *StaticSource {
	return &StaticSource{breweries: breweries}
}

// FetchBreweries returns a copy of the configured list.
func (s *StaticSource) FetchBreweries(ctx context.Context) ([]model.CanonicalBrewery, error) {
	out := make([]model.CanonicalBrewery, len(s.breweries))
	copy(out, s.breweries)
	return out, nil
}
