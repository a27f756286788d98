// Package server exposes the validation pipeline as a thin JSON-over-HTTP
// surface. It owns the request-scoped plumbing the pipeline deliberately
// avoids: decoding, the canonical snapshot fetch, idempotent replay of
// identical submissions, and publishing outcomes to the review queue.
package server

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/brew-resolution-kernel/internal/events"
	"github.com/brew-resolution-kernel/internal/jsonx"
	"github.com/brew-resolution-kernel/internal/model"
	"github.com/brew-resolution-kernel/internal/pipeline"
	"github.com/brew-resolution-kernel/internal/store"
)

// Config holds the HTTP surface settings.
type Config struct {
	MaxBodyBytes   int64
	ReplayCacheTTL time.Duration
	ReplayCacheLen int
}

// DefaultConfig returns server defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   1 << 20,
		ReplayCacheTTL: 10 * time.Minute,
		ReplayCacheLen: 1024,
	}
}

// ValidateRequest is the request body of POST /api/validate.
type ValidateRequest struct {
	Breweries []*model.Candidate `json:"breweries"`
	Beers     []*model.Candidate `json:"beers"`
}

// Stats are the counters reported on GET /api/stats.
type Stats struct {
	Requests      int64 `json:"requests"`
	Replays       int64 `json:"replays"`
	Blocked       int64 `json:"blocked"`
	DirectSaves   int64 `json:"direct_saves"`
	Confirmations int64 `json:"confirmations"`
	Completions   int64 `json:"completions"`
}

// Server wires the pipeline to HTTP.
type Server struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	provider *store.Provider
	index    *store.NameIndex
	events   *events.Publisher
	logger   *zap.Logger

	replay *lru.LRU[string, []byte]

	requests      atomic.Int64
	replays       atomic.Int64
	blocked       atomic.Int64
	directSaves   atomic.Int64
	confirmations atomic.Int64
	completions   atomic.Int64
}

// New creates a Server. index and publisher may be nil.
func New(cfg Config, p *pipeline.Pipeline, provider *store.Provider, index *store.NameIndex, publisher *events.Publisher, logger *zap.Logger) *Server {
	if cfg.MaxBodyBytes == 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		cfg:      cfg,
		pipeline: p,
		provider: provider,
		index:    index,
		events:   publisher,
		logger:   logger.Named("server"),
		replay:   lru.NewLRU[string, []byte](cfg.ReplayCacheLen, nil, cfg.ReplayCacheTTL),
	}
}

// Handler returns the routed HTTP handler with recovery and compression
// middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/validate", s.handleValidate).Methods(http.MethodPost)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
	)(handlers.CompressHandler(r))
}

// handleValidate runs one pipeline pass over the submitted extraction.
// Identical bodies within the replay TTL get the cached outcome back, so
// client retries never trigger duplicate review-queue events.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	key := replayKey(body)
	if cached, ok := s.replay.Get(key); ok {
		s.replays.Add(1)
		writeJSONBytes(w, http.StatusOK, cached)
		return
	}

	var req ValidateRequest
	if err := jsonx.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	outcome := s.run(r, &req)
	s.count(outcome.Flow)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	data, err := jsonx.Marshal(outcome)
	if err != nil {
		s.logger.Error("failed to encode outcome", zap.Error(err))
		http.Error(w, "failed to encode outcome", http.StatusInternalServerError)
		return
	}
	buf.Set(data)

	if outcome.Flow != model.FlowBlocked {
		s.replay.Add(key, append([]byte(nil), buf.B...))
	}

	s.events.PublishOutcome(r.Context(), outcome)
	writeJSONBytes(w, http.StatusOK, buf.B)
}

// run fetches the canonical snapshot and invokes the pipeline. A snapshot
// failure blocks the whole run with a single Retry action instead of
// producing partial nonsense.
func (s *Server) run(r *http.Request, req *ValidateRequest) *model.ValidationOutcome {
	snapshot, err := s.provider.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("canonical snapshot unavailable", zap.Error(err))
		return s.pipeline.Blocked(err)
	}

	canon := s.narrow(r.Context(), req, snapshot)
	return s.pipeline.Run(r.Context(), req.Breweries, req.Beers, canon)
}

// narrow prunes a large canonical catalog to the union of per-candidate
// prefilter results. Candidates carrying auxiliary fields keep the full
// snapshot: the name index cannot see websites or addresses.
func (s *Server) narrow(ctx context.Context, req *ValidateRequest, snapshot []model.CanonicalBrewery) []model.CanonicalBrewery {
	if s.index == nil {
		return snapshot
	}

	seen := make(map[string]struct{})
	var union []model.CanonicalBrewery
	for _, c := range req.Breweries {
		if c.Brewery != nil && (c.Brewery.Website != "" || c.Brewery.Email != "" || c.Brewery.LegalAddress != "" || c.Brewery.ProductionAddress != "") {
			return snapshot
		}
		subset := s.index.Prefilter(ctx, c.Name(), snapshot)
		if len(subset) == len(snapshot) {
			return snapshot
		}
		for _, b := range subset {
			if _, ok := seen[b.ID]; !ok {
				seen[b.ID] = struct{}{}
				union = append(union, b)
			}
		}
	}
	if union == nil {
		return snapshot
	}
	return union
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		Requests:      s.requests.Load(),
		Replays:       s.replays.Load(),
		Blocked:       s.blocked.Load(),
		DirectSaves:   s.directSaves.Load(),
		Confirmations: s.confirmations.Load(),
		Completions:   s.completions.Load(),
	}
	data, err := jsonx.Marshal(stats)
	if err != nil {
		http.Error(w, "failed to encode stats", http.StatusInternalServerError)
		return
	}
	writeJSONBytes(w, http.StatusOK, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) count(flow model.Flow) {
	switch flow {
	case model.FlowDirectSave:
		s.directSaves.Add(1)
	case model.FlowRequiresConfirmation:
		s.confirmations.Add(1)
	case model.FlowRequiresCompletion:
		s.completions.Add(1)
	case model.FlowBlocked:
		s.blocked.Add(1)
	}
}

// replayKey hashes the raw request body into the idempotency key.
func replayKey(body []byte) string {
	sum := blake2b.Sum256(body)
	return string(sum[:])
}

func writeJSONBytes(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// recoveryLogger adapts zap to gorilla's recovery middleware.
type recoveryLogger struct {
	logger *zap.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("handler panic", zap.Any("details", v))
}
