// Package pipeline orchestrates entity resolution and anti-hallucination
// validation for one extraction run: every brewery candidate is matched,
// scored and grounded; beer candidates are then validated against the
// breweries that survived; finally the aggregate is classified into a single
// terminal flow decision for the caller.
//
// The pipeline is pure computation over a canonical snapshot supplied by the
// caller. It performs no writes and holds no locks beyond its own result
// slots, so repeated runs over the same input yield identical outcomes.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brew-resolution-kernel/internal/grounding"
	"github.com/brew-resolution-kernel/internal/matcher"
	"github.com/brew-resolution-kernel/internal/model"
	"github.com/brew-resolution-kernel/internal/quality"
	"github.com/brew-resolution-kernel/internal/textmatch"
)

// Config holds the pipeline-level thresholds and the strict grounding switch.
type Config struct {
	// StrictGrounding hard-blocks low-quality ungrounded brewery candidates
	// from auto-save instead of merely flagging them.
	StrictGrounding bool `yaml:"strict_grounding"`

	// QualityThreshold is the minimum quality score for a direct save.
	QualityThreshold float64 `yaml:"quality_threshold"`

	// GroundedConfidence is the forced confidence of a save that passed on
	// grounding evidence rather than quality.
	GroundedConfidence float64 `yaml:"grounded_confidence"`

	// UpdateConfidence is the confidence of merging into an existing record.
	UpdateConfidence float64 `yaml:"update_confidence"`

	// Concurrency bounds the fan-out over independent candidates in a stage.
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the calibrated pipeline defaults.
func DefaultConfig() Config {
	return Config{
		StrictGrounding:    false,
		QualityThreshold:   0.7,
		GroundedConfidence: 0.65,
		UpdateConfidence:   0.95,
		Concurrency:        4,
	}
}

// Pipeline ties the matcher, quality assessor and grounding verifier into a
// per-run state machine.
type Pipeline struct {
	cfg       Config
	matcher   *matcher.Matcher
	quality   *quality.Assessor
	grounding *grounding.Verifier
	logger    *zap.Logger
}

// New creates a Pipeline.
func New(cfg Config, m *matcher.Matcher, q *quality.Assessor, g *grounding.Verifier, logger *zap.Logger) *Pipeline {
	if cfg.QualityThreshold == 0 {
		def := DefaultConfig()
		def.StrictGrounding = cfg.StrictGrounding
		cfg = def
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		matcher:   m,
		quality:   q,
		grounding: g,
		logger:    logger.Named("pipeline"),
	}
}

// candidateResult carries one candidate's validation plus its trace events,
// written into a dedicated slot by the stage fan-out.
type candidateResult struct {
	validation *model.EntityValidation
	trace      []model.TraceEvent
}

// Run validates one extraction against the canonical snapshot and returns the
// aggregated outcome. Per-candidate failures become candidate-scoped Retry
// actions; they never abort the remaining candidates.
func (p *Pipeline) Run(ctx context.Context, breweries, beers []*model.Candidate, canon []model.CanonicalBrewery) *model.ValidationOutcome {
	outcome := &model.ValidationOutcome{RunID: uuid.NewString()}

	breweryResults := p.fanOut(ctx, len(breweries), func(i int) candidateResult {
		return p.validateBrewery(breweries[i], canon)
	})

	for _, r := range breweryResults {
		outcome.Trace = append(outcome.Trace, r.trace...)
		if r.validation.IsValid {
			outcome.VerifiedBreweries = append(outcome.VerifiedBreweries, r.validation)
		} else {
			outcome.UnverifiedBreweries = append(outcome.UnverifiedBreweries, r.validation)
		}
		if r.validation.UserAction != nil {
			outcome.UserActions = append(outcome.UserActions, r.validation.UserAction)
		}
	}

	beerResults := p.fanOut(ctx, len(beers), func(i int) candidateResult {
		return p.validateBeer(beers[i], outcome.VerifiedBreweries, len(beers))
	})

	for _, r := range beerResults {
		outcome.Trace = append(outcome.Trace, r.trace...)
		if r.validation.IsValid {
			outcome.VerifiedBeers = append(outcome.VerifiedBeers, r.validation)
		} else {
			outcome.UnverifiedBeers = append(outcome.UnverifiedBeers, r.validation)
		}
		if r.validation.UserAction != nil {
			outcome.UserActions = append(outcome.UserActions, r.validation.UserAction)
		}
	}

	p.classify(outcome, len(breweries))

	p.logger.Info("validation run complete",
		zap.String("run_id", outcome.RunID),
		zap.String("flow", string(outcome.Flow)),
		zap.Int("verified_breweries", len(outcome.VerifiedBreweries)),
		zap.Int("verified_beers", len(outcome.VerifiedBeers)),
		zap.Int("user_actions", len(outcome.UserActions)))

	return outcome
}

// Blocked builds the fail-fast outcome for a run whose canonical snapshot
// could not be obtained: one Retry action, nothing partial.
func (p *Pipeline) Blocked(err error) *model.ValidationOutcome {
	action := &model.UserAction{
		ID:          uuid.NewString(),
		Type:        model.UserActionRetry,
		Title:       "Validation unavailable",
		Description: "The canonical brewery catalog could not be loaded. Retry the request.",
		Data:        map[string]any{"error": err.Error()},
		Priority:    model.PriorityHigh,
	}
	return &model.ValidationOutcome{
		RunID:       uuid.NewString(),
		Flow:        model.FlowBlocked,
		Message:     "canonical snapshot unavailable",
		UserActions: []*model.UserAction{action},
	}
}

// fanOut validates n independent candidates concurrently with bounded
// parallelism. Each worker writes only its own slot; a panic inside one
// candidate is recovered into a Retry result for that candidate alone.
func (p *Pipeline) fanOut(ctx context.Context, n int, fn func(i int) candidateResult) []candidateResult {
	results := make([]candidateResult, n)
	if n == 0 {
		return results
	}

	width := p.cfg.Concurrency
	if width > n {
		width = n
	}

	sem := make(chan struct{}, width)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("candidate validation panicked",
						zap.Int("index", idx),
						zap.Any("panic", r))
					results[idx] = retryResult(fmt.Errorf("validation panic: %v", r))
				}
			}()

			if err := ctx.Err(); err != nil {
				results[idx] = retryResult(err)
				return
			}
			results[idx] = fn(idx)
		}(i)
	}

	wg.Wait()
	return results
}

// retryResult converts a per-candidate failure into a Retry action so the
// rest of the run keeps its partial progress.
func retryResult(err error) candidateResult {
	action := &model.UserAction{
		ID:          uuid.NewString(),
		Type:        model.UserActionRetry,
		Title:       "Validation failed",
		Description: "Validating this candidate failed. Retry the submission.",
		Data:        map[string]any{"error": err.Error()},
		Priority:    model.PriorityMedium,
	}
	return candidateResult{
		validation: &model.EntityValidation{
			IsValid:            false,
			Action:             model.ActionNone,
			Issues:             []string{err.Error()},
			RequiresUserAction: true,
			UserAction:         action,
		},
	}
}

// matchBreweryForBeer locates a beer's brewery among the verified set by
// label or verified brewery name. When the photo contained exactly one beer
// and exactly one brewery validated, the beer is associated with that brewery
// even without an explicit name: the common single-bottle case.
func matchBreweryForBeer(beer *model.Candidate, verified []*model.EntityValidation, totalBeers int) *model.EntityValidation {
	claimed := textmatch.Normalize(beer.ClaimedBreweryName())
	if claimed != "" {
		for _, v := range verified {
			if v.Candidate == nil {
				continue
			}
			names := []string{v.Candidate.Name(), v.Candidate.LabelName}
			for _, n := range names {
				if n != "" && textmatch.Normalize(n) == claimed {
					return v
				}
			}
		}
	}

	if len(verified) == 1 && totalBeers == 1 {
		return verified[0]
	}
	return nil
}
