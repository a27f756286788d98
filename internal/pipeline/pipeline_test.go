package pipeline

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/brew-resolution-kernel/internal/grounding"
	"github.com/brew-resolution-kernel/internal/matcher"
	"github.com/brew-resolution-kernel/internal/model"
	"github.com/brew-resolution-kernel/internal/quality"
)

func newTestPipeline(t *testing.T, strict bool) *Pipeline {
	t.Helper()

	logger := zaptest.NewLogger(t)
	m, err := matcher.New(matcher.DefaultConfig(), nil, logger)
	if err != nil {
		t.Fatalf("matcher.New failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.StrictGrounding = strict

	return New(cfg, m, quality.New(quality.DefaultWeights()), grounding.New(logger), logger)
}

func verifiedBrewery(name, website, address, description string) *model.Candidate {
	return &model.Candidate{
		Kind:         model.KindBrewery,
		LabelName:    name,
		Verification: model.StatusVerified,
		Brewery: &model.BreweryFacts{
			Name:         name,
			Website:      website,
			LegalAddress: address,
			Description:  description,
		},
	}
}

func beer(name, breweryName string) *model.Candidate {
	return &model.Candidate{
		Kind:         model.KindBeer,
		Verification: model.StatusVerified,
		Beer:         &model.BeerFacts{Name: name},
		Label:        &model.BeerLabel{Name: name, BreweryName: breweryName},
	}
}

const longDescription = "An independent craft brewery in the hills outside Torino, brewing since 2012."

func TestVerifiedBreweryWithCanonicalMatchUpdates(t *testing.T) {
	p := newTestPipeline(t, false)
	canon := []model.CanonicalBrewery{{ID: "b1", Name: "Heineken"}}

	outcome := p.Run(context.Background(),
		[]*model.Candidate{verifiedBrewery("Heineken", "", "", "")},
		nil, canon)

	if len(outcome.VerifiedBreweries) != 1 {
		t.Fatalf("Expected 1 verified brewery, got %d", len(outcome.VerifiedBreweries))
	}
	v := outcome.VerifiedBreweries[0]
	if v.Action != model.ActionUpdateExisting {
		t.Errorf("Expected update_existing, got %q", v.Action)
	}
	if v.Confidence != DefaultConfig().UpdateConfidence {
		t.Errorf("Expected confidence %f, got %f", DefaultConfig().UpdateConfidence, v.Confidence)
	}
	if v.ExistingMatch == nil || v.ExistingMatch.ID != "b1" {
		t.Errorf("Expected existing match b1, got %+v", v.ExistingMatch)
	}
}

func TestVerifiedHighQualityBrewerySavesDirectly(t *testing.T) {
	p := newTestPipeline(t, false)

	outcome := p.Run(context.Background(),
		[]*model.Candidate{verifiedBrewery("Birrificio Nuovo", "https://nuovo.it", "Via Roma 1, Torino", longDescription)},
		nil, nil)

	if len(outcome.VerifiedBreweries) != 1 {
		t.Fatalf("Expected 1 verified brewery, got %d", len(outcome.VerifiedBreweries))
	}
	v := outcome.VerifiedBreweries[0]
	if v.Action != model.ActionSaveDirectly {
		t.Errorf("Expected save_directly, got %q", v.Action)
	}
	if v.Confidence < DefaultConfig().QualityThreshold {
		t.Errorf("Expected confidence >= %f, got %f", DefaultConfig().QualityThreshold, v.Confidence)
	}
}

// Scenario: a verified candidate with only a name and website, no canonical
// match and no evidence sources, under strict grounding.
func TestStrictGroundingBlocksUngroundedLowQuality(t *testing.T) {
	p := newTestPipeline(t, true)

	c := verifiedBrewery("X", "https://x.com", "", "")
	outcome := p.Run(context.Background(), []*model.Candidate{c}, nil, nil)

	if len(outcome.UnverifiedBreweries) != 1 {
		t.Fatalf("Expected 1 unverified brewery, got %d", len(outcome.UnverifiedBreweries))
	}
	v := outcome.UnverifiedBreweries[0]
	if !v.RequiresUserAction || v.UserAction == nil {
		t.Fatal("Expected a user action")
	}
	if v.UserAction.Type != model.UserActionGroundingRequired {
		t.Errorf("Expected grounding_required, got %q", v.UserAction.Type)
	}
	if _, ok := v.UserAction.Data["missing_fields"]; !ok {
		t.Error("Expected missing fields listed on the grounding action")
	}
}

func TestStrictGroundingAcceptsGroundedLowQuality(t *testing.T) {
	p := newTestPipeline(t, true)

	c := verifiedBrewery("X", "https://x.com", "", "")
	c.Web = &model.WebVerification{SourcesFound: []string{"https://x.com/about"}}

	outcome := p.Run(context.Background(), []*model.Candidate{c}, nil, nil)

	if len(outcome.VerifiedBreweries) != 1 {
		t.Fatalf("Expected grounded candidate verified, got %d", len(outcome.VerifiedBreweries))
	}
	v := outcome.VerifiedBreweries[0]
	if v.Action != model.ActionSaveDirectly {
		t.Errorf("Expected save_directly, got %q", v.Action)
	}
	if v.Confidence != DefaultConfig().GroundedConfidence {
		t.Errorf("Expected forced confidence %f, got %f", DefaultConfig().GroundedConfidence, v.Confidence)
	}
}

func TestUnverifiedStatusesRouteToReview(t *testing.T) {
	p := newTestPipeline(t, false)

	cases := []struct {
		status model.VerificationStatus
		want   model.UserActionType
	}{
		{model.StatusUnverified, model.UserActionManualVerification},
		{model.StatusPartial, model.UserActionCompleteData},
		{model.StatusConflicting, model.UserActionResolveConflicts},
	}

	for _, tc := range cases {
		c := verifiedBrewery("Birrificio Dubbio", "", "", "")
		c.Verification = tc.status

		outcome := p.Run(context.Background(), []*model.Candidate{c}, nil, nil)

		if len(outcome.UnverifiedBreweries) != 1 {
			t.Fatalf("status %s: expected 1 unverified brewery", tc.status)
		}
		v := outcome.UnverifiedBreweries[0]
		if v.UserAction == nil || v.UserAction.Type != tc.want {
			t.Errorf("status %s: expected action %q, got %+v", tc.status, tc.want, v.UserAction)
		}
		if queries, ok := v.UserAction.Data["search_queries"].([]string); !ok || len(queries) == 0 {
			t.Errorf("status %s: expected suggested search queries", tc.status)
		}
	}
}

// Scenario: single beer, single verified brewery, no explicit brewery name on
// the beer. The lone-brewery fallback associates them.
func TestSingleBeerFallsBackToOnlyVerifiedBrewery(t *testing.T) {
	p := newTestPipeline(t, false)

	brewery := verifiedBrewery("Birrificio Nuovo", "https://nuovo.it", "Via Roma 1", longDescription)
	lone := beer("Space IPA", "")

	outcome := p.Run(context.Background(),
		[]*model.Candidate{brewery}, []*model.Candidate{lone}, nil)

	if len(outcome.VerifiedBeers) != 1 {
		t.Fatalf("Expected the lone beer associated and verified, got %d", len(outcome.VerifiedBeers))
	}
	if outcome.VerifiedBeers[0].Action != model.ActionSaveDirectly {
		t.Errorf("Expected save_directly, got %q", outcome.VerifiedBeers[0].Action)
	}
	if outcome.Flow != model.FlowDirectSave {
		t.Errorf("Expected direct_save flow, got %q", outcome.Flow)
	}
}

func TestFallbackNotUsedWithMultipleBeers(t *testing.T) {
	p := newTestPipeline(t, false)

	brewery := verifiedBrewery("Birrificio Nuovo", "https://nuovo.it", "Via Roma 1", longDescription)
	beers := []*model.Candidate{beer("Space IPA", ""), beer("Dark Porter", "")}

	outcome := p.Run(context.Background(), []*model.Candidate{brewery}, beers, nil)

	if len(outcome.UnverifiedBeers) != 2 {
		t.Fatalf("Expected both anonymous beers unverified, got %d", len(outcome.UnverifiedBeers))
	}
	for _, v := range outcome.UnverifiedBeers {
		if v.UserAction == nil || v.UserAction.Type != model.UserActionBreweryRequired {
			t.Errorf("Expected brewery_required, got %+v", v.UserAction)
		}
	}
}

func TestBeerMatchedByClaimedBreweryName(t *testing.T) {
	p := newTestPipeline(t, false)

	breweries := []*model.Candidate{
		verifiedBrewery("Birrificio Nuovo", "https://nuovo.it", "Via Roma 1", longDescription),
		verifiedBrewery("Birrificio Vecchio", "https://vecchio.it", "Via Po 2", longDescription),
	}
	beers := []*model.Candidate{
		beer("Space IPA", "Birrificio Vecchio"),
		beer("Dark Porter", "Birrificio Nuovo"),
	}

	outcome := p.Run(context.Background(), breweries, beers, nil)

	if len(outcome.VerifiedBeers) != 2 {
		t.Fatalf("Expected both beers matched to their breweries, got %d verified", len(outcome.VerifiedBeers))
	}
}

// Scenario: zero extracted breweries. The flow demands completion with an
// explicit message, whatever the beers look like.
func TestNoBreweriesRequiresCompletion(t *testing.T) {
	p := newTestPipeline(t, false)

	outcome := p.Run(context.Background(), nil, []*model.Candidate{beer("Space IPA", "")}, nil)

	if outcome.Flow != model.FlowRequiresCompletion {
		t.Fatalf("Expected requires_completion, got %q", outcome.Flow)
	}
	if outcome.Message != "no brewery identified in the submission" {
		t.Errorf("Expected the no-brewery message, got %q", outcome.Message)
	}
}

func TestConfirmationFlowWithMixedResults(t *testing.T) {
	p := newTestPipeline(t, false)

	good := verifiedBrewery("Birrificio Nuovo", "https://nuovo.it", "Via Roma 1", longDescription)
	doubtful := verifiedBrewery("Birrificio Dubbio", "", "", "")
	doubtful.Verification = model.StatusUnverified

	outcome := p.Run(context.Background(),
		[]*model.Candidate{good, doubtful},
		[]*model.Candidate{beer("Space IPA", "Birrificio Nuovo")}, nil)

	if outcome.Flow != model.FlowRequiresConfirmation {
		t.Errorf("Expected requires_confirmation, got %q", outcome.Flow)
	}
	if !outcome.PendingActions() {
		t.Error("Expected pending user actions")
	}
}

// A beer is only ever saved when its brewery resolved to a save or an update.
func TestBeerNeverOutlivesBreweryTrust(t *testing.T) {
	p := newTestPipeline(t, false)

	doubtful := verifiedBrewery("Birrificio Dubbio", "", "", "")
	doubtful.Verification = model.StatusUnverified

	outcome := p.Run(context.Background(),
		[]*model.Candidate{doubtful},
		[]*model.Candidate{beer("Space IPA", "Birrificio Dubbio")}, nil)

	if len(outcome.VerifiedBeers) != 0 {
		t.Fatal("Expected no verified beers when the brewery is unverified")
	}

	for _, v := range append(outcome.VerifiedBeers, outcome.UnverifiedBeers...) {
		if v.Action == model.ActionSaveDirectly {
			t.Error("A beer must not save when its brewery did not validate")
		}
	}
}

func TestEveryActionableValidationCarriesOneAction(t *testing.T) {
	p := newTestPipeline(t, true)

	breweries := []*model.Candidate{
		verifiedBrewery("X", "https://x.com", "", ""),
		{Kind: model.KindBrewery, LabelName: "Y", Verification: model.StatusPartial, Brewery: &model.BreweryFacts{Name: "Y"}},
	}
	beers := []*model.Candidate{beer("Orphan Ale", "Nowhere")}

	outcome := p.Run(context.Background(), breweries, beers, nil)

	all := append(append([]*model.EntityValidation{}, outcome.UnverifiedBreweries...), outcome.UnverifiedBeers...)
	for _, v := range all {
		if v.RequiresUserAction && v.UserAction == nil {
			t.Error("Validation requires user action but carries none")
		}
		if !v.RequiresUserAction && v.UserAction != nil {
			t.Error("Validation carries an action without requiring one")
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p := newTestPipeline(t, true)

	canon := []model.CanonicalBrewery{{ID: "b1", Name: "Birrificio Viana"}}
	breweries := []*model.Candidate{
		verifiedBrewery("Birrificio Viana", "https://viana.it", "Via Roma 1", longDescription),
		verifiedBrewery("X", "https://x.com", "", ""),
	}
	beers := []*model.Candidate{beer("Space IPA", "Birrificio Viana")}

	first := p.Run(context.Background(), breweries, beers, canon)
	second := p.Run(context.Background(), breweries, beers, canon)

	if first.Flow != second.Flow {
		t.Errorf("Flow differs between runs: %q vs %q", first.Flow, second.Flow)
	}
	if len(first.VerifiedBreweries) != len(second.VerifiedBreweries) ||
		len(first.UnverifiedBreweries) != len(second.UnverifiedBreweries) ||
		len(first.VerifiedBeers) != len(second.VerifiedBeers) ||
		len(first.UnverifiedBeers) != len(second.UnverifiedBeers) {
		t.Error("Partition sizes differ between identical runs")
	}
	if len(first.UserActions) != len(second.UserActions) {
		t.Fatalf("Action counts differ: %d vs %d", len(first.UserActions), len(second.UserActions))
	}
	for i := range first.UserActions {
		if first.UserActions[i].Type != second.UserActions[i].Type {
			t.Errorf("Action %d differs: %q vs %q", i,
				first.UserActions[i].Type, second.UserActions[i].Type)
		}
	}
	for i := range first.VerifiedBreweries {
		if first.VerifiedBreweries[i].Confidence != second.VerifiedBreweries[i].Confidence {
			t.Errorf("Confidence %d differs between runs", i)
		}
	}
}

func TestBlockedOutcome(t *testing.T) {
	p := newTestPipeline(t, false)

	outcome := p.Blocked(context.DeadlineExceeded)

	if outcome.Flow != model.FlowBlocked {
		t.Errorf("Expected blocked flow, got %q", outcome.Flow)
	}
	if len(outcome.UserActions) != 1 || outcome.UserActions[0].Type != model.UserActionRetry {
		t.Errorf("Expected a single retry action, got %+v", outcome.UserActions)
	}
}

func TestTraceRecordsDecisions(t *testing.T) {
	p := newTestPipeline(t, false)

	outcome := p.Run(context.Background(),
		[]*model.Candidate{verifiedBrewery("Birrificio Nuovo", "https://nuovo.it", "Via Roma 1", longDescription)},
		nil, nil)

	if len(outcome.Trace) == 0 {
		t.Fatal("Expected trace events on the outcome")
	}
	stages := map[string]bool{}
	for _, e := range outcome.Trace {
		stages[e.Stage] = true
	}
	for _, want := range []string{"match", "quality", "decision"} {
		if !stages[want] {
			t.Errorf("Expected a %q trace stage", want)
		}
	}
}
