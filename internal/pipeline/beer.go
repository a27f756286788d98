package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/brew-resolution-kernel/internal/model"
)

// validateBeer resolves a beer candidate against the verified breweries of
// the same run. A beer never outlives its brewery's trust level: without a
// verified brewery it cannot be saved, whatever its own quality.
func (p *Pipeline) validateBeer(c *model.Candidate, verifiedBreweries []*model.EntityValidation, totalBeers int) candidateResult {
	name := c.Name()
	trace := []model.TraceEvent{}

	validation := &model.EntityValidation{
		Candidate: c,
		Action:    model.ActionNone,
	}

	brewery := matchBreweryForBeer(c, verifiedBreweries, totalBeers)
	if brewery == nil {
		validation.IsValid = false
		validation.Issues = append(validation.Issues, "no verified brewery for this beer")
		validation.RequiresUserAction = true
		validation.UserAction = &model.UserAction{
			ID:          uuid.NewString(),
			Type:        model.UserActionBreweryRequired,
			Title:       fmt.Sprintf("Brewery needed for %q", name),
			Description: "This beer could not be associated with a verified brewery. Identify its brewery first.",
			Data: map[string]any{
				"name":         name,
				"brewery_name": c.ClaimedBreweryName(),
			},
			Priority: model.PriorityHigh,
		}
		trace = append(trace, model.TraceEvent{
			Candidate: name,
			Stage:     "beer",
			Detail:    "brewery_required",
		})
		return candidateResult{validation: validation, trace: trace}
	}

	trace = append(trace, model.TraceEvent{
		Candidate: name,
		Stage:     "beer",
		Detail:    "brewery " + brewery.Candidate.Name(),
	})

	score := p.quality.Beer(c)
	trace = append(trace, model.TraceEvent{
		Candidate:  name,
		Stage:      "quality",
		Confidence: score,
	})

	if score >= p.cfg.QualityThreshold {
		validation.IsValid = true
		validation.Action = model.ActionSaveDirectly
		validation.Confidence = score
		validation.ExistingMatch = brewery.ExistingMatch
		trace = append(trace, model.TraceEvent{
			Candidate:  name,
			Stage:      "decision",
			Detail:     "save_directly",
			Confidence: score,
		})
		return candidateResult{validation: validation, trace: trace}
	}

	validation.IsValid = false
	validation.RequiresUserAction = true

	conflicting := c.Web != nil && c.Web.DataMatch == model.DataMatchConflicting
	if conflicting {
		validation.Issues = append(validation.Issues, "web evidence conflicts with the extracted beer")
		validation.UserAction = &model.UserAction{
			ID:          uuid.NewString(),
			Type:        model.UserActionResolveBeerConflicts,
			Title:       fmt.Sprintf("Conflicting data for beer %q", name),
			Description: "Web evidence contradicts the extracted beer fields. Decide which values are correct.",
			Data:        map[string]any{"name": name},
			Priority:    model.PriorityHigh,
		}
	} else {
		validation.Issues = append(validation.Issues, "beer quality score below save threshold")
		validation.UserAction = &model.UserAction{
			ID:          uuid.NewString(),
			Type:        model.UserActionManualBeerVerification,
			Title:       fmt.Sprintf("Verify beer %q", name),
			Description: "The extracted beer needs manual confirmation before saving.",
			Data:        map[string]any{"name": name},
			Priority:    model.PriorityMedium,
		}
	}

	trace = append(trace, model.TraceEvent{
		Candidate: name,
		Stage:     "decision",
		Detail:    string(validation.UserAction.Type),
	})

	return candidateResult{validation: validation, trace: trace}
}
