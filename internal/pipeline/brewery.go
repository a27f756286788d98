package pipeline

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brew-resolution-kernel/internal/matcher"
	"github.com/brew-resolution-kernel/internal/model"
)

// validateBrewery runs the full brewery decision tree for one candidate:
// match against the canonical snapshot, then quality and grounding for
// candidates the extraction itself considers verified, or a human-review
// action for everything else.
func (p *Pipeline) validateBrewery(c *model.Candidate, canon []model.CanonicalBrewery) candidateResult {
	name := c.Name()
	trace := []model.TraceEvent{}

	aux := matcher.Aux{}
	if c.Brewery != nil {
		aux.Website = c.Brewery.Website
		aux.Email = c.Brewery.Email
		aux.Address = c.Brewery.LegalAddress
		if aux.Address == "" {
			aux.Address = c.Brewery.ProductionAddress
		}
	}

	match := p.matcher.Match(name, aux, canon)
	trace = append(trace, model.TraceEvent{
		Candidate:  name,
		Stage:      "match",
		Detail:     string(match.Type),
		Confidence: match.Confidence,
	})

	validation := &model.EntityValidation{
		Candidate: c,
		Action:    model.ActionNone,
	}

	if match.NeedsDisambiguation {
		validation.Issues = append(validation.Issues,
			fmt.Sprintf("%d ambiguous canonical matches (%s)", len(match.Ambiguities), match.DisambiguationReason))
	}

	if c.Verification == model.StatusVerified {
		p.validateVerifiedBrewery(c, validation, &match, &trace)
		return candidateResult{validation: validation, trace: trace}
	}

	// The extraction itself was not confident; route to a human with the
	// missing fields and suggested search queries attached.
	validation.IsValid = false
	validation.RequiresUserAction = true
	validation.UserAction = p.reviewAction(c, c.Verification, &match)
	trace = append(trace, model.TraceEvent{
		Candidate: name,
		Stage:     "review",
		Detail:    string(validation.UserAction.Type),
	})

	return candidateResult{validation: validation, trace: trace}
}

// validateVerifiedBrewery handles candidates the upstream AI marked verified:
// merge into an existing record when one matched, otherwise decide between
// direct save, grounded save and grounding-required on quality evidence.
func (p *Pipeline) validateVerifiedBrewery(c *model.Candidate, validation *model.EntityValidation, match *model.MatchResult, trace *[]model.TraceEvent) {
	name := c.Name()

	if match.Matched != nil {
		validation.IsValid = true
		validation.Action = model.ActionUpdateExisting
		validation.Confidence = p.cfg.UpdateConfidence
		validation.ExistingMatch = match.Matched
		*trace = append(*trace, model.TraceEvent{
			Candidate:  name,
			Stage:      "decision",
			Detail:     "update_existing",
			Confidence: validation.Confidence,
		})
		return
	}

	score := p.quality.Brewery(c)
	*trace = append(*trace, model.TraceEvent{
		Candidate:  name,
		Stage:      "quality",
		Confidence: score,
	})

	if score >= p.cfg.QualityThreshold {
		// Grounding is a bonus signal here, not a gate: the candidate's own
		// fields already corroborate each other.
		validation.IsValid = true
		validation.Action = model.ActionSaveDirectly
		validation.Confidence = score
		*trace = append(*trace, model.TraceEvent{
			Candidate:  name,
			Stage:      "decision",
			Detail:     "save_directly",
			Confidence: score,
		})
		return
	}

	if p.cfg.StrictGrounding {
		if p.grounding.IsGrounded(c) {
			validation.IsValid = true
			validation.Action = model.ActionSaveDirectly
			validation.Confidence = p.cfg.GroundedConfidence
			*trace = append(*trace, model.TraceEvent{
				Candidate:  name,
				Stage:      "decision",
				Detail:     "save_grounded",
				Confidence: validation.Confidence,
			})
			return
		}

		validation.IsValid = false
		validation.Issues = append(validation.Issues, "low quality score and no grounding evidence")
		validation.RequiresUserAction = true
		validation.UserAction = &model.UserAction{
			ID:          uuid.NewString(),
			Type:        model.UserActionGroundingRequired,
			Title:       fmt.Sprintf("Evidence needed for %q", name),
			Description: "The extracted brewery lacks corroborating sources. Provide evidence or complete the missing fields.",
			Data: map[string]any{
				"name":           name,
				"missing_fields": p.quality.MissingBreweryFields(c),
				"search_queries": suggestedQueries(name),
			},
			Priority: model.PriorityHigh,
		}
		*trace = append(*trace, model.TraceEvent{
			Candidate: name,
			Stage:     "decision",
			Detail:    "grounding_required",
		})
		return
	}

	validation.IsValid = false
	validation.Issues = append(validation.Issues, "quality score below save threshold")
	p.logger.Debug("low-quality verified brewery",
		zap.String("name", name),
		zap.Float64("score", score))
	*trace = append(*trace, model.TraceEvent{
		Candidate:  name,
		Stage:      "decision",
		Detail:     "low_quality",
		Confidence: score,
	})
}

// reviewAction builds the human-review action for a candidate whose own
// verification bucket was not Verified.
func (p *Pipeline) reviewAction(c *model.Candidate, status model.VerificationStatus, match *model.MatchResult) *model.UserAction {
	name := c.Name()

	data := map[string]any{
		"name":           name,
		"missing_fields": p.quality.MissingBreweryFields(c),
		"search_queries": suggestedQueries(name),
	}
	if len(match.Ambiguities) > 0 {
		data["ambiguities"] = match.Ambiguities
		data["disambiguation_reason"] = match.DisambiguationReason
	}

	switch status {
	case model.StatusConflicting:
		return &model.UserAction{
			ID:          uuid.NewString(),
			Type:        model.UserActionResolveConflicts,
			Title:       fmt.Sprintf("Conflicting data for %q", name),
			Description: "Web evidence contradicts the extracted fields. Decide which values are correct.",
			Data:        data,
			Priority:    model.PriorityHigh,
		}
	case model.StatusPartial:
		return &model.UserAction{
			ID:          uuid.NewString(),
			Type:        model.UserActionCompleteData,
			Title:       fmt.Sprintf("Complete the data for %q", name),
			Description: "The extraction is incomplete. Fill in the missing fields before saving.",
			Data:        data,
			Priority:    model.PriorityMedium,
		}
	default:
		return &model.UserAction{
			ID:          uuid.NewString(),
			Type:        model.UserActionManualVerification,
			Title:       fmt.Sprintf("Verify %q", name),
			Description: "The extraction could not verify this brewery. Confirm it manually.",
			Data:        data,
			Priority:    model.PriorityHigh,
		}
	}
}

// suggestedQueries proposes web searches a reviewer can run to verify a
// brewery name. The Italian term is deliberate: the catalog is mostly
// Italian craft breweries.
func suggestedQueries(name string) []string {
	if name == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%q brewery", name),
		fmt.Sprintf("%q birrificio", name),
		fmt.Sprintf("%q craft beer", name),
	}
}
