package pipeline

import "github.com/brew-resolution-kernel/internal/model"

// classify reduces the aggregated counts of a finished run to a single
// terminal flow decision. It is a pure function of the outcome itself plus
// the number of brewery candidates originally extracted.
func (p *Pipeline) classify(o *model.ValidationOutcome, totalBreweryCandidates int) {
	verifiedBreweries := len(o.VerifiedBreweries)
	verifiedBeers := len(o.VerifiedBeers)
	unverified := len(o.UnverifiedBreweries) + len(o.UnverifiedBeers)

	switch {
	case verifiedBreweries > 0 && verifiedBeers > 0 && unverified == 0 && !o.PendingActions():
		o.Flow = model.FlowDirectSave
		o.Message = "all extracted entities validated"

	case verifiedBreweries > 0 && verifiedBeers > 0:
		o.Flow = model.FlowRequiresConfirmation
		o.Message = "some entities need confirmation before saving"

	case totalBreweryCandidates == 0:
		o.Flow = model.FlowRequiresCompletion
		o.Message = "no brewery identified in the submission"

	case verifiedBreweries == 0 || verifiedBeers == 0:
		o.Flow = model.FlowRequiresCompletion
		o.Message = "the extraction is missing a verified brewery or beer"

	default:
		o.Flow = model.FlowRequiresCompletion
		o.Message = "the extraction needs completion"
	}
}
