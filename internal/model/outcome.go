package model

// Action is the persistence decision for a single validated candidate.
type Action string

// Candidate actions.
const (
	ActionSaveDirectly   Action = "save_directly"
	ActionUpdateExisting Action = "update_existing"
	ActionNone           Action = "none"
)

// UserActionType classifies the human intervention a candidate requires.
type UserActionType string

// User action types.
const (
	UserActionManualVerification     UserActionType = "manual_verification"
	UserActionResolveConflicts       UserActionType = "resolve_conflicts"
	UserActionCompleteData           UserActionType = "complete_data"
	UserActionGroundingRequired      UserActionType = "grounding_required"
	UserActionBreweryRequired        UserActionType = "brewery_required"
	UserActionRetry                  UserActionType = "retry"
	UserActionManualBeerVerification UserActionType = "manual_beer_verification"
	UserActionResolveBeerConflicts   UserActionType = "resolve_beer_conflicts"
)

// Priority orders user actions in the review queue.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// UserAction describes one piece of work routed to a human.
type UserAction struct {
	ID          string         `json:"id"`
	Type        UserActionType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
	Priority    Priority       `json:"priority"`
}

// EntityValidation is the per-candidate verdict. A validation with
// RequiresUserAction set carries exactly one UserAction.
type EntityValidation struct {
	Candidate          *Candidate        `json:"candidate"`
	IsValid            bool              `json:"is_valid"`
	Action             Action            `json:"action"`
	Confidence         float64           `json:"confidence"`
	ExistingMatch      *CanonicalBrewery `json:"existing_match,omitempty"`
	Issues             []string          `json:"issues,omitempty"`
	RequiresUserAction bool              `json:"requires_user_action"`
	UserAction         *UserAction       `json:"user_action,omitempty"`
}

// Flow is the single terminal decision of a pipeline run.
type Flow string

// Terminal flows consumed by the caller.
const (
	FlowDirectSave           Flow = "direct_save"
	FlowRequiresConfirmation Flow = "requires_confirmation"
	FlowRequiresCompletion   Flow = "requires_completion"
	FlowBlocked              Flow = "blocked"
)

// TraceEvent records one decision taken while validating a candidate. The
// trace replaces scattered log side effects as the observable record of a run.
type TraceEvent struct {
	Candidate  string  `json:"candidate"`
	Stage      string  `json:"stage"`
	Detail     string  `json:"detail"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ValidationOutcome aggregates one full pipeline run.
type ValidationOutcome struct {
	RunID               string              `json:"run_id"`
	Flow                Flow                `json:"flow"`
	Message             string              `json:"message,omitempty"`
	VerifiedBreweries   []*EntityValidation `json:"verified_breweries"`
	UnverifiedBreweries []*EntityValidation `json:"unverified_breweries"`
	VerifiedBeers       []*EntityValidation `json:"verified_beers"`
	UnverifiedBeers     []*EntityValidation `json:"unverified_beers"`
	UserActions         []*UserAction       `json:"user_actions"`
	Trace               []TraceEvent        `json:"trace,omitempty"`
}

// PendingActions reports whether any candidate still needs human input.
func (o *ValidationOutcome) PendingActions() bool {
	return len(o.UserActions) > 0
}
