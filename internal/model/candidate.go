// Package model defines the transient value objects exchanged by the resolution
// pipeline: AI-extracted candidates, canonical records, match results, user
// actions and the aggregated validation outcome. Nothing in this package is
// persisted; every value lives for a single pipeline run.
package model

// EntityKind distinguishes brewery candidates from beer candidates.
type EntityKind string

// Candidate kinds.
const (
	KindBrewery EntityKind = "brewery"
	KindBeer    EntityKind = "beer"
)

// VerificationStatus is the upstream AI's self-assessed confidence bucket.
type VerificationStatus string

// Verification statuses as reported by the extraction step.
const (
	StatusVerified    VerificationStatus = "verified"
	StatusUnverified  VerificationStatus = "unverified"
	StatusPartial     VerificationStatus = "partial"
	StatusConflicting VerificationStatus = "conflicting"
)

// DataMatch describes how well web evidence agreed with the extracted fields.
type DataMatch string

// Data match verdicts inside a WebVerification block.
const (
	DataMatchVerified    DataMatch = "verified"
	DataMatchUnverified  DataMatch = "unverified"
	DataMatchConflicting DataMatch = "conflicting"
)

// BreweryFacts holds the claimed fields of a brewery candidate. Empty strings
// and zero values mean the field was not extracted.
type BreweryFacts struct {
	Name              string   `json:"name,omitempty"`
	Website           string   `json:"website,omitempty"`
	Email             string   `json:"email,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	LegalAddress      string   `json:"legal_address,omitempty"`
	ProductionAddress string   `json:"production_address,omitempty"`
	Description       string   `json:"description,omitempty"`
	FoundedYear       int      `json:"founded_year,omitempty"`
	SocialLinks       []string `json:"social_links,omitempty"`
	Products          []string `json:"products,omitempty"`
	Awards            []string `json:"awards,omitempty"`
}

// BeerFacts holds the claimed fields of a beer candidate.
type BeerFacts struct {
	Name           string `json:"name,omitempty"`
	BreweryName    string `json:"brewery_name,omitempty"`
	AlcoholContent string `json:"alcohol_content,omitempty"`
	Style          string `json:"style,omitempty"`
	Volume         string `json:"volume,omitempty"`
	Description    string `json:"description,omitempty"`
}

// BeerLabel is the name/brewery-name pair as read directly off the label.
type BeerLabel struct {
	Name        string `json:"name,omitempty"`
	BreweryName string `json:"brewery_name,omitempty"`
}

// WebVerification is the optional evidence block attached by the upstream
// extraction when it cross-checked its claims against web sources.
type WebVerification struct {
	DataMatch       DataMatch `json:"data_match,omitempty"`
	SourcesFound    []string  `json:"sources_found,omitempty"`
	SearchQueries   []string  `json:"search_queries,omitempty"`
	ConflictingData []string  `json:"conflicting_data,omitempty"`
}

// Candidate is one AI-extracted brewery or beer description, not yet trusted.
// Exactly one of Brewery/Beer is populated depending on Kind.
type Candidate struct {
	Kind         EntityKind         `json:"kind"`
	LabelName    string             `json:"label_name,omitempty"`
	Verification VerificationStatus `json:"verification"`
	Confidence   float64            `json:"confidence,omitempty"`

	Brewery *BreweryFacts    `json:"brewery,omitempty"`
	Beer    *BeerFacts       `json:"beer,omitempty"`
	Label   *BeerLabel       `json:"label,omitempty"`
	Web     *WebVerification `json:"web_verification,omitempty"`
}

// Name returns the best available name for the candidate: the verified name
// when present, falling back to the name read off the label.
func (c *Candidate) Name() string {
	switch c.Kind {
	case KindBrewery:
		if c.Brewery != nil && c.Brewery.Name != "" {
			return c.Brewery.Name
		}
	case KindBeer:
		if c.Beer != nil && c.Beer.Name != "" {
			return c.Beer.Name
		}
		if c.Label != nil && c.Label.Name != "" {
			return c.Label.Name
		}
	}
	return c.LabelName
}

// ClaimedBreweryName returns the brewery a beer candidate says it belongs to,
// preferring the label reading over the verified fields.
func (c *Candidate) ClaimedBreweryName() string {
	if c.Label != nil && c.Label.BreweryName != "" {
		return c.Label.BreweryName
	}
	if c.Beer != nil && c.Beer.BreweryName != "" {
		return c.Beer.BreweryName
	}
	return ""
}
