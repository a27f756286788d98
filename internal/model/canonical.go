package model

// CanonicalBrewery is an already-persisted brewery record treated as ground
// truth for matching. Identity is the store's primary key; the name is not
// guaranteed unique.
type CanonicalBrewery struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Website           string   `json:"website,omitempty"`
	Email             string   `json:"email,omitempty"`
	LegalAddress      string   `json:"legal_address,omitempty"`
	ProductionAddress string   `json:"production_address,omitempty"`
	SocialLinks       []string `json:"social_links,omitempty"`
}

// CanonicalBeer is an already-persisted beer record.
type CanonicalBeer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BreweryID string `json:"brewery_id"`
}
