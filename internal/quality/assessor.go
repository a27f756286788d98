// Package quality scores the completeness and plausibility of a candidate's
// own extracted fields, independent of any matching against canonical data.
// Scores are always in [0,1]; a brewery score of exactly 0 means the mandatory
// name field was absent and the candidate is rejected without further scoring.
package quality

import (
	"strings"

	"github.com/brew-resolution-kernel/internal/model"
)

// Weights is the raw-point table for brewery and beer scoring. The values are
// empirically calibrated; they are injected configuration so a labeled test
// set can retune them without touching the assessor.
type Weights struct {
	Name            float64 `yaml:"name"`
	Website         float64 `yaml:"website"`
	Address         float64 `yaml:"address"`
	LongDescription float64 `yaml:"long_description"`
	Email           float64 `yaml:"email"`
	Phone           float64 `yaml:"phone"`
	Bonus           float64 `yaml:"bonus"`

	// Normalizer divides the accumulated raw points into a [0,1] score.
	Normalizer float64 `yaml:"normalizer"`

	// IdentifierCap caps the score when none of website, address or a long
	// description corroborates the name.
	IdentifierCap float64 `yaml:"identifier_cap"`

	MinDescriptionLen int     `yaml:"min_description_len"`
	MinPhoneDigits    int     `yaml:"min_phone_digits"`
	HighAIConfidence  float64 `yaml:"high_ai_confidence"`

	// BeerNameBase and BeerDetailBonus drive beer scoring, which has a much
	// lower bar than breweries: most descriptive detail lives on the brewery
	// record.
	BeerNameBase    float64 `yaml:"beer_name_base"`
	BeerDetailBonus float64 `yaml:"beer_detail_bonus"`
}

// DefaultWeights returns the calibrated default weight table.
func DefaultWeights() Weights {
	return Weights{
		Name:              3.0,
		Website:           2.0,
		Address:           2.0,
		LongDescription:   1.5,
		Email:             1.0,
		Phone:             0.5,
		Bonus:             0.5,
		Normalizer:        10.0,
		IdentifierCap:     0.3,
		MinDescriptionLen: 50,
		MinPhoneDigits:    7,
		HighAIConfidence:  0.9,
		BeerNameBase:      1.0,
		BeerDetailBonus:   0.125,
	}
}

// Assessor scores candidates against a weight table. It is pure and
// goroutine-safe.
type Assessor struct {
	weights Weights
}

// New creates an Assessor. Zero-valued weights fall back to the defaults.
func New(w Weights) *Assessor {
	if w.Normalizer == 0 {
		w = DefaultWeights()
	}
	return &Assessor{weights: w}
}

// Brewery scores a brewery candidate's fields. A missing name returns exactly
// 0 and no further scoring happens.
func (a *Assessor) Brewery(c *model.Candidate) float64 {
	facts := c.Brewery
	if facts == nil {
		facts = &model.BreweryFacts{}
	}
	if c.Name() == "" {
		return 0
	}

	w := a.weights
	raw := w.Name

	hasWebsite := facts.Website != ""
	hasAddress := facts.LegalAddress != "" || facts.ProductionAddress != ""
	hasLongDesc := len(facts.Description) > w.MinDescriptionLen

	if hasWebsite {
		raw += w.Website
	}
	if hasAddress {
		raw += w.Address
	}
	if hasLongDesc {
		raw += w.LongDescription
	}

	if plausibleEmail(facts.Email, facts.Website) {
		raw += w.Email
	}
	if digitCount(facts.Phone) >= w.MinPhoneDigits {
		raw += w.Phone
	}

	if facts.FoundedYear > 0 {
		raw += w.Bonus
	}
	if len(facts.Products) > 0 {
		raw += w.Bonus
	}
	if len(facts.SocialLinks) > 0 {
		raw += w.Bonus
	}
	if c.Confidence >= w.HighAIConfidence {
		raw += w.Bonus
	}

	score := raw / w.Normalizer
	if score > 1 {
		score = 1
	}

	// A lone plausible-sounding name with no corroborating identifier must
	// not score high, whatever else the extraction claims.
	if !hasWebsite && !hasAddress && !hasLongDesc && score > w.IdentifierCap {
		score = w.IdentifierCap
	}

	return score
}

// Beer scores a beer candidate's fields. Missing name returns exactly 0;
// otherwise the name carries the base score and each of alcohol content,
// style, volume and description adds a fixed bonus, capped at 1.
func (a *Assessor) Beer(c *model.Candidate) float64 {
	if c.Name() == "" {
		return 0
	}

	facts := c.Beer
	if facts == nil {
		facts = &model.BeerFacts{}
	}

	w := a.weights
	score := w.BeerNameBase
	if facts.AlcoholContent != "" {
		score += w.BeerDetailBonus
	}
	if facts.Style != "" {
		score += w.BeerDetailBonus
	}
	if facts.Volume != "" {
		score += w.BeerDetailBonus
	}
	if facts.Description != "" {
		score += w.BeerDetailBonus
	}

	if score > 1 {
		score = 1
	}
	return score
}

// MissingBreweryFields lists the fields a reviewer would need to complete a
// brewery candidate, in priority order.
func (a *Assessor) MissingBreweryFields(c *model.Candidate) []string {
	facts := c.Brewery
	if facts == nil {
		facts = &model.BreweryFacts{}
	}

	var missing []string
	if c.Name() == "" {
		missing = append(missing, "name")
	}
	if facts.Website == "" {
		missing = append(missing, "website")
	}
	if facts.LegalAddress == "" && facts.ProductionAddress == "" {
		missing = append(missing, "legal_address")
	}
	if len(facts.Description) <= a.weights.MinDescriptionLen {
		missing = append(missing, "description")
	}
	if facts.Email == "" {
		missing = append(missing, "email")
	}
	return missing
}

// plausibleEmail accepts an email only when it looks like one and, if a
// website is also claimed, its domain matches the website's domain.
func plausibleEmail(email, website string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	emailDomain := email[at+1:]
	if !strings.Contains(emailDomain, ".") {
		return false
	}

	if website == "" {
		return true
	}
	siteDomain := hostOf(website)
	if siteDomain == "" {
		return true
	}
	return strings.Contains(siteDomain, emailDomain) || strings.Contains(emailDomain, siteDomain)
}

// hostOf extracts a lower-case host from a URL-ish string, dropping the
// scheme, "www." prefix, path and port.
func hostOf(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
