// Package grounding checks whether AI-claimed identifying fields are
// corroborated by the independent evidence list the extraction step gathered.
// An ungrounded claim downgrades trust in the whole candidate: a hallucinated
// website is the most common failure mode of the upstream extraction.
package grounding

import (
	"strings"

	"go.uber.org/zap"

	"github.com/brew-resolution-kernel/internal/model"
)

// Verifier validates candidate claims against their evidence sources.
type Verifier struct {
	logger *zap.Logger
}

// New creates a Verifier.
func New(logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{logger: logger.Named("grounding")}
}

// IsGrounded reports whether the candidate's identifying claims are backed by
// at least one evidence source. Rules:
//   - no sources at all: not grounded
//   - a claimed website must domain-match at least one source URL
//   - a claimed email must domain-match the claimed website, when both exist
//   - no website/email claims with at least one source: grounded, since there
//     is nothing for the evidence to contradict
func (v *Verifier) IsGrounded(c *model.Candidate) bool {
	if c.Web == nil || len(c.Web.SourcesFound) == 0 {
		v.logger.Debug("candidate has no evidence sources",
			zap.String("candidate", c.Name()))
		return false
	}

	var website, email string
	if c.Brewery != nil {
		website = c.Brewery.Website
		email = c.Brewery.Email
	}

	if website != "" {
		claimed := Domain(website)
		if claimed == "" || !domainInSources(claimed, c.Web.SourcesFound) {
			v.logger.Debug("claimed website not corroborated by sources",
				zap.String("candidate", c.Name()),
				zap.String("website", website))
			return false
		}

		if email != "" && !domainsMatch(emailDomain(email), claimed) {
			v.logger.Debug("claimed email contradicts claimed website",
				zap.String("candidate", c.Name()),
				zap.String("email", email))
			return false
		}
	}

	return true
}

// Domain extracts a comparable lower-case domain from a URL: scheme, "www."
// prefix, path and port are stripped.
func Domain(raw string) string {
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

// domainsMatch accepts substring containment in either direction, so
// "viana.it" matches "birrificioviana.it" and vice versa.
func domainsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func domainInSources(claimed string, sources []string) bool {
	for _, src := range sources {
		if domainsMatch(claimed, Domain(src)) {
			return true
		}
	}
	return false
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
