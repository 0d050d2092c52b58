package match

import (
	"strings"

	"github.com/willynilly/action-update-cff-authors/pkg/cff"
	"github.com/willynilly/action-update-cff-authors/pkg/identity"
)

// Strategy is one matching tier. Match returns its result and true when the
// tier commits to a decision, or false when it has no opinion and the next
// tier should be consulted.
type Strategy interface {
	// Name returns the tier name used in provenance tags.
	Name() string

	// Match attempts to match the contributor against the author list.
	Match(c *identity.Contributor, authors []cff.AuthorRecord) (Result, bool)
}

// defaultStrategies returns the tiers in their fixed evaluation order.
func defaultStrategies() []Strategy {
	return []Strategy{
		&orcidStrategy{},
		&emailStrategy{},
		&nameStrategy{},
	}
}

// orcidStrategy matches on persistent identifier equality.
type orcidStrategy struct{}

func (s *orcidStrategy) Name() string { return "orcid" }

func (s *orcidStrategy) Match(c *identity.Contributor, authors []cff.AuthorRecord) (Result, bool) {
	id := bareORCID(c.ORCID)
	if id == "" {
		return Result{}, false
	}
	for i := range authors {
		if other := bareORCID(authors[i].ORCID); other != "" && strings.EqualFold(id, other) {
			return matched(&authors[i], ConfidenceExact, s.Name()), true
		}
	}
	return Result{}, false
}

// emailStrategy matches on exact case-insensitive email equality.
type emailStrategy struct{}

func (s *emailStrategy) Name() string { return "email" }

func (s *emailStrategy) Match(c *identity.Contributor, authors []cff.AuthorRecord) (Result, bool) {
	for i := range authors {
		if authors[i].Email == "" {
			continue
		}
		for _, email := range c.Emails {
			if strings.EqualFold(email, authors[i].Email) {
				return matched(&authors[i], ConfidenceExact, s.Name()), true
			}
		}
	}
	return Result{}, false
}

// nameStrategy matches folded display names against record names, and
// usernames against record aliases.
type nameStrategy struct{}

func (s *nameStrategy) Name() string { return "name" }

func (s *nameStrategy) Match(c *identity.Contributor, authors []cff.AuthorRecord) (Result, bool) {
	names := make([]string, 0, len(c.DisplayNames))
	for _, name := range c.DisplayNames {
		if folded := identity.Fold(name); folded != "" {
			names = append(names, folded)
		}
	}

	for i := range authors {
		record := &authors[i]

		if full := identity.Fold(record.FullName()); full != "" {
			for _, name := range names {
				if name == full {
					return matched(record, ConfidenceHeuristic, s.Name()), true
				}
			}
		}

		if record.Alias != "" {
			for _, username := range c.Usernames {
				if strings.EqualFold(username, record.Alias) {
					return matched(record, ConfidenceHeuristic, s.Name()), true
				}
			}
		}
	}
	return Result{}, false
}

func matched(record *cff.AuthorRecord, confidence Confidence, tier string) Result {
	return Result{
		Status:     StatusMatched,
		Author:     record,
		Confidence: confidence,
		Provenance: tier,
	}
}

// bareORCID strips the canonical URL prefix so identifiers compare equal
// whether stored as URLs or bare.
func bareORCID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "https://orcid.org/")
	id = strings.TrimPrefix(id, "http://orcid.org/")
	return id
}
