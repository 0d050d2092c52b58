package match

import (
	"fmt"
	"strings"

	"github.com/willynilly/action-update-cff-authors/pkg/cff"
	"github.com/willynilly/action-update-cff-authors/pkg/identity"
)

// synthesize builds a new author record for a contributor no tier claimed,
// or declares them unmatched when the evidence falls below the configured
// minimum.
func (m *Matcher) synthesize(c *identity.Contributor) Result {
	name := strings.TrimSpace(c.BestName())
	email := c.BestEmail()

	if name == "" {
		reason := "no usable name to build an author record"
		if email != "" {
			reason = fmt.Sprintf("email %s has no associated name", email)
		}
		return Result{Status: StatusUnmatched, Reason: reason}
	}

	if m.minimum == MinimumContact && email == "" && c.ORCID == "" {
		return Result{
			Status: StatusUnmatched,
			Reason: fmt.Sprintf("%s has no email or persistent identifier and policy requires contact metadata", name),
		}
	}

	result := Result{
		Status:     StatusNew,
		Confidence: ConfidenceHeuristic,
		Provenance: "synthesized",
	}

	record := cff.AuthorRecord{Email: email}
	if len(c.Usernames) > 0 {
		record.Alias = c.Usernames[0]
	}

	given, family, _ := strings.Cut(name, " ")
	switch {
	case c.Entity:
		// Organization accounts always become entities, whatever the
		// shape of their name.
		record.Name = name
	case family != "":
		record.GivenNames = given
		record.FamilyNames = strings.TrimSpace(family)
	default:
		// A single-token name cannot be split into given and family names,
		// so the record becomes an entity.
		record.Name = name
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: missing family name, treated as entity instead of person", name))
	}

	if c.ORCID != "" {
		record.ORCID = c.ORCID
	} else if record.IsPerson() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: no ORCID found", name))
	}
	if email == "" {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: no email found", name))
	}

	result.Record = record
	return result
}
