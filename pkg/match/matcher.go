// Package match decides, per normalized contributor, whether they already
// correspond to an entry in the citation document's author list. Matching is
// an explicit ordered list of tiers — identifier, email, name — each either
// committing to a result or passing; the first commitment wins. A contributor
// no tier claims becomes a synthesized new author when enough metadata
// exists, and unmatched otherwise.
package match

import (
	"context"

	"github.com/willynilly/action-update-cff-authors/internal/orcid"
	"github.com/willynilly/action-update-cff-authors/pkg/cff"
	"github.com/willynilly/action-update-cff-authors/pkg/identity"
)

// Status classifies a match result.
type Status string

// Match statuses.
const (
	StatusMatched   Status = "matched"
	StatusNew       Status = "new"
	StatusUnmatched Status = "unmatched"
)

// Confidence tags how a match was established.
type Confidence string

// Match confidences.
const (
	ConfidenceExact     Confidence = "exact"     // identifier or email equality
	ConfidenceHeuristic Confidence = "heuristic" // folded-name or alias equality
)

// Result is the matcher's decision for one contributor.
type Result struct {
	Status Status

	// Author points into the existing registry when Status is matched.
	// The registry owns the record; the result only references it.
	Author *cff.AuthorRecord

	// Record is the synthesized author when Status is new.
	Record cff.AuthorRecord

	// Confidence and Provenance describe how the decision was reached.
	Confidence Confidence
	Provenance string

	// Reason explains an unmatched status.
	Reason string

	// Warnings carries non-fatal notes, e.g. a missing family name.
	Warnings []string
}

// MinimumMetadata is the policy for how much identity evidence a contributor
// needs before a new author record is synthesized for them.
type MinimumMetadata string

// Minimum-metadata policies.
const (
	// MinimumName accepts any contributor with a usable name. Default.
	MinimumName MinimumMetadata = "name"

	// MinimumContact additionally requires an email or a persistent
	// identifier, for projects that want verifiable new authors only.
	MinimumContact MinimumMetadata = "contact"
)

// Resolver queries an external identifier registry for a contributor that
// has no persistent identifier yet. Implementations must degrade failures
// into the returned lookup's outcome rather than failing the run.
type Resolver interface {
	Resolve(ctx context.Context, name, email string) orcid.Lookup
}

// Matcher evaluates contributors against an author list.
type Matcher struct {
	strategies []Strategy
	resolver   Resolver
	minimum    MinimumMetadata
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithResolver enables external identifier lookup before tier evaluation.
func WithResolver(resolver Resolver) Option {
	return func(m *Matcher) {
		m.resolver = resolver
	}
}

// WithMinimumMetadata sets the new-vs-unmatched policy threshold.
func WithMinimumMetadata(minimum MinimumMetadata) Option {
	return func(m *Matcher) {
		if minimum != "" {
			m.minimum = minimum
		}
	}
}

// WithStrategies replaces the default tier list, mainly for tests.
func WithStrategies(strategies ...Strategy) Option {
	return func(m *Matcher) {
		m.strategies = strategies
	}
}

// New creates a Matcher with the default tiers.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		strategies: defaultStrategies(),
		minimum:    MinimumName,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match runs the lookup augmentation and the tiers for one contributor.
// Lookups performed along the way are returned for the audit log. The
// contributor's ORCID slot is updated in place on a successful lookup so
// later passes see the identifier.
func (m *Matcher) Match(ctx context.Context, c *identity.Contributor, authors []cff.AuthorRecord) (Result, []orcid.Lookup) {
	var lookups []orcid.Lookup

	if m.resolver != nil && c.ORCID == "" && !c.Entity {
		name, email := c.BestName(), c.BestEmail()
		if name != "" || email != "" {
			lookup := m.resolver.Resolve(ctx, name, email)
			lookups = append(lookups, lookup)
			if lookup.Outcome == orcid.OutcomeSuccess && lookup.ID != "" {
				c.ORCID = orcid.URLPrefix + lookup.ID
			}
		}
	}

	for _, strategy := range m.strategies {
		if result, ok := strategy.Match(c, authors); ok {
			return result, lookups
		}
	}

	return m.synthesize(c), lookups
}
