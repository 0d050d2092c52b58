// Package reconcile orchestrates the full author-reconciliation pipeline:
// events are filtered and normalized into contributors, each contributor is
// matched against the citation document's author list, and the outcome is
// partitioned into already-known, newly-qualifying, and unmatched sets.
//
// Processing order is deterministic: contributors are handled in order of
// their first evidence timestamp, ties broken by canonical key, so output
// ordering — including the order authors are appended in — is stable across
// re-runs with unchanged inputs. Newly appended records join the registry
// immediately, which is what makes a second run over the same events
// idempotent: the matcher finds them via its normal tiers.
package reconcile

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/willynilly/action-update-cff-authors/pkg/cff"
	"github.com/willynilly/action-update-cff-authors/pkg/events"
	"github.com/willynilly/action-update-cff-authors/pkg/identity"
	"github.com/willynilly/action-update-cff-authors/pkg/logging"
	"github.com/willynilly/action-update-cff-authors/pkg/match"
)

// Config carries the per-run policy toggles, enumerated explicitly so the
// engine has no ambient configuration.
type Config struct {
	// Enabled gates contribution categories; nil enables everything.
	Enabled map[events.Kind]bool

	// Bots lists usernames whose events are dropped before grouping.
	Bots []string

	// MinimumMetadata is the new-vs-unmatched policy threshold.
	MinimumMetadata match.MinimumMetadata
}

// Engine runs reconciliation. Construct with New; zero value is not usable.
type Engine struct {
	resolver    match.Resolver
	concurrency int
	logger      *zerolog.Logger
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver enables external identifier lookups during matching.
func WithResolver(resolver match.Resolver) Option {
	return func(e *Engine) {
		e.resolver = resolver
	}
}

// WithConcurrency bounds the lookup worker pool. Lookups only affect
// latency; results are reintegrated in deterministic order.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the engine's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		concurrency: 4,
		logger:      logging.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one reconciliation pass. The document's author list is
// mutated by appending synthesized records; everything else about the
// document is untouched. Only a failure to serialize the updated document
// is an error — per-contributor problems degrade to warnings and lookup
// logs inside the Result.
func (e *Engine) Run(ctx context.Context, evts []events.Event, doc *cff.Document, cfg Config) (*Result, error) {
	result := &Result{
		RunID:    uuid.NewString(),
		Metadata: ResultMetadata{StartTime: e.now()},
	}

	ctx = logging.WithRunID(ctx, result.RunID)
	log := e.logger.With().Str("run_id", result.RunID).Logger()

	contributors := identity.Normalize(evts, identity.Options{
		Enabled: cfg.Enabled,
		Bots:    cfg.Bots,
	})
	sortContributors(contributors)

	result.Metadata.Stats.EventsProcessed = len(evts)
	result.Metadata.Stats.ContributorsProcessed = len(contributors)

	log.Debug().
		Int("events", len(evts)).
		Int("contributors", len(contributors)).
		Msg("normalized contribution events")

	resolver := e.resolver
	if resolver != nil && e.concurrency > 1 {
		resolver = e.prefetch(ctx, contributors)
	}

	matcher := match.New(
		match.WithResolver(resolver),
		match.WithMinimumMetadata(cfg.MinimumMetadata),
	)

	for _, c := range contributors {
		decision, lookups := matcher.Match(ctx, c, doc.Authors)
		result.Lookups = append(result.Lookups, lookups...)

		for _, warning := range decision.Warnings {
			result.Warnings = append(result.Warnings, Warning{Subject: c.Key, Reason: warning})
		}

		switch decision.Status {
		case match.StatusMatched:
			result.Matched = append(result.Matched, Matched{
				Key:        c.Key,
				AuthorName: decision.Author.FullName(),
				Tier:       decision.Provenance,
				Confidence: decision.Confidence,
			})
			log.Debug().Str("contributor", c.Key).Str("tier", decision.Provenance).Msg("matched existing author")

		case match.StatusNew:
			doc.Append(decision.Record)
			result.NewAuthors = append(result.NewAuthors, NewAuthor{
				Key:        c.Key,
				Record:     decision.Record,
				Category:   c.Evidence[0].Kind,
				Evidence:   evidenceRefs(c),
				Confidence: decision.Confidence,
			})
			log.Info().Str("contributor", c.Key).Msg("synthesized new author record")

		case match.StatusUnmatched:
			result.Unmatched = append(result.Unmatched, Unmatched{
				Key:      c.Key,
				Reason:   decision.Reason,
				Evidence: evidenceRefs(c),
			})
			result.Warnings = append(result.Warnings, Warning{Subject: c.Key, Reason: decision.Reason})
			log.Warn().Str("contributor", c.Key).Str("reason", decision.Reason).Msg("contributor left unmatched")
		}
	}

	result.Metadata.Stats.LookupsPerformed = len(result.Lookups)

	updated, err := doc.Save()
	if err != nil {
		return nil, err
	}
	result.UpdatedCFF = updated

	result.finalize(e.now)
	log.Info().Str("summary", result.Summary()).Msg("reconciliation complete")
	return result, nil
}

// sortContributors orders by first evidence timestamp, ties by key.
func sortContributors(contributors []*identity.Contributor) {
	sort.SliceStable(contributors, func(i, j int) bool {
		a, b := contributors[i], contributors[j]
		if a.FirstSeen() != b.FirstSeen() {
			return a.FirstSeen() < b.FirstSeen()
		}
		return a.Key < b.Key
	})
}

// evidenceRefs renders a contributor's evidence trail for the report.
func evidenceRefs(c *identity.Contributor) []string {
	refs := make([]string, 0, len(c.Evidence))
	for _, e := range c.Evidence {
		refs = append(refs, e.Kind.String()+" "+e.SourceRef)
	}
	return refs
}
