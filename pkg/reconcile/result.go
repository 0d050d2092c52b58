package reconcile

import (
	"fmt"
	"time"

	"github.com/willynilly/action-update-cff-authors/internal/orcid"
	"github.com/willynilly/action-update-cff-authors/pkg/cff"
	"github.com/willynilly/action-update-cff-authors/pkg/events"
	"github.com/willynilly/action-update-cff-authors/pkg/match"
)

// NewAuthor is one author record synthesized during a run, with the evidence
// trail that qualified the contributor.
type NewAuthor struct {
	Key        string
	Record     cff.AuthorRecord
	Category   events.Kind // the category of the first qualifying event
	Evidence   []string    // "kind sourceref" references for the audit trail
	Confidence match.Confidence
}

// Matched is a contributor that corresponds to an existing author record.
type Matched struct {
	Key        string
	AuthorName string // display name of the registry record
	Tier       string // which matching tier committed
	Confidence match.Confidence
}

// Unmatched is a contributor with insufficient evidence to match or add.
type Unmatched struct {
	Key      string
	Reason   string
	Evidence []string
}

// Warning records a skipped, ambiguous, or incomplete case.
type Warning struct {
	Subject string // contributor key or event reference
	Reason  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Subject, w.Reason)
}

// Result is the outcome of one reconciliation run.
type Result struct {
	RunID string

	Matched    []Matched
	NewAuthors []NewAuthor
	Unmatched  []Unmatched

	Warnings []Warning
	Lookups  []orcid.Lookup

	// UpdatedCFF is the full serialized citation document including
	// appended authors.
	UpdatedCFF []byte

	Metadata ResultMetadata
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Stats     ResultStatistics
}

// ResultStatistics contains statistics about the reconciliation.
type ResultStatistics struct {
	EventsProcessed       int
	ContributorsProcessed int
	LookupsPerformed      int
}

// HasNewAuthors reports whether the run appended any author records.
func (r *Result) HasNewAuthors() bool {
	return len(r.NewAuthors) > 0
}

// NewAuthorKeys returns the keys of the appended authors in run order.
func (r *Result) NewAuthorKeys() []string {
	keys := make([]string, 0, len(r.NewAuthors))
	for _, author := range r.NewAuthors {
		keys = append(keys, author.Key)
	}
	return keys
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d matched, %d new, %d unmatched (%d warnings)",
		len(r.Matched), len(r.NewAuthors), len(r.Unmatched), len(r.Warnings))
}

// finalize calculates duration and marks completion.
func (r *Result) finalize(now func() time.Time) {
	r.Metadata.EndTime = now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}
