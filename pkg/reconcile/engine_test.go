package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willynilly/action-update-cff-authors/internal/orcid"
	"github.com/willynilly/action-update-cff-authors/pkg/cff"
	"github.com/willynilly/action-update-cff-authors/pkg/events"
	"github.com/willynilly/action-update-cff-authors/pkg/match"
)

const testCFF = `cff-version: 1.2.0
message: If you use this software, please cite it.
title: Example Project
authors:
  - given-names: Ada
    family-names: Lovelace
    email: ada@example.org
    orcid: https://orcid.org/0000-0001-2345-6789
`

func loadDoc(t *testing.T) *cff.Document {
	t.Helper()
	doc, err := cff.Load([]byte(testCFF))
	require.NoError(t, err)
	return doc
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func commitEvent(offset time.Duration, username, name, email, sha string) events.Event {
	return events.Event{
		Kind:      events.KindCommit,
		Actor:     events.Actor{Username: username, DisplayName: name, Email: email},
		SourceRef: sha,
		Timestamp: baseTime.Add(offset),
	}
}

func TestRunNewContributor(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	evts := []events.Event{
		commitEvent(0, "alice", "Alice Walker", "alice@example.org", "abc123"),
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)

	assert.Empty(t, result.Matched)
	assert.Empty(t, result.Unmatched)
	require.Len(t, result.NewAuthors, 1)

	added := result.NewAuthors[0]
	assert.Equal(t, "alice", added.Key)
	assert.Equal(t, "Alice", added.Record.GivenNames)
	assert.Equal(t, "Walker", added.Record.FamilyNames)
	assert.Equal(t, "alice@example.org", added.Record.Email)
	assert.Equal(t, events.KindCommit, added.Category)
	assert.Equal(t, []string{"commit abc123"}, added.Evidence)

	assert.Contains(t, string(result.UpdatedCFF), "Walker")

	verdict := result.Verdict(true)
	assert.True(t, verdict.Passed, "auto-added authors must not block the verdict")
}

func TestRunExistingAuthor(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	evts := []events.Event{
		commitEvent(0, "adal", "Ada Lovelace", "ada@example.org", "def456"),
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)

	require.Len(t, result.Matched, 1)
	assert.Equal(t, "email", result.Matched[0].Tier)
	assert.Empty(t, result.NewAuthors)
	assert.Len(t, doc.Authors, 1, "matched contributor must not append a record")
}

func TestRunBotExcluded(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	evts := []events.Event{
		commitEvent(0, "Bot1", "Bot One", "bot1@example.org", "aaa111"),
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{Bots: []string{"bot1"}})
	require.NoError(t, err)

	assert.Empty(t, result.Matched)
	assert.Empty(t, result.NewAuthors)
	assert.Empty(t, result.Unmatched)
	assert.Empty(t, result.Warnings, "excluded bots leave no warnings")
	assert.Equal(t, 0, result.Metadata.Stats.ContributorsProcessed)
}

func TestRunNameOnlyContributor(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	evts := []events.Event{
		{
			Kind:      events.KindCoAuthor,
			Actor:     events.Actor{DisplayName: "Madonna", Email: "madonna@example.org"},
			SourceRef: "abc123",
			Timestamp: baseTime,
		},
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)

	require.Len(t, result.NewAuthors, 1)
	assert.Equal(t, "Madonna", result.NewAuthors[0].Record.Name)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Reason, "missing family name")

	verdict := result.Verdict(true)
	assert.True(t, verdict.Passed)
}

func TestRunUnmatchedBlocksVerdict(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	// An email with no associated name cannot be matched or synthesized.
	evts := []events.Event{
		commitEvent(0, "", "", "ghost@example.org", "fff000"),
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)

	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, "ghost@example.org", result.Unmatched[0].Key)

	assert.True(t, result.Verdict(false).Passed)

	verdict := result.Verdict(true)
	assert.False(t, verdict.Passed)
	assert.Equal(t, []string{"ghost@example.org"}, verdict.Blocking)
}

func TestRunIdempotent(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	evts := []events.Event{
		commitEvent(0, "alice", "Alice Walker", "alice@example.org", "abc123"),
		commitEvent(time.Minute, "bob", "Bob Ross", "bob@example.org", "bbb222"),
	}

	first, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)
	require.Len(t, first.NewAuthors, 2)

	// Re-running over the updated document finds every contributor already
	// present and changes nothing.
	doc2, err := cff.Load(first.UpdatedCFF)
	require.NoError(t, err)

	second, err := engine.Run(context.Background(), evts, doc2, Config{})
	require.NoError(t, err)
	assert.Empty(t, second.NewAuthors)
	assert.Len(t, second.Matched, 2)
	assert.Equal(t, string(first.UpdatedCFF), string(second.UpdatedCFF))
}

func TestRunDeterministicOrdering(t *testing.T) {
	evts := []events.Event{
		commitEvent(2*time.Minute, "carol", "Carol Kaye", "carol@example.org", "ccc333"),
		commitEvent(0, "alice", "Alice Walker", "alice@example.org", "abc123"),
		commitEvent(time.Minute, "bob", "Bob Ross", "bob@example.org", "bbb222"),
	}

	engine := New()

	var want []string
	for run := 0; run < 3; run++ {
		doc := loadDoc(t)
		result, err := engine.Run(context.Background(), evts, doc, Config{})
		require.NoError(t, err)

		keys := result.NewAuthorKeys()
		assert.Equal(t, []string{"alice", "bob", "carol"}, keys, "first-seen order")
		if run == 0 {
			want = keys
		} else {
			assert.Equal(t, want, keys)
		}
	}
}

func TestRunDisabledCategory(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	evts := []events.Event{
		commitEvent(0, "alice", "Alice Walker", "alice@example.org", "abc123"),
		{
			Kind:      events.KindReview,
			Actor:     events.Actor{Username: "bob", DisplayName: "Bob Ross"},
			SourceRef: "42",
			Timestamp: baseTime.Add(time.Minute),
		},
	}

	cfg := Config{Enabled: map[events.Kind]bool{events.KindCommit: true}}
	result, err := engine.Run(context.Background(), evts, doc, cfg)
	require.NoError(t, err)

	require.Len(t, result.NewAuthors, 1)
	assert.Equal(t, "alice", result.NewAuthors[0].Key)
}

// countingResolver counts concurrent in-flight lookups.
type countingResolver struct {
	mu       sync.Mutex
	inflight int
	peak     int
	calls    int
	lookup   orcid.Lookup
}

func (r *countingResolver) Resolve(_ context.Context, name, _ string) orcid.Lookup {
	r.mu.Lock()
	r.inflight++
	r.calls++
	if r.inflight > r.peak {
		r.peak = r.inflight
	}
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()

	lookup := r.lookup
	lookup.Query = name
	return lookup
}

var _ match.Resolver = (*countingResolver)(nil)

func TestRunPrefetchBoundsConcurrency(t *testing.T) {
	doc := loadDoc(t)
	resolver := &countingResolver{lookup: orcid.Lookup{Outcome: orcid.OutcomeNotFound}}
	engine := New(WithResolver(resolver), WithConcurrency(2))

	evts := []events.Event{
		commitEvent(0, "a1", "Anna One", "a1@example.org", "s1"),
		commitEvent(time.Second, "a2", "Anna Two", "a2@example.org", "s2"),
		commitEvent(2*time.Second, "a3", "Anna Three", "a3@example.org", "s3"),
		commitEvent(3*time.Second, "a4", "Anna Four", "a4@example.org", "s4"),
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)

	assert.Equal(t, 4, resolver.calls, "one lookup per contributor, served from the prefetch")
	assert.LessOrEqual(t, resolver.peak, 2)
	assert.Len(t, result.Lookups, 4)
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, result.NewAuthorKeys())
}

func TestRunLookupSuccessAttachesIdentifier(t *testing.T) {
	doc := loadDoc(t)
	resolver := &countingResolver{lookup: orcid.Lookup{Outcome: orcid.OutcomeSuccess, ID: "0000-0002-0000-0001"}}
	engine := New(WithResolver(resolver), WithConcurrency(1))

	evts := []events.Event{
		commitEvent(0, "grace", "Grace Hopper", "grace@example.org", "g1"),
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)

	require.Len(t, result.NewAuthors, 1)
	assert.Equal(t, "https://orcid.org/0000-0002-0000-0001", result.NewAuthors[0].Record.ORCID)
	require.Len(t, result.Lookups, 1)
	assert.Equal(t, orcid.OutcomeSuccess, result.Lookups[0].Outcome)
}

func TestRunContactPolicy(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	evts := []events.Event{
		{
			Kind:      events.KindCoAuthor,
			Actor:     events.Actor{DisplayName: "J. Smith"},
			SourceRef: "abc123",
			Timestamp: baseTime,
		},
	}

	cfg := Config{MinimumMetadata: match.MinimumContact}
	result, err := engine.Run(context.Background(), evts, doc, cfg)
	require.NoError(t, err)

	assert.Empty(t, result.NewAuthors)
	require.Len(t, result.Unmatched, 1)
	assert.Contains(t, result.Unmatched[0].Reason, "contact metadata")
}

func TestRunMergesIdentities(t *testing.T) {
	doc := loadDoc(t)
	engine := New()

	// Same email ties the username-bearing commit to the trailer identity.
	evts := []events.Event{
		commitEvent(0, "alice", "Alice Walker", "alice@example.org", "abc123"),
		{
			Kind:      events.KindCoAuthor,
			Actor:     events.Actor{DisplayName: "A. Walker", Email: "alice@example.org"},
			SourceRef: "abc123",
			Timestamp: baseTime.Add(time.Second),
		},
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)

	require.Len(t, result.NewAuthors, 1)
	assert.Len(t, result.NewAuthors[0].Evidence, 2)
}

func TestRunStats(t *testing.T) {
	doc := loadDoc(t)
	now := baseTime
	engine := New(WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	evts := []events.Event{
		commitEvent(0, "alice", "Alice Walker", "alice@example.org", "abc123"),
	}

	result, err := engine.Run(context.Background(), evts, doc, Config{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Metadata.Stats.EventsProcessed)
	assert.Equal(t, 1, result.Metadata.Stats.ContributorsProcessed)
	assert.Equal(t, time.Second, result.Metadata.Duration)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "0 matched, 1 new, 0 unmatched (1 warnings)", result.Summary())
}
