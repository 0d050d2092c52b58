package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	evts := []Event{
		{Kind: KindCommit, Actor: Actor{Username: "alice"}, SourceRef: "abc123", Timestamp: ts},
		{Kind: KindReview, Actor: Actor{Username: "bob"}, SourceRef: "900", Timestamp: ts.Add(time.Minute)},
		{Kind: KindPRComment, Actor: Actor{Username: "carol"}, SourceRef: "42", Timestamp: ts.Add(2 * time.Minute)},
	}

	t.Run("disabled kinds are removed", func(t *testing.T) {
		enabled := map[Kind]bool{KindCommit: true, KindPRComment: true}
		got := Filter(evts, enabled)
		assert.Len(t, got, 2)
		assert.Equal(t, KindCommit, got[0].Kind)
		assert.Equal(t, KindPRComment, got[1].Kind)
	})

	t.Run("missing kind counts as disabled", func(t *testing.T) {
		got := Filter(evts, map[Kind]bool{})
		assert.Empty(t, got)
	})

	t.Run("order is preserved", func(t *testing.T) {
		enabled := map[Kind]bool{}
		for _, k := range Kinds() {
			enabled[k] = true
		}
		got := Filter(evts, enabled)
		assert.Equal(t, evts, got)
	})
}

func TestActorEmpty(t *testing.T) {
	assert.True(t, Actor{}.Empty())
	assert.True(t, Actor{DisplayName: "   "}.Empty())
	assert.False(t, Actor{Username: "alice"}.Empty())
	assert.False(t, Actor{Email: "a@x.org"}.Empty())
	assert.False(t, Actor{DisplayName: "Alice A."}.Empty())
}
