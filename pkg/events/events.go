// Package events defines the contribution-event model consumed by the
// reconciliation engine. An Event is one observed signal of participation on
// a pull request: a commit, a co-authorship trailer, a review, a linked
// issue, or a comment. Events are immutable values; collectors create them
// once and the engine only reads them.
package events

import (
	"strings"
	"time"
)

// Kind identifies the category of a contribution event.
type Kind string

// Contribution event kinds.
const (
	KindCommit       Kind = "commit"
	KindCoAuthor     Kind = "commit-co-author"
	KindReview       Kind = "review"
	KindIssue        Kind = "issue-creation"
	KindIssueComment Kind = "issue-comment"
	KindPRComment    Kind = "pr-comment"
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	return string(k)
}

// Kinds lists all event kinds in their canonical order.
func Kinds() []Kind {
	return []Kind{
		KindCommit,
		KindCoAuthor,
		KindReview,
		KindIssue,
		KindIssueComment,
		KindPRComment,
	}
}

// Actor is the raw identity attached to an event as observed on the
// platform. Any field may be empty; the identity normalizer decides how
// partial identities group together.
type Actor struct {
	Username    string // platform login, most reliable signal
	DisplayName string // free-text name, least reliable signal
	Email       string // commit or profile email
	ORCID       string // persistent identifier URL, e.g. extracted from a profile bio
	Entity      bool   // organization account rather than a person
}

// Empty reports whether the actor carries no usable identity signal at all.
func (a Actor) Empty() bool {
	return a.Username == "" && strings.TrimSpace(a.DisplayName) == "" && a.Email == ""
}

// Event is one immutable contribution signal.
type Event struct {
	Kind      Kind
	Actor     Actor
	SourceRef string // commit SHA, review ID, issue number, or comment ID
	Timestamp time.Time
}

// Filter returns the events whose kind is enabled, preserving order.
// A kind missing from enabled counts as disabled, so filtering with an
// explicit toggle map is equivalent to those events never having occurred.
func Filter(evts []Event, enabled map[Kind]bool) []Event {
	filtered := make([]Event, 0, len(evts))
	for _, e := range evts {
		if enabled[e.Kind] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
