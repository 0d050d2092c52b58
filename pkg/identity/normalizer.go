// Package identity collapses the raw actor identities behind contribution
// events into canonical contributors. Two raw identities merge if and only
// if they share a username or an email, transitively; free-text display
// names only group identities that carry no stronger signal. Bot accounts
// are dropped before grouping and leave no trace in the output.
package identity

import (
	"strings"

	"github.com/willynilly/action-update-cff-authors/pkg/events"
)

// Contributor is the canonical, deduplicated identity behind one or more
// raw contribution events.
type Contributor struct {
	// Key is a stable identifier: the first-seen username, else the
	// first-seen email, else the folded display name.
	Key string

	// Observed identity attributes in first-seen order, deduplicated.
	Usernames    []string
	Emails       []string
	DisplayNames []string

	// ORCID is carried over from event evidence (a profile bio, typically)
	// or attached by the matcher's external lookup.
	ORCID string

	// Entity marks contributors backed by an organization account.
	Entity bool

	// Evidence holds the contributor's events in first-seen order. The
	// ordering is load-bearing: it drives deterministic tie-breaks.
	Evidence []events.Event
}

// FirstSeen returns the timestamp of the earliest evidence event.
func (c *Contributor) FirstSeen() (ts int64) {
	if len(c.Evidence) == 0 {
		return 0
	}
	return c.Evidence[0].Timestamp.UnixNano()
}

// BestName returns the contributor's most useful display name: the first
// non-empty display name, else the first username.
func (c *Contributor) BestName() string {
	if len(c.DisplayNames) > 0 {
		return c.DisplayNames[0]
	}
	if len(c.Usernames) > 0 {
		return c.Usernames[0]
	}
	return ""
}

// BestEmail returns the first observed email, if any.
func (c *Contributor) BestEmail() string {
	if len(c.Emails) > 0 {
		return c.Emails[0]
	}
	return ""
}

// Options configures normalization.
type Options struct {
	// Enabled gates event categories; nil enables everything. Events of a
	// disabled category are excluded before grouping, equivalent to the
	// category never having occurred.
	Enabled map[events.Kind]bool

	// Bots lists usernames (case-insensitive) whose events are dropped
	// before grouping.
	Bots []string
}

// Attribute node prefixes keep usernames, emails, and names in disjoint
// namespaces inside the union-find.
const (
	usernameNode = "u:"
	emailNode    = "e:"
	nameNode     = "n:"
)

// Normalize folds an ordered event sequence into canonical contributors.
// Output order is the first-seen order of each contributor's earliest event,
// so a fixed input sequence always yields the identical output.
func Normalize(evts []events.Event, opts Options) []*Contributor {
	if opts.Enabled != nil {
		evts = events.Filter(evts, opts.Enabled)
	}

	bots := map[string]bool{}
	for _, bot := range opts.Bots {
		if bot = strings.TrimSpace(bot); bot != "" {
			bots[strings.ToLower(bot)] = true
		}
	}

	uf := newUnionFind()
	eventNodes := make([]string, len(evts)) // primary attribute node per event, "" when unusable

	for i, e := range evts {
		actor := e.Actor
		if bots[strings.ToLower(actor.Username)] {
			continue
		}

		nodes := attributeNodes(actor)
		if len(nodes) == 0 {
			continue
		}
		for _, node := range nodes {
			uf.add(node)
		}
		for _, node := range nodes[1:] {
			uf.union(nodes[0], node)
		}
		eventNodes[i] = nodes[0]
	}

	// Group events by set representative, preserving first-seen order.
	byRoot := map[string]*Contributor{}
	var ordered []*Contributor

	for i, e := range evts {
		if eventNodes[i] == "" {
			continue
		}
		root := uf.find(eventNodes[i])

		c, ok := byRoot[root]
		if !ok {
			c = &Contributor{}
			byRoot[root] = c
			ordered = append(ordered, c)
		}

		c.Evidence = append(c.Evidence, e)
		observe(c, e.Actor)
	}

	for _, c := range ordered {
		c.Key = deriveKey(c)
	}

	return ordered
}

// attributeNodes returns the union-find nodes for a raw identity. Display
// names participate only when no username or email is present, so a shared
// display name alone never merges identities with stronger signals.
func attributeNodes(actor events.Actor) []string {
	var nodes []string
	if actor.Username != "" {
		nodes = append(nodes, usernameNode+strings.ToLower(actor.Username))
	}
	if actor.Email != "" {
		nodes = append(nodes, emailNode+strings.ToLower(actor.Email))
	}
	if len(nodes) == 0 {
		if folded := Fold(actor.DisplayName); folded != "" {
			nodes = append(nodes, nameNode+folded)
		}
	}
	return nodes
}

// observe records an actor's attributes on the contributor in first-seen
// order, without duplicates.
func observe(c *Contributor, actor events.Actor) {
	if actor.Username != "" && !containsFold(c.Usernames, actor.Username) {
		c.Usernames = append(c.Usernames, actor.Username)
	}
	if actor.Email != "" && !containsFold(c.Emails, actor.Email) {
		c.Emails = append(c.Emails, actor.Email)
	}
	if name := strings.TrimSpace(actor.DisplayName); name != "" && !containsName(c.DisplayNames, name) {
		c.DisplayNames = append(c.DisplayNames, name)
	}
	if actor.ORCID != "" && c.ORCID == "" {
		c.ORCID = actor.ORCID
	}
	if actor.Entity {
		c.Entity = true
	}
}

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

func containsName(list []string, value string) bool {
	folded := Fold(value)
	for _, v := range list {
		if Fold(v) == folded {
			return true
		}
	}
	return false
}

// deriveKey picks the canonical key by grouping-signal precedence:
// username > email > display name.
func deriveKey(c *Contributor) string {
	if len(c.Usernames) > 0 {
		return strings.ToLower(c.Usernames[0])
	}
	if len(c.Emails) > 0 {
		return strings.ToLower(c.Emails[0])
	}
	if len(c.DisplayNames) > 0 {
		return Fold(c.DisplayNames[0])
	}
	return ""
}
