package reconcile

import (
	"context"
	"sync"

	"github.com/willynilly/action-update-cff-authors/internal/orcid"
	"github.com/willynilly/action-update-cff-authors/pkg/identity"
	"github.com/willynilly/action-update-cff-authors/pkg/match"
)

// prefetchResolver answers matcher lookups from results fetched ahead of
// time with bounded concurrency. Each lookup is keyed by one contributor's
// query and written only into that contributor's own slot, so concurrency
// changes latency but never the engine's output ordering. Queries the
// prefetch did not anticipate fall through to the real resolver.
type prefetchResolver struct {
	inner   match.Resolver
	lookups map[string]orcid.Lookup
}

func lookupKey(name, email string) string {
	return name + "\x00" + email
}

// prefetch resolves, ahead of the sequential matching loop, the lookup for
// every contributor the matcher will query: those without an identifier but
// with a usable name or email.
func (e *Engine) prefetch(ctx context.Context, contributors []*identity.Contributor) match.Resolver {
	type query struct {
		name, email string
	}

	var pending []query
	seen := map[string]bool{}
	for _, c := range contributors {
		if c.ORCID != "" || c.Entity {
			continue
		}
		name, email := c.BestName(), c.BestEmail()
		if name == "" && email == "" {
			continue
		}
		key := lookupKey(name, email)
		if seen[key] {
			continue
		}
		seen[key] = true
		pending = append(pending, query{name: name, email: email})
	}

	results := make([]orcid.Lookup, len(pending))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, q := range pending {
		wg.Add(1)
		go func(slot int, q query) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[slot] = e.resolver.Resolve(ctx, q.name, q.email)
		}(i, q)
	}
	wg.Wait()

	resolver := &prefetchResolver{
		inner:   e.resolver,
		lookups: make(map[string]orcid.Lookup, len(pending)),
	}
	for i, q := range pending {
		resolver.lookups[lookupKey(q.name, q.email)] = results[i]
	}
	return resolver
}

// Resolve implements match.Resolver.
func (r *prefetchResolver) Resolve(ctx context.Context, name, email string) orcid.Lookup {
	if lookup, ok := r.lookups[lookupKey(name, email)]; ok {
		return lookup
	}
	return r.inner.Resolve(ctx, name, email)
}
