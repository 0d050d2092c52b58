package identity

// unionFind is an explicit disjoint-set over raw identity attribute nodes.
// Attributes observed together on one raw identity are unioned, which makes
// merging provably transitive: if two identities share a username and a
// third shares an email with either, all three resolve to one set.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: map[string]string{},
		rank:   map[string]int{},
	}
}

// add registers a node if unseen.
func (u *unionFind) add(node string) {
	if _, ok := u.parent[node]; !ok {
		u.parent[node] = node
		u.rank[node] = 0
	}
}

// find returns the set representative for node, with path compression.
func (u *unionFind) find(node string) string {
	root := node
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[node] != root {
		u.parent[node], node = root, u.parent[node]
	}
	return root
}

// union merges the sets containing a and b.
func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}
