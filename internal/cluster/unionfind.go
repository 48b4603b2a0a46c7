// Package cluster is the Union-Find Clusterer (C6): an in-memory
// disjoint-set over address strings, fed by the multi-input
// common-ownership heuristic, periodically flushed to the cluster table.
//
// Adapted from the teacher's internal/heuristics/cluster_engine.go — same
// weighted-union/path-compression algorithm — but addresses are interned
// to int32 ids rather than kept as map[string]string parent pointers: at
// spec §5's stated scale (~200M distinct addresses, <=60 bytes/address
// amortized) a string-keyed map per address is not viable, so the teacher's
// shape is kept and its storage tightened to match the budget.
package cluster

// UnionFind is a disjoint-set over interned addresses. Not thread-safe by
// design (spec §4.6/§5): the feeder is single-threaded; parallel fetching
// precedes it, union operations are serialized.
type UnionFind struct {
	addrToID map[string]int32
	idToAddr []string
	parent   []int32
	rank     []uint8
}

func New() *UnionFind {
	return &UnionFind{addrToID: make(map[string]int32)}
}

// intern returns the integer id for addr, creating a new singleton entry
// (self-parent, rank 0) on first sight.
func (u *UnionFind) intern(addr string) int32 {
	if id, ok := u.addrToID[addr]; ok {
		return id
	}
	id := int32(len(u.idToAddr))
	u.addrToID[addr] = id
	u.idToAddr = append(u.idToAddr, addr)
	u.parent = append(u.parent, id)
	u.rank = append(u.rank, 0)
	return id
}

// findID returns the root id for id, with full path compression.
func (u *UnionFind) findID(id int32) int32 {
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// path compression
	for u.parent[id] != root {
		next := u.parent[id]
		u.parent[id] = root
		id = next
	}
	return root
}

// Find returns the canonical representative address for addr, inserting it
// as a fresh singleton if never seen.
func (u *UnionFind) Find(addr string) string {
	id := u.intern(addr)
	return u.idToAddr[u.findID(id)]
}

// Union merges the clusters containing a and b, by rank. Returns true if a
// merge actually occurred (they were in different clusters).
func (u *UnionFind) Union(a, b string) bool {
	ra := u.findID(u.intern(a))
	rb := u.findID(u.intern(b))
	if ra == rb {
		return false
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
	return true
}

// Connected is a derived check: find(a) == find(b).
func (u *UnionFind) Connected(a, b string) bool {
	return u.Find(a) == u.Find(b)
}

// TotalAddresses returns the number of interned addresses.
func (u *UnionFind) TotalAddresses() int {
	return len(u.idToAddr)
}

// ClusterCount returns the number of distinct clusters (roots).
func (u *UnionFind) ClusterCount() int {
	roots := make(map[int32]bool)
	for id := range u.idToAddr {
		roots[u.findID(int32(id))] = true
	}
	return len(roots)
}

// GetClusters enumerates members by representative address. Expensive —
// O(N) over every interned address — so callers should avoid it in a hot
// loop (spec §4.6); it is meant to be called once per flush.
func (u *UnionFind) GetClusters() map[string][]string {
	out := make(map[string][]string)
	for id, addr := range u.idToAddr {
		root := u.idToAddr[u.findID(int32(id))]
		out[root] = append(out[root], addr)
	}
	return out
}
