package cluster

import "github.com/rawblock/utxo-lifecycle-engine/pkg/models"

// FeedTransaction applies the multi-input common-ownership heuristic (spec
// §4.6/GLOSSARY): for a transaction with resolvable input addresses
// {a1..ak}, k>=2, union(a1, ai) for i=2..k. A single-input transaction does
// not induce a union — the address is still interned as a singleton on
// demand by Find/Union elsewhere in the pipeline.
//
// Returns the number of unions that actually merged two previously
// distinct clusters.
func (u *UnionFind) FeedTransaction(tx models.Transaction) int {
	addrs := tx.InputAddresses()
	if len(addrs) < 2 {
		return 0
	}
	merges := 0
	first := addrs[0]
	for _, a := range addrs[1:] {
		if u.Union(first, a) {
			merges++
		}
	}
	return merges
}
