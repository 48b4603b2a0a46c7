package metrics

import "github.com/rawblock/utxo-lifecycle-engine/pkg/models"

// ClusterStability compares two cluster-table snapshots of the same
// address universe — typically C6's output before and after a checkpoint
// resume, or before and after a batch of new multi-input transactions —
// via Adjusted Rand Index and Variation of Information. Addresses present
// in only one snapshot are dropped before comparison; the two inputs are
// aligned by address.
//
// Intended as a runtime/diagnostic check, not a correctness gate: cluster
// identifiers are explicitly allowed to shift root across runs (spec §3),
// so a low ARI alone doesn't indicate a bug — it's a signal for deeper
// inspection when unexpectedly low.
func ClusterStability(before, after []models.AddressClusterMap) (ari, vi float64) {
	beforeByAddr := make(map[string]string, len(before))
	for _, m := range before {
		beforeByAddr[m.Address] = m.ClusterID
	}
	afterByAddr := make(map[string]string, len(after))
	for _, m := range after {
		afterByAddr[m.Address] = m.ClusterID
	}

	var addrs []string
	for addr := range beforeByAddr {
		if _, ok := afterByAddr[addr]; ok {
			addrs = append(addrs, addr)
		}
	}

	if len(addrs) < 2 {
		return 1.0, 0.0
	}

	beforeLabels, afterLabels := labelEncode(addrs, beforeByAddr, afterByAddr)
	return AdjustedRandIndex(beforeLabels, afterLabels), VariationOfInformation(beforeLabels, afterLabels)
}

// labelEncode maps opaque cluster-id strings to small integer labels so
// ARI/VI's integer-labeled partition math can run over them.
func labelEncode(addrs []string, a, b map[string]string) ([]int, []int) {
	aIDs := make(map[string]int)
	bIDs := make(map[string]int)
	aLabels := make([]int, len(addrs))
	bLabels := make([]int, len(addrs))

	for i, addr := range addrs {
		ac := a[addr]
		if _, ok := aIDs[ac]; !ok {
			aIDs[ac] = len(aIDs)
		}
		aLabels[i] = aIDs[ac]

		bc := b[addr]
		if _, ok := bIDs[bc]; !ok {
			bIDs[bc] = len(bIDs)
		}
		bLabels[i] = bIDs[bc]
	}

	return aLabels, bLabels
}
