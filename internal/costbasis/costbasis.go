// Package costbasis is the Cost-Basis Aggregator (C7): it reduces
// UTXO x cluster into per-cluster acquisition records. The bulk SQL lives
// in the store package (a single set-based query, spec §4.7); this package
// holds the pure, store-independent arithmetic so it can be exercised
// directly against the worked examples in spec §8 (S6) without a database.
//
// Grounded on original_source/scripts/clustering/cost_basis.py: the
// docstring there names the exact bug this design avoids — tracking
// acquisition price per UTXO (rather than per cluster) "inflates" Realized
// Cap because internal transfers within one entity look like fresh
// acquisitions at the current price.
package costbasis

import (
	"context"
	"fmt"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// Entry is one UTXO's contribution to a cluster's cost basis at a given
// acquisition block.
type Entry struct {
	BTCAmount        float64
	AcquisitionPrice float64
}

// Validate mirrors cost_basis.py's track_acquisition_price guard: a
// non-positive BTC amount or a negative price is a caller bug, not a data
// quality gap — it is rejected rather than silently zeroed.
func (e Entry) Validate() error {
	if e.BTCAmount <= 0 {
		return fmt.Errorf("costbasis: btc_amount must be > 0, got %v", e.BTCAmount)
	}
	if e.AcquisitionPrice < 0 {
		return fmt.Errorf("costbasis: acquisition_price must be >= 0, got %v", e.AcquisitionPrice)
	}
	return nil
}

// WeightedAverage computes the volume-weighted average acquisition price
// over a set of entries: Σ(btc*price) / Σ(btc) — never an arithmetic mean
// of prices (S6: {2 BTC @ $40k, 3 BTC @ $60k} -> $52,000, not $50,000).
// Returns (0, 0) for an empty entry set.
func WeightedAverage(entries []Entry) (btcAmount, weightedAvgPrice float64) {
	var sumBTC, sumValue float64
	for _, e := range entries {
		sumBTC += e.BTCAmount
		sumValue += e.BTCAmount * e.AcquisitionPrice
	}
	if sumBTC == 0 {
		return 0, 0
	}
	return sumBTC, sumValue / sumBTC
}

// Recomputer is the store-side dependency: the single transactional
// DELETE+INSERT...GROUP BY (spec §4.7).
type Recomputer interface {
	RecomputeCostBasis(ctx context.Context) error
}

// Aggregator drives C7: a full recompute after every cluster-table flush,
// never an incremental patch (cluster roots can shift between runs, so
// incremental reconciliation would be unsound — spec §4.7).
type Aggregator struct {
	store Recomputer
}

func New(store Recomputer) *Aggregator {
	return &Aggregator{store: store}
}

// Run executes the full recompute.
func (a *Aggregator) Run(ctx context.Context) error {
	return a.store.RecomputeCostBasis(ctx)
}

// ConservationCheck verifies Id5: for a cluster, the sum of ClusterCostBasis
// btc_amount equals the sum of btc_value over unspent UTXOs whose address
// is in that cluster. Exposed for tests and optional runtime auditing.
func ConservationCheck(basisRows []models.ClusterCostBasis, clusterID string, unspentBTC float64) (ok bool, got float64) {
	for _, r := range basisRows {
		if r.ClusterID == clusterID {
			got += r.BTCAmount
		}
	}
	const tolerance = 1e-9
	diff := got - unspentBTC
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance, got
}
