package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/utxo-lifecycle-engine/internal/store"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

func TestComputeWalletWaves_Buckets(t *testing.T) {
	balances := []store.AddressBalance{
		{Address: "a", BalanceBTC: 0.5},
		{Address: "b", BalanceBTC: 5},
		{Address: "c", BalanceBTC: 50},
		{Address: "d", BalanceBTC: 500},
		{Address: "e", BalanceBTC: 5000},
		{Address: "f", BalanceBTC: 50000},
	}
	waves := ComputeWalletWaves(balances)
	assert.Len(t, waves, 6)

	byName := make(map[string]WaveBand, len(waves))
	for _, w := range waves {
		byName[w.Name] = w
	}
	assert.Equal(t, 0.5, byName[models.WaveShrimp].SupplyBTC)
	assert.Equal(t, 1, byName[models.WaveShrimp].AddressCount)
	assert.Equal(t, 50000.0, byName[models.WaveHumpback].SupplyBTC)

	var totalPct float64
	for _, w := range waves {
		totalPct += w.SupplyPct
	}
	assert.InDelta(t, 100.0, totalPct, 1e-6)
}

func TestComputeWalletWaves_Empty(t *testing.T) {
	waves := ComputeWalletWaves(nil)
	assert.Len(t, waves, 6)
	for _, w := range waves {
		assert.Equal(t, 0.0, w.SupplyPct)
	}
}

func TestComputeAddressCohorts_WeightedCostBasis(t *testing.T) {
	balances := []store.AddressBalance{
		{Address: "a", BalanceBTC: 0.5, WeightedPriceUSD: 20_000},
		{Address: "b", BalanceBTC: 200, WeightedPriceUSD: 60_000},
	}
	cohorts := ComputeAddressCohorts(balances)
	byName := make(map[string]CohortBand, len(cohorts))
	for _, c := range cohorts {
		byName[c.Name] = c
	}
	assert.Equal(t, 20_000.0, byName[models.CohortRetail].WeightedPriceUSD)
	assert.Equal(t, 60_000.0, byName[models.CohortWhale].WeightedPriceUSD)
}

func TestCohortBand_MVRV_NullWhenEmpty(t *testing.T) {
	_, ok := CohortBand{}.MVRV(60_000)
	assert.False(t, ok)
}
