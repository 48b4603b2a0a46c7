package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

func TestSupplyPL_Percentages(t *testing.T) {
	pl := SupplyPL{ProfitBTC: 60, LossBTC: 30, BreakevenBTC: 10}
	assert.Equal(t, 60.0, pl.ProfitPct())
	assert.Equal(t, 30.0, pl.LossPct())
	assert.Equal(t, 10.0, pl.BreakevenPct())
}

func TestSupplyPL_ZeroTotal(t *testing.T) {
	pl := SupplyPL{}
	assert.Equal(t, 0.0, pl.ProfitPct())
}

func TestClassifyMarketPhase(t *testing.T) {
	cases := []struct {
		pct   float64
		phase string
	}{
		{97, models.MarketPhaseEuphoria},
		{85, models.MarketPhaseBull},
		{60, models.MarketPhaseTransition},
		{20, models.MarketPhaseCapitulation},
	}
	for _, c := range cases {
		assert.Equal(t, c.phase, ClassifyMarketPhase(c.pct))
	}
}

func TestCostBasisCohort_MVRVForCohort_NullWhenNoBTC(t *testing.T) {
	_, ok := CostBasisCohort{}.MVRVForCohort(60_000)
	assert.False(t, ok)
}

func TestCostBasisCohort_MVRVForCohort(t *testing.T) {
	c := CostBasisCohort{BTCAmount: 5, WeightedPriceUSD: 52_000}
	v, ok := c.MVRVForCohort(60_000)
	assert.True(t, ok)
	assert.InDelta(t, 60_000.0/52_000.0, v, 1e-9)
}
