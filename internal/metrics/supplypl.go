package metrics

import "github.com/rawblock/utxo-lifecycle-engine/pkg/models"

// STHThresholdDays is the short-term/long-term holder boundary: 155 days
// (22,320 blocks at 10 min/block), per spec §4.8.
const STHThresholdDays = 155

// SupplyPL is the Supply Profit/Loss partition of unspent BTC supply.
type SupplyPL struct {
	ProfitBTC    float64
	LossBTC      float64
	BreakevenBTC float64
}

// ProfitPct, LossPct, BreakevenPct are percentages of total unspent supply.
func (s SupplyPL) totalBTC() float64 {
	return s.ProfitBTC + s.LossBTC + s.BreakevenBTC
}

func (s SupplyPL) ProfitPct() float64 {
	if s.totalBTC() == 0 {
		return 0
	}
	return 100 * s.ProfitBTC / s.totalBTC()
}

func (s SupplyPL) LossPct() float64 {
	if s.totalBTC() == 0 {
		return 0
	}
	return 100 * s.LossBTC / s.totalBTC()
}

func (s SupplyPL) BreakevenPct() float64 {
	if s.totalBTC() == 0 {
		return 0
	}
	return 100 * s.BreakevenBTC / s.totalBTC()
}

// ClassifyMarketPhase buckets percent-in-profit into the discrete phase
// spec §4.8 names: >=95 euphoria; 80-95 bull; 50-80 transition; <50
// capitulation.
func ClassifyMarketPhase(profitPct float64) string {
	switch {
	case profitPct >= 95:
		return models.MarketPhaseEuphoria
	case profitPct >= 80:
		return models.MarketPhaseBull
	case profitPct >= 50:
		return models.MarketPhaseTransition
	default:
		return models.MarketPhaseCapitulation
	}
}

// CostBasisCohort is one STH/LTH holder cohort's volume-weighted
// acquisition price plus its MVRV ratio.
type CostBasisCohort struct {
	BTCAmount        float64
	WeightedPriceUSD float64
}

// MVRVForCohort is the cohort's MVRV ratio at the current price: null when
// the cohort has no BTC (weighted price undefined).
func (c CostBasisCohort) MVRVForCohort(currentPrice float64) (value float64, ok bool) {
	if c.BTCAmount == 0 || c.WeightedPriceUSD == 0 {
		return 0, false
	}
	return currentPrice / c.WeightedPriceUSD, true
}
