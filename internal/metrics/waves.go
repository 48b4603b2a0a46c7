package metrics

import (
	"github.com/rawblock/utxo-lifecycle-engine/internal/store"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// WaveBand is one band's aggregate stats.
type WaveBand struct {
	Name       string
	SupplyBTC  float64
	SupplyPct  float64
	AddressCount int
}

func waveBandFor(balanceBTC float64) string {
	switch {
	case balanceBTC < 1:
		return models.WaveShrimp
	case balanceBTC < 10:
		return models.WaveCrab
	case balanceBTC < 100:
		return models.WaveFish
	case balanceBTC < 1000:
		return models.WaveShark
	case balanceBTC < 10000:
		return models.WaveWhale
	default:
		return models.WaveHumpback
	}
}

func cohortBandFor(balanceBTC float64) string {
	switch {
	case balanceBTC < 1:
		return models.CohortRetail
	case balanceBTC < 100:
		return models.CohortMidTier
	default:
		return models.CohortWhale
	}
}

// ComputeWalletWaves buckets address balances into the six wave bands and
// reports each band's share of total unspent supply.
func ComputeWalletWaves(balances []store.AddressBalance) []WaveBand {
	bands := map[string]*WaveBand{
		models.WaveShrimp:   {Name: models.WaveShrimp},
		models.WaveCrab:     {Name: models.WaveCrab},
		models.WaveFish:     {Name: models.WaveFish},
		models.WaveShark:    {Name: models.WaveShark},
		models.WaveWhale:    {Name: models.WaveWhale},
		models.WaveHumpback: {Name: models.WaveHumpback},
	}

	var total float64
	for _, b := range balances {
		band := bands[waveBandFor(b.BalanceBTC)]
		band.SupplyBTC += b.BalanceBTC
		band.AddressCount++
		total += b.BalanceBTC
	}

	order := []string{models.WaveShrimp, models.WaveCrab, models.WaveFish, models.WaveShark, models.WaveWhale, models.WaveHumpback}
	out := make([]WaveBand, 0, len(order))
	for _, name := range order {
		band := *bands[name]
		if total > 0 {
			band.SupplyPct = 100 * band.SupplyBTC / total
		}
		out = append(out, band)
	}
	return out
}

// CohortBand is one address cohort's aggregate stats plus its
// volume-weighted cost basis and MVRV.
type CohortBand struct {
	Name             string
	SupplyBTC        float64
	SupplyPct        float64
	WeightedPriceUSD float64
}

// MVRV computes the cohort's MVRV at currentPrice. Null when the cohort
// has no BTC or an undefined weighted price.
func (c CohortBand) MVRV(currentPrice float64) (value float64, ok bool) {
	if c.SupplyBTC == 0 || c.WeightedPriceUSD == 0 {
		return 0, false
	}
	return currentPrice / c.WeightedPriceUSD, true
}

// ComputeAddressCohorts buckets address balances into the three cohort
// bands, each with its volume-weighted acquisition price.
func ComputeAddressCohorts(balances []store.AddressBalance) []CohortBand {
	type accum struct {
		btc   float64
		value float64 // btc*price summed
	}
	bands := map[string]*accum{models.CohortRetail: {}, models.CohortMidTier: {}, models.CohortWhale: {}}

	var total float64
	for _, b := range balances {
		a := bands[cohortBandFor(b.BalanceBTC)]
		a.btc += b.BalanceBTC
		a.value += b.BalanceBTC * b.WeightedPriceUSD
		total += b.BalanceBTC
	}

	order := []string{models.CohortRetail, models.CohortMidTier, models.CohortWhale}
	out := make([]CohortBand, 0, len(order))
	for _, name := range order {
		a := bands[name]
		band := CohortBand{Name: name, SupplyBTC: a.btc}
		if total > 0 {
			band.SupplyPct = 100 * a.btc / total
		}
		if a.btc > 0 {
			band.WeightedPriceUSD = a.value / a.btc
		}
		out = append(out, band)
	}
	return out
}
