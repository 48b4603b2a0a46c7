package metrics

import "errors"

// BlockReward is the miner subsidy in BTC — the post-2024-halving subsidy
// used in the worked examples. It is a fixed constant: no halving schedule
// is applied, and Engine.Run uses this value for every date.
const BlockReward = 3.125

// BlocksPerDay assumes the canonical 10-minute target spacing (spec §4.8:
// "block_reward x 144 x days").
const BlocksPerDay = 144

// Issuance returns total new BTC issued over `days` days at a constant
// block reward — the Absorption Rate denominator (spec §4.8).
func Issuance(blockReward float64, days float64) float64 {
	return blockReward * BlocksPerDay * days
}

// AbsorptionRate is one wave band's absorption rate: the band's supply
// delta over the window divided by total issuance in that window.
type AbsorptionRate struct {
	Band string
	Rate float64
}

// ComputeAbsorptionRates reduces two Wallet Waves snapshots (before/after,
// same band order) and the window's issuance into one absorption rate per
// band (spec §4.8). before and after must list the same bands in the same
// order (as ComputeWalletWaves guarantees).
func ComputeAbsorptionRates(before, after []WaveBand, issuanceBTC float64) ([]AbsorptionRate, error) {
	if len(before) != len(after) {
		return nil, errMismatchedSnapshots
	}
	out := make([]AbsorptionRate, len(after))
	for i := range after {
		delta := after[i].SupplyBTC - before[i].SupplyBTC
		var rate float64
		if issuanceBTC != 0 {
			rate = delta / issuanceBTC
		}
		out[i] = AbsorptionRate{Band: after[i].Name, Rate: rate}
	}
	return out, nil
}

// DominantAbsorber returns the band with the highest absorption rate, or
// ("", false) for an empty input.
func DominantAbsorber(rates []AbsorptionRate) (band string, ok bool) {
	if len(rates) == 0 {
		return "", false
	}
	best := rates[0]
	for _, r := range rates[1:] {
		if r.Rate > best.Rate {
			best = r
		}
	}
	return best.Band, true
}

var errMismatchedSnapshots = errors.New("metrics: absorption rates: before/after snapshots have different band sets")
