package metrics

import "github.com/rawblock/utxo-lifecycle-engine/pkg/models"

// Revived Supply age thresholds in days (spec §4.8: 1y/2y/5y variants).
const (
	RevivedThreshold1Y = 365.0
	RevivedThreshold2Y = 365.0 * 2
	RevivedThreshold5Y = 365.0 * 5
)

// RevivedSupply is Σ btc_value over UTXOs spent within the window whose
// age at spend was >= thresholdDays (spec §4.8).
func RevivedSupply(revivedBTC float64) float64 {
	return revivedBTC
}

// ClassifyRevivedZone buckets the daily revived-supply rate against a
// trailing baseline rate.
func ClassifyRevivedZone(dailyRateBTC, baselineRateBTC float64) string {
	if baselineRateBTC == 0 {
		if dailyRateBTC == 0 {
			return models.RevivedZoneDormant
		}
		return models.RevivedZoneNormal
	}
	ratio := dailyRateBTC / baselineRateBTC
	switch {
	case ratio < 0.25:
		return models.RevivedZoneDormant
	case ratio < 1.5:
		return models.RevivedZoneNormal
	case ratio < 3:
		return models.RevivedZoneElevated
	default:
		return models.RevivedZoneSpike
	}
}
