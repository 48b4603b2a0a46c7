package metrics

import "github.com/rawblock/utxo-lifecycle-engine/pkg/models"

// SellSideRisk is realized profit over the window / current market cap
// (spec §4.8). Null when market cap is zero.
func SellSideRisk(realizedProfitUSD, marketCapUSD float64) (value float64, ok bool) {
	if marketCapUSD == 0 {
		return 0, false
	}
	return realizedProfitUSD / marketCapUSD, true
}

// ClassifySellSideRiskZone mirrors sell_side_risk.py's thresholds
// (0.1%/0.3%/1.0% of market cap) and per-zone confidences.
func ClassifySellSideRiskZone(risk float64) (zone string, confidence float64) {
	switch {
	case risk < 0.001:
		return models.SellSideRiskLow, 0.7
	case risk < 0.003:
		return models.SellSideRiskNormal, 0.6
	case risk < 0.01:
		return models.SellSideRiskElevated, 0.75
	default:
		return models.SellSideRiskAggressive, 0.85
	}
}
