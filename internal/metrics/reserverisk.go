package metrics

import "github.com/rawblock/utxo-lifecycle-engine/pkg/models"

// ReserveRiskScale is the HODL-bank scale from reserve_risk.py's
// HODL_BANK_SCALE; not to be confused with the satoshi/BTC conversion
// constant used in internal/ingest/amount.go, which is unrelated.
const ReserveRiskScale = 1_000_000

// ReserveRisk is current_price / (HODL-bank * circulating_supply), scaled.
// Null when the denominator is zero (no spend history yet).
func ReserveRisk(currentPrice, hodlBankDays, circulatingBTC float64) (value float64, ok bool) {
	denominator := hodlBankDays * circulatingBTC / ReserveRiskScale
	if denominator == 0 {
		return 0, false
	}
	return currentPrice / denominator, true
}

// ClassifyReserveRiskZone buckets the ratio into the four signal zones.
func ClassifyReserveRiskZone(risk float64) string {
	switch {
	case risk < 0.002:
		return models.ReserveRiskStrongBuy
	case risk < 0.008:
		return models.ReserveRiskAccumulation
	case risk < 0.02:
		return models.ReserveRiskFairValue
	default:
		return models.ReserveRiskDistribution
	}
}
