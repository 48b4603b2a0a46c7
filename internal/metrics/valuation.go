package metrics

import "github.com/rawblock/utxo-lifecycle-engine/pkg/models"

// MVRVZConstant is the default `k` scaling constant for the MVRV-Z
// approximation (spec §4.8): `(MarketCap - RealizedCap) / (RealizedCap*k)`.
// Implementations may substitute the historical-stdev form when enough
// history is available — not implemented here, so k stays a documented
// constant rather than a derived one.
const MVRVZConstant = 0.3

// RealizedCap is Σ btc_value*creation_price_usd over UTXOs unspent as of
// D (spec §4.8) — computed entirely by the store's UnspentAggregateAsOf;
// this wrapper exists so callers have one obvious entry point per metric.
func RealizedCap(realizedCapUSD float64) float64 {
	return realizedCapUSD
}

// MarketCap is total unspent BTC supply at D times the price on D.
func MarketCap(unspentBTC, priceUSD float64) float64 {
	return unspentBTC * priceUSD
}

// MVRV is Market Cap / Realized Cap. Null (ok=false) when Realized Cap is
// zero — never a divide-by-zero substitute value (spec §4.8 null
// propagation).
func MVRV(marketCap, realizedCap float64) (value float64, ok bool) {
	if realizedCap == 0 {
		return 0, false
	}
	return marketCap / realizedCap, true
}

// MVRVZ is the documented-constant approximation of MVRV-Z.
func MVRVZ(marketCap, realizedCap float64) (value float64, ok bool) {
	if realizedCap == 0 {
		return 0, false
	}
	return (marketCap - realizedCap) / (realizedCap * MVRVZConstant), true
}

// NUPL is (Market Cap - Realized Cap) / Market Cap, range (-inf, 1]. Null
// when Market Cap is zero.
func NUPL(marketCap, realizedCap float64) (value float64, ok bool) {
	if marketCap == 0 {
		return 0, false
	}
	return (marketCap - realizedCap) / marketCap, true
}

// ClassifyNUPLZone mirrors nupl.py's classify_nupl_zone: capitulation <0,
// hope/fear <0.25, optimism <0.5, belief <0.75, else euphoria.
func ClassifyNUPLZone(nupl float64) string {
	switch {
	case nupl < 0:
		return models.NUPLZoneCapitulation
	case nupl < 0.25:
		return models.NUPLZoneHopeFear
	case nupl < 0.5:
		return models.NUPLZoneOptimism
	case nupl < 0.75:
		return models.NUPLZoneBelief
	default:
		return models.NUPLZoneEuphoria
	}
}

// NUPLConfidence mirrors nupl.py's calculate_nupl_signal confidence
// heuristic: higher confidence the more supply/realized-cap data backs
// the computation.
func NUPLConfidence(unspentBTC, realizedCap float64) float64 {
	switch {
	case unspentBTC > 1000 && realizedCap > 0:
		return 0.85
	case unspentBTC > 100:
		return 0.70
	default:
		return 0.50
	}
}

// PctSupplyInProfit is nupl.py's linear approximation: 50 + nupl*50,
// clamped to [0, 100].
func PctSupplyInProfit(nupl float64) float64 {
	pct := 50 + nupl*50
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
