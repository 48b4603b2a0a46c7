package metrics

// SOPR is Σ(btc_value*spend_price_usd) / Σ(btc_value*creation_price_usd)
// over UTXOs spent within [L,R] (spec §4.8). Null when the denominator is
// zero (no spends with known creation price in range).
func SOPR(numeratorUSD, denominatorUSD float64) (value float64, ok bool) {
	if denominatorUSD == 0 {
		return 0, false
	}
	return numeratorUSD / denominatorUSD, true
}
