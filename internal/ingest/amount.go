package ingest

import "github.com/btcsuite/btcd/btcutil"

// btcAmountFromBTC converts a BTC float (as reported by getblock) to an
// exact satoshi count via btcutil.NewAmount — the same helper the teacher's
// internal/api/routes.go reaches for (btcToSats, the other direction) to
// avoid the rounding drift of a naive `btc * 1e8` float multiply.
func btcAmountFromBTC(btc float64) (int64, error) {
	amt, err := btcutil.NewAmount(btc)
	if err != nil {
		return 0, err
	}
	return int64(amt), nil
}
