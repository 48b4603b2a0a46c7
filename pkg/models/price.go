package models

import "time"

// PriceBar is a daily closing USD price, keyed by calendar date (UTC,
// truncated to midnight). Invariant: no duplicates per date; price > 0.
type PriceBar struct {
	Date     time.Time `json:"date"`
	PriceUSD float64   `json:"price_usd"`
}

// BlockHeight maps a height to its hash and Unix timestamp. Invariant:
// strictly monotonic timestamps (reorg handling is out of scope; only
// finalized blocks are ingested).
type BlockHeight struct {
	Height    int64     `json:"height"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}
