// Package priceindex is the Price & Height Index (C2): height <-> timestamp
// <-> calendar date <-> USD price lookups, backed by the UTXO Store's
// PriceBar/BlockHeight tables (spec §4.2).
package priceindex

import (
	"context"
	"time"
)

// Reader is the read-side of the UTXO Store this component depends on. It
// is a narrow interface (rather than a direct *store.PostgresStore
// dependency) so the index can be tested against an in-memory fake per the
// teacher's "explicit config struct, no implicit connection" convention
// (spec §9).
type Reader interface {
	PriceForDate(ctx context.Context, date time.Time) (*float64, error)
	BlockTimestamp(ctx context.Context, height int64) (*time.Time, error)
	HeightForTimestamp(ctx context.Context, ts time.Time) (*int64, error)
}

// Index is the Price & Height Index.
type Index struct {
	store Reader
}

func New(store Reader) *Index {
	return &Index{store: store}
}

// toDate truncates a timestamp to its UTC calendar date, the PriceBar key.
func toDate(ts time.Time) time.Time {
	u := ts.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// PriceForDate returns the USD close for a calendar date, nil if missing.
// Missing days are not an error (spec §4.2) — callers decide whether to
// skip, carry-forward, or treat as zero; each metric in §4.8 documents its
// own choice.
func (idx *Index) PriceForDate(ctx context.Context, date time.Time) (*float64, error) {
	return idx.store.PriceForDate(ctx, toDate(date))
}

// PriceForBlock joins height -> block timestamp -> calendar date -> PriceBar.
func (idx *Index) PriceForBlock(ctx context.Context, height int64) (*float64, error) {
	ts, err := idx.store.BlockTimestamp(ctx, height)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, nil
	}
	return idx.store.PriceForDate(ctx, toDate(*ts))
}

// HeightOfTimestamp returns the block height whose timestamp is the closest
// one at or before ts, nil if no such height is indexed yet.
func (idx *Index) HeightOfTimestamp(ctx context.Context, ts time.Time) (*int64, error) {
	return idx.store.HeightForTimestamp(ctx, ts)
}
