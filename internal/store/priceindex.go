package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// PriceForDate implements priceindex.Reader.
func (s *PostgresStore) PriceForDate(ctx context.Context, date time.Time) (*float64, error) {
	var price float64
	err := s.pool.QueryRow(ctx, `SELECT price_usd FROM price_bar WHERE date = $1`, date).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: price for date: %w", err)
	}
	return &price, nil
}

// BlockTimestamp implements priceindex.Reader.
func (s *PostgresStore) BlockTimestamp(ctx context.Context, height int64) (*time.Time, error) {
	var ts time.Time
	err := s.pool.QueryRow(ctx, `SELECT timestamp FROM block_height WHERE height = $1`, height).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: block timestamp: %w", err)
	}
	return &ts, nil
}

// HeightForTimestamp implements priceindex.Reader: the greatest height
// whose timestamp is <= ts.
func (s *PostgresStore) HeightForTimestamp(ctx context.Context, ts time.Time) (*int64, error) {
	var height int64
	err := s.pool.QueryRow(ctx, `
		SELECT height FROM block_height WHERE timestamp <= $1 ORDER BY timestamp DESC LIMIT 1
	`, ts).Scan(&height)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: height for timestamp: %w", err)
	}
	return &height, nil
}

// UpsertPriceBars bulk-loads daily closes, used by bootstrap's full-history
// backfill and by incremental forward-only appends (spec §6).
func (s *PostgresStore) UpsertPriceBars(ctx context.Context, bars map[time.Time]float64) error {
	if len(bars) == 0 {
		return nil
	}
	dates := make([]time.Time, 0, len(bars))
	prices := make([]float64, 0, len(bars))
	for d, p := range bars {
		dates = append(dates, d)
		prices = append(prices, p)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_bar (date, price_usd)
		SELECT * FROM UNNEST($1::date[], $2::double precision[])
		ON CONFLICT (date) DO UPDATE SET price_usd = EXCLUDED.price_usd
	`, dates, prices)
	if err != nil {
		return fmt.Errorf("store: upsert price bars: %w", err)
	}
	return nil
}

// UpsertBlockHeights bulk-loads height/hash/timestamp rows, extended by the
// Block Ingestor as new blocks are processed (spec §4.2).
func (s *PostgresStore) UpsertBlockHeights(ctx context.Context, heights []models.BlockHeight) error {
	if len(heights) == 0 {
		return nil
	}
	hs := make([]int64, len(heights))
	hashes := make([]string, len(heights))
	timestamps := make([]int64, len(heights))
	for i, h := range heights {
		hs[i] = h.Height
		hashes[i] = h.Hash
		timestamps[i] = h.Timestamp.Unix()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO block_height (height, hash, timestamp)
		SELECT u.height, u.hash, to_timestamp(u.ts)
		FROM UNNEST($1::bigint[], $2::text[], $3::bigint[]) AS u(height, hash, ts)
		ON CONFLICT (height) DO UPDATE SET hash = EXCLUDED.hash, timestamp = EXCLUDED.timestamp
	`, hs, hashes, timestamps)
	if err != nil {
		return fmt.Errorf("store: upsert block heights: %w", err)
	}
	return nil
}

// LoadExchangeAddresses bulk-imports the optional exchange-address CSV
// (spec §6). original_source/scripts/metrics/exchange_netflow.py warns
// (does not fail) below 1000 addresses — a data-quality signal, not an
// integrity violation.
func (s *PostgresStore) LoadExchangeAddresses(ctx context.Context, rows [][3]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	addrs := make([]string, len(rows))
	names := make([]string, len(rows))
	types := make([]string, len(rows))
	for i, r := range rows {
		addrs[i], names[i], types[i] = r[0], r[1], r[2]
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exchange_address (address, exchange_name, type)
		SELECT * FROM UNNEST($1::text[], $2::text[], $3::text[])
		ON CONFLICT (address) DO UPDATE SET exchange_name = EXCLUDED.exchange_name, type = EXCLUDED.type
	`, addrs, names, types)
	if err != nil {
		return 0, fmt.Errorf("store: load exchange addresses: %w", err)
	}
	return len(rows), nil
}
