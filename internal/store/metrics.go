package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// UnspentAggregateAsOf implements the historical-point unspent test from
// spec §4.8 ("spent=false OR spend_block > last_block(D)") via SQL rather
// than loading rows: returns total unspent BTC and Realized Cap (USD) as
// of the end of the block at height lastBlock.
func (s *PostgresStore) UnspentAggregateAsOf(ctx context.Context, lastBlock int64) (totalBTC, realizedCapUSD float64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(satoshis::DOUBLE PRECISION / 100000000.0), 0),
			COALESCE(SUM((satoshis::DOUBLE PRECISION / 100000000.0) * creation_price_usd), 0)
		FROM utxo
		WHERE creation_height <= $1
		  AND (spent = FALSE OR spend_height > $1)
		  AND creation_price_usd IS NOT NULL
	`, lastBlock).Scan(&totalBTC, &realizedCapUSD)
	if err != nil {
		return 0, 0, fmt.Errorf("store: unspent aggregate as of: %w", err)
	}
	return totalBTC, realizedCapUSD, nil
}

// SOPRAggregate sums numerator/denominator terms for SOPR over a spend
// height range [from, to] (spec §4.8): Σ(btc_value*spend_price_usd) over
// Σ(btc_value*creation_price_usd), restricted to UTXOs spent in range with
// both prices known.
func (s *PostgresStore) SOPRAggregate(ctx context.Context, fromHeight, toHeight int64) (numeratorUSD, denominatorUSD float64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM((satoshis::DOUBLE PRECISION / 100000000.0) * spend_price_usd), 0),
			COALESCE(SUM((satoshis::DOUBLE PRECISION / 100000000.0) * creation_price_usd), 0)
		FROM utxo
		WHERE spent = TRUE AND spend_height BETWEEN $1 AND $2
		  AND spend_price_usd IS NOT NULL AND creation_price_usd IS NOT NULL
	`, fromHeight, toHeight).Scan(&numeratorUSD, &denominatorUSD)
	if err != nil {
		return 0, 0, fmt.Errorf("store: sopr aggregate: %w", err)
	}
	return numeratorUSD, denominatorUSD, nil
}

// PriceBucket is one bucket of the URPD histogram: unspent BTC volume
// acquired within [BucketLow, BucketLow+width) on creation_price_usd.
type PriceBucket struct {
	BucketLow float64
	BTCVolume float64
}

// URPDHistogram buckets unspent BTC by creation_price_usd into width-wide
// bands (spec §4.8 URPD).
func (s *PostgresStore) URPDHistogram(ctx context.Context, width float64) ([]PriceBucket, error) {
	if width <= 0 {
		return nil, fmt.Errorf("store: urpd histogram: width must be > 0")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT floor(creation_price_usd / $1) * $1 AS bucket_low,
		       SUM(satoshis::DOUBLE PRECISION / 100000000.0) AS btc_volume
		FROM utxo
		WHERE spent = FALSE AND creation_price_usd IS NOT NULL
		GROUP BY bucket_low
		ORDER BY bucket_low
	`, width)
	if err != nil {
		return nil, fmt.Errorf("store: urpd histogram: %w", err)
	}
	defer rows.Close()

	var out []PriceBucket
	for rows.Next() {
		var b PriceBucket
		if err := rows.Scan(&b.BucketLow, &b.BTCVolume); err != nil {
			return nil, fmt.Errorf("store: urpd histogram: scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CohortSplit is the BTC volume split the Supply P/L and STH/LTH cost-basis
// metrics both need: unspent supply partitioned by profit/loss/breakeven
// and by short-term/long-term holder age.
type CohortSplit struct {
	ProfitBTC         float64
	LossBTC           float64
	BreakevenBTC      float64
	STHBTC            float64
	STHWeightedPrice  float64
	LTHBTC            float64
	LTHWeightedPrice  float64
}

// SupplyCohortSplit computes the Supply P/L and STH/LTH cost-basis
// aggregates in one pass (spec §4.8): profit/loss/breakeven relative to
// currentPrice, and short-term (< sthThresholdDays) vs long-term holder
// volume-weighted creation price, both over unspent supply as of now.
func (s *PostgresStore) SupplyCohortSplit(ctx context.Context, currentPrice float64, currentHeight int64, sthThresholdDays int) (CohortSplit, error) {
	var out CohortSplit
	err := s.pool.QueryRow(ctx, `
		WITH unspent AS (
			SELECT
				satoshis::DOUBLE PRECISION / 100000000.0 AS btc_value,
				creation_price_usd,
				EXTRACT(EPOCH FROM (now() - creation_timestamp)) / 86400.0 AS age_days
			FROM utxo
			WHERE spent = FALSE AND creation_price_usd IS NOT NULL
		)
		SELECT
			COALESCE(SUM(btc_value) FILTER (WHERE creation_price_usd < $1), 0),
			COALESCE(SUM(btc_value) FILTER (WHERE creation_price_usd > $1), 0),
			COALESCE(SUM(btc_value) FILTER (WHERE creation_price_usd = $1), 0),
			COALESCE(SUM(btc_value) FILTER (WHERE age_days < $2), 0),
			COALESCE(SUM(btc_value * creation_price_usd) FILTER (WHERE age_days < $2), 0)
				/ NULLIF(SUM(btc_value) FILTER (WHERE age_days < $2), 0),
			COALESCE(SUM(btc_value) FILTER (WHERE age_days >= $2), 0),
			COALESCE(SUM(btc_value * creation_price_usd) FILTER (WHERE age_days >= $2), 0)
				/ NULLIF(SUM(btc_value) FILTER (WHERE age_days >= $2), 0)
		FROM unspent
	`, currentPrice, float64(sthThresholdDays)).Scan(
		&out.ProfitBTC, &out.LossBTC, &out.BreakevenBTC,
		&out.STHBTC, &out.STHWeightedPrice,
		&out.LTHBTC, &out.LTHWeightedPrice,
	)
	if err != nil {
		return CohortSplit{}, fmt.Errorf("store: supply cohort split: %w", err)
	}
	_ = currentHeight // height reserved for future block-granular variants; now() is used for age per spec's day-granularity
	return out, nil
}

// CDDVDDAggregate sums age-weighted and value-weighted destroyed-coin-days
// over a spend timestamp window (spec §4.8 CDD/VDD): Σ age_days*btc_value
// for CDD, Σ age_days*btc_value*spend_price_usd for VDD, plus the maximum
// single spend-day's CDD within the window.
func (s *PostgresStore) CDDVDDAggregate(ctx context.Context, from, to time.Time) (cdd, vdd, maxDailyCDD float64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(age_days * btc_value), 0),
			COALESCE(SUM(age_days * btc_value * spend_price_usd), 0)
		FROM utxo_lifecycle_full
		WHERE spent = TRUE AND spend_timestamp BETWEEN $1 AND $2
		  AND age_days IS NOT NULL AND spend_price_usd IS NOT NULL
	`, from, to).Scan(&cdd, &vdd)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("store: cdd/vdd aggregate: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(daily_cdd), 0) FROM (
			SELECT date_trunc('day', spend_timestamp) AS d, SUM(age_days * btc_value) AS daily_cdd
			FROM utxo_lifecycle_full
			WHERE spent = TRUE AND spend_timestamp BETWEEN $1 AND $2 AND age_days IS NOT NULL
			GROUP BY d
		) daily
	`, from, to).Scan(&maxDailyCDD)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("store: cdd/vdd max daily: %w", err)
	}
	return cdd, vdd, maxDailyCDD, nil
}

// DailyCDDSeries returns the last `days` daily CDD totals ending on `asOf`,
// oldest first — the Binary CDD metric's rolling-window input (spec §4.8).
func (s *PostgresStore) DailyCDDSeries(ctx context.Context, asOf time.Time, days int) ([]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT gs.day, COALESCE(SUM(f.age_days * f.btc_value), 0)
		FROM generate_series($1::date - ($2::int - 1), $1::date, '1 day') AS gs(day)
		LEFT JOIN utxo_lifecycle_full f
			ON date_trunc('day', f.spend_timestamp) = gs.day
			AND f.spent = TRUE AND f.age_days IS NOT NULL
		GROUP BY gs.day
		ORDER BY gs.day
	`, asOf, days)
	if err != nil {
		return nil, fmt.Errorf("store: daily cdd series: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var day time.Time
		var val float64
		if err := rows.Scan(&day, &val); err != nil {
			return nil, fmt.Errorf("store: daily cdd series: scan: %w", err)
		}
		out = append(out, val)
	}
	return out, rows.Err()
}

// HODLBank sums age_days*btc_value over every spent UTXO ever — Reserve
// Risk's denominator input (spec §4.8).
func (s *PostgresStore) HODLBank(ctx context.Context) (hodlBankDays, circulatingBTC float64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(age_days * btc_value), 0) FROM utxo_lifecycle_full
		WHERE spent = TRUE AND age_days IS NOT NULL
	`).Scan(&hodlBankDays)
	if err != nil {
		return 0, 0, fmt.Errorf("store: hodl bank: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(btc_value), 0) FROM utxo_lifecycle_full WHERE spent = FALSE
	`).Scan(&circulatingBTC)
	if err != nil {
		return 0, 0, fmt.Errorf("store: circulating supply: %w", err)
	}
	return hodlBankDays, circulatingBTC, nil
}

// SellSideRiskAggregate splits realized profit/loss USD over a spend
// timestamp window (spec §4.8 Sell-Side Risk): realized profit is
// Σ max(0, spend_price-creation_price)*btc_value, loss the mirror.
func (s *PostgresStore) SellSideRiskAggregate(ctx context.Context, from, to time.Time) (realizedProfitUSD, realizedLossUSD float64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(GREATEST(spend_price_usd - creation_price_usd, 0) * btc_value), 0),
			COALESCE(SUM(GREATEST(creation_price_usd - spend_price_usd, 0) * btc_value), 0)
		FROM utxo_lifecycle_full
		WHERE spent = TRUE AND spend_timestamp BETWEEN $1 AND $2
		  AND spend_price_usd IS NOT NULL AND creation_price_usd IS NOT NULL
	`, from, to).Scan(&realizedProfitUSD, &realizedLossUSD)
	if err != nil {
		return 0, 0, fmt.Errorf("store: sell-side risk aggregate: %w", err)
	}
	return realizedProfitUSD, realizedLossUSD, nil
}

// AddressBalance is one address's unspent BTC balance plus its
// volume-weighted acquisition price, the Wallet Waves/Cohorts input.
type AddressBalance struct {
	Address         string
	BalanceBTC      float64
	WeightedPriceUSD float64
}

// AddressBalances enumerates every address with unspent BTC, for bucketing
// into Wallet Waves/Address Cohort bands (spec §4.8). Large result set by
// design — callers should bucket in a single streaming pass.
func (s *PostgresStore) AddressBalances(ctx context.Context) ([]AddressBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address,
		       SUM(satoshis::DOUBLE PRECISION / 100000000.0) AS balance_btc,
		       SUM((satoshis::DOUBLE PRECISION / 100000000.0) * creation_price_usd) / NULLIF(SUM(satoshis::DOUBLE PRECISION / 100000000.0), 0) AS weighted_price
		FROM utxo
		WHERE spent = FALSE AND address IS NOT NULL AND creation_price_usd IS NOT NULL
		GROUP BY address
	`)
	if err != nil {
		return nil, fmt.Errorf("store: address balances: %w", err)
	}
	defer rows.Close()

	var out []AddressBalance
	for rows.Next() {
		var b AddressBalance
		var weighted *float64
		if err := rows.Scan(&b.Address, &b.BalanceBTC, &weighted); err != nil {
			return nil, fmt.Errorf("store: address balances: scan: %w", err)
		}
		if weighted != nil {
			b.WeightedPriceUSD = *weighted
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AddressBalancesAsOf enumerates every address with unspent-as-of-asOf BTC
// — an address's balance at a past point in time, reconstructed from rows
// that existed then (created at or before asOf and not yet spent, or spent
// only after asOf). The Absorption Rate metric's before-snapshot (spec
// §4.8) diffs this against the current AddressBalances.
func (s *PostgresStore) AddressBalancesAsOf(ctx context.Context, asOf time.Time) ([]AddressBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address,
		       SUM(satoshis::DOUBLE PRECISION / 100000000.0) AS balance_btc,
		       SUM((satoshis::DOUBLE PRECISION / 100000000.0) * creation_price_usd) / NULLIF(SUM(satoshis::DOUBLE PRECISION / 100000000.0), 0) AS weighted_price
		FROM utxo
		WHERE creation_timestamp <= $1
		  AND (spent = FALSE OR spend_timestamp > $1)
		  AND address IS NOT NULL AND creation_price_usd IS NOT NULL
		GROUP BY address
	`, asOf)
	if err != nil {
		return nil, fmt.Errorf("store: address balances as of: %w", err)
	}
	defer rows.Close()

	var out []AddressBalance
	for rows.Next() {
		var b AddressBalance
		var weighted *float64
		if err := rows.Scan(&b.Address, &b.BalanceBTC, &weighted); err != nil {
			return nil, fmt.Errorf("store: address balances as of: scan: %w", err)
		}
		if weighted != nil {
			b.WeightedPriceUSD = *weighted
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ExchangeNetFlowAggregate sums BTC volume created at and spent from
// addresses in exchange_address within the window (spec §4.8).
func (s *PostgresStore) ExchangeNetFlowAggregate(ctx context.Context, from, to time.Time) (inflowBTC, outflowBTC float64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(u.satoshis::DOUBLE PRECISION / 100000000.0), 0)
		FROM utxo u
		JOIN exchange_address e ON e.address = u.address
		WHERE u.creation_timestamp BETWEEN $1 AND $2
	`, from, to).Scan(&inflowBTC)
	if err != nil {
		return 0, 0, fmt.Errorf("store: exchange inflow: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(u.satoshis::DOUBLE PRECISION / 100000000.0), 0)
		FROM utxo u
		JOIN exchange_address e ON e.address = u.address
		WHERE u.spent = TRUE AND u.spend_timestamp BETWEEN $1 AND $2
	`, from, to).Scan(&outflowBTC)
	if err != nil {
		return 0, 0, fmt.Errorf("store: exchange outflow: %w", err)
	}
	return inflowBTC, outflowBTC, nil
}

// RevivedSupplyAggregate sums BTC volume spent within the window whose age
// at spend time was >= thresholdDays (spec §4.8 Revived Supply).
func (s *PostgresStore) RevivedSupplyAggregate(ctx context.Context, from, to time.Time, thresholdDays float64) (revivedBTC float64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(btc_value), 0)
		FROM utxo_lifecycle_full
		WHERE spent = TRUE AND spend_timestamp BETWEEN $1 AND $2 AND age_days >= $3
	`, from, to, thresholdDays).Scan(&revivedBTC)
	if err != nil {
		return 0, fmt.Errorf("store: revived supply aggregate: %w", err)
	}
	return revivedBTC, nil
}

// InsertMetricRows upserts computed metric rows, one per (metric, date)
// (spec §3 Metric row invariant).
func (s *PostgresStore) InsertMetricRows(ctx context.Context, rows []models.MetricRow) error {
	if len(rows) == 0 {
		return nil
	}
	metrics := make([]string, len(rows))
	dates := make([]time.Time, len(rows))
	values := make([]float64, len(rows))
	zones := make([]*string, len(rows))
	confidences := make([]float64, len(rows))
	for i, r := range rows {
		metrics[i] = r.Metric
		dates[i] = r.Date
		values[i] = r.Value
		if r.Zone != "" {
			z := r.Zone
			zones[i] = &z
		}
		confidences[i] = r.Confidence
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO metric_row (metric, date, value, zone, confidence)
		SELECT * FROM UNNEST($1::text[], $2::date[], $3::double precision[], $4::text[], $5::double precision[])
		ON CONFLICT (metric, date) DO UPDATE SET value = EXCLUDED.value, zone = EXCLUDED.zone, confidence = EXCLUDED.confidence
	`, metrics, dates, values, zones, confidences)
	if err != nil {
		return fmt.Errorf("store: insert metric rows: %w", err)
	}
	return nil
}

// MetricRowsForDate returns every metric computed for one calendar date —
// the Metric Engine dashboard's query, one row per metric name.
func (s *PostgresStore) MetricRowsForDate(ctx context.Context, date time.Time) ([]models.MetricRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT metric, date, value, COALESCE(zone, ''), confidence
		FROM metric_row
		WHERE date = $1
		ORDER BY metric
	`, date)
	if err != nil {
		return nil, fmt.Errorf("store: metric rows for date: %w", err)
	}
	defer rows.Close()

	var out []models.MetricRow
	for rows.Next() {
		var r models.MetricRow
		if err := rows.Scan(&r.Metric, &r.Date, &r.Value, &r.Zone, &r.Confidence); err != nil {
			return nil, fmt.Errorf("store: scan metric row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
