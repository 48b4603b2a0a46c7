package store

import (
	"context"
	"fmt"
)

// RecomputeCostBasis is the Cost-Basis Aggregator's (C7) single set-based
// query (spec §4.7): fully recomputed per run — DELETE then INSERT...GROUP
// BY, in one transaction — because cluster roots can change between runs
// (§4.6), making incremental reconciliation unsafe. The average is
// volume-weighted (Σ btc*price / Σ btc), never an arithmetic mean of rows
// (S6 regression guard: original_source/scripts/clustering/cost_basis.py's
// documented "inflation problem").
func (s *PostgresStore) RecomputeCostBasis(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: recompute cost basis: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM cluster_cost_basis`); err != nil {
		return fmt.Errorf("store: recompute cost basis: delete: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cluster_cost_basis (cluster_id, acquisition_block, btc_amount, weighted_avg_price_usd, earliest_timestamp)
		SELECT
			c.cluster_id,
			u.creation_height AS acquisition_block,
			SUM(u.satoshis::DOUBLE PRECISION / 100000000.0) AS btc_amount,
			SUM((u.satoshis::DOUBLE PRECISION / 100000000.0) * u.creation_price_usd)
				/ NULLIF(SUM(u.satoshis::DOUBLE PRECISION / 100000000.0), 0) AS weighted_avg_price_usd,
			MIN(u.creation_timestamp) AS earliest_timestamp
		FROM utxo u
		JOIN address_cluster c ON c.address = u.address
		WHERE u.spent = FALSE AND u.address IS NOT NULL AND u.creation_price_usd IS NOT NULL
		GROUP BY c.cluster_id, u.creation_height
	`)
	if err != nil {
		return fmt.Errorf("store: recompute cost basis: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: recompute cost basis: commit: %w", err)
	}
	return nil
}
