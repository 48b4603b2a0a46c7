package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// GetSyncState reads the single-row process checkpoint.
func (s *PostgresStore) GetSyncState(ctx context.Context) (models.SyncState, error) {
	var st models.SyncState
	var lastMetricDate *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT last_ingested_height, last_cluster_flush_height, last_metric_date FROM sync_state WHERE id = 1
	`).Scan(&st.LastIngestedHeight, &st.LastClusterFlushHeight, &lastMetricDate)
	if err != nil {
		return models.SyncState{}, fmt.Errorf("store: get sync state: %w", err)
	}
	st.LastMetricDate = lastMetricDate
	return st, nil
}

// AdvanceIngestHeight sets the last-ingested-height checkpoint. Called only
// after a batch is durably persisted (spec §4.5): a persistence failure
// rolls back the whole batch, so SyncState never advances past a partial
// write.
func (s *PostgresStore) AdvanceIngestHeight(ctx context.Context, height int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE sync_state SET last_ingested_height = $1 WHERE id = 1`, height)
	if err != nil {
		return fmt.Errorf("store: advance ingest height: %w", err)
	}
	return nil
}

// AdvanceClusterFlushHeight records the height at which C6 was last flushed
// to the cluster table.
func (s *PostgresStore) AdvanceClusterFlushHeight(ctx context.Context, height int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE sync_state SET last_cluster_flush_height = $1 WHERE id = 1`, height)
	if err != nil {
		return fmt.Errorf("store: advance cluster flush height: %w", err)
	}
	return nil
}

// AdvanceMetricDate records the last date C8 has computed metrics through.
func (s *PostgresStore) AdvanceMetricDate(ctx context.Context, date time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE sync_state SET last_metric_date = $1 WHERE id = 1`, date)
	if err != nil {
		return fmt.Errorf("store: advance metric date: %w", err)
	}
	return nil
}
