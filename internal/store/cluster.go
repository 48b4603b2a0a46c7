package store

import (
	"context"
	"fmt"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// SwapClusterTable replaces the entire address_cluster table atomically:
// DELETE then bulk-COPY-style insert inside one transaction (spec §4.6).
// get_clusters() materialization is the expensive part upstream (C6); this
// side just needs to guarantee the swap is all-or-nothing.
func (s *PostgresStore) SwapClusterTable(ctx context.Context, members []models.AddressClusterMap) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: swap cluster table: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM address_cluster`); err != nil {
		return fmt.Errorf("store: swap cluster table: delete: %w", err)
	}

	if len(members) > 0 {
		addrs := make([]string, len(members))
		clusterIDs := make([]string, len(members))
		for i, m := range members {
			addrs[i] = m.Address
			clusterIDs[i] = m.ClusterID
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO address_cluster (address, cluster_id)
			SELECT * FROM UNNEST($1::text[], $2::text[])
		`, addrs, clusterIDs); err != nil {
			return fmt.Errorf("store: swap cluster table: insert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: swap cluster table: commit: %w", err)
	}
	return nil
}

// AllClusters returns the full address_cluster table as-is, for computing a
// stability diagnostic against the next flush's incoming snapshot (spec
// §4.6/§4.9). Empty (not an error) before the first flush.
func (s *PostgresStore) AllClusters(ctx context.Context) ([]models.AddressClusterMap, error) {
	rows, err := s.pool.Query(ctx, `SELECT address, cluster_id FROM address_cluster`)
	if err != nil {
		return nil, fmt.Errorf("store: all clusters: %w", err)
	}
	defer rows.Close()

	var out []models.AddressClusterMap
	for rows.Next() {
		var m models.AddressClusterMap
		if err := rows.Scan(&m.Address, &m.ClusterID); err != nil {
			return nil, fmt.Errorf("store: all clusters: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClusterOf returns the stored cluster id for an address, or "" if the
// address has never been clustered (singleton, not yet unioned with
// anything).
func (s *PostgresStore) ClusterOf(ctx context.Context, address string) (string, error) {
	var clusterID string
	err := s.pool.QueryRow(ctx, `SELECT cluster_id FROM address_cluster WHERE address = $1`, address).Scan(&clusterID)
	if err != nil {
		return "", nil
	}
	return clusterID, nil
}
