// Package store is the UTXO Store (C3): a columnar analytical table of
// UTXOs plus the supporting PriceBar/BlockHeight/cluster/cost-basis/metric
// tables, backed by Postgres via pgx — the teacher's own persistence stack
// (internal/db/postgres.go), generalized from coinjoin-forensics rows to
// the UTXO lifecycle schema in spec §3.
package store

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore wraps a pgx connection pool. Read-side queries may run
// concurrently with writes on separate pooled connections (spec §4.3);
// destructive operations (atomic swaps) bracket themselves in an explicit
// transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens the connection pool and verifies it with a ping.
func Connect(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	log.Println("[store] connected to PostgreSQL")
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql, creating every table this
// engine owns if absent. Indexes are built separately by CreateIndexes,
// after bulk load (spec §4.3).
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("store: read schema file: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	log.Println("[store] schema initialized")
	return nil
}

// CreateIndexes builds the indexes that make C7/C8 queries fast. Called
// once after the Chainstate Bootstrap's bulk load (spec §4.4) and is a
// no-op (IF NOT EXISTS) on subsequent runs.
func (s *PostgresStore) CreateIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_utxo_creation_height ON utxo (creation_height)`,
		`CREATE INDEX IF NOT EXISTS idx_utxo_is_spent ON utxo (spent)`,
		`CREATE INDEX IF NOT EXISTS idx_utxo_creation_price ON utxo (creation_price_usd)`,
		`CREATE INDEX IF NOT EXISTS idx_utxo_address ON utxo (address)`,
		`CREATE INDEX IF NOT EXISTS idx_utxo_spend_height ON utxo (spend_height)`,
		`CREATE INDEX IF NOT EXISTS idx_address_cluster_cluster_id ON address_cluster (cluster_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: create index: %w", err)
		}
	}
	return nil
}

// IsEmpty reports whether the UTXO table has zero rows — the C9 gate for
// INIT -> BOOTSTRAP (spec §4.9).
func (s *PostgresStore) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM utxo LIMIT 1`).Scan(&count); err != nil {
		return false, fmt.Errorf("store: count utxo: %w", err)
	}
	return count == 0, nil
}

// GetPool exposes the pool for components (costbasis, metrics) that run
// their own set-based SQL directly against it.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
