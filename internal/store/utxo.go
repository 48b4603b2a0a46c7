package store

import (
	"context"
	"fmt"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// BulkInsertCreations bulk-appends creation rows via a single UNNEST-backed
// INSERT, the canonical ~1000x-faster alternative to row-by-row insert
// (spec §4.4), grounded on the corpus's UNNEST ingest pattern
// (ee1235c1_Outblock-flowindex's raw.blocks insert).
func (s *PostgresStore) BulkInsertCreations(ctx context.Context, rows []models.CreationRow) error {
	if len(rows) == 0 {
		return nil
	}

	txids := make([]string, len(rows))
	vouts := make([]int32, len(rows))
	heights := make([]int64, len(rows))
	timestamps := make([]int64, len(rows)) // unix seconds; cast to timestamptz in SQL
	sats := make([]int64, len(rows))
	coinbase := make([]bool, len(rows))
	scriptTypes := make([]string, len(rows))
	addresses := make([]*string, len(rows))

	for i, r := range rows {
		txids[i] = r.TxID
		vouts[i] = int32(r.Vout)
		heights[i] = r.CreationHeight
		timestamps[i] = r.CreationTimestamp.Unix()
		sats[i] = r.Satoshis
		coinbase[i] = r.Coinbase
		scriptTypes[i] = string(r.ScriptType)
		addresses[i] = r.Address
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO utxo (txid, vout, creation_height, creation_timestamp, satoshis, coinbase, script_type, address)
		SELECT u.txid, u.vout, u.creation_height, to_timestamp(u.ts), u.satoshis, u.coinbase, u.script_type, u.address
		FROM UNNEST($1::text[], $2::int[], $3::bigint[], $4::bigint[], $5::bigint[], $6::bool[], $7::text[], $8::text[])
			AS u(txid, vout, creation_height, ts, satoshis, coinbase, script_type, address)
		ON CONFLICT (txid, vout) DO NOTHING
	`, txids, vouts, heights, timestamps, sats, coinbase, scriptTypes, addresses)
	if err != nil {
		return fmt.Errorf("store: bulk insert creations: %w", err)
	}
	return nil
}

// BulkMarkSpent applies a batch of spend observations via staging+join
// (spec §4.5): every observed input is loaded into a temp staging table,
// then a single set-based UPDATE joins it to utxo by outpoint. Per-row
// UPDATE is orders of magnitude slower at this scale — staging+join is
// canonical. Returns the number of rows actually transitioned to spent
// (idempotent: re-applying an already-spent outpoint updates zero rows).
func (s *PostgresStore) BulkMarkSpent(ctx context.Context, records []models.SpendRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: bulk mark spent: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE spend_staging (
			txid text, vout int, spend_height bigint, spend_ts bigint, spend_price_usd double precision
		) ON COMMIT DROP
	`); err != nil {
		return 0, fmt.Errorf("store: bulk mark spent: create staging: %w", err)
	}

	txids := make([]string, len(records))
	vouts := make([]int32, len(records))
	heights := make([]int64, len(records))
	timestamps := make([]int64, len(records))
	prices := make([]*float64, len(records))
	for i, r := range records {
		txids[i] = r.TxID
		vouts[i] = int32(r.Vout)
		heights[i] = r.SpendHeight
		timestamps[i] = r.SpendTimestamp.Unix()
		prices[i] = r.SpendPriceUSD
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO spend_staging (txid, vout, spend_height, spend_ts, spend_price_usd)
		SELECT * FROM UNNEST($1::text[], $2::int[], $3::bigint[], $4::bigint[], $5::double precision[])
	`, txids, vouts, heights, timestamps, prices); err != nil {
		return 0, fmt.Errorf("store: bulk mark spent: populate staging: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE utxo u
		SET spent = TRUE,
		    spend_height = s.spend_height,
		    spend_timestamp = to_timestamp(s.spend_ts),
		    spend_price_usd = s.spend_price_usd
		FROM spend_staging s
		WHERE u.txid = s.txid AND u.vout = s.vout AND u.spent = FALSE
	`)
	if err != nil {
		return 0, fmt.Errorf("store: bulk mark spent: update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: bulk mark spent: commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UnspentOutpointSet loads every currently-unspent outpoint into memory —
// the pre-filter mode's backing primitive (spec §4.5): lower disk I/O but
// O(N) memory, preferred for smaller incremental ranges where the ingestor
// can afford the set.
func (s *PostgresStore) UnspentOutpointSet(ctx context.Context) (map[models.Outpoint]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT txid, vout FROM utxo WHERE spent = FALSE`)
	if err != nil {
		return nil, fmt.Errorf("store: unspent outpoint set: %w", err)
	}
	defer rows.Close()

	set := make(map[models.Outpoint]bool)
	for rows.Next() {
		var op models.Outpoint
		if err := rows.Scan(&op.TxID, &op.Vout); err != nil {
			return nil, fmt.Errorf("store: unspent outpoint set: scan: %w", err)
		}
		set[op] = true
	}
	return set, rows.Err()
}

// FillCreationPrices joins newly-inserted rows lacking a creation price to
// PriceBar via their height's date — used by the Chainstate Bootstrap
// (spec §4.4 step ii) after a bulk load and harmless to re-run.
func (s *PostgresStore) FillCreationPrices(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE utxo u
		SET creation_price_usd = p.price_usd
		FROM block_height b
		JOIN price_bar p ON p.date = date_trunc('day', b.timestamp)
		WHERE u.creation_height = b.height AND u.creation_price_usd IS NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("store: fill creation prices: %w", err)
	}
	return tag.RowsAffected(), nil
}
