// Package bootstrap is the Chainstate Bootstrap (C4): a one-time importer
// of a CSV export of the live UTXO set from the trusted node's chainstate
// dump, run when the UTXO Store is empty (spec §4.4, §4.9).
//
// Grounded on the teacher's internal/db/postgres.go bulk-load style
// (UNNEST-based insert, no row-by-row path) and generalized to the
// dump-then-backfill shape spec §4.4 describes: bulk load first, then fill
// derived/priced columns, then build indexes — in that order, because
// indexes slow down bulk insert and priced columns need block_height rows
// that may not exist yet for heights the dump references.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// ChainSource is the subset of the Chain Source Adapter (C1) bootstrap
// needs: resolving the dump's referenced heights to timestamps in bulk,
// since the CSV itself carries no timestamp column.
type ChainSource interface {
	BatchBlockHashes(ctx context.Context, heights []int64) ([]string, error)
	BatchBlockHeaderTimes(ctx context.Context, hashes []string) (map[string]int64, error)
}

// Persister is the UTXO Store (C3) dependency for C4's three post-load
// steps plus the bulk load itself.
type Persister interface {
	BulkInsertCreations(ctx context.Context, rows []models.CreationRow) error
	UpsertBlockHeights(ctx context.Context, heights []models.BlockHeight) error
	FillCreationPrices(ctx context.Context) (int64, error)
	CreateIndexes(ctx context.Context) error
}

// Config tunes the importer's batching.
type Config struct {
	BatchSize int // CSV rows per bulk-insert flush
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 50_000
	}
	return c
}

// Importer drives C4.
type Importer struct {
	chain ChainSource
	store Persister
	cfg   Config

	heightTimeCache map[int64]time.Time
}

func New(chain ChainSource, store Persister, cfg Config) *Importer {
	return &Importer{
		chain:           chain,
		store:           store,
		cfg:             cfg.withDefaults(),
		heightTimeCache: make(map[int64]time.Time),
	}
}

// Result summarizes one Run.
type Result struct {
	RowsLoaded      int64
	HeightsResolved int64
	PricedRows      int64
}

// Run streams the CSV dump, bulk-loading creation rows in batches, then
// runs the three post-load steps in order: fill btc_value (implicit — it
// is a derived expression, not a stored column, see the utxo_lifecycle_full
// view), fill creation_price_usd, build indexes (spec §4.4).
func (im *Importer) Run(ctx context.Context, r io.Reader) (Result, error) {
	var result Result

	err := scanCSV(r, im.cfg.BatchSize, func(batch []csvRow) error {
		if err := im.resolveHeights(ctx, batch); err != nil {
			return fmt.Errorf("resolve heights: %w", err)
		}

		rows := make([]models.CreationRow, 0, len(batch))
		for _, r := range batch {
			ts, ok := im.heightTimeCache[r.Height]
			if !ok {
				return fmt.Errorf("bootstrap: no resolved timestamp for height %d", r.Height)
			}
			rows = append(rows, models.CreationRow{
				TxID:              r.TxID,
				Vout:              r.Vout,
				CreationHeight:    r.Height,
				CreationTimestamp: ts,
				Satoshis:          r.Satoshis,
				Coinbase:          r.Coinbase,
				ScriptType:        r.ScriptType,
				Address:           r.Address,
			})
		}

		if err := im.store.BulkInsertCreations(ctx, rows); err != nil {
			return fmt.Errorf("bulk insert: %w", err)
		}
		result.RowsLoaded += int64(len(rows))

		log.Printf("bootstrap: loaded %d rows (running total %d)", len(rows), result.RowsLoaded)
		return nil
	})
	if err != nil {
		return result, err
	}

	result.HeightsResolved = int64(len(im.heightTimeCache))

	priced, err := im.store.FillCreationPrices(ctx)
	if err != nil {
		return result, fmt.Errorf("bootstrap: fill creation prices: %w", err)
	}
	result.PricedRows = priced

	if err := im.store.CreateIndexes(ctx); err != nil {
		return result, fmt.Errorf("bootstrap: create indexes: %w", err)
	}

	return result, nil
}

// resolveHeights fills heightTimeCache for every height in batch not yet
// resolved, resolving hashes and timestamps in bulk JSON-RPC batches
// (spec §4.1) and persisting them to block_height as it goes. The cache
// lives only as long as this Importer: a new process re-queries heights
// even when block_height already holds them.
func (im *Importer) resolveHeights(ctx context.Context, batch []csvRow) error {
	seen := make(map[int64]bool)
	var unresolved []int64
	for _, r := range batch {
		if seen[r.Height] {
			continue
		}
		seen[r.Height] = true
		if _, ok := im.heightTimeCache[r.Height]; !ok {
			unresolved = append(unresolved, r.Height)
		}
	}
	if len(unresolved) == 0 {
		return nil
	}

	hashes, err := im.chain.BatchBlockHashes(ctx, unresolved)
	if err != nil {
		return err
	}
	if len(hashes) != len(unresolved) {
		return fmt.Errorf("bootstrap: expected %d hashes, got %d — chainstate dump references a height above the node's tip", len(unresolved), len(hashes))
	}

	times, err := im.chain.BatchBlockHeaderTimes(ctx, hashes)
	if err != nil {
		return err
	}

	blockHeights := make([]models.BlockHeight, 0, len(unresolved))
	for i, h := range unresolved {
		hash := hashes[i]
		unixTime, ok := times[hash]
		if !ok {
			return fmt.Errorf("bootstrap: missing header timestamp for height %d hash %s", h, hash)
		}
		ts := time.Unix(unixTime, 0).UTC()
		im.heightTimeCache[h] = ts
		blockHeights = append(blockHeights, models.BlockHeight{Height: h, Hash: hash, Timestamp: ts})
	}

	return im.store.UpsertBlockHeights(ctx, blockHeights)
}
