// Package orchestrator is the Scheduler/Orchestrator (C9): the state
// machine that drives every other component in order and owns the
// process's only long-running loop (spec §4.9).
//
// Grounded on the teacher's internal/scanner/block_scanner.go: the
// atomic progress counters, the isRunning guard against overlapping runs,
// and the optional alert-callback shape are carried over wholesale and
// generalized from "scan a fixed range once" to "loop INIT -> BOOTSTRAP ->
// INCREMENTAL -> IDLE forever", with the callback now reporting a
// BatchReport instead of a CoinJoinAlert.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/rawblock/utxo-lifecycle-engine/internal/bootstrap"
	"github.com/rawblock/utxo-lifecycle-engine/internal/cluster"
	"github.com/rawblock/utxo-lifecycle-engine/internal/metrics"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// Chain is the tip-height dependency used to detect new work in IDLE.
type Chain interface {
	TipHeight(ctx context.Context) (int64, error)
}

// Ingestor drives C5 over a height range.
type Ingestor interface {
	Run(ctx context.Context, from, to int64) (models.BatchReport, error)
}

// Bootstrapper drives C4 once, from a reader over the chainstate dump CSV.
type Bootstrapper interface {
	Run(ctx context.Context, r io.Reader) (bootstrap.Result, error)
}

// CostBasisRecomputer drives C7's full recompute.
type CostBasisRecomputer interface {
	Run(ctx context.Context) error
}

// MetricEngine drives C8 for one (height, date) pair.
type MetricEngine interface {
	Run(ctx context.Context, height int64, date time.Time) ([]models.MetricRow, error)
}

// Store is the subset of the UTXO Store the orchestrator touches directly
// (everything else goes through the component-specific interfaces above).
type Store interface {
	IsEmpty(ctx context.Context) (bool, error)
	GetSyncState(ctx context.Context) (models.SyncState, error)
	AdvanceClusterFlushHeight(ctx context.Context, height int64) error
	AdvanceMetricDate(ctx context.Context, date time.Time) error
	CreateIndexes(ctx context.Context) error
	SwapClusterTable(ctx context.Context, members []models.AddressClusterMap) error
	AllClusters(ctx context.Context) ([]models.AddressClusterMap, error)
	BlockTimestamp(ctx context.Context, height int64) (*time.Time, error)
}

// Config tunes the orchestrator's batching, flush cadence, and poll rate.
type Config struct {
	IngestBatchHeights  int64 // heights per Ingestor.Run call
	ClusterFlushBlocks  int64 // flush C6 + recompute C7/C8 every N ingested blocks
	IdlePollInterval    time.Duration
	CheckpointDir       string
}

func (c Config) withDefaults() Config {
	if c.IngestBatchHeights <= 0 {
		c.IngestBatchHeights = 2000
	}
	if c.ClusterFlushBlocks <= 0 {
		c.ClusterFlushBlocks = 1000
	}
	if c.IdlePollInterval <= 0 {
		c.IdlePollInterval = 30 * time.Second
	}
	return c
}

// BootstrapSource supplies the chainstate dump CSV, opened lazily so a
// resumed orchestrator that finds the store non-empty never touches disk.
type BootstrapSource func() (io.ReadCloser, error)

// Orchestrator is C9: it owns the run loop and reports one BatchReport per
// completed batch via the optional onReport callback.
type Orchestrator struct {
	chain        Chain
	ingestor     Ingestor
	bootstrap    Bootstrapper
	bootstrapCSV BootstrapSource
	unionFind    *cluster.UnionFind
	checkpoints  *cluster.Manager
	costBasis    CostBasisRecomputer
	metrics      MetricEngine
	store        Store
	cfg          Config
	onReport     func(models.BatchReport)

	phase          atomic.Value // models.Phase
	currentHeight  atomic.Int64
	running        atomic.Bool
}

// New constructs an Orchestrator. bootstrapCSV may be nil — a nil source
// with an empty store is an unrecoverable configuration error, caught at
// Run time rather than here, since the emptiness check itself requires a
// DB round trip.
func New(chain Chain, ingestor Ingestor, bootstrap Bootstrapper, bootstrapCSV BootstrapSource,
	unionFind *cluster.UnionFind, checkpoints *cluster.Manager, costBasis CostBasisRecomputer,
	metrics MetricEngine, store Store, cfg Config) *Orchestrator {
	o := &Orchestrator{
		chain: chain, ingestor: ingestor, bootstrap: bootstrap, bootstrapCSV: bootstrapCSV,
		unionFind: unionFind, checkpoints: checkpoints, costBasis: costBasis,
		metrics: metrics, store: store, cfg: cfg.withDefaults(),
	}
	o.phase.Store(models.PhaseInit)
	return o
}

// OnReport registers a callback invoked after every completed batch — the
// progress broadcaster (internal/progress) hangs off this.
func (o *Orchestrator) OnReport(fn func(models.BatchReport)) {
	o.onReport = fn
}

// Status is a point-in-time snapshot for the HTTP progress endpoint.
type Status struct {
	Phase         models.Phase `json:"phase"`
	CurrentHeight int64        `json:"current_height"`
	Running       bool         `json:"running"`
}

func (o *Orchestrator) Status() Status {
	return Status{
		Phase:         o.phase.Load().(models.Phase),
		CurrentHeight: o.currentHeight.Load(),
		Running:       o.running.Load(),
	}
}

func (o *Orchestrator) setPhase(p models.Phase) {
	o.phase.Store(p)
	log.Printf("orchestrator: phase -> %s", p)
}

// Run drives the full INIT -> BOOTSTRAP -> INCREMENTAL -> IDLE loop until
// ctx is cancelled. Cancellation is observed between batches only — an
// in-flight Ingestor.Run chunk is allowed to finish or fail on its own
// terms (spec §5).
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.running.Swap(true) {
		return fmt.Errorf("orchestrator: already running")
	}
	defer o.running.Store(false)

	o.setPhase(models.PhaseInit)

	empty, err := o.store.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: check empty: %w", err)
	}
	if empty {
		if err := o.runBootstrap(ctx); err != nil {
			return fmt.Errorf("orchestrator: bootstrap: %w", err)
		}
	}

	o.setPhase(models.PhaseIncremental)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		advanced, err := o.runIncrementalStep(ctx)
		if err != nil {
			return fmt.Errorf("orchestrator: incremental step: %w", err)
		}
		if advanced {
			continue
		}

		o.setPhase(models.PhaseIdle)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.cfg.IdlePollInterval):
		}
		o.setPhase(models.PhaseIncremental)
	}
}

// runBootstrap resolves the CSV source and runs C4, whose importer builds
// the store indexes itself after the bulk load (spec §4.9:
// BOOTSTRAP->INCREMENTAL only after C4 and index build succeed).
func (o *Orchestrator) runBootstrap(ctx context.Context) error {
	o.setPhase(models.PhaseBootstrap)
	if o.bootstrapCSV == nil {
		return fmt.Errorf("orchestrator: store is empty but no chainstate CSV source is configured")
	}

	rc, err := o.bootstrapCSV()
	if err != nil {
		return fmt.Errorf("open chainstate dump: %w", err)
	}
	defer rc.Close()

	if _, err := o.bootstrap.Run(ctx, rc); err != nil {
		return fmt.Errorf("run import: %w", err)
	}
	return nil
}

// runIncrementalStep ingests exactly one batch of new blocks if the chain
// tip is ahead of SyncState, then drives the post-batch pipeline (spec
// §4.9: optional C6 flush, then C7, then C8 for the newly covered dates).
// Returns advanced=false when there is nothing new to ingest (caller then
// enters IDLE).
func (o *Orchestrator) runIncrementalStep(ctx context.Context) (advanced bool, err error) {
	state, err := o.store.GetSyncState(ctx)
	if err != nil {
		return false, fmt.Errorf("get sync state: %w", err)
	}

	tip, err := o.chain.TipHeight(ctx)
	if err != nil {
		return false, fmt.Errorf("tip height: %w", err)
	}

	from := state.LastIngestedHeight + 1
	if from > tip {
		return false, nil
	}
	to := from + o.cfg.IngestBatchHeights - 1
	if to > tip {
		to = tip
	}

	report, err := o.ingestor.Run(ctx, from, to)
	if err != nil {
		return false, fmt.Errorf("ingest %d-%d: %w", from, to, err)
	}
	o.currentHeight.Store(report.ToHeight)

	if err := o.runPostBatch(ctx, state, &report); err != nil {
		return false, fmt.Errorf("post-batch pipeline: %w", err)
	}

	if o.onReport != nil {
		o.onReport(report)
	}
	return true, nil
}

// runPostBatch drives the optional C6 flush, the C7 recompute it gates,
// and C8 over the batch's newly covered dates, in that order (spec §4.9).
func (o *Orchestrator) runPostBatch(ctx context.Context, prevState models.SyncState, report *models.BatchReport) error {
	flushed, err := o.maybeFlushClusters(ctx, prevState, *report)
	if err != nil {
		return fmt.Errorf("flush clusters: %w", err)
	}
	if flushed {
		if err := o.costBasis.Run(ctx); err != nil {
			return fmt.Errorf("recompute cost basis: %w", err)
		}
	}
	return o.runMetricsForBatch(ctx, report)
}

// maybeFlushClusters checkpoints and swaps the cluster table when the
// batch crosses a ClusterFlushBlocks boundary (spec §4.6, §4.9).
func (o *Orchestrator) maybeFlushClusters(ctx context.Context, prevState models.SyncState, report models.BatchReport) (bool, error) {
	if report.ToHeight/o.cfg.ClusterFlushBlocks == prevState.LastClusterFlushHeight/o.cfg.ClusterFlushBlocks &&
		prevState.LastClusterFlushHeight > 0 {
		return false, nil
	}

	before, err := o.store.AllClusters(ctx)
	if err != nil {
		return false, fmt.Errorf("load previous cluster snapshot: %w", err)
	}

	members := flattenClusters(o.unionFind.GetClusters())
	if err := o.store.SwapClusterTable(ctx, members); err != nil {
		return false, fmt.Errorf("swap cluster table: %w", err)
	}

	if len(before) > 0 {
		ari, vi := metrics.ClusterStability(before, members)
		log.Printf("orchestrator: cluster stability at height %d: ari=%.4f vi=%.4f", report.ToHeight, ari, vi)
	}
	if o.checkpoints != nil {
		if err := o.checkpoints.Save(o.unionFind, report.ToHeight); err != nil {
			return false, fmt.Errorf("save checkpoint: %w", err)
		}
	}
	if err := o.store.AdvanceClusterFlushHeight(ctx, report.ToHeight); err != nil {
		return false, fmt.Errorf("advance cluster flush height: %w", err)
	}
	return true, nil
}

// runMetricsForBatch computes C8 once per distinct calendar date the
// batch's height range touches (spec §4.9). Metric values are point-in-
// time snapshots of current store state, so every date in the batch is
// evaluated against the same (latest) height.
func (o *Orchestrator) runMetricsForBatch(ctx context.Context, report *models.BatchReport) error {
	dates, err := o.datesInRange(ctx, report.FromHeight, report.ToHeight)
	if err != nil {
		return fmt.Errorf("resolve batch dates: %w", err)
	}

	var lastDate time.Time
	for _, d := range dates {
		rows, err := o.metrics.Run(ctx, report.ToHeight, d)
		if err != nil {
			return fmt.Errorf("metrics for %s: %w", d.Format("2006-01-02"), err)
		}
		report.MetricRows += len(rows)
		lastDate = d
	}
	if !lastDate.IsZero() {
		if err := o.store.AdvanceMetricDate(ctx, lastDate); err != nil {
			return fmt.Errorf("advance metric date: %w", err)
		}
	}
	return nil
}

// datesInRange walks the height range and returns the distinct UTC
// calendar dates it covers, in ascending order. Heights with no resolved
// timestamp yet (shouldn't happen post-ingest, but defensive) are skipped.
func (o *Orchestrator) datesInRange(ctx context.Context, from, to int64) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for h := from; h <= to; h++ {
		ts, err := o.store.BlockTimestamp(ctx, h)
		if err != nil {
			return nil, err
		}
		if ts == nil {
			continue
		}
		d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// flattenClusters turns GetClusters' root->members map into the flat
// AddressClusterMap rows SwapClusterTable persists.
func flattenClusters(clusters map[string][]string) []models.AddressClusterMap {
	var out []models.AddressClusterMap
	for root, members := range clusters {
		for _, addr := range members {
			out = append(out, models.AddressClusterMap{Address: addr, ClusterID: root})
		}
	}
	return out
}
