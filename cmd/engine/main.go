// Command engine is the process entry point wiring together every
// component (C1-C9) behind a small cobra CLI surface (spec §6): bootstrap,
// sync, cluster, metrics as standalone one-shot commands for operators,
// and run as the long-running daemon that drives the full scheduler loop.
//
// Grounded on the teacher's cmd/engine/main.go for the overall shape
// (load config, dial Postgres, init schema, build the RPC adapter, start
// the websocket hub, serve the router) generalized from a single
// hardcoded main() into cobra subcommands, since spec §6 names a CLI
// surface the teacher's single-binary service didn't have.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rawblock/utxo-lifecycle-engine/internal/bootstrap"
	"github.com/rawblock/utxo-lifecycle-engine/internal/chainrpc"
	"github.com/rawblock/utxo-lifecycle-engine/internal/cluster"
	"github.com/rawblock/utxo-lifecycle-engine/internal/config"
	"github.com/rawblock/utxo-lifecycle-engine/internal/costbasis"
	"github.com/rawblock/utxo-lifecycle-engine/internal/httpapi"
	"github.com/rawblock/utxo-lifecycle-engine/internal/ingest"
	"github.com/rawblock/utxo-lifecycle-engine/internal/metrics"
	"github.com/rawblock/utxo-lifecycle-engine/internal/orchestrator"
	"github.com/rawblock/utxo-lifecycle-engine/internal/priceindex"
	"github.com/rawblock/utxo-lifecycle-engine/internal/progress"
	"github.com/rawblock/utxo-lifecycle-engine/internal/store"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// cliFlags holds the flag values spec §6 names; not every subcommand uses
// every field.
type cliFlags struct {
	startBlock         int64
	endBlock           int64
	resume             bool
	workers            int
	checkpointInterval int
	dryRun             bool
	dbPath             string
}

func main() {
	var flags cliFlags

	root := &cobra.Command{
		Use:   "engine",
		Short: "UTXO lifecycle indexing and analytics engine",
	}
	root.PersistentFlags().StringVar(&flags.dbPath, "db-path", "", "Postgres connection string (overrides DATABASE_URL)")
	root.PersistentFlags().IntVar(&flags.workers, "workers", 0, "fetch worker pool size (overrides WORKERS)")
	root.PersistentFlags().IntVar(&flags.checkpointInterval, "checkpoint-interval", 0, "blocks between cluster checkpoints (overrides CHECKPOINT_INTERVAL)")
	root.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "log planned actions without writing to the store")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "ingest a contiguous block range (one-shot)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), flags)
		},
	}
	syncCmd.Flags().Int64Var(&flags.startBlock, "start-block", 0, "first height to ingest")
	syncCmd.Flags().Int64Var(&flags.endBlock, "end-block", 0, "last height to ingest")
	syncCmd.Flags().BoolVar(&flags.resume, "resume", false, "ignore --start-block and resume from the last synced height")

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "one-time import of the chainstate dump CSV (C4)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd.Context(), flags)
		},
	}

	clusterCmd := &cobra.Command{
		Use:   "cluster",
		Short: "flush the in-memory Union-Find to the cluster table (C6)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClusterFlush(cmd.Context(), flags)
		},
	}

	var metricsDate string
	metricsCmd := &cobra.Command{
		Use:   "metrics",
		Short: "recompute all metrics for one calendar date (C8)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(cmd.Context(), flags, metricsDate)
		},
	}
	metricsCmd.Flags().StringVar(&metricsDate, "date", "", "calendar date to compute, YYYY-MM-DD (default: today UTC)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "drive the full scheduler loop (C9) and serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), flags)
		},
	}

	root.AddCommand(syncCmd, bootstrapCmd, clusterCmd, metricsCmd, runCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Printf("engine: %v", err)
		os.Exit(1)
	}
}

// deps bundles every wired component a subcommand might need. Not every
// subcommand populates every field.
type deps struct {
	cfg   config.Config
	st    *store.PostgresStore
	chain *chainrpc.Adapter
	uf    *cluster.UnionFind
	ckpt  *cluster.Manager
}

// wire loads config (flag overrides win), connects the store, builds the
// chain adapter, and restores the Union-Find from its latest checkpoint if
// one exists (spec §4.6 — the checkpoint is the crash-recovery path).
func wire(ctx context.Context, flags cliFlags) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if flags.checkpointInterval > 0 {
		cfg.CheckpointInterval = flags.checkpointInterval
	}

	st, err := store.Connect(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := st.InitSchema(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	chain := chainrpc.NewAdapter(chainrpc.Config{
		Host: cfg.RPCHost, User: cfg.RPCUser, Pass: cfg.RPCPass,
		TimeoutSeconds: cfg.RPCTimeoutSeconds,
	})

	ckpt := cluster.NewManager(cfg.DataDir + "/checkpoints")
	uf, height, err := ckpt.Load()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load cluster checkpoint: %w", err)
	}
	if height >= 0 {
		log.Printf("engine: restored cluster checkpoint at height %d", height)
	}

	return &deps{cfg: cfg, st: st, chain: chain, uf: uf, ckpt: ckpt}, nil
}

func runSync(ctx context.Context, flags cliFlags) error {
	d, err := wire(ctx, flags)
	if err != nil {
		return err
	}
	defer d.st.Close()

	from := flags.startBlock
	if flags.resume {
		state, err := d.st.GetSyncState(ctx)
		if err != nil {
			return fmt.Errorf("get sync state: %w", err)
		}
		from = state.LastIngestedHeight + 1
	}
	to := flags.endBlock
	if to == 0 {
		tip, err := d.chain.TipHeight(ctx)
		if err != nil {
			return fmt.Errorf("tip height: %w", err)
		}
		to = tip
	}

	if flags.dryRun {
		log.Printf("engine: dry-run sync [%d, %d], %d workers", from, to, d.cfg.Workers)
		return nil
	}

	ig := ingest.New(d.chain, d.st, d.uf, ingest.Config{Workers: d.cfg.Workers, BatchSize: d.cfg.BatchSize})
	report, err := ig.Run(ctx, from, to)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	log.Printf("engine: synced [%d,%d] blocks=%d creations=%d spent=%d clusters_formed=%d failed=%v",
		from, to, report.BlocksProcessed, report.CreationRows, report.UTXOsSpent, report.ClustersFormed, report.FailedHeights)
	return nil
}

func runBootstrap(ctx context.Context, flags cliFlags) error {
	d, err := wire(ctx, flags)
	if err != nil {
		return err
	}
	defer d.st.Close()

	empty, err := d.st.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check empty: %w", err)
	}
	if !empty {
		return fmt.Errorf("store is not empty; bootstrap only runs once against an empty UTXO set")
	}

	rc, err := openChainstateDump(d.cfg)
	if err != nil {
		return err
	}
	defer rc.Close()

	importer := bootstrap.New(d.chain, d.st, bootstrap.Config{})
	result, err := importer.Run(ctx, rc)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.Printf("engine: bootstrap loaded=%d heights_resolved=%d priced=%d", result.RowsLoaded, result.HeightsResolved, result.PricedRows)
	return nil
}

// openChainstateDump runs the configured dump tool and streams its stdout,
// per spec §6 ("a CSV export of the live UTXO set ... from the trusted
// node's chainstate directory").
func openChainstateDump(cfg config.Config) (io.ReadCloser, error) {
	cmd := exec.Command(cfg.DumpToolPath, "-db", cfg.ChainstateDir)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open dump tool stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start dump tool: %w", err)
	}
	return &waitOnCloseReader{ReadCloser: stdout, cmd: cmd}, nil
}

// waitOnCloseReader reaps the dump tool's process once its stdout pipe is
// fully drained and closed, so bootstrap never has to know it is reading
// from a subprocess.
type waitOnCloseReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (w *waitOnCloseReader) Close() error {
	err := w.ReadCloser.Close()
	if waitErr := w.cmd.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}
	return err
}

func runClusterFlush(ctx context.Context, flags cliFlags) error {
	d, err := wire(ctx, flags)
	if err != nil {
		return err
	}
	defer d.st.Close()

	state, err := d.st.GetSyncState(ctx)
	if err != nil {
		return fmt.Errorf("get sync state: %w", err)
	}

	members := flattenClusters(d.uf.GetClusters())
	if flags.dryRun {
		log.Printf("engine: dry-run cluster flush, %d address rows", len(members))
		return nil
	}
	if err := d.st.SwapClusterTable(ctx, members); err != nil {
		return fmt.Errorf("swap cluster table: %w", err)
	}
	if err := d.ckpt.Save(d.uf, state.LastIngestedHeight); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if err := d.st.AdvanceClusterFlushHeight(ctx, state.LastIngestedHeight); err != nil {
		return fmt.Errorf("advance cluster flush height: %w", err)
	}

	cb := costbasis.New(d.st)
	if err := cb.Run(ctx); err != nil {
		return fmt.Errorf("recompute cost basis: %w", err)
	}
	log.Printf("engine: cluster flush complete, %d address rows, height=%d", len(members), state.LastIngestedHeight)
	return nil
}

func runMetrics(ctx context.Context, flags cliFlags, dateStr string) error {
	d, err := wire(ctx, flags)
	if err != nil {
		return err
	}
	defer d.st.Close()

	date := time.Now().UTC()
	if dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
		date = parsed
	}

	state, err := d.st.GetSyncState(ctx)
	if err != nil {
		return fmt.Errorf("get sync state: %w", err)
	}

	prices := priceindex.New(d.st)
	engine := metrics.New(d.st, prices, metrics.Config{})
	rows, err := engine.Run(ctx, state.LastIngestedHeight, date)
	if err != nil {
		return fmt.Errorf("compute metrics: %w", err)
	}
	log.Printf("engine: computed %d metric rows for %s", len(rows), date.Format("2006-01-02"))
	return nil
}

func runDaemon(ctx context.Context, flags cliFlags) error {
	d, err := wire(ctx, flags)
	if err != nil {
		return err
	}
	defer d.st.Close()

	ing := ingest.New(d.chain, d.st, d.uf, ingest.Config{Workers: d.cfg.Workers, BatchSize: d.cfg.BatchSize})
	prices := priceindex.New(d.st)
	metricsEngine := metrics.New(d.st, prices, metrics.Config{})
	cb := costbasis.New(d.st)

	orch := orchestrator.New(d.chain, ing, bootstrapperFor(d), bootstrapSourceFor(d.cfg), d.uf, d.ckpt, cb, metricsEngine, d.st,
		orchestrator.Config{
			IngestBatchHeights: int64(d.cfg.BatchSize) * 4,
			ClusterFlushBlocks: int64(d.cfg.CheckpointInterval),
		})

	hub := progress.NewHub()
	go hub.Run()
	orch.OnReport(hub.BroadcastReport)

	router := httpapi.SetupRouter(d.st, orch, hub)
	srv := &http.Server{Addr: ":" + d.cfg.HTTPPort, Handler: router}

	errCh := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		errCh <- orch.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// bootstrapperFor adapts bootstrap.Importer (Config{}) to the orchestrator's
// narrow Bootstrapper interface.
func bootstrapperFor(d *deps) *bootstrap.Importer {
	return bootstrap.New(d.chain, d.st, bootstrap.Config{})
}

// bootstrapSourceFor lazily opens the configured chainstate dump tool —
// only invoked by the orchestrator when it finds the store empty.
func bootstrapSourceFor(cfg config.Config) orchestrator.BootstrapSource {
	return func() (io.ReadCloser, error) {
		return openChainstateDump(cfg)
	}
}

func flattenClusters(clusters map[string][]string) []models.AddressClusterMap {
	var out []models.AddressClusterMap
	for root, members := range clusters {
		for _, addr := range members {
			out = append(out, models.AddressClusterMap{Address: addr, ClusterID: root})
		}
	}
	return out
}
