package models

import "time"

// SyncState is the process-wide checkpoint: one row per concern.
type SyncState struct {
	LastIngestedHeight  int64      `json:"last_ingested_height"`
	LastClusterFlushHeight int64   `json:"last_cluster_flush_height"`
	LastMetricDate      *time.Time `json:"last_metric_date"`
}

// Phase is the Scheduler/Orchestrator's (C9) state machine position.
type Phase string

const (
	PhaseInit        Phase = "INIT"
	PhaseBootstrap   Phase = "BOOTSTRAP"
	PhaseIncremental Phase = "INCREMENTAL"
	PhaseIdle        Phase = "IDLE"
)

// BatchReport is what the orchestrator surfaces per batch, per spec.md §7
// ("blocks processed, UTXOs marked spent, clusters formed, metric rows
// written, and any failed block counts").
type BatchReport struct {
	FromHeight      int64     `json:"from_height"`
	ToHeight        int64     `json:"to_height"`
	BlocksProcessed int       `json:"blocks_processed"`
	CreationRows    int       `json:"creation_rows"`
	UTXOsSpent      int       `json:"utxos_spent"`
	ClustersFormed  int       `json:"clusters_formed"`
	MetricRows      int       `json:"metric_rows_written"`
	FailedHeights   []int64   `json:"failed_heights,omitempty"`
	Phase           Phase     `json:"phase"`
	At              time.Time `json:"at"`
}
