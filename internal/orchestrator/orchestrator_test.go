package orchestrator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/utxo-lifecycle-engine/internal/bootstrap"
	"github.com/rawblock/utxo-lifecycle-engine/internal/cluster"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

type fakeChain struct {
	tip      int64
	tipCalls int
}

func (f *fakeChain) TipHeight(_ context.Context) (int64, error) {
	f.tipCalls++
	return f.tip, nil
}

type fakeIngestor struct {
	blocksPerHeight int
	runs            []([2]int64)
	err             error
	store           *fakeStore // when set, its ingest checkpoint advances as the real ingestor's does
}

func (f *fakeIngestor) Run(_ context.Context, from, to int64) (models.BatchReport, error) {
	f.runs = append(f.runs, [2]int64{from, to})
	if f.err != nil {
		return models.BatchReport{}, f.err
	}
	if f.store != nil {
		f.store.state.LastIngestedHeight = to
	}
	return models.BatchReport{
		FromHeight:      from,
		ToHeight:        to,
		BlocksProcessed: int(to-from+1) * f.blocksPerHeight,
		Phase:           models.PhaseIncremental,
	}, nil
}

type fakeBootstrapper struct {
	called bool
	rows   int64
}

func (f *fakeBootstrapper) Run(_ context.Context, r io.Reader) (bootstrap.Result, error) {
	f.called = true
	_, _ = io.ReadAll(r)
	return bootstrap.Result{RowsLoaded: f.rows}, nil
}

type fakeCostBasis struct {
	runs int
}

func (f *fakeCostBasis) Run(_ context.Context) error {
	f.runs++
	return nil
}

type fakeMetricEngine struct {
	calls []string // "height:date" pairs
}

func (f *fakeMetricEngine) Run(_ context.Context, height int64, date time.Time) ([]models.MetricRow, error) {
	f.calls = append(f.calls, fmt.Sprintf("%d:%s", height, date.Format("2006-01-02")))
	return []models.MetricRow{{Metric: "mvrv"}}, nil
}

type fakeStore struct {
	empty             bool
	state             models.SyncState
	blockTimestamps   map[int64]time.Time
	priorClusters     []models.AddressClusterMap
	swappedClusters   []models.AddressClusterMap
	flushHeight       int64
	metricDate        time.Time
	indexesBuilt      bool
}

func (f *fakeStore) IsEmpty(_ context.Context) (bool, error) { return f.empty, nil }
func (f *fakeStore) AllClusters(_ context.Context) ([]models.AddressClusterMap, error) {
	return f.priorClusters, nil
}
func (f *fakeStore) GetSyncState(_ context.Context) (models.SyncState, error) {
	return f.state, nil
}
func (f *fakeStore) AdvanceClusterFlushHeight(_ context.Context, height int64) error {
	f.flushHeight = height
	f.state.LastClusterFlushHeight = height
	return nil
}
func (f *fakeStore) AdvanceMetricDate(_ context.Context, date time.Time) error {
	f.metricDate = date
	return nil
}
func (f *fakeStore) CreateIndexes(_ context.Context) error {
	f.indexesBuilt = true
	return nil
}
func (f *fakeStore) SwapClusterTable(_ context.Context, members []models.AddressClusterMap) error {
	f.swappedClusters = members
	return nil
}
func (f *fakeStore) BlockTimestamp(_ context.Context, height int64) (*time.Time, error) {
	if ts, ok := f.blockTimestamps[height]; ok {
		return &ts, nil
	}
	return nil, nil
}

func newTestOrchestrator(t *testing.T, chain *fakeChain, ing *fakeIngestor, st *fakeStore, cfg Config) (*Orchestrator, *fakeCostBasis, *fakeMetricEngine) {
	t.Helper()
	uf := cluster.New()
	cb := &fakeCostBasis{}
	me := &fakeMetricEngine{}
	o := New(chain, ing, &fakeBootstrapper{}, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("")), nil
	}, uf, nil, cb, me, st, cfg)
	return o, cb, me
}

func TestOrchestrator_SkipsBootstrapWhenStoreNonEmpty(t *testing.T) {
	chain := &fakeChain{tip: 100}
	ing := &fakeIngestor{blocksPerHeight: 1}
	st := &fakeStore{empty: false, state: models.SyncState{LastIngestedHeight: 100}}
	boot := &fakeBootstrapper{}

	o := New(chain, ing, boot, nil, cluster.New(), nil, &fakeCostBasis{}, &fakeMetricEngine{}, st, Config{IdlePollInterval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = o.Run(ctx)

	assert.False(t, boot.called)
}

func TestOrchestrator_BootstrapsWhenStoreEmpty(t *testing.T) {
	chain := &fakeChain{tip: 100}
	ing := &fakeIngestor{blocksPerHeight: 1}
	st := &fakeStore{empty: true, state: models.SyncState{LastIngestedHeight: 100}}
	boot := &fakeBootstrapper{rows: 42}

	o := New(chain, ing, boot, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("csv data")), nil
	}, cluster.New(), nil, &fakeCostBasis{}, &fakeMetricEngine{}, st, Config{IdlePollInterval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = o.Run(ctx)

	assert.True(t, boot.called)
}

func TestOrchestrator_ErrorsWhenEmptyStoreHasNoBootstrapSource(t *testing.T) {
	chain := &fakeChain{tip: 100}
	ing := &fakeIngestor{blocksPerHeight: 1}
	st := &fakeStore{empty: true}
	o := New(chain, ing, &fakeBootstrapper{}, nil, cluster.New(), nil, &fakeCostBasis{}, &fakeMetricEngine{}, st, Config{})

	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chainstate CSV source")
}

func TestOrchestrator_IncrementalIngestsUpToTip(t *testing.T) {
	chain := &fakeChain{tip: 5}
	ing := &fakeIngestor{blocksPerHeight: 1}
	st := &fakeStore{
		empty: false,
		state: models.SyncState{LastIngestedHeight: 0},
		blockTimestamps: map[int64]time.Time{
			1: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			2: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
			3: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			4: time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC),
			5: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	ing.store = st

	var reports []models.BatchReport
	o, cb, me := newTestOrchestrator(t, chain, ing, st, Config{IngestBatchHeights: 10, ClusterFlushBlocks: 1, IdlePollInterval: time.Millisecond})
	o.OnReport(func(r models.BatchReport) { reports = append(reports, r) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_ = o.Run(ctx)

	require.Len(t, ing.runs, 1)
	assert.Equal(t, [2]int64{1, 5}, ing.runs[0])
	require.Len(t, reports, 1)
	assert.Equal(t, 3, len(me.calls)) // three distinct dates in [1,5]
	assert.Equal(t, 1, cb.runs)       // flush threshold of 1 triggers every batch
}

func TestOrchestrator_NoNewBlocksEntersIdleWithoutIngesting(t *testing.T) {
	chain := &fakeChain{tip: 10}
	ing := &fakeIngestor{blocksPerHeight: 1}
	st := &fakeStore{empty: false, state: models.SyncState{LastIngestedHeight: 10}}

	o, _, _ := newTestOrchestrator(t, chain, ing, st, Config{IdlePollInterval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = o.Run(ctx)

	assert.Empty(t, ing.runs)
	assert.Equal(t, models.PhaseIdle, o.Status().Phase)
}

func TestOrchestrator_ClusterFlushSkippedBelowThreshold(t *testing.T) {
	chain := &fakeChain{tip: 3}
	ing := &fakeIngestor{blocksPerHeight: 1}
	st := &fakeStore{
		empty:           false,
		state:           models.SyncState{LastIngestedHeight: 0, LastClusterFlushHeight: 1},
		blockTimestamps: map[int64]time.Time{1: time.Now(), 2: time.Now(), 3: time.Now()},
	}

	o, cb, _ := newTestOrchestrator(t, chain, ing, st, Config{IngestBatchHeights: 10, ClusterFlushBlocks: 1000, IdlePollInterval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = o.Run(ctx)

	assert.Equal(t, 0, cb.runs)
	assert.Nil(t, st.swappedClusters)
}

func TestOrchestrator_RejectsConcurrentRun(t *testing.T) {
	chain := &fakeChain{tip: 0}
	ing := &fakeIngestor{}
	st := &fakeStore{empty: false, state: models.SyncState{}}
	o, _, _ := newTestOrchestrator(t, chain, ing, st, Config{IdlePollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = o.Run(ctx)
		close(done)
	}()

	// give the goroutine a moment to flip the running flag
	deadline := time.After(50 * time.Millisecond)
	for !o.Status().Running {
		select {
		case <-deadline:
			t.Fatal("orchestrator never reported running")
		default:
		}
	}

	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	cancel()
	<-done
}
