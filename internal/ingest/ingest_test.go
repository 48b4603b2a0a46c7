package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/utxo-lifecycle-engine/internal/chainrpc"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

type fakeChain struct {
	blocks map[int64]*chainrpc.RawBlock
}

func (f *fakeChain) BlockHashAt(_ context.Context, height int64) (string, error) {
	if _, ok := f.blocks[height]; !ok {
		return "", fmt.Errorf("no block at height %d", height)
	}
	return fmt.Sprintf("hash-%d", height), nil
}

func (f *fakeChain) Block(_ context.Context, hash string) (*chainrpc.RawBlock, error) {
	for h, b := range f.blocks {
		if fmt.Sprintf("hash-%d", h) == hash {
			return b, nil
		}
	}
	return nil, fmt.Errorf("block not found for hash %s", hash)
}

type fakeStore struct {
	creations    []models.CreationRow
	spends       []models.SpendRecord
	blockMetas   []models.BlockHeight
	advancedTo   int64
	unspentSet   map[models.Outpoint]bool
}

func (f *fakeStore) BulkInsertCreations(_ context.Context, rows []models.CreationRow) error {
	f.creations = append(f.creations, rows...)
	return nil
}

func (f *fakeStore) BulkMarkSpent(_ context.Context, records []models.SpendRecord) (int64, error) {
	f.spends = append(f.spends, records...)
	return int64(len(records)), nil
}

func (f *fakeStore) UnspentOutpointSet(_ context.Context) (map[models.Outpoint]bool, error) {
	return f.unspentSet, nil
}

func (f *fakeStore) UpsertBlockHeights(_ context.Context, heights []models.BlockHeight) error {
	f.blockMetas = append(f.blockMetas, heights...)
	return nil
}

func (f *fakeStore) AdvanceIngestHeight(_ context.Context, height int64) error {
	f.advancedTo = height
	return nil
}

type fakeCluster struct {
	fed []models.Transaction
}

func (f *fakeCluster) FeedTransaction(tx models.Transaction) int {
	f.fed = append(f.fed, tx)
	if len(tx.Inputs) >= 2 {
		return len(tx.Inputs) - 1
	}
	return 0
}

func makeBlock(height int64) *chainrpc.RawBlock {
	return &chainrpc.RawBlock{
		Hash:   fmt.Sprintf("hash-%d", height),
		Height: height,
		Time:   1700000000 + height*600,
		Tx: []chainrpc.RawTx{
			{
				Txid: fmt.Sprintf("coinbase-%d", height),
				Vin:  []chainrpc.RawVin{{Coinbase: "abcd"}},
				Vout: []chainrpc.RawVout{
					{Value: 6.25, N: 0, ScriptPubKey: chainrpc.RawScriptPubKey{Type: "pubkeyhash", Address: "miner-addr"}},
				},
			},
			{
				Txid: fmt.Sprintf("tx-%d", height),
				Vin: []chainrpc.RawVin{
					{Txid: "prev1", Vout: 0, Prevout: &chainrpc.RawPrevout{
						Value: 1.0, ScriptPubKey: chainrpc.RawScriptPubKey{Address: "addr-a"},
					}},
					{Txid: "prev2", Vout: 1, Prevout: &chainrpc.RawPrevout{
						Value: 2.0, ScriptPubKey: chainrpc.RawScriptPubKey{Address: "addr-b"},
					}},
				},
				Vout: []chainrpc.RawVout{
					{Value: 2.9999, N: 0, ScriptPubKey: chainrpc.RawScriptPubKey{Type: "pubkeyhash", Address: "addr-c"}},
				},
			},
		},
	}
}

func TestIngestor_RunSingleChunk(t *testing.T) {
	chain := &fakeChain{blocks: map[int64]*chainrpc.RawBlock{
		100: makeBlock(100),
		101: makeBlock(101),
	}}
	st := &fakeStore{}
	cl := &fakeCluster{}

	ig := New(chain, st, cl, Config{Workers: 4, BatchSize: 10})
	report, err := ig.Run(context.Background(), 100, 101)
	require.NoError(t, err)

	assert.Equal(t, 2, report.BlocksProcessed)
	assert.Equal(t, 4, report.CreationRows) // 2 coinbase + 2 regular outputs
	assert.Equal(t, 4, report.UTXOsSpent)   // 2 inputs per regular tx, 2 blocks
	assert.Equal(t, int64(101), st.advancedTo)
	assert.Len(t, cl.fed, 2) // one multi-input tx per block
	assert.Empty(t, report.FailedHeights)
	assert.Len(t, st.blockMetas, 2)
}

func TestIngestor_MissingHeightRecordedAsFailed(t *testing.T) {
	chain := &fakeChain{blocks: map[int64]*chainrpc.RawBlock{
		100: makeBlock(100),
	}}
	st := &fakeStore{}
	cl := &fakeCluster{}

	ig := New(chain, st, cl, Config{Workers: 2, BatchSize: 10})
	report, err := ig.Run(context.Background(), 100, 101)
	require.NoError(t, err)

	assert.Equal(t, 1, report.BlocksProcessed)
	assert.Equal(t, []int64{101}, report.FailedHeights)
	assert.Equal(t, int64(100), st.advancedTo)
}

func TestIngestor_MultiChunkBatchBoundary(t *testing.T) {
	blocks := map[int64]*chainrpc.RawBlock{}
	for h := int64(100); h <= 104; h++ {
		blocks[h] = makeBlock(h)
	}
	chain := &fakeChain{blocks: blocks}
	st := &fakeStore{}
	cl := &fakeCluster{}

	ig := New(chain, st, cl, Config{Workers: 4, BatchSize: 2})
	report, err := ig.Run(context.Background(), 100, 104)
	require.NoError(t, err)

	assert.Equal(t, 5, report.BlocksProcessed)
	assert.Equal(t, int64(104), st.advancedTo)
	assert.Len(t, cl.fed, 5)
}

func TestIngestor_EmptyRangeNoOp(t *testing.T) {
	chain := &fakeChain{blocks: map[int64]*chainrpc.RawBlock{}}
	st := &fakeStore{}
	cl := &fakeCluster{}

	ig := New(chain, st, cl, Config{})
	report, err := ig.Run(context.Background(), 200, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, report.BlocksProcessed)
}
