package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

func TestUnionFind_SingletonUntilUnioned(t *testing.T) {
	u := New()
	assert.False(t, u.Connected("addr1", "addr2"))
	assert.Equal(t, 2, u.TotalAddresses())
	assert.Equal(t, 2, u.ClusterCount())
}

func TestUnionFind_UnionMerges(t *testing.T) {
	u := New()
	merged := u.Union("addr1", "addr2")
	assert.True(t, merged)
	assert.True(t, u.Connected("addr1", "addr2"))
	assert.Equal(t, 1, u.ClusterCount())

	again := u.Union("addr1", "addr2")
	assert.False(t, again)
}

func TestUnionFind_TransitiveClosure(t *testing.T) {
	u := New()
	u.Union("a", "b")
	u.Union("b", "c")
	assert.True(t, u.Connected("a", "c"))
	assert.Equal(t, 1, u.ClusterCount())
	assert.Equal(t, 3, u.TotalAddresses())
}

func TestFeedTransaction_SingleInputNoop(t *testing.T) {
	u := New()
	tx := models.Transaction{Inputs: []models.TxIn{{Address: "a"}}}
	merges := u.FeedTransaction(tx)
	assert.Equal(t, 0, merges)
	assert.Equal(t, 0, u.TotalAddresses())
}

func TestFeedTransaction_MultiInputUnionsAll(t *testing.T) {
	u := New()
	tx := models.Transaction{Inputs: []models.TxIn{
		{Address: "a"}, {Address: "b"}, {Address: "c"},
	}}
	merges := u.FeedTransaction(tx)
	assert.Equal(t, 2, merges)
	assert.True(t, u.Connected("a", "b"))
	assert.True(t, u.Connected("a", "c"))
	assert.Equal(t, 1, u.ClusterCount())
}

func TestFeedTransaction_DedupesRepeatedAddress(t *testing.T) {
	u := New()
	tx := models.Transaction{Inputs: []models.TxIn{
		{Address: "a"}, {Address: "a"}, {Address: "b"},
	}}
	merges := u.FeedTransaction(tx)
	assert.Equal(t, 1, merges)
	assert.Equal(t, 2, u.TotalAddresses())
}

func TestCheckpoint_RoundTrip(t *testing.T) {
	u := New()
	u.Union("addr1", "addr2")
	u.Union("addr3", "addr4")
	u.Union("addr2", "addr3")
	u.Find("addr5")

	before := map[string]string{}
	for _, a := range []string{"addr1", "addr2", "addr3", "addr4", "addr5"} {
		before[a] = u.Find(a)
	}

	dir := t.TempDir()
	mgr := NewManager(dir)
	require.NoError(t, mgr.Save(u, 1000))

	restored, height, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), height)
	assert.Equal(t, u.TotalAddresses(), restored.TotalAddresses())

	for addr, root := range before {
		assert.Equal(t, root, restored.Find(addr), "address %s", addr)
	}
	assert.True(t, restored.Connected("addr1", "addr4"))
}

func TestCheckpoint_RotationKeepsLastThree(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)
	u := New()
	u.Union("a", "b")

	for _, h := range []int64{100, 200, 300, 400, 500} {
		require.NoError(t, mgr.Save(u, h))
	}

	heights, err := mgr.listHeights()
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 400, 500}, heights)
}

func TestCheckpoint_LoadWithNoFilesReturnsFreshUnionFind(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(dir)

	u, height, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), height)
	assert.Equal(t, 0, u.TotalAddresses())
}
