package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

type fakeChain struct {
	hashesByHeight map[int64]string
	timesByHash    map[string]int64
}

func (f *fakeChain) BatchBlockHashes(_ context.Context, heights []int64) ([]string, error) {
	out := make([]string, 0, len(heights))
	for _, h := range heights {
		hash, ok := f.hashesByHeight[h]
		if !ok {
			continue
		}
		out = append(out, hash)
	}
	return out, nil
}

func (f *fakeChain) BatchBlockHeaderTimes(_ context.Context, hashes []string) (map[string]int64, error) {
	out := make(map[string]int64, len(hashes))
	for _, h := range hashes {
		if t, ok := f.timesByHash[h]; ok {
			out[h] = t
		}
	}
	return out, nil
}

type fakeStore struct {
	rows         []models.CreationRow
	blockHeights []models.BlockHeight
	priced       int64
	indexed      bool
}

func (f *fakeStore) BulkInsertCreations(_ context.Context, rows []models.CreationRow) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeStore) UpsertBlockHeights(_ context.Context, heights []models.BlockHeight) error {
	f.blockHeights = append(f.blockHeights, heights...)
	return nil
}

func (f *fakeStore) FillCreationPrices(_ context.Context) (int64, error) {
	f.priced = int64(len(f.rows))
	return f.priced, nil
}

func (f *fakeStore) CreateIndexes(_ context.Context) error {
	f.indexed = true
	return nil
}

func TestImporter_Run(t *testing.T) {
	csvData := `tx1,0,100,true,5000000000,p2pkh,addr-a
tx2,0,100,false,100000,p2wpkh,addr-b
tx2,1,101,false,200000,p2pkh,
`
	chain := &fakeChain{
		hashesByHeight: map[int64]string{100: "hash100", 101: "hash101"},
		timesByHash:    map[string]int64{"hash100": 1700000000, "hash101": 1700000600},
	}
	st := &fakeStore{}

	im := New(chain, st, Config{BatchSize: 2})
	result, err := im.Run(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.RowsLoaded)
	assert.Equal(t, int64(2), result.HeightsResolved)
	assert.Len(t, st.rows, 3)
	assert.True(t, st.indexed)
	assert.Equal(t, int64(3), st.priced)

	for _, row := range st.rows {
		if row.TxID == "tx2" && row.Vout == 1 {
			assert.Nil(t, row.Address)
		}
	}
}

func TestImporter_MissingHeightFailsClearly(t *testing.T) {
	csvData := "tx1,0,999,true,5000000000,p2pkh,addr-a\n"
	chain := &fakeChain{hashesByHeight: map[int64]string{}, timesByHash: map[string]int64{}}
	st := &fakeStore{}

	im := New(chain, st, Config{})
	_, err := im.Run(context.Background(), strings.NewReader(csvData))
	require.Error(t, err)
}

func TestParseCSVRow_WrongColumnCount(t *testing.T) {
	_, err := parseCSVRow([]string{"a", "b"}, 1)
	require.Error(t, err)
	assert.True(t, strings.Contains(fmt.Sprint(err), "expected"))
}
