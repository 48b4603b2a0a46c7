package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

func TestMarketCap(t *testing.T) {
	assert.Equal(t, 6_000_000.0, MarketCap(100, 60_000))
}

func TestMVRV_NullOnZeroRealizedCap(t *testing.T) {
	_, ok := MVRV(1000, 0)
	assert.False(t, ok)
}

func TestMVRV(t *testing.T) {
	v, ok := MVRV(1_000_000, 500_000)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestMVRVZ_NullOnZeroRealizedCap(t *testing.T) {
	_, ok := MVRVZ(1000, 0)
	assert.False(t, ok)
}

func TestNUPL_NullOnZeroMarketCap(t *testing.T) {
	_, ok := NUPL(0, 0)
	assert.False(t, ok)
}

func TestNUPL(t *testing.T) {
	v, ok := NUPL(1_000_000, 600_000)
	assert.True(t, ok)
	assert.InDelta(t, 0.4, v, 1e-9)
}

func TestClassifyNUPLZone(t *testing.T) {
	cases := []struct {
		nupl float64
		zone string
	}{
		{-0.1, models.NUPLZoneCapitulation},
		{0.1, models.NUPLZoneHopeFear},
		{0.4, models.NUPLZoneOptimism},
		{0.6, models.NUPLZoneBelief},
		{0.9, models.NUPLZoneEuphoria},
	}
	for _, c := range cases {
		assert.Equal(t, c.zone, ClassifyNUPLZone(c.nupl))
	}
}

func TestPctSupplyInProfit_Clamped(t *testing.T) {
	assert.Equal(t, 0.0, PctSupplyInProfit(-2))
	assert.Equal(t, 100.0, PctSupplyInProfit(2))
	assert.Equal(t, 50.0, PctSupplyInProfit(0))
}
