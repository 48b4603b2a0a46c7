package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

func TestSellSideRisk_NullOnZeroMarketCap(t *testing.T) {
	_, ok := SellSideRisk(1000, 0)
	assert.False(t, ok)
}

func TestSellSideRisk(t *testing.T) {
	v, ok := SellSideRisk(5000, 1_000_000)
	assert.True(t, ok)
	assert.Equal(t, 0.005, v)
}

func TestClassifySellSideRiskZone(t *testing.T) {
	cases := []struct {
		risk       float64
		zone       string
		confidence float64
	}{
		{0.0005, models.SellSideRiskLow, 0.7},
		{0.002, models.SellSideRiskNormal, 0.6},
		{0.005, models.SellSideRiskElevated, 0.75},
		{0.02, models.SellSideRiskAggressive, 0.85},
	}
	for _, c := range cases {
		zone, confidence := ClassifySellSideRiskZone(c.risk)
		assert.Equal(t, c.zone, zone)
		assert.Equal(t, c.confidence, confidence)
	}
}
