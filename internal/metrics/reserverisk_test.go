package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

func TestReserveRisk_NullOnZeroDenominator(t *testing.T) {
	_, ok := ReserveRisk(60_000, 0, 19_000_000)
	assert.False(t, ok)
}

func TestReserveRisk(t *testing.T) {
	v, ok := ReserveRisk(60_000, 2, 19_000_000)
	assert.True(t, ok)
	// denominator = 2 * 19,000,000 / 1,000,000 = 38
	assert.InDelta(t, 60_000.0/38.0, v, 1e-6)
}

func TestReserveRiskScale_MatchesHODLBankScale(t *testing.T) {
	assert.Equal(t, 1_000_000.0, float64(ReserveRiskScale))
}

func TestClassifyReserveRiskZone(t *testing.T) {
	cases := []struct {
		risk float64
		zone string
	}{
		{0.001, models.ReserveRiskStrongBuy},
		{0.005, models.ReserveRiskAccumulation},
		{0.015, models.ReserveRiskFairValue},
		{0.05, models.ReserveRiskDistribution},
	}
	for _, c := range cases {
		assert.Equal(t, c.zone, ClassifyReserveRiskZone(c.risk))
	}
}
