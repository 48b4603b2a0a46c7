package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuance(t *testing.T) {
	assert.Equal(t, BlockReward*144*7, Issuance(BlockReward, 7))
}

func TestComputeAbsorptionRates(t *testing.T) {
	before := []WaveBand{{Name: "shrimp", SupplyBTC: 100}, {Name: "whale", SupplyBTC: 1000}}
	after := []WaveBand{{Name: "shrimp", SupplyBTC: 110}, {Name: "whale", SupplyBTC: 1050}}

	rates, err := ComputeAbsorptionRates(before, after, 100)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "shrimp", rates[0].Band)
	assert.Equal(t, 0.1, rates[0].Rate)
	assert.Equal(t, 0.5, rates[1].Rate)
}

func TestComputeAbsorptionRates_MismatchedBandCounts(t *testing.T) {
	before := []WaveBand{{Name: "shrimp"}}
	after := []WaveBand{{Name: "shrimp"}, {Name: "whale"}}
	_, err := ComputeAbsorptionRates(before, after, 100)
	assert.Error(t, err)
}

func TestComputeAbsorptionRates_ZeroIssuance(t *testing.T) {
	before := []WaveBand{{Name: "shrimp", SupplyBTC: 100}}
	after := []WaveBand{{Name: "shrimp", SupplyBTC: 110}}
	rates, err := ComputeAbsorptionRates(before, after, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rates[0].Rate)
}

func TestDominantAbsorber(t *testing.T) {
	rates := []AbsorptionRate{{Band: "shrimp", Rate: 0.1}, {Band: "whale", Rate: 0.5}}
	band, ok := DominantAbsorber(rates)
	assert.True(t, ok)
	assert.Equal(t, "whale", band)
}

func TestDominantAbsorber_Empty(t *testing.T) {
	_, ok := DominantAbsorber(nil)
	assert.False(t, ok)
}
