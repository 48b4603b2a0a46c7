package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// S4: 20 daily samples with threshold 2.0 -> insufficient=true, binary=0
// regardless of today's value.
func TestBinaryCDD_InsufficientData(t *testing.T) {
	series := make([]float64, 20)
	for i := range series {
		series[i] = float64(i) * 100
	}
	series[19] = 1_000_000 // a huge spike today still can't overcome insufficient data

	zscore, flag, insufficient := BinaryCDD(series)
	assert.True(t, insufficient)
	assert.False(t, flag)
	assert.Equal(t, 0.0, zscore)
}

func TestBinaryCDD_FlagsAboveThreshold(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = 100
	}
	series[29] = 100_000

	zscore, flag, insufficient := BinaryCDD(series)
	assert.False(t, insufficient)
	assert.True(t, flag)
	assert.Greater(t, zscore, BinaryCDDThreshold)
}

func TestBinaryCDD_ZeroStdevNoFlag(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = 500
	}
	_, flag, insufficient := BinaryCDD(series)
	assert.False(t, insufficient)
	assert.False(t, flag)
}

func TestClassifyCDDVDDZone_ByVDDMultiple(t *testing.T) {
	m := 2.5
	zone, confidence := ClassifyCDDVDDZone(&m, 0)
	assert.Equal(t, "SPIKE", zone)
	assert.Equal(t, 0.85, confidence)
}

func TestClassifyCDDVDDZone_FallsBackToRawTotal(t *testing.T) {
	zone, _ := ClassifyCDDVDDZone(nil, 6000)
	assert.Equal(t, "ELEVATED", zone)
}

func TestCDDVDD_DailyAverage(t *testing.T) {
	c := CDDVDD{CDD: 300}
	assert.Equal(t, 30.0, c.DailyAverage(10))
	assert.Equal(t, 0.0, c.DailyAverage(0))
}
