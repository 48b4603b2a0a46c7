package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSOPR_NullOnZeroDenominator(t *testing.T) {
	_, ok := SOPR(1000, 0)
	assert.False(t, ok)
}

// S5: creation $40k over 2 BTC, spend $100k over 2 BTC -> SOPR = 2.5.
func TestSOPR_WorkedExample(t *testing.T) {
	numerator := 100_000.0 * 2
	denominator := 40_000.0 * 2
	v, ok := SOPR(numerator, denominator)
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)
}
