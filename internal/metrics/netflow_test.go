package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

func TestExchangeNetFlow(t *testing.T) {
	assert.Equal(t, 10.0, ExchangeNetFlow(30, 20))
	assert.Equal(t, -10.0, ExchangeNetFlow(20, 30))
}

func TestClassifyNetFlowZone_ZeroBaseline(t *testing.T) {
	assert.Equal(t, models.NetFlowWeakInflow, ClassifyNetFlowZone(5, 0))
	assert.Equal(t, models.NetFlowWeakOutflow, ClassifyNetFlowZone(-5, 0))
}

func TestClassifyNetFlowZone_RelativeToBaseline(t *testing.T) {
	assert.Equal(t, models.NetFlowStrongOutflow, ClassifyNetFlowZone(-150, 100))
	assert.Equal(t, models.NetFlowWeakOutflow, ClassifyNetFlowZone(-50, 100))
	assert.Equal(t, models.NetFlowWeakInflow, ClassifyNetFlowZone(50, 100))
	assert.Equal(t, models.NetFlowStrongInflow, ClassifyNetFlowZone(150, 100))
}

func TestMovingAverage(t *testing.T) {
	assert.Equal(t, 0.0, MovingAverage(nil))
	assert.Equal(t, 20.0, MovingAverage([]float64{10, 20, 30}))
}
