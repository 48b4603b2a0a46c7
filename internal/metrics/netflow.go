package metrics

import "github.com/rawblock/utxo-lifecycle-engine/pkg/models"

// ExchangeNetFlow is inflow-outflow BTC volume over the window (spec
// §4.8): positive means more BTC moved onto exchange addresses than off.
func ExchangeNetFlow(inflowBTC, outflowBTC float64) float64 {
	return inflowBTC - outflowBTC
}

// ClassifyNetFlowZone buckets the net flow relative to its own moving
// average baseline (movingAvgBTC): a net flow whose magnitude exceeds the
// baseline is "strong", otherwise "weak". A zero baseline degrades to
// sign-only classification.
func ClassifyNetFlowZone(netFlowBTC, movingAvgBTC float64) string {
	if movingAvgBTC == 0 {
		if netFlowBTC < 0 {
			return models.NetFlowWeakOutflow
		}
		return models.NetFlowWeakInflow
	}
	ratio := netFlowBTC / movingAvgBTC
	switch {
	case ratio <= -1:
		return models.NetFlowStrongOutflow
	case ratio < 0:
		return models.NetFlowWeakOutflow
	case ratio < 1:
		return models.NetFlowWeakInflow
	default:
		return models.NetFlowStrongInflow
	}
}

// MovingAverage is a simple arithmetic mean over the trailing window.
// Engine.Run does not call it: no 7d/30d exchange net-flow average is
// computed, and the net-flow zone is classified with a zero baseline
// (sign only).
func MovingAverage(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}
