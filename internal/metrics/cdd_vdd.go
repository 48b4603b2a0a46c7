package metrics

import (
	"math"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// CDD is Σ age_days*btc_value over UTXOs spent within the window, and VDD
// additionally multiplies by spend price (spec §4.8).
type CDDVDD struct {
	CDD         float64
	VDD         float64
	MaxDailyCDD float64
}

// DailyAverage divides the window total by the number of days it spans.
func (c CDDVDD) DailyAverage(windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	return c.CDD / float64(windowDays)
}

// ClassifyCDDVDDZone mirrors cdd_vdd.py: when a historical VDD baseline is
// available, classify by the VDD "multiple" of its trailing average
// (thresholds 0.5/1.5/2.0, confidences 0.65/0.6/0.7/0.85); otherwise fall
// back to classifying by the raw CDD total (thresholds 500/5000/10000 —
// the convention original_source uses when no 365-day historical series
// exists to compute a multiple against).
func ClassifyCDDVDDZone(vddMultiple *float64, cddTotal float64) (zone string, confidence float64) {
	if vddMultiple != nil {
		m := *vddMultiple
		switch {
		case m < 0.5:
			return models.CDDZoneLowActivity, 0.65
		case m < 1.5:
			return models.CDDZoneNormal, 0.6
		case m < 2.0:
			return models.CDDZoneElevated, 0.7
		default:
			return models.CDDZoneSpike, 0.85
		}
	}
	switch {
	case cddTotal < 500:
		return models.CDDZoneLowActivity, 0.5
	case cddTotal < 5000:
		return models.CDDZoneNormal, 0.5
	case cddTotal < 10000:
		return models.CDDZoneElevated, 0.5
	default:
		return models.CDDZoneSpike, 0.5
	}
}

// BinaryCDDThreshold is the default z-score threshold for the binary flag
// (spec §4.8): z >= 2.0 flags as 1.
const BinaryCDDThreshold = 2.0

// BinaryCDDMinPoints is the insufficient-data gate: fewer than 30 daily
// points forces the flag to 0 (spec §4.8).
const BinaryCDDMinPoints = 30

// BinaryCDD computes the rolling z-score of today's CDD against the
// window's mean/stdev, and the binary flag. `series` is daily CDD totals,
// oldest first, with today as the last element.
func BinaryCDD(series []float64) (zscore float64, flag bool, insufficient bool) {
	if len(series) < BinaryCDDMinPoints {
		return 0, false, true
	}

	n := float64(len(series))
	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / n

	var sumSq float64
	for _, v := range series {
		sumSq += (v - mean) * (v - mean)
	}
	stdev := math.Sqrt(sumSq / (n - 1))

	today := series[len(series)-1]
	if stdev == 0 {
		return 0, false, false
	}
	z := (today - mean) / stdev
	return z, z >= BinaryCDDThreshold, false
}
