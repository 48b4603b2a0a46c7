package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/utxo-lifecycle-engine/internal/store"
)

// S3: bucket width 5000 over {1.5@12k, 1.5@14k, 1@52k, 1@53k, 0.75@97k,
// 0.75@99k}, current price 60k. Dominant bucket [10k,15k] with 3 BTC;
// supply_below = 5 BTC; supply_above = 1.5 BTC.
func TestComputeURPD_WorkedExample(t *testing.T) {
	buckets := []store.PriceBucket{
		{BucketLow: 10_000, BTCVolume: 3.0},
		{BucketLow: 50_000, BTCVolume: 2.0},
		{BucketLow: 95_000, BTCVolume: 1.5},
	}
	got := ComputeURPD(buckets, 60_000, 5_000)
	assert.Equal(t, 10_000.0, got.DominantBucketLow)
	assert.Equal(t, 5.0, got.BelowCurrentBTC)
	assert.Equal(t, 1.5, got.AboveCurrentBTC)
}

func TestComputeURPD_EmptyHistogram(t *testing.T) {
	got := ComputeURPD(nil, 60_000, 5_000)
	assert.Equal(t, URPDResult{}, got)
}

func TestComputeURPD_BucketAtCurrentPriceCountsAbove(t *testing.T) {
	buckets := []store.PriceBucket{{BucketLow: 60_000, BTCVolume: 1.0}}
	got := ComputeURPD(buckets, 60_000, 5_000)
	assert.Equal(t, 1.0, got.AboveCurrentBTC)
	assert.Equal(t, 0.0, got.BelowCurrentBTC)
}

// Bucket [50000,55000) straddles currentPrice=51000: midpoint 52500 > 51000,
// so per urpd.py's _classify_supply_by_price this counts as above even
// though its low edge (50000) is below the current price.
func TestComputeURPD_StraddlingBucketClassifiesByMidpoint(t *testing.T) {
	buckets := []store.PriceBucket{{BucketLow: 50_000, BTCVolume: 2.0}}
	got := ComputeURPD(buckets, 51_000, 5_000)
	assert.Equal(t, 2.0, got.AboveCurrentBTC)
	assert.Equal(t, 0.0, got.BelowCurrentBTC)
}

// Bucket [50000,55000) with currentPrice=54000: midpoint 52500 < 54000, so
// this straddling bucket classifies as below.
func TestComputeURPD_StraddlingBucketBelowMidpoint(t *testing.T) {
	buckets := []store.PriceBucket{{BucketLow: 50_000, BTCVolume: 2.0}}
	got := ComputeURPD(buckets, 54_000, 5_000)
	assert.Equal(t, 0.0, got.AboveCurrentBTC)
	assert.Equal(t, 2.0, got.BelowCurrentBTC)
}
