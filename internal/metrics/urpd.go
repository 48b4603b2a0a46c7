package metrics

import "github.com/rawblock/utxo-lifecycle-engine/internal/store"

// URPDResult is the UTXO Realized Price Distribution (spec §4.8): the
// dominant acquisition-price bucket plus the above/below-current-price
// BTC split.
type URPDResult struct {
	DominantBucketLow float64
	AboveCurrentBTC   float64
	BelowCurrentBTC   float64
}

// ComputeURPD reduces a histogram of unspent BTC by creation-price bucket
// into the dominant bucket and the above/below-current-price split. width
// is the bucket width used to build the histogram (store.PriceBucket only
// carries each bucket's low edge). An empty histogram returns a zero-value
// result.
func ComputeURPD(buckets []store.PriceBucket, currentPrice, width float64) URPDResult {
	var out URPDResult
	var maxVolume float64

	for _, b := range buckets {
		if b.BTCVolume > maxVolume {
			maxVolume = b.BTCVolume
			out.DominantBucketLow = b.BucketLow
		}
		if classifyBucket(b.BucketLow, b.BucketLow+width, currentPrice) == bucketAbove {
			out.AboveCurrentBTC += b.BTCVolume
		} else {
			out.BelowCurrentBTC += b.BTCVolume
		}
	}
	return out
}

type bucketSide int

const (
	bucketBelow bucketSide = iota
	bucketAbove
)

// classifyBucket applies the three-way rule: a bucket wholly below or
// wholly above the current price is classified by its edge; a bucket that
// straddles the current price is classified by its midpoint.
func classifyBucket(low, high, currentPrice float64) bucketSide {
	switch {
	case high <= currentPrice:
		return bucketBelow
	case low >= currentPrice:
		return bucketAbove
	default:
		mid := (low + high) / 2
		if mid >= currentPrice {
			return bucketAbove
		}
		return bucketBelow
	}
}
