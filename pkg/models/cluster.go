package models

import "time"

// AddressClusterMap is the serialized projection of the in-memory Union-Find:
// address -> cluster representative. Representatives are stable within a
// run but may shift across runs; consumers must treat them as opaque keys.
type AddressClusterMap struct {
	Address       string `json:"address"`
	ClusterID     string `json:"cluster_id"` // the canonical root address
}

// ClusterCostBasis is the per-(cluster, acquisition block) aggregate C7
// produces: volume-weighted acquisition price, not an arithmetic mean (S6).
type ClusterCostBasis struct {
	ClusterID         string    `json:"cluster_id"`
	AcquisitionBlock  int64     `json:"acquisition_block"`
	BTCAmount         float64   `json:"btc_amount"`
	WeightedAvgPriceUSD float64 `json:"weighted_avg_price_usd"`
	EarliestTimestamp time.Time `json:"earliest_timestamp"`
}
