package models

import "time"

// MetricRow is a single persisted (metric name, date) result. Invariant:
// one row per (metric, date); deterministic function of inputs at or
// before that date (Id6).
type MetricRow struct {
	Metric     string    `json:"metric"`
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	Zone       string    `json:"zone,omitempty"`
	Confidence float64   `json:"confidence"` // in [0,1], derived from input completeness
}

// NUPL market-cycle zones (original_source/scripts/metrics/nupl.py).
const (
	NUPLZoneCapitulation = "CAPITULATION"
	NUPLZoneHopeFear     = "HOPE_FEAR"
	NUPLZoneOptimism     = "OPTIMISM"
	NUPLZoneBelief       = "BELIEF"
	NUPLZoneEuphoria     = "EUPHORIA"
)

// Supply Profit/Loss market phases (original_source/scripts/metrics/supply_profit_loss.py).
const (
	MarketPhaseEuphoria     = "EUPHORIA"
	MarketPhaseBull         = "BULL"
	MarketPhaseTransition   = "TRANSITION"
	MarketPhaseCapitulation = "CAPITULATION"
)

// Reserve Risk signal zones (original_source/scripts/metrics/reserve_risk.py).
const (
	ReserveRiskStrongBuy     = "STRONG_BUY"
	ReserveRiskAccumulation  = "ACCUMULATION"
	ReserveRiskFairValue     = "FAIR_VALUE"
	ReserveRiskDistribution  = "DISTRIBUTION"
)

// Sell-Side Risk signal zones (original_source/scripts/metrics/sell_side_risk.py).
const (
	SellSideRiskLow        = "LOW"
	SellSideRiskNormal     = "NORMAL"
	SellSideRiskElevated   = "ELEVATED"
	SellSideRiskAggressive = "AGGRESSIVE"
)

// Exchange Net-Flow zones (original_source/scripts/metrics/exchange_netflow.py).
const (
	NetFlowStrongOutflow = "STRONG_OUTFLOW"
	NetFlowWeakOutflow   = "WEAK_OUTFLOW"
	NetFlowWeakInflow    = "WEAK_INFLOW"
	NetFlowStrongInflow  = "STRONG_INFLOW"
)

// Revived Supply zones (original_source/scripts/metrics/revived_supply.py).
const (
	RevivedZoneDormant  = "DORMANT"
	RevivedZoneNormal   = "NORMAL"
	RevivedZoneElevated = "ELEVATED"
	RevivedZoneSpike    = "SPIKE"
)

// Wallet Wave bands (original_source/scripts/metrics/wallet_waves.py) —
// six bands by unspent address balance.
const (
	WaveShrimp   = "SHRIMP"   // < 1 BTC
	WaveCrab     = "CRAB"     // 1-10 BTC
	WaveFish     = "FISH"     // 10-100 BTC
	WaveShark    = "SHARK"    // 100-1000 BTC
	WaveWhale    = "WHALE"    // 1000-10000 BTC
	WaveHumpback = "HUMPBACK" // >= 10000 BTC
)

// Address Cohort bands (original_source/scripts/metrics/address_cohorts.py) —
// three bands, distinct from Wallet Waves: these carry cost basis and MVRV.
const (
	CohortRetail  = "RETAIL"  // < 1 BTC
	CohortMidTier = "MID_TIER" // 1-100 BTC
	CohortWhale   = "WHALE"   // >= 100 BTC
)

// CDD/VDD signal zones (original_source/scripts/metrics/cdd_vdd.py).
const (
	CDDZoneLowActivity = "LOW_ACTIVITY"
	CDDZoneNormal      = "NORMAL"
	CDDZoneElevated    = "ELEVATED"
	CDDZoneSpike       = "SPIKE"
)
