package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/rawblock/utxo-lifecycle-engine/internal/priceindex"
	"github.com/rawblock/utxo-lifecycle-engine/internal/store"
	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

// Backend is the store-side dependency the Metric Engine (C8) runs its
// deterministic queries against. A narrow interface (rather than
// *store.PostgresStore directly) keeps the engine unit-testable against a
// fake, per the teacher's "explicit config, no implicit connection"
// convention (spec §9).
type Backend interface {
	UnspentAggregateAsOf(ctx context.Context, lastBlock int64) (totalBTC, realizedCapUSD float64, err error)
	SOPRAggregate(ctx context.Context, fromHeight, toHeight int64) (numeratorUSD, denominatorUSD float64, err error)
	URPDHistogram(ctx context.Context, width float64) ([]store.PriceBucket, error)
	SupplyCohortSplit(ctx context.Context, currentPrice float64, currentHeight int64, sthThresholdDays int) (store.CohortSplit, error)
	CDDVDDAggregate(ctx context.Context, from, to time.Time) (cdd, vdd, maxDailyCDD float64, err error)
	DailyCDDSeries(ctx context.Context, asOf time.Time, days int) ([]float64, error)
	HODLBank(ctx context.Context) (hodlBankDays, circulatingBTC float64, err error)
	SellSideRiskAggregate(ctx context.Context, from, to time.Time) (realizedProfitUSD, realizedLossUSD float64, err error)
	AddressBalances(ctx context.Context) ([]store.AddressBalance, error)
	AddressBalancesAsOf(ctx context.Context, asOf time.Time) ([]store.AddressBalance, error)
	ExchangeNetFlowAggregate(ctx context.Context, from, to time.Time) (inflowBTC, outflowBTC float64, err error)
	RevivedSupplyAggregate(ctx context.Context, from, to time.Time, thresholdDays float64) (revivedBTC float64, err error)
	InsertMetricRows(ctx context.Context, rows []models.MetricRow) error
}

// Config tunes the engine's windows and histogram resolution.
type Config struct {
	URPDBucketWidthUSD  float64
	SOPRWindowBlocks    int64
	SellSideWindowDays  int
	NetFlowWindowDays   int
	RevivedWindowDays   int
	BinaryCDDWindowDays int
	AbsorptionWindowDays int
}

func (c Config) withDefaults() Config {
	if c.URPDBucketWidthUSD <= 0 {
		c.URPDBucketWidthUSD = 500
	}
	if c.SOPRWindowBlocks <= 0 {
		c.SOPRWindowBlocks = 144 // ~1 day
	}
	if c.SellSideWindowDays <= 0 {
		c.SellSideWindowDays = 30
	}
	if c.NetFlowWindowDays <= 0 {
		c.NetFlowWindowDays = 30
	}
	if c.RevivedWindowDays <= 0 {
		c.RevivedWindowDays = 1
	}
	if c.BinaryCDDWindowDays <= 0 {
		c.BinaryCDDWindowDays = 90
	}
	if c.AbsorptionWindowDays <= 0 {
		c.AbsorptionWindowDays = 7
	}
	return c
}

// Engine drives C8: one pass over every metric family, as of a given
// block height/date, yielding MetricRows ready for InsertMetricRows.
type Engine struct {
	backend Backend
	prices  *priceindex.Index
	cfg     Config
}

func New(backend Backend, prices *priceindex.Index, cfg Config) *Engine {
	return &Engine{backend: backend, prices: prices, cfg: cfg.withDefaults()}
}

// Run computes every metric family as of (height, date) and persists the
// resulting rows in one InsertMetricRows call. Returns the rows written
// for callers that want to report them (e.g. the orchestrator's
// BatchReport.MetricRows count).
func (e *Engine) Run(ctx context.Context, height int64, date time.Time) ([]models.MetricRow, error) {
	currentPrice, err := e.prices.PriceForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("metrics: current price: %w", err)
	}
	if currentPrice == nil {
		return nil, nil // no price for this date: every metric here is price-dependent, so emit nothing
	}
	price := *currentPrice

	var rows []models.MetricRow
	emit := func(metric string, value float64, zone string, confidence float64) {
		rows = append(rows, models.MetricRow{Metric: metric, Date: date, Value: value, Zone: zone, Confidence: confidence})
	}

	unspentBTC, realizedCapUSD, err := e.backend.UnspentAggregateAsOf(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("metrics: unspent aggregate: %w", err)
	}
	marketCap := MarketCap(unspentBTC, price)
	emit(MetricRealizedCap, realizedCapUSD, "", 1.0)
	emit(MetricMarketCap, marketCap, "", 1.0)

	if mvrv, ok := MVRV(marketCap, realizedCapUSD); ok {
		emit(MetricMVRV, mvrv, "", 1.0)
	}
	if mvrvz, ok := MVRVZ(marketCap, realizedCapUSD); ok {
		emit(MetricMVRVZ, mvrvz, "", 1.0)
	}
	if nupl, ok := NUPL(marketCap, realizedCapUSD); ok {
		emit(MetricNUPL, nupl, ClassifyNUPLZone(nupl), NUPLConfidence(unspentBTC, realizedCapUSD))
	}

	soprNum, soprDenom, err := e.backend.SOPRAggregate(ctx, height-e.cfg.SOPRWindowBlocks+1, height)
	if err != nil {
		return nil, fmt.Errorf("metrics: sopr: %w", err)
	}
	if sopr, ok := SOPR(soprNum, soprDenom); ok {
		emit(MetricSOPR, sopr, "", 1.0)
	}

	buckets, err := e.backend.URPDHistogram(ctx, e.cfg.URPDBucketWidthUSD)
	if err != nil {
		return nil, fmt.Errorf("metrics: urpd: %w", err)
	}
	urpd := ComputeURPD(buckets, price, e.cfg.URPDBucketWidthUSD)
	emit(MetricURPDDominantLow, urpd.DominantBucketLow, "", 1.0)
	emit(MetricURPDAboveBTC, urpd.AboveCurrentBTC, "", 1.0)
	emit(MetricURPDBelowBTC, urpd.BelowCurrentBTC, "", 1.0)

	cohortSplit, err := e.backend.SupplyCohortSplit(ctx, price, height, STHThresholdDays)
	if err != nil {
		return nil, fmt.Errorf("metrics: supply cohort split: %w", err)
	}
	pl := SupplyPL{ProfitBTC: cohortSplit.ProfitBTC, LossBTC: cohortSplit.LossBTC, BreakevenBTC: cohortSplit.BreakevenBTC}
	emit(MetricSupplyProfitPct, pl.ProfitPct(), ClassifyMarketPhase(pl.ProfitPct()), 1.0)
	emit(MetricSupplyLossPct, pl.LossPct(), "", 1.0)
	emit(MetricSupplyBreakevenPct, pl.BreakevenPct(), "", 1.0)

	sth := CostBasisCohort{BTCAmount: cohortSplit.STHBTC, WeightedPriceUSD: cohortSplit.STHWeightedPrice}
	lth := CostBasisCohort{BTCAmount: cohortSplit.LTHBTC, WeightedPriceUSD: cohortSplit.LTHWeightedPrice}
	if sth.BTCAmount > 0 {
		emit(MetricSTHCostBasis, sth.WeightedPriceUSD, "", 1.0)
		if v, ok := sth.MVRVForCohort(price); ok {
			emit(MetricSTHMVRV, v, "", 1.0)
		}
	}
	if lth.BTCAmount > 0 {
		emit(MetricLTHCostBasis, lth.WeightedPriceUSD, "", 1.0)
		if v, ok := lth.MVRVForCohort(price); ok {
			emit(MetricLTHMVRV, v, "", 1.0)
		}
	}

	windowStart := date.AddDate(0, 0, -e.cfg.BinaryCDDWindowDays)
	cdd, vdd, maxDaily, err := e.backend.CDDVDDAggregate(ctx, windowStart, date)
	if err != nil {
		return nil, fmt.Errorf("metrics: cdd/vdd: %w", err)
	}
	emit(MetricCDD, cdd, "", 1.0)
	emit(MetricVDD, vdd, "", 1.0)
	emit(MetricCDDMaxDaily, maxDaily, "", 1.0)

	dailySeries, err := e.backend.DailyCDDSeries(ctx, date, e.cfg.BinaryCDDWindowDays)
	if err != nil {
		return nil, fmt.Errorf("metrics: daily cdd series: %w", err)
	}
	zscore, flag, insufficient := BinaryCDD(dailySeries)
	if !insufficient {
		flagVal := 0.0
		if flag {
			flagVal = 1.0
		}
		emit(MetricBinaryCDD, flagVal, "", 1.0)
		emit(MetricBinaryCDDZScore, zscore, "", 1.0)
	}

	hodlBankDays, circulatingBTC, err := e.backend.HODLBank(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: hodl bank: %w", err)
	}
	if risk, ok := ReserveRisk(price, hodlBankDays, circulatingBTC); ok {
		emit(MetricReserveRisk, risk, ClassifyReserveRiskZone(risk), 1.0)
	}

	sellSideStart := date.AddDate(0, 0, -e.cfg.SellSideWindowDays)
	realizedProfit, _, err := e.backend.SellSideRiskAggregate(ctx, sellSideStart, date)
	if err != nil {
		return nil, fmt.Errorf("metrics: sell-side risk: %w", err)
	}
	if risk, ok := SellSideRisk(realizedProfit, marketCap); ok {
		zone, confidence := ClassifySellSideRiskZone(risk)
		emit(MetricSellSideRisk, risk, zone, confidence)
	}

	balances, err := e.backend.AddressBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: address balances: %w", err)
	}
	waves := ComputeWalletWaves(balances)
	for _, w := range waves {
		emit(fmt.Sprintf(metricWaveSupplyPctFmt, w.Name), w.SupplyPct, "", 1.0)
	}

	absorptionStart := date.AddDate(0, 0, -e.cfg.AbsorptionWindowDays)
	priorBalances, err := e.backend.AddressBalancesAsOf(ctx, absorptionStart)
	if err != nil {
		return nil, fmt.Errorf("metrics: prior address balances: %w", err)
	}
	priorWaves := ComputeWalletWaves(priorBalances)
	issuanceBTC := Issuance(BlockReward, float64(e.cfg.AbsorptionWindowDays))
	absorptionRates, err := ComputeAbsorptionRates(priorWaves, waves, issuanceBTC)
	if err != nil {
		return nil, fmt.Errorf("metrics: absorption rates: %w", err)
	}
	for _, r := range absorptionRates {
		emit(fmt.Sprintf(metricAbsorptionFmt, r.Band), r.Rate, "", 1.0)
	}
	if dominant, ok := DominantAbsorber(absorptionRates); ok {
		emit(MetricAbsorptionDominantBand, 0, dominant, 1.0)
	}
	cohorts := ComputeAddressCohorts(balances)
	for _, c := range cohorts {
		emit(fmt.Sprintf(metricCohortSupplyPctFmt, c.Name), c.SupplyPct, "", 1.0)
		if v, ok := c.MVRV(price); ok {
			emit(fmt.Sprintf(metricCohortCostBasisFmt, c.Name), c.WeightedPriceUSD, "", 1.0)
			emit(fmt.Sprintf(metricCohortMVRVFmt, c.Name), v, "", 1.0)
		}
	}

	netFlowStart := date.AddDate(0, 0, -e.cfg.NetFlowWindowDays)
	inflow, outflow, err := e.backend.ExchangeNetFlowAggregate(ctx, netFlowStart, date)
	if err != nil {
		return nil, fmt.Errorf("metrics: exchange net flow: %w", err)
	}
	netFlow := ExchangeNetFlow(inflow, outflow)
	emit(MetricExchangeNetFlow, netFlow, ClassifyNetFlowZone(netFlow, 0), 1.0)

	for name, threshold := range map[string]float64{"1y": RevivedThreshold1Y, "2y": RevivedThreshold2Y, "5y": RevivedThreshold5Y} {
		revivedStart := date.AddDate(0, 0, -e.cfg.RevivedWindowDays)
		revived, err := e.backend.RevivedSupplyAggregate(ctx, revivedStart, date, threshold)
		if err != nil {
			return nil, fmt.Errorf("metrics: revived supply %s: %w", name, err)
		}
		emit(MetricRevivedSupplyPrefix+name, revived, "", 1.0)
	}

	if err := e.backend.InsertMetricRows(ctx, rows); err != nil {
		return nil, fmt.Errorf("metrics: persist rows: %w", err)
	}
	return rows, nil
}
