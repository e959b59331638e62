package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullhash/draizer/internal/domain"
)

func newTestState() *domain.RiskState {
	rs := domain.NewRiskState(10000)
	rs.Strategies[domain.StrategyCrossExchange].Enabled = true
	rs.Strategies[domain.StrategyCrossExchange].MaxPositionUSD = 100000
	rs.Strategies[domain.StrategyCrossExchange].MinProfitUSD = 0.01
	return rs
}

func baseCandidate(rs *domain.RiskState, nowNs int64) Candidate {
	return Candidate{
		Strategy:   domain.StrategyCrossExchange,
		Symbol:     "ETHUSD",
		BuyVenue:   "spot",
		SellVenue:  "perp",
		Qty:        1,
		BuyPrice:   100,
		SellPrice:  100.30, // 30 bps gross, clears the 8bps cross-venue floor net of 22bps cost
		LatencyUs:  5,
		NowNs:      nowNs,
		CrossVenue: true,
	}
}

func TestCheckRejectsDisabledStrategy(t *testing.T) {
	rs := newTestState()
	rs.Strategies[domain.StrategyCrossExchange].Enabled = false
	admit, reason := Check(rs, baseCandidate(rs, 1))
	assert.False(t, admit)
	assert.Equal(t, ReasonStrategyDisabled, reason)
}

func TestCheckAdmitsHealthyCandidate(t *testing.T) {
	rs := newTestState()
	admit, reason := Check(rs, baseCandidate(rs, 1))
	require.True(t, admit, "reason: %s", reason)
}

func TestCheckPerSecondLimitRejectsThe501st(t *testing.T) {
	rs := newTestState()
	rs.Strategies[domain.StrategyCrossExchange].MinProfitUSD = 0 // isolate the rate-limit check

	var lastReason Reason
	var lastAdmit bool
	for i := 0; i < 500; i++ {
		lastAdmit, lastReason = Check(rs, baseCandidate(rs, 1))
		require.True(t, lastAdmit, "candidate %d rejected: %s", i, lastReason)
	}
	admit, reason := Check(rs, baseCandidate(rs, 1))
	assert.False(t, admit)
	assert.Equal(t, ReasonRateLimited, reason)

	// First candidate in the next second is admitted again.
	admit, _ = Check(rs, baseCandidate(rs, int64(2_000_000_000)))
	assert.True(t, admit)
}

func TestCheckCircuitBreakerOverrideConsumedThenExhausted(t *testing.T) {
	rs := newTestState()
	rs.Breaker.Active = true
	rs.Breaker.OverridesLeft = 1
	rs.Strategies[domain.StrategyCrossExchange].MinProfitUSD = 1

	c := baseCandidate(rs, 1)
	c.BuyPrice = 100
	c.SellPrice = 102.5 // expected profit comfortably above 2x min_profit_usd

	admit, reason := Check(rs, c)
	require.True(t, admit, "reason: %s", reason)
	assert.Equal(t, 0, rs.Breaker.OverridesLeft)

	admit, reason = Check(rs, c)
	assert.False(t, admit)
	assert.Equal(t, ReasonBreakerExhausted, reason)
}

func TestCheckRejectsWhenBreakerActiveAndNotCrossVenue(t *testing.T) {
	rs := newTestState()
	rs.Breaker.Active = true
	rs.Breaker.OverridesLeft = 5
	c := baseCandidate(rs, 1)
	c.CrossVenue = false

	admit, reason := Check(rs, c)
	assert.False(t, admit)
	assert.Equal(t, ReasonBreakerActive, reason)
}

func TestDailyResetOnBoundaryCrossing(t *testing.T) {
	rs := newTestState()
	rs.Strategies[domain.StrategyCrossExchange].OrdersToday = 999_999
	rs.Strategies[domain.StrategyCrossExchange].CurrentMultiplier = 1.8
	rs.Breaker.OverridesLeft = 3
	rs.DayBucket = 0

	admit, reason := Check(rs, baseCandidate(rs, dayBucketNs+1))
	require.True(t, admit, "reason: %s", reason)
	assert.Equal(t, 100, rs.Breaker.OverridesLeft-0) // reset then one admit doesn't consume an override
	assert.Equal(t, 1.0, rs.Strategies[domain.StrategyCrossExchange].CurrentMultiplier)
}

func TestRecordTradeTracksWinRateAndBalance(t *testing.T) {
	rs := newTestState()
	RecordTrade(rs, domain.StrategyCrossExchange, 5, 8)
	RecordTrade(rs, domain.StrategyCrossExchange, -2, 50)

	strat := rs.Strategies[domain.StrategyCrossExchange]
	assert.Equal(t, int64(2), strat.TotalTrades)
	assert.Equal(t, int64(1), strat.WinningTrades)
	assert.InDelta(t, 3.0, strat.CumulativePnL, 1e-9)
	assert.InDelta(t, 10003.0, rs.BalanceUSD, 1e-9)
	assert.Equal(t, int64(1), rs.SubTenUsTrades)
}

func TestUpdateRegimeStampsTransition(t *testing.T) {
	rs := newTestState()
	UpdateRegime(rs, 60, 60, 100)
	assert.Equal(t, domain.RegimeExtreme, rs.Regime)
	assert.Equal(t, int64(100), rs.RegimeChangedNs)

	UpdateRegime(rs, 60, 60, 200)
	assert.Equal(t, int64(100), rs.RegimeChangedNs, "no-op regime update should not restamp")
}

func TestUpdateNetExposureComputesHedged(t *testing.T) {
	rs := newTestState()
	UpdateNetExposure(rs, "BTCUSD", "buy", 100)
	UpdateNetExposure(rs, "BTCUSD", "sell", 99.9)

	exp := rs.Exposure["BTCUSD"]
	require.NotNil(t, exp)
	assert.True(t, exp.Hedged)
}

func TestUpdateLiquidityComputesMaxSafeSize(t *testing.T) {
	rs := newTestState()
	UpdateLiquidity(rs, "BTCUSD", "spot", 1000, 500)
	snap := rs.Liquidity["BTCUSD|spot"]
	require.NotNil(t, snap)
	assert.InDelta(t, 50.0, snap.MaxSafeSizeUSD, 1e-9)
}

func TestMultiplierStaysWithinClampedBounds(t *testing.T) {
	rs := newTestState()
	strat := &rs.Strategies[domain.StrategyCrossExchange]
	strat.TotalTrades = 200
	strat.WinningTrades = 190
	strat.CumulativePnL = 500
	strat.CurrentMultiplier = 1.999

	rampMultiplier(strat)
	assert.LessOrEqual(t, strat.CurrentMultiplier, domain.MultiplierCeil)

	strat.CurrentMultiplier = 0.501
	strat.WinningTrades = 10
	rampMultiplier(strat)
	assert.GreaterOrEqual(t, strat.CurrentMultiplier, domain.MultiplierFloor)
}
