// Package risk implements the constant-time HFT risk gate (C7): a
// single `Check` operation combining time-windowed rate limits,
// regime-dependent sizing, a modulated spread floor, net-exposure and
// circuit-breaker checks, plus the state-update operations that feed it
// (trade recording, regime transitions, exposure/liquidity tracking,
// daily reset).
package risk

import (
	"strings"

	"github.com/nullhash/draizer/internal/domain"
)

// Reason names why Check rejected a candidate. The zero value
// ReasonNone is never returned alongside admit=false.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonStrategyDisabled  Reason = "strategy_disabled"
	ReasonRateLimited       Reason = "rate_limited"
	ReasonPositionCap       Reason = "position_cap"
	ReasonSpreadFloor       Reason = "spread_floor"
	ReasonLowPriorityThin   Reason = "low_priority_thin_liquidity"
	ReasonProfitFloor       Reason = "profit_floor"
	ReasonNetExposure       Reason = "net_exposure"
	ReasonBreakerActive     Reason = "breaker_active"
	ReasonBreakerExhausted  Reason = "breaker_overrides_exhausted"
)

const dayBucketNs = int64(86_400_000_000_000)

// Candidate bundles one check() call's inputs.
type Candidate struct {
	Strategy        domain.StrategyID
	Symbol          string
	BuyVenue        string
	SellVenue       string
	Qty             float64
	BuyPrice        float64
	SellPrice       float64
	DetectedCycles  uint64
	LatencyUs       float64
	NowNs           int64
	CrossVenue      bool
}

// Check runs the nine-step admission evaluation against rs and returns
// whether the candidate is admitted, and if not, why. On admission every
// hard time-window counter is advanced and, once the strategy has ≥100
// trades on record, its multiplier is ramped per CHECK 9.
func Check(rs *domain.RiskState, c Candidate) (bool, Reason) {
	maybeResetDaily(rs, c.NowNs)

	if !c.Strategy.Valid() {
		return false, ReasonStrategyDisabled
	}
	strat := &rs.Strategies[c.Strategy]
	if !strat.Enabled {
		return false, ReasonStrategyDisabled
	}

	rs.MicroBurst.Advance(c.NowNs)
	rs.PerSecond.Advance(c.NowNs)
	rs.PerMinute.Advance(c.NowNs)
	rs.PerDay.Advance(c.NowNs)

	if rs.PerSecond.HitLimit() || rs.PerMinute.HitLimit() || rs.PerDay.HitLimit() {
		return false, ReasonRateLimited
	}
	// MicroBurst is a soft limit: exceeding it is noted (callers may log)
	// but never rejects on its own.

	orderValue := c.Qty * c.BuyPrice
	adjustedCap := positionCap(strat, rs.Regime, c.LatencyUs)
	if orderValue > adjustedCap {
		return false, ReasonPositionCap
	}

	liq := liquidityFor(rs, c.Symbol, c.BuyVenue)
	spreadBps := (c.SellPrice - c.BuyPrice) / c.BuyPrice * 10000
	floor := spreadFloor(c.Symbol, c.CrossVenue, rs.Regime, liq.LiquidityRatio())
	netSpreadBps := spreadBps - 2*10 - 2
	if netSpreadBps < floor {
		return false, ReasonSpreadFloor
	}

	priority := spreadPriority(spreadBps)
	if priority == 3 && liq.LiquidityRatio() < 0.7 {
		return false, ReasonLowPriorityThin
	}

	expectedProfit := netSpreadBps / 10000 * orderValue
	if expectedProfit < strat.MinProfitUSD {
		return false, ReasonProfitFloor
	}

	if !c.CrossVenue {
		exp := rs.Exposure[c.Symbol]
		var currentNet float64
		if exp != nil {
			currentNet = exp.Net
		}
		if absF(currentNet+c.Qty) > 5*rs.BalanceUSD {
			return false, ReasonNetExposure
		}
	}

	if rs.Breaker.Active {
		if !c.CrossVenue || expectedProfit < 2*strat.MinProfitUSD {
			return false, ReasonBreakerActive
		}
		if rs.Breaker.OverridesLeft <= 0 {
			return false, ReasonBreakerExhausted
		}
		rs.Breaker.OverridesLeft--
	}

	rs.MicroBurst.Count++
	rs.PerSecond.Count++
	rs.PerMinute.Count++
	rs.PerDay.Count++
	strat.OrdersToday++

	rampMultiplier(strat)

	return true, ReasonNone
}

// positionCap computes CHECK 3's adjusted position cap.
func positionCap(strat *domain.StrategySlot, regime domain.MarketRegime, latencyUs float64) float64 {
	cap := strat.MaxPositionUSD * strat.CurrentMultiplier
	switch {
	case latencyUs < 10:
		cap *= 1.5
	case latencyUs < 50:
		cap *= 1.2
	}
	cap *= regime.SizeMultiplier()
	return cap
}

// spreadFloor computes CHECK 4's base floor and regime/liquidity
// modulation.
func spreadFloor(symbol string, crossVenue bool, regime domain.MarketRegime, liquidityRatio float64) float64 {
	var base float64
	switch {
	case strings.Contains(symbol, "BTC"):
		base = 4
	case crossVenue:
		base = 8
	default:
		base = 6
	}
	if liquidityRatio > 0.8 {
		base *= 0.75
	}
	base *= regime.SpreadFloorMultiplier()
	return base
}

// spreadPriority buckets a candidate by gross spread (CHECK 5).
func spreadPriority(spreadBps float64) int {
	switch {
	case spreadBps >= 25:
		return 0
	case spreadBps >= 20:
		return 1
	case spreadBps >= 15:
		return 2
	default:
		return 3
	}
}

// rampMultiplier applies CHECK 9's performance-adaptive ramp, only once
// the strategy has a large enough trade sample.
func rampMultiplier(strat *domain.StrategySlot) {
	if strat.TotalTrades < 100 {
		return
	}
	winRate := strat.WinRate()
	switch {
	case winRate > 0.75 && strat.CumulativePnL > 0:
		strat.CurrentMultiplier *= 1.01
	case winRate < 0.5 || strat.CumulativePnL < -100:
		strat.CurrentMultiplier *= 0.99
	}
	strat.ClampMultiplier()
}

func liquidityFor(rs *domain.RiskState, symbol, venue string) domain.LiquiditySnapshot {
	if snap, ok := rs.Liquidity[symbol+"|"+venue]; ok {
		return *snap
	}
	return domain.LiquiditySnapshot{Symbol: symbol, Venue: venue}
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// maybeResetDaily triggers ResetDaily exactly once per day-bucket
// rollover, matching the gate's "triggered automatically when the day
// bucket changes inside check".
func maybeResetDaily(rs *domain.RiskState, nowNs int64) {
	bucket := nowNs / dayBucketNs
	if bucket == rs.DayBucket {
		return
	}
	rs.DayBucket = bucket
	ResetDaily(rs)
}

// ResetDaily zeros per-day counters, restores the override pool, and
// resets every strategy's multiplier to 1.0 (the gate's invariants).
func ResetDaily(rs *domain.RiskState) {
	for i := range rs.Strategies {
		rs.Strategies[i].OrdersToday = 0
		rs.Strategies[i].CurrentMultiplier = 1.0
	}
	rs.Breaker.OverridesLeft = 100
	rs.PerDay.Count = 0
}

// RecordTrade folds a completed trade's outcome into rs outside of
// Check: trade counts, streaks, balance, PnL, latency EMA, and the
// sub-10μs counter.
func RecordTrade(rs *domain.RiskState, strategy domain.StrategyID, pnl, latencyUs float64) {
	if !strategy.Valid() {
		return
	}
	strat := &rs.Strategies[strategy]
	strat.TotalTrades++
	if pnl > 0 {
		strat.WinningTrades++
		strat.WinStreak++
		strat.LossStreak = 0
	} else {
		strat.WinStreak = 0
		strat.LossStreak++
	}
	strat.CumulativePnL += pnl
	rs.BalanceUSD += pnl

	rs.AvgLatencyUsEMA = 0.95*rs.AvgLatencyUsEMA + 0.05*latencyUs
	if latencyUs < 10 {
		rs.SubTenUsTrades++
	}
}

// UpdateRegime reclassifies the market regime from 1-minute realized
// volatility and average spread, stamping the transition cycle when the
// regime actually changes.
func UpdateRegime(rs *domain.RiskState, volatility1m, avgSpreadBps float64, nowNs int64) {
	var next domain.MarketRegime
	switch {
	case volatility1m < 5 && avgSpreadBps < 5:
		next = domain.RegimeLowVol
	case volatility1m < 20 && avgSpreadBps < 20:
		next = domain.RegimeNormal
	case volatility1m < 50 && avgSpreadBps < 50:
		next = domain.RegimeHighVol
	default:
		next = domain.RegimeExtreme
	}
	if next != rs.Regime {
		rs.Regime = next
		rs.RegimeChangedNs = nowNs
	}
}

// UpdateNetExposure upserts the net-exposure entry for symbol after a
// fill of size qty on the given side ("buy" increases Long, any other
// value increases Short).
func UpdateNetExposure(rs *domain.RiskState, symbol, side string, qty float64) {
	exp, ok := rs.Exposure[symbol]
	if !ok {
		if len(rs.Exposure) >= 50 {
			return // table full; the table caps at 50 entries
		}
		exp = &domain.NetExposure{Symbol: symbol}
		rs.Exposure[symbol] = exp
	}
	if side == "buy" {
		exp.Long += qty
	} else {
		exp.Short += qty
	}
	exp.Net = exp.Long - exp.Short
	bigger := exp.Long
	if exp.Short > bigger {
		bigger = exp.Short
	}
	exp.Hedged = bigger > 0 && absF(exp.Net) < 0.01*bigger
}

// UpdateLiquidity records a fresh (symbol, venue) liquidity snapshot.
func UpdateLiquidity(rs *domain.RiskState, symbol, venue string, bidVolumeUSD, askVolumeUSD float64) {
	key := symbol + "|" + venue
	snap, ok := rs.Liquidity[key]
	if !ok {
		if len(rs.Liquidity) >= 100 {
			return // table full; the table caps at 100 entries
		}
		snap = &domain.LiquiditySnapshot{Symbol: symbol, Venue: venue}
		rs.Liquidity[key] = snap
	}
	snap.BidVolumeUSD = bidVolumeUSD
	snap.AskVolumeUSD = askVolumeUSD
	smaller := bidVolumeUSD
	if askVolumeUSD < smaller {
		smaller = askVolumeUSD
	}
	snap.MaxSafeSizeUSD = 0.1 * smaller
}
