// Package engine wires the lock-free primitives into the two
// cooperating loops the supervisor pins to distinct cores: the matcher
// (C9), which drains quotes, runs detection, and gates candidates; and
// the reader (C10), which pumps venue sessions.
package engine

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/nullhash/draizer/internal/arbitrage"
	"github.com/nullhash/draizer/internal/book"
	"github.com/nullhash/draizer/internal/cycles"
	"github.com/nullhash/draizer/internal/domain"
	"github.com/nullhash/draizer/internal/funding"
	"github.com/nullhash/draizer/internal/quotering"
	"github.com/nullhash/draizer/internal/risk"
	"github.com/nullhash/draizer/internal/shm"
)

// maxQuotesDrainedPerIteration caps how many quotes the matcher pulls off
// the ring in one pass, so one bursty venue can't starve detection on
// every other symbol.
const maxQuotesDrainedPerIteration = 100

// maxCandidatesPerIteration caps how many symbols get a detector scan
// per matcher iteration.
const maxCandidatesPerIteration = 10

// tradeNotionalUSD is the fixed notional used to size every paper
// candidate, matching the contract's "a fixed 100-USD notional".
const tradeNotionalUSD = 100.0

// SymbolVenues pairs a symbol with the two book-cache indices the
// detector scans: one for the spot leg, one for the perpetual leg.
type SymbolVenues struct {
	Symbol  string
	SpotIdx int
	PerpIdx int
}

// Matcher is C9: it owns the sole write access to the top-of-book cache
// and the shared-memory header.
type Matcher struct {
	ring     *quotering.Ring
	cache    *book.Cache
	funding  *funding.Registry
	detector *arbitrage.Detector
	riskST   *domain.RiskState
	region   *shm.Region
	clock    *cycles.Clock
	symbols  []SymbolVenues
	spotVenue, perpVenue string

	nextOpID      uint64
	secondResetAt time.Time
	iterations    uint64
	heartbeat     *rate.Limiter
}

// NewMatcher builds a Matcher. spotVenue/perpVenue name the two venue
// tags the cache keys quotes under for each tracked symbol.
func NewMatcher(
	ring *quotering.Ring,
	cache *book.Cache,
	fundingReg *funding.Registry,
	detector *arbitrage.Detector,
	riskState *domain.RiskState,
	region *shm.Region,
	clock *cycles.Clock,
	symbols []string,
	spotVenue, perpVenue string,
) *Matcher {
	m := &Matcher{
		ring:      ring,
		cache:     cache,
		funding:   fundingReg,
		detector:  detector,
		riskST:    riskState,
		region:    region,
		clock:     clock,
		spotVenue: spotVenue,
		perpVenue: perpVenue,
		heartbeat: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	for _, sym := range symbols {
		m.symbols = append(m.symbols, SymbolVenues{
			Symbol:  sym,
			SpotIdx: cache.FindOrInsert(sym, spotVenue),
			PerpIdx: cache.FindOrInsert(sym, perpVenue),
		})
	}
	m.secondResetAt = time.Now()
	return m
}

// RunOnce executes one matcher iteration: drain, detect, gate, publish.
// The supervisor calls this in a tight busy loop from a pinned core —
// it must never sleep.
func (m *Matcher) RunOnce() {
	m.drainQuotes()
	m.maybeResetPerSecond()

	scanned := 0
	nowNs := time.Now().UnixNano()
	for _, sv := range m.symbols {
		if scanned >= maxCandidatesPerIteration {
			break
		}
		scanned++

		opp, ok := m.detector.Scan(sv.Symbol, sv.SpotIdx, sv.PerpIdx, nowNs, cycles.NowCycles())
		if !ok {
			continue
		}
		m.handleOpportunity(opp, nowNs)
	}

	m.iterations++
	if m.heartbeat.Allow() {
		slog.Info("matcher heartbeat",
			"iterations", m.iterations,
			"tracked_symbols", len(m.symbols),
			"skip_count", m.detector.SkipCount(),
			"balance_usd", m.riskST.BalanceUSD,
		)
	}
}

func (m *Matcher) drainQuotes() {
	var q domain.Quote
	for i := 0; i < maxQuotesDrainedPerIteration; i++ {
		if !m.ring.Pop(&q) {
			return
		}
		symbol := q.SymbolString()
		venue := q.VenueString()
		idx := m.cache.FindOrInsert(symbol, venue)
		if idx == book.FullIndex {
			continue // table full; drop the update, matching capacity-full taxonomy
		}
		bid, ask := domain.SyntheticBidAsk(q.MidPrice)
		m.cache.Update(idx, bid, ask, q.IngestCycles)
	}
}

func (m *Matcher) handleOpportunity(opp domain.Opportunity, nowNs int64) {
	quantity := tradeNotionalUSD / opp.BuyPrice
	latencyUs := float64(m.clock.ElapsedUs(opp.DetectedCycles))

	admit, reason := risk.Check(m.riskST, risk.Candidate{
		Strategy:       domain.StrategyCrossExchange,
		Symbol:         opp.Symbol,
		BuyVenue:       m.venueName(opp.BuyVenueIdx),
		SellVenue:      m.venueName(opp.SellVenueIdx),
		Qty:            quantity,
		BuyPrice:       opp.BuyPrice,
		SellPrice:      opp.SellPrice,
		DetectedCycles: opp.DetectedCycles,
		LatencyUs:      latencyUs,
		NowNs:          nowNs,
		CrossVenue:     opp.CrossVenue,
	})
	m.region.Header.OppsDetected++

	if !admit {
		slog.Debug("candidate rejected", "symbol", opp.Symbol, "reason", reason, "net_bps", opp.NetBps)
		return
	}

	profit := opp.NetBps / 10000 * tradeNotionalUSD
	risk.RecordTrade(m.riskST, domain.StrategyCrossExchange, profit, latencyUs)
	risk.UpdateNetExposure(m.riskST, opp.Symbol, "buy", quantity)

	m.publish(opp, quantity, profit, latencyUs, nowNs)
}

func (m *Matcher) publish(opp domain.Opportunity, quantity, profit, latencyUs float64, nowNs int64) {
	m.nextOpID++
	op := domain.ShmOperation{
		ID:          m.nextOpID,
		TimestampNs: nowNs,
		Quantity:    quantity,
		EntryPrice:  opp.BuyPrice,
		ExitPrice:   opp.SellPrice,
		PnL:         profit,
		SpreadBps:   opp.NetBps,
		FeesPaid:    (arbitrage.DefaultFeesBps + arbitrage.DefaultSlippageBps) / 10000 * tradeNotionalUSD,
		IsOpen:      false, // arbitrage closes instantly in paper mode 
	}
	if profit > 0 {
		op.PnLPercent = profit / tradeNotionalUSD * 100
	}
	copy(op.Type[:], "arbitrage")
	copy(op.Strategy[:], "cross_exchange")
	copy(op.Symbol[:], opp.Symbol)
	copy(op.BuyVenue[:], m.venueName(opp.BuyVenueIdx))
	copy(op.SellVenue[:], m.venueName(opp.SellVenueIdx))

	shm.PushOperation(m.region.Header, op)

	h := m.region.Header
	h.OppsExecuted++
	h.OrdersPlaced++
	h.OrdersFilled++
	h.TotalProfitUSD += profit
	h.BalanceUSD = m.riskST.BalanceUSD
	if profit > 0 {
		h.Wins++
	} else {
		h.Losses++
	}
	if h.Wins+h.Losses > 0 {
		h.WinRate = float64(h.Wins) / float64(h.Wins+h.Losses)
	}
	shm.UpdateStats(h, latencyUs, float64(nowNs), m.riskST.AvgLatencyUsEMA)
}

func (m *Matcher) maybeResetPerSecond() {
	if time.Since(m.secondResetAt) < time.Second {
		return
	}
	m.secondResetAt = time.Now()
	m.riskST.PerSecond.Count = 0
}

// venueName resolves a book-cache index back to its venue tag for
// display and ShmOperation fields. Both indices the detector returns
// were produced by FindOrInsert(symbol, spotVenue|perpVenue), so the
// lookup only ever needs to distinguish those two tags.
func (m *Matcher) venueName(idx int) string {
	for _, sv := range m.symbols {
		if sv.SpotIdx == idx {
			return m.spotVenue
		}
		if sv.PerpIdx == idx {
			return m.perpVenue
		}
	}
	return ""
}
