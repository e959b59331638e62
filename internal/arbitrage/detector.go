// Package arbitrage implements the spot/perpetual basis detector (C6):
// for each tracked symbol, read both venues' top-of-book, compute the
// funding-adjusted basis, and emit a classified candidate when the net
// spread clears the admission floor.
package arbitrage

import (
	"github.com/nullhash/draizer/internal/book"
	"github.com/nullhash/draizer/internal/domain"
	"github.com/nullhash/draizer/internal/funding"
)

// The cost constants are part of the detector's contract and are
// exported as defaults; a caller (or a test) overrides them by passing
// its own Costs value to New.
const (
	// DefaultFeesBps is the combined effective round-trip fee estimate.
	DefaultFeesBps = 10.75
	// DefaultSlippageBps pads the fee estimate for expected slippage.
	DefaultSlippageBps = 2.0
	// ExpectedHoldFundingIntervals is how many funding payments a
	// cash-and-carry position is expected to pay/receive while open.
	ExpectedHoldFundingIntervals = 3.0

	// admitFloorBps is the minimum net_bps required to emit a candidate.
	admitFloorBps = 10.0
	// fatFloorBps / targetFloorBps classify admitted candidates.
	fatFloorBps    = 25.0
	targetFloorBps = 15.0

	// maxFundingBps skips detection when funding is too extreme to be a
	// reliable carry signal.
	maxFundingBps = 10.0
)

// Costs bundles the centrally-overridable constants so a caller can run
// the detector with a different cost model (e.g. in a backtest) without
// mutating package state.
type Costs struct {
	FeesBps               float64
	SlippageBps           float64
	ExpectedHoldIntervals float64
}

// DefaultCosts returns the contract's default cost model.
func DefaultCosts() Costs {
	return Costs{
		FeesBps:               DefaultFeesBps,
		SlippageBps:           DefaultSlippageBps,
		ExpectedHoldIntervals: ExpectedHoldFundingIntervals,
	}
}

func (c Costs) totalBps() float64 {
	return c.FeesBps + c.SlippageBps
}

// Detector scans a fixed set of symbols across a spot book index and a
// perpetual book index, both held in the same cache.
type Detector struct {
	cache   *book.Cache
	funding *funding.Registry
	costs   Costs

	skipCount uint64
}

// New builds a Detector over cache (shared with the matcher loop) and
// the funding registry kept current by the perpetual venue session.
func New(cache *book.Cache, fundingReg *funding.Registry, costs Costs) *Detector {
	return &Detector{cache: cache, funding: fundingReg, costs: costs}
}

// SkipCount returns the number of scans skipped due to staleness,
// crossed books, missing data, or extreme funding — the contract's "callers
// record a skip count".
func (d *Detector) SkipCount() uint64 { return d.skipCount }

// Scan evaluates one symbol across a spot book index and a perpetual
// book index (both previously resolved via book.Cache.FindOrInsert) and
// returns an opportunity when the net spread clears the admission
// floor. nowNs is the current wall-clock time used for the staleness
// check against each leg's ingest timestamp.
func (d *Detector) Scan(symbol string, spotIdx, perpIdx int, nowNs int64, detectedCycles uint64) (domain.Opportunity, bool) {
	fr := d.funding.Get(symbol)
	if abs(fr.RateBps) > maxFundingBps {
		d.skipCount++
		return domain.Opportunity{}, false
	}

	var spot, perp domain.CachedQuote
	if !d.cache.Read(spotIdx, &spot) || !d.cache.Read(perpIdx, &perp) {
		d.skipCount++
		return domain.Opportunity{}, false
	}
	if spot.Crossed() || perp.Crossed() {
		d.skipCount++
		return domain.Opportunity{}, false
	}
	if book.Stale(spotNs(spot), nowNs) || book.Stale(perpNs(perp), nowNs) {
		d.skipCount++
		return domain.Opportunity{}, false
	}

	spotMid := spot.Mid()
	perpMid := perp.Mid()
	if spotMid <= 0 || perpMid <= 0 {
		d.skipCount++
		return domain.Opportunity{}, false
	}
	if spot.Bid <= 0 || spot.Ask <= 0 || perp.Bid <= 0 || perp.Ask <= 0 {
		d.skipCount++
		return domain.Opportunity{}, false
	}

	basisBps := (perpMid - spotMid) / spotMid * 10000
	if basisBps == 0 {
		d.skipCount++
		return domain.Opportunity{}, false
	}

	var buyPx, sellPx, actualBps float64
	var buyIsSpot bool
	if basisBps > 0 {
		buyPx, sellPx = spot.Ask, perp.Bid
		buyIsSpot = true
		actualBps = (sellPx - buyPx) / buyPx * 10000
	} else {
		sellPx, buyPx = spot.Bid, perp.Ask
		buyIsSpot = false
		actualBps = (sellPx - buyPx) / sellPx * 10000
	}

	fundingSign := fr.RateBps
	if basisBps < 0 {
		fundingSign = -fr.RateBps
	}
	netBps := actualBps - d.costs.totalBps() - d.costs.ExpectedHoldIntervals*fundingSign

	if netBps < admitFloorBps {
		d.skipCount++
		return domain.Opportunity{}, false
	}

	class := domain.ClassMin
	switch {
	case netBps >= fatFloorBps:
		class = domain.ClassFat
	case netBps >= targetFloorBps:
		class = domain.ClassTarget
	}

	buyVenueIdx, sellVenueIdx := perpIdx, spotIdx
	buyLegCycles, sellLegCycles := perp.IngestCycles, spot.IngestCycles
	if buyIsSpot {
		buyVenueIdx, sellVenueIdx = spotIdx, perpIdx
		buyLegCycles, sellLegCycles = spot.IngestCycles, perp.IngestCycles
	}

	return domain.Opportunity{
		Symbol:         symbol,
		BuyVenueIdx:    buyVenueIdx,
		SellVenueIdx:   sellVenueIdx,
		BuyPrice:       buyPx,
		SellPrice:      sellPx,
		GrossBps:       actualBps,
		NetBps:         netBps,
		Class:          class,
		DetectedCycles: detectedCycles,
		BuyLegCycles:   buyLegCycles,
		SellLegCycles:  sellLegCycles,
		CrossVenue:     true,
	}, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// spotNs/perpNs convert a cache entry's ingest_cycles into a comparable
// nanosecond stamp. The cache stores cycles, not wall-clock ns; the
// matcher loop is responsible for cycle→ns conversion before staleness
// comparisons reach here, so these accessors just forward the field —
// kept as named helpers so the conversion site is easy to find if the
// detector ever needs to do the conversion itself.
func spotNs(q domain.CachedQuote) int64 { return int64(q.IngestCycles) }
func perpNs(q domain.CachedQuote) int64 { return int64(q.IngestCycles) }
