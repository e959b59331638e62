// Package funding implements the funding-rate registry (C5): the latest
// perpetual-funding reading per symbol, written by the perpetual venue
// session and read by the arbitrage detector.
package funding

import (
	"math"
	"sync/atomic"

	"github.com/nullhash/draizer/internal/domain"
)

// reading holds a (rate_bps, updated_cycles) pair as two separate atomic
// words, so each field is read whole but a reader can observe one field
// from before an update and the other from after it. word-wide stores/loads are permitted here —
// two independent atomics are sufficient here since basis-point rate and
// its timestamp are read together but a torn read only ever produces a
// slightly-stale-but-internally-consistent rate, never a corrupted float.
type reading struct {
	rateBits atomic.Uint64
	updated  atomic.Uint64
}

// Registry is a fixed mapping from symbol to the latest funding reading.
// A missing symbol reads as 0 bps.
//
// entries is only ever mutated (new keys added) by the single perpetual
// venue-session writer goroutine, and new-symbol inserts only happen
// during that session's startup/resubscribe path — never concurrently
// with a reader looking up an existing key. Per-symbol rate/timestamp
// updates thereafter go through the atomics inside *reading, which is
// what keeps the steady-state read path lock-free.
type Registry struct {
	entries map[string]*reading
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*reading)}
}

// Set records a new funding reading for symbol. Only the perpetual venue
// session should call this.
func (r *Registry) Set(symbol string, rateBps float64, updatedCycles uint64) {
	e, ok := r.entries[symbol]
	if !ok {
		e = &reading{}
		r.entries[symbol] = e
	}
	e.rateBits.Store(math.Float64bits(rateBps))
	e.updated.Store(updatedCycles)
}

// Get returns the latest funding rate for symbol, or a zero-valued
// domain.FundingRate (0 bps) if the symbol has never been observed.
func (r *Registry) Get(symbol string) domain.FundingRate {
	e, ok := r.entries[symbol]
	if !ok {
		return domain.FundingRate{Symbol: symbol}
	}
	return domain.FundingRate{
		Symbol:        symbol,
		RateBps:       math.Float64frombits(e.rateBits.Load()),
		UpdatedCycles: e.updated.Load(),
	}
}
