// Package book implements the seqlock-protected top-of-book cache (C3):
// a small fixed-capacity table keyed by (symbol, venue), written
// exclusively by the matcher loop and read by the detector (and, for
// metrics, anyone else).
package book

import (
	"sync/atomic"

	"github.com/nullhash/draizer/internal/domain"
)

// DefaultCapacity is the recommended table size (keeping to a "fixed capacity
// (≤1000)").
const DefaultCapacity = 1000

// staleAfterNs is the detector's staleness window (the detector's edge-case rules): any
// cache entry older than this must be rejected.
const staleAfterNs = int64(1_000_000_000)

// entry wraps a domain.CachedQuote with its own atomic sequence word, so
// the seqlock protocol (odd = writer busy, even = stable) is enforced
// independently of the payload copy.
type entry struct {
	seq atomic.Uint64
	key key
	// payload fields, mutated only between seq going odd and even again
	bid          float64
	ask          float64
	ingestCycles uint64
}

type key struct {
	symbol string
	venue  string
}

// Cache is the fixed-capacity top-of-book table. find_or_insert is only
// ever called by the matcher goroutine (the sole writer); Read may be
// called by any number of reader goroutines concurrently.
type Cache struct {
	// entries is append-only for the engine's lifetime (following the rule of "no
	// deletion during the engine's lifetime"), so readers can range over
	// a snapshot slice without locking against inserts racing a read of
	// an unrelated index. New entries are only ever appended by the
	// single writer.
	entries  []*entry
	index    map[key]int
	capacity int
}

// FullIndex is returned by FindOrInsert when the table is at capacity and
// the key is not already present.
const FullIndex = -1

// New creates a Cache with the given capacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make([]*entry, 0, capacity),
		index:    make(map[key]int, capacity),
		capacity: capacity,
	}
}

// FindOrInsert returns the index for (symbol, venue), appending a new
// zero-valued entry if the key hasn't been seen before. Returns
// FullIndex if the table is full and the key is new. Writer-only.
func (c *Cache) FindOrInsert(symbol, venue string) int {
	k := key{symbol: symbol, venue: venue}
	if idx, ok := c.index[k]; ok {
		return idx
	}
	if len(c.entries) >= c.capacity {
		return FullIndex
	}
	e := &entry{key: k}
	idx := len(c.entries)
	c.entries = append(c.entries, e)
	c.index[k] = idx
	return idx
}

// Update is the writer side of the seqlock . bid/ask are the
// two-sided book; if the producer only supplied a mid-price, callers
// should derive bid/ask with domain.SyntheticBidAsk before calling
// Update — the cache itself doesn't know whether a quote was one- or
// two-sided.
func (c *Cache) Update(idx int, bid, ask float64, ingestCycles uint64) {
	e := c.entries[idx]
	s := e.seq.Load()
	e.seq.Store(s + 1) // odd: writer busy
	e.bid = bid
	e.ask = ask
	e.ingestCycles = ingestCycles
	e.seq.Store(s + 2) // even: stable again
}

// Read is the reader side of the seqlock : it spins until it
// observes a stable (even) sequence both before and after copying the
// payload, guaranteeing the copy is atomic with respect to Update. It
// returns false if idx is out of range.
func (c *Cache) Read(idx int, out *domain.CachedQuote) bool {
	if idx < 0 || idx >= len(c.entries) {
		return false
	}
	e := c.entries[idx]
	for {
		s1 := e.seq.Load()
		if s1&1 == 1 {
			continue // writer in progress, retry
		}
		bid, ask, ic := e.bid, e.ask, e.ingestCycles
		s2 := e.seq.Load()
		if s1 == s2 {
			out.Sequence = s1
			out.Bid = bid
			out.Ask = ask
			out.IngestCycles = ic
			copy(out.Symbol[:], e.key.symbol)
			for i := len(e.key.symbol); i < len(out.Symbol); i++ {
				out.Symbol[i] = 0
			}
			copy(out.Venue[:], e.key.venue)
			for i := len(e.key.venue); i < len(out.Venue); i++ {
				out.Venue[i] = 0
			}
			return true
		}
		// Writer progressed mid-read: retry.
	}
}

// Stale reports whether a reading with the given ingest_cycles, converted
// to nanoseconds via nowNs-ingestNs, exceeds the detector's 1s staleness
// window.
func Stale(ingestNs, nowNs int64) bool {
	return nowNs-ingestNs > staleAfterNs
}

// Len returns the number of distinct (symbol, venue) keys currently
// tracked.
func (c *Cache) Len() int { return len(c.entries) }
