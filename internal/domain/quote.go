// Package domain holds the pure value types shared across the ingestion,
// detection, risk, and IPC components. Nothing in this package depends on
// any other internal package — it is the vocabulary the rest of the
// engine is written in.
package domain

const (
	// MaxSymbolLen is the fixed byte capacity for a Quote.Symbol field.
	MaxSymbolLen = 11
	// MaxVenueLen is the fixed byte capacity for a Quote.Venue field.
	MaxVenueLen = 7
)

// Quote is the element carried across the SPSC ring (C2) from a venue
// session to the matcher loop. It is immutable once published: a venue
// session writes every field before pushing, and the matcher only reads.
//
// Invariant: Valid ⇒ MidPrice > 0 ∧ AggregateSize ≥ 0.
//
// The field order below is chosen so the compiler's natural alignment
// padding (6 bytes before MidPrice, 7 after Valid) rounds sizeof(Quote) up
// to exactly 64 bytes — one cache line — without an explicit padding
// field.
type Quote struct {
	Symbol        [MaxSymbolLen]byte
	Venue         [MaxVenueLen]byte
	MidPrice      float64
	AggregateSize float64
	IngestCycles  uint64
	Sequence      uint64
	Valid         bool
}

// NewQuote builds a Quote from string fields, truncating symbol/venue to
// their fixed capacity. Truncation is a defensive measure for malformed
// upstream data; the venue session is expected to only ever pass canonical,
// already-bounded identifiers.
func NewQuote(symbol, venue string, mid, size float64, ingestCycles, sequence uint64) Quote {
	q := Quote{
		MidPrice:      mid,
		AggregateSize: size,
		IngestCycles:  ingestCycles,
		Sequence:      sequence,
		Valid:         mid > 0 && size >= 0,
	}
	copyBounded(q.Symbol[:], symbol)
	copyBounded(q.Venue[:], venue)
	return q
}

func copyBounded(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// SymbolString returns the null-padded fixed array as a trimmed Go string.
func (q Quote) SymbolString() string { return trimZero(q.Symbol[:]) }

// VenueString returns the null-padded fixed array as a trimmed Go string.
func (q Quote) VenueString() string { return trimZero(q.Venue[:]) }

func trimZero(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

// syntheticSpreadHalf is half of the 1bps spread the top-of-book cache
// synthesizes around a mid-only quote ("derivation").
const syntheticSpreadHalf = 5e-5

// SyntheticBidAsk derives a bid/ask pair around a mid-price for venues
// that only publish a mid (no true two-sided book).
func SyntheticBidAsk(mid float64) (bid, ask float64) {
	return mid * (1 - syntheticSpreadHalf), mid * (1 + syntheticSpreadHalf)
}

// CachedQuote is an entry in the top-of-book cache (C3). The Sequence
// field implements the seqlock protocol: even means stable, odd means a
// writer is in progress. Callers never construct this directly except
// inside the book package, which owns the seqlock encapsulation; it lives
// in domain purely as the bit-for-bit payload shape.
type CachedQuote struct {
	Sequence     uint64
	Symbol       [MaxSymbolLen]byte
	Venue        [MaxVenueLen]byte
	Bid          float64
	Ask          float64
	IngestCycles uint64
}

// SymbolString returns the null-padded fixed array as a trimmed Go string.
func (c CachedQuote) SymbolString() string { return trimZero(c.Symbol[:]) }

// VenueString returns the null-padded fixed array as a trimmed Go string.
func (c CachedQuote) VenueString() string { return trimZero(c.Venue[:]) }

// Mid returns the midpoint of Bid/Ask.
func (c CachedQuote) Mid() float64 { return (c.Bid + c.Ask) / 2 }

// Crossed reports whether the book is crossed (ask <= bid), which the
// detector must treat as unusable data.
func (c CachedQuote) Crossed() bool { return c.Ask <= c.Bid }
