// Package venue provides concrete VenueSession implementations: one spot
// protocol session and one perpetual-futures protocol session. Wire
// framing and parsing are explicitly out of scope for rigor,
// but a complete, runnable implementation is still required, so this
// package implements a plausible JSON tick format over a WebSocket
// connection.
package venue

import (
	"fmt"
	"time"

	"github.com/relvacode/iso8601"
	"github.com/valyala/fastjson"
)

// tick is the parsed form of one inbound frame: {symbol, bid, ask,
// venue_timestamp} or {symbol, mid, size, venue_timestamp}, optionally
// carrying a perpetual funding field. fastjson is used instead of
// encoding/json specifically because this is the one genuinely hot path
// in the whole engine that still touches a text format: it parses into a
// reusable scratch arena with zero struct allocation per tick, which
// matters when a venue session must never block the reader thread for
// more than one kernel poll.
type tick struct {
	symbol      string
	hasBidAsk   bool
	bid         float64
	ask         float64
	mid         float64
	size        float64
	hasFunding  bool
	fundingFrac float64 // raw fraction as sent on the wire, not yet ×10000
	venueNs     int64
}

// parser wraps a fastjson.Parser, which is not safe for concurrent use —
// each VenueSession owns exactly one, matching the "one reader thread"
// contract.
type parser struct {
	p fastjson.Parser
}

func (pr *parser) parse(frame []byte) (tick, error) {
	v, err := pr.p.ParseBytes(frame)
	if err != nil {
		return tick{}, fmt.Errorf("venue: parse frame: %w", err)
	}

	var t tick
	t.symbol = string(v.GetStringBytes("symbol"))
	if t.symbol == "" {
		return tick{}, fmt.Errorf("venue: frame missing symbol")
	}

	if bidV, askV := v.Get("bid"), v.Get("ask"); bidV != nil && askV != nil {
		t.hasBidAsk = true
		t.bid = bidV.GetFloat64()
		t.ask = askV.GetFloat64()
	} else if midV := v.Get("mid"); midV != nil {
		t.mid = midV.GetFloat64()
		t.size = v.GetFloat64("size")
	} else {
		return tick{}, fmt.Errorf("venue: frame %q has neither bid/ask nor mid", t.symbol)
	}

	if fv := v.Get("funding_rate"); fv != nil {
		t.hasFunding = true
		t.fundingFrac = fv.GetFloat64()
	}

	t.venueNs = parseVenueTimestamp(v)
	return t, nil
}

// parseVenueTimestamp accepts either a unix-nanos integer or an RFC3339
// string, since different venues emit either on the wire.
func parseVenueTimestamp(v *fastjson.Value) int64 {
	if tv := v.Get("venue_timestamp"); tv != nil {
		if tv.Type() == fastjson.TypeString {
			s := string(tv.GetStringBytes())
			if ts, err := iso8601.ParseString(s); err == nil {
				return ts.UnixNano()
			}
			return 0
		}
		return tv.GetInt64()
	}
	return time.Now().UnixNano()
}
