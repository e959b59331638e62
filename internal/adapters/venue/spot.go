package venue

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nullhash/draizer/internal/cycles"
	"github.com/nullhash/draizer/internal/domain"
	"github.com/nullhash/draizer/internal/ports"
	"github.com/nullhash/draizer/internal/quotering"
)

// SpotSession streams top-of-book quotes from a spot venue over a single
// WebSocket connection. It satisfies ports.VenueSession.
type SpotSession struct {
	venue string
	url   string
	clock *cycles.Clock

	conn    *websocket.Conn
	out     *quotering.Ring
	parser  parser
	seq     atomic.Uint64
	readyAt time.Time
}

// NewSpotSession builds a session for venue, dialing url on Start. clock
// is shared with the rest of the process so ingest timestamps are
// comparable across venues.
func NewSpotSession(venue, url string, clock *cycles.Clock) *SpotSession {
	return &SpotSession{venue: venue, url: url, clock: clock}
}

func (s *SpotSession) Name() string { return s.venue }

// Start dials the WebSocket endpoint and sends a subscribe frame for
// symbols. It does not read any data itself — that happens in Poll, so
// the reader loop stays in control of how much time is spent per venue
// per pass.
func (s *SpotSession) Start(symbols []string, out *quotering.Ring) error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("venue %s: dial: %w", s.venue, err)
	}
	sub := subscribeFrame(symbols)
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("venue %s: subscribe: %w", s.venue, err)
	}
	s.conn = conn
	s.out = out
	s.readyAt = time.Now()
	return nil
}

// Poll reads exactly one frame with a short deadline and, on success,
// pushes a spot quote into out. A missed deadline is not an error: it
// just means nothing was ready this pass.
func (s *SpotSession) Poll() ports.PollResult {
	if s.conn == nil {
		return ports.PollFatalError
	}
	s.conn.SetReadDeadline(time.Now().Add(2 * time.Millisecond))
	_, frame, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err) {
			return ports.PollTransientError
		}
		if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
			return ports.PollOK
		}
		return ports.PollTransientError
	}

	t, err := s.parser.parse(frame)
	if err != nil || !t.hasBidAsk {
		// Malformed or non-quote frame (e.g. a heartbeat); skip it rather
		// than tearing down the connection over one bad message.
		return ports.PollOK
	}

	ingestCycles := cycles.NowCycles()
	q := domain.NewQuote(t.symbol, s.venue, (t.bid+t.ask)/2, 0, ingestCycles, s.seq.Add(1))
	s.out.Push(q)
	return ports.PollOK
}

func (s *SpotSession) Shutdown() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func subscribeFrame(symbols []string) map[string]any {
	return map[string]any{
		"type":    "subscribe",
		"channel": "book",
		"symbols": symbols,
	}
}
