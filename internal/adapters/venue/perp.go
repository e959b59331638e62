package venue

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/nullhash/draizer/internal/cycles"
	"github.com/nullhash/draizer/internal/domain"
	"github.com/nullhash/draizer/internal/funding"
	"github.com/nullhash/draizer/internal/ports"
	"github.com/nullhash/draizer/internal/quotering"
)

// PerpSession streams top-of-book quotes from a perpetual-futures venue
// and additionally keeps the shared funding.Registry current, so the
// detector can apply funding-adjusted basis without the perp
// session needing to know anything about arbitrage.
type PerpSession struct {
	venue      string
	wsURL      string
	fundingURL string
	clock      *cycles.Clock
	funding    *funding.Registry

	conn   *websocket.Conn
	out    *quotering.Ring
	parser parser
	seq    atomic.Uint64

	restClient   *retryablehttp.Client
	symbols      []string
	fundingRows  chan []fundingRow
	stopFunding  chan struct{}
}

const fundingPollInterval = 30 * time.Second

type fundingRow struct {
	Symbol  string  `json:"symbol"`
	RateBps float64 `json:"rate_bps"`
}

// NewPerpSession builds a perpetual session. fundingURL is a REST
// endpoint returning the current funding rates and is polled on a slow
// cadence in addition to whatever the WebSocket feed pushes, since not
// every venue streams funding over the same channel as book updates.
func NewPerpSession(venue, wsURL, fundingURL string, clock *cycles.Clock, reg *funding.Registry) *PerpSession {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	return &PerpSession{
		venue:       venue,
		wsURL:       wsURL,
		fundingURL:  fundingURL,
		clock:       clock,
		funding:     reg,
		restClient:  rc,
		fundingRows: make(chan []fundingRow, 1),
		stopFunding: make(chan struct{}),
	}
}

func (s *PerpSession) Name() string { return s.venue }

func (s *PerpSession) Start(symbols []string, out *quotering.Ring) error {
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("venue %s: dial: %w", s.venue, err)
	}
	if err := conn.WriteJSON(subscribeFrame(symbols)); err != nil {
		conn.Close()
		return fmt.Errorf("venue %s: subscribe: %w", s.venue, err)
	}
	s.conn = conn
	s.out = out
	s.symbols = symbols

	rows, err := s.fetchFunding()
	if err != nil {
		slog.Warn("perp session: funding bootstrap failed, continuing with stale rates",
			"venue", s.venue, "error", err)
	} else {
		s.applyFunding(rows)
	}
	if s.fundingURL != "" {
		go s.pollFundingLoop()
	}
	return nil
}

// pollFundingLoop runs on its own goroutine, off the reader thread's
// Poll() call path, so a slow or retrying venue REST endpoint never
// delays a book-update poll. It only fetches and decodes; applying the
// result to the registry happens back on the Poll() goroutine via
// fundingRows; so funding.Registry still ever sees one writer.
func (s *PerpSession) pollFundingLoop() {
	ticker := time.NewTicker(fundingPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopFunding:
			return
		case <-ticker.C:
			rows, err := s.fetchFunding()
			if err != nil {
				slog.Warn("perp session: funding refresh failed", "venue", s.venue, "error", err)
				continue
			}
			select {
			case s.fundingRows <- rows:
			default:
				// previous fetch not yet applied; drop, the next tick supersedes it.
			}
		}
	}
}

// fetchFunding fetches current funding rates over REST. It uses
// hashicorp/go-retryablehttp instead of the bare http.Client because this
// call happens during session startup and reconnect, exactly the moments
// a venue's REST API is most likely to be flaky under load.
func (s *PerpSession) fetchFunding() ([]fundingRow, error) {
	if s.fundingURL == "" {
		return nil, nil
	}
	resp, err := s.restClient.Get(s.fundingURL)
	if err != nil {
		return nil, fmt.Errorf("funding GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("funding read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("funding GET: status %d", resp.StatusCode)
	}

	var rows []fundingRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("funding decode: %w", err)
	}
	return rows, nil
}

// applyFunding writes rows into the shared registry. Every call site runs
// on the single goroutine that owns funding.Registry writes: here during
// Start, and from Poll when pollFundingLoop has a fresh fetch queued.
func (s *PerpSession) applyFunding(rows []fundingRow) {
	now := cycles.NowCycles()
	for _, row := range rows {
		s.funding.Set(row.Symbol, row.RateBps, now)
	}
}

func (s *PerpSession) Poll() ports.PollResult {
	if s.conn == nil {
		return ports.PollFatalError
	}

	select {
	case rows := <-s.fundingRows:
		s.applyFunding(rows)
	default:
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
	if err != nil {
		return ports.PollOK
	}

	ingestCycles := cycles.NowCycles()
	if t.hasFunding {
		s.funding.Set(t.symbol, t.fundingFrac*10000, ingestCycles)
	}
	if !t.hasBidAsk {
		return ports.PollOK
	}

	q := domain.NewQuote(t.symbol, s.venue, (t.bid+t.ask)/2, 0, ingestCycles, s.seq.Add(1))
	s.out.Push(q)
	return ports.PollOK
}

func (s *PerpSession) Shutdown() error {
	if s.fundingURL != "" {
		close(s.stopFunding)
	}
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
