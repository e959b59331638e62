package engine

import (
	"log/slog"
	"time"

	"github.com/nullhash/draizer/internal/ports"
	"github.com/nullhash/draizer/internal/quotering"
)

// reconnectBackoff is the pause before recreating a venue session after
// a transient error.
const reconnectBackoff = 100 * time.Millisecond

// SessionFactory builds a fresh VenueSession for one reader slot. Reader
// recreates a session by calling this again after a transient failure.
type SessionFactory func() (ports.VenueSession, error)

// readerSlot is one venue session under management, paired with the
// factory that can rebuild it and the symbol set it subscribes to.
type readerSlot struct {
	factory SessionFactory
	symbols []string
	session ports.VenueSession
}

// ReaderLoop is C10: it round-robins every venue session's Poll call on
// a single pinned thread. Venue sessions run entirely on this thread
//  — the matcher never touches them.
type ReaderLoop struct {
	slots []*readerSlot
	out   *quotering.Ring
}

// NewReaderLoop builds an empty ReaderLoop; every session registered
// with AddSession publishes into the same out ring.
func NewReaderLoop(out *quotering.Ring) *ReaderLoop {
	return &ReaderLoop{out: out}
}

// AddSession registers a venue session factory and starts the first
// instance immediately.
func (r *ReaderLoop) AddSession(factory SessionFactory, symbols []string) error {
	session, err := factory()
	if err != nil {
		return err
	}
	if err := session.Start(symbols, r.out); err != nil {
		return err
	}
	r.slots = append(r.slots, &readerSlot{factory: factory, symbols: symbols, session: session})
	return nil
}

// RunOnce polls every managed session exactly once, recreating any
// session that reports a transient error after the standard back-off.
// Fatal errors stop polling that slot for good (its session is set to
// nil and RunOnce skips it on future calls).
func (r *ReaderLoop) RunOnce() {
	for _, slot := range r.slots {
		if slot.session == nil {
			continue
		}
		switch slot.session.Poll() {
		case ports.PollOK:
			// nothing to do
		case ports.PollTransientError:
			r.recreate(slot)
		case ports.PollFatalError:
			slog.Error("venue session hit a fatal error, dropping", "venue", slot.session.Name())
			slot.session.Shutdown()
			slot.session = nil
		}
	}
}

func (r *ReaderLoop) recreate(slot *readerSlot) {
	name := slot.session.Name()
	slot.session.Shutdown()
	time.Sleep(reconnectBackoff)

	fresh, err := slot.factory()
	if err != nil {
		slog.Warn("venue session recreate failed", "venue", name, "error", err)
		return
	}
	if err := fresh.Start(slot.symbols, r.out); err != nil {
		slog.Warn("venue session restart failed", "venue", name, "error", err)
		return
	}
	slot.session = fresh
}

// Shutdown tears down every managed session.
func (r *ReaderLoop) Shutdown() {
	for _, slot := range r.slots {
		if slot.session != nil {
			slot.session.Shutdown()
		}
	}
}
