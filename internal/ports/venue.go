// Package ports defines the narrow capability-set interfaces the engine
// depends on, so the reader loop and supervisor can be wired against
// concrete adapters without the engine package importing transport
// details directly ("abstract to a capability set").
package ports

import "github.com/nullhash/draizer/internal/quotering"

// PollResult is returned by VenueSession.Poll to tell the reader loop how
// to proceed without it needing to inspect transport-level errors.
type PollResult int

const (
	// PollOK means poll either delivered a quote or found nothing ready;
	// the reader loop should move on to the next session immediately.
	PollOK PollResult = iota
	// PollTransientError means the session hit a recoverable I/O problem
	// (disconnect, parse error on one frame) and should be destroyed and
	// recreated by the reader loop after a back-off.
	PollTransientError
	// PollFatalError means the session cannot be recovered by a simple
	// reconnect (e.g. bad credentials, protocol mismatch) and the reader
	// loop should stop polling it for good.
	PollFatalError
)

// VenueSession is the capability set required from a venue protocol
// implementation (C4). Concrete variants (spot, perpetual) are tagged by
// construction, not by a shared vtable — each variant type satisfies this
// interface directly so the reader loop can hold a slice of VenueSession
// without any one of them needing heap-indirect dispatch internally.
type VenueSession interface {
	// Start opens the streaming connection and subscribes to symbols.
	// It must not block longer than one connection attempt.
	Start(symbols []string, out *quotering.Ring) error

	// Poll attempts to read and process one framed message. It must not
	// block the calling goroutine for more than one kernel readiness
	// wait.
	Poll() PollResult

	// Shutdown closes the underlying connection. It is safe to call
	// multiple times.
	Shutdown() error

	// Name identifies the venue for logging and backoff bookkeeping.
	Name() string
}
