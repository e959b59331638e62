// Package supervisor is the composition root (C11): it wires the
// timestamp service, ring, cache, funding registry, detector, risk
// state, and shared-memory region, spins up the reader and matcher on
// pinned cores, and tears everything down on a termination signal.
package supervisor

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/nullhash/draizer/config"
	"github.com/nullhash/draizer/internal/adapters/venue"
	"github.com/nullhash/draizer/internal/arbitrage"
	"github.com/nullhash/draizer/internal/book"
	"github.com/nullhash/draizer/internal/cycles"
	"github.com/nullhash/draizer/internal/domain"
	"github.com/nullhash/draizer/internal/engine"
	"github.com/nullhash/draizer/internal/funding"
	"github.com/nullhash/draizer/internal/ports"
	"github.com/nullhash/draizer/internal/quotering"
	"github.com/nullhash/draizer/internal/shm"
)

// VenueEndpoint names one venue's connection details.
type VenueEndpoint struct {
	Name       string
	WSURL      string
	FundingURL string // perpetual only; empty for spot
	Perp       bool
}

// Options configures one supervised engine run.
type Options struct {
	Config      *config.Config
	Symbols     []string
	SpotVenue   VenueEndpoint
	PerpVenue   VenueEndpoint
	ReaderCore  int
	MatcherCore int
}

// Supervisor owns the lifetime of one engine run: construction,
// pinned-thread startup, and reverse-order teardown.
type Supervisor struct {
	opts   Options
	region *shm.Region
	clock  *cycles.Clock
	risk   *domain.RiskState
	reader *engine.ReaderLoop
	runID  uuid.UUID
	running atomic.Bool
}

// New builds every component but does not start the loops.
func New(opts Options) (*Supervisor, error) {
	runID := uuid.New()
	log := slog.With("run_id", runID)

	clock := cycles.New()
	if err := clock.Calibrate(); err != nil {
		log.Warn("cycle counter calibration failed, falling back to identity mapping", "error", err)
	}

	validateCoreAssignment(log, opts.ReaderCore, opts.MatcherCore)

	region, err := shm.Open(domain.ShmName)
	if err != nil {
		return nil, err
	}

	risk := domain.NewRiskState(opts.Config.CapitalUSD)
	applyStrategyConfig(risk, opts.Config)

	s := &Supervisor{opts: opts, region: region, clock: clock, risk: risk, runID: runID}
	s.running.Store(true)
	return s, nil
}

// validateCoreAssignment warns, but does not fail, when the configured
// reader/matcher cores fall outside the host's logical CPU count —
// affinity pinning is a best-effort optimization, not a hard requirement.
func validateCoreAssignment(log *slog.Logger, readerCore, matcherCore int) {
	counts, err := cpu.Counts(true)
	if err != nil {
		log.Warn("cpu topology lookup failed, skipping core assignment check", "error", err)
		return
	}
	if readerCore >= counts || matcherCore >= counts {
		log.Warn("configured core assignment exceeds host logical CPU count",
			"reader_core", readerCore, "matcher_core", matcherCore, "logical_cpus", counts)
	}
}

func applyStrategyConfig(rs *domain.RiskState, cfg *config.Config) {
	set := func(id domain.StrategyID, sc config.StrategyConfig) {
		slot := &rs.Strategies[id]
		slot.Enabled = sc.Enabled
		slot.Priority = sc.Priority
		slot.MaxPositionUSD = cfg.CapitalUSD * 0.1
		slot.MinProfitUSD = 0.01
		slot.CurrentMultiplier = 1.0
	}
	set(domain.StrategyStatistical, cfg.Strategies.Statistical)
	set(domain.StrategyCrossExchange, cfg.Strategies.CrossExchange)
	set(domain.StrategyTriangular, cfg.Strategies.Triangular)
}

// Run brings up both loops and blocks until a termination signal
// arrives or ctx is canceled, then tears everything down in reverse
// order.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ring := quotering.New(4096)
	cache := book.New(book.DefaultCapacity)
	fundingReg := funding.New()
	detector := arbitrage.New(cache, fundingReg, arbitrage.DefaultCosts())

	s.reader = engine.NewReaderLoop(ring)
	if err := s.wireVenueSessions(fundingReg); err != nil {
		return err
	}

	matcher := engine.NewMatcher(ring, cache, fundingReg, detector, s.risk, s.region,
		s.clock, s.opts.Symbols, s.opts.SpotVenue.Name, s.opts.PerpVenue.Name)

	s.region.Header.EngineRunning = true
	for i := range s.region.Header.StrategyEnabled {
		s.region.Header.StrategyEnabled[i] = s.risk.Strategies[i].Enabled
	}

	matcherDone := make(chan struct{})
	go s.runMatcherLoop(matcher, matcherDone)

	readerDone := make(chan struct{})
	go s.runReaderLoop(readerDone)

	select {
	case <-ctx.Done():
		slog.With("run_id", s.runID).Info("supervisor: shutdown signal received, tearing down")
	case <-matcherDone:
		// Stop cleared the running flag; the loops are already exiting.
	}
	s.running.Store(false)
	<-matcherDone
	<-readerDone

	s.teardown()
	return nil
}

func (s *Supervisor) runMatcherLoop(m *engine.Matcher, done chan struct{}) {
	defer close(done)
	if err := PinCurrentThread(s.opts.MatcherCore, matcherFIFOPriority); err != nil {
		slog.Warn("matcher: pinning failed, running unpinned", "error", err)
	}
	for s.running.Load() {
		m.RunOnce()
	}
}

func (s *Supervisor) runReaderLoop(done chan struct{}) {
	defer close(done)
	if err := PinCurrentThread(s.opts.ReaderCore, readerFIFOPriority); err != nil {
		slog.Warn("reader: pinning failed, running unpinned", "error", err)
	}
	for s.running.Load() {
		s.reader.RunOnce()
	}
	s.reader.Shutdown()
}

func (s *Supervisor) wireVenueSessions(fundingReg *funding.Registry) error {
	if err := s.reader.AddSession(func() (ports.VenueSession, error) {
		return venue.NewSpotSession(s.opts.SpotVenue.Name, s.opts.SpotVenue.WSURL, s.clock), nil
	}, s.opts.Symbols); err != nil {
		return err
	}
	return s.reader.AddSession(func() (ports.VenueSession, error) {
		return venue.NewPerpSession(s.opts.PerpVenue.Name, s.opts.PerpVenue.WSURL,
			s.opts.PerpVenue.FundingURL, s.clock, fundingReg), nil
	}, s.opts.Symbols)
}

func (s *Supervisor) teardown() {
	s.region.Header.EngineRunning = false
	if err := s.region.Close(); err != nil {
		slog.Warn("supervisor: region close failed", "error", err)
	}
	if err := shm.Unlink(domain.ShmName); err != nil {
		slog.Debug("supervisor: region unlink failed (may already be gone)", "error", err)
	}
}

// Stop requests a clean shutdown without waiting for a signal; used by
// tests and by a programmatic embedder.
func (s *Supervisor) Stop() { s.running.Store(false) }
