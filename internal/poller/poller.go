// Package poller drives the periodic fetch-and-evaluate loop.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-proximity-service/internal/domain"
	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
	"github.com/couchcryptid/hazard-proximity-service/internal/observability"
)

// FeedClient fetches the version token and the full hazard set.
type FeedClient interface {
	FetchVersionToken(ctx context.Context) (string, error)
	FetchHazardSet(ctx context.Context) ([]domain.HazardEvent, error)
}

// Evaluator consumes one (hazard set, location) observation per tick.
type Evaluator interface {
	Evaluate(ctx context.Context, hazards []domain.HazardEvent, loc *geo.Point) []domain.Alert
}

// LocationSource supplies the tracked location, nil when unknown.
type LocationSource interface {
	Current() *geo.Point
}

// Poller runs an immediate tick and then one tick per interval until its
// context is cancelled. Each tick checks the feed's version token and
// fetches the full hazard set only when the token changed; the evaluator
// still runs every tick against the cached set, because the location can
// move even when the hazard set did not. A fetch failure keeps the
// previously cached set and the loop keeps ticking.
//
// Ticks never overlap: if a slow fetch outlasts the interval, the next
// firing is skipped rather than run concurrently.
type Poller struct {
	client    FeedClient
	evaluator Evaluator
	locations LocationSource
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	ticking atomic.Bool

	mu        sync.RWMutex
	lastToken string
	hazards   []domain.HazardEvent
}

// New creates a poller.
func New(client FeedClient, evaluator Evaluator, locations LocationSource, interval time.Duration,
	clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	return &Poller{
		client:    client,
		evaluator: evaluator,
		locations: locations,
		interval:  interval,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run executes the poll loop until the context is cancelled. The first
// tick runs immediately.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.interval)

	p.tick(ctx)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.tick(ctx)
		}
	}
}

// tick runs one fetch-and-evaluate cycle. Overlapping invocations are
// skipped so evaluations never race on the engine's memory.
func (p *Poller) tick(ctx context.Context) {
	if !p.ticking.CompareAndSwap(false, true) {
		p.metrics.TicksSkipped.Inc()
		p.logger.Warn("tick skipped, previous tick still running")
		return
	}
	defer p.ticking.Store(false)

	p.metrics.TicksTotal.Inc()
	p.refresh(ctx)

	if ctx.Err() != nil {
		return
	}
	p.evaluator.Evaluate(ctx, p.Snapshot(), p.locations.Current())
}

// refresh updates the cached hazard set when the version token changed.
func (p *Poller) refresh(ctx context.Context) {
	token, err := p.client.FetchVersionToken(ctx)
	if err != nil {
		p.metrics.FeedFetchErrors.Inc()
		p.logger.Error("version token fetch failed, using cached hazard set", "error", err)
		return
	}

	p.mu.RLock()
	unchanged := p.lastToken != "" && token == p.lastToken
	p.mu.RUnlock()
	if unchanged {
		p.metrics.FeedFetchSkipped.Inc()
		return
	}

	hazards, err := p.client.FetchHazardSet(ctx)
	if err != nil {
		p.metrics.FeedFetchErrors.Inc()
		p.logger.Error("hazard set fetch failed, using cached hazard set", "error", err)
		return
	}

	p.metrics.FeedFetches.Inc()
	p.metrics.HazardsActive.Set(float64(len(hazards)))

	p.mu.Lock()
	p.lastToken = token
	p.hazards = hazards
	p.mu.Unlock()

	p.logger.Info("hazard set refreshed", "hazards", len(hazards), "token", token)
}

// Snapshot returns a copy of the most recently fetched hazard set.
func (p *Poller) Snapshot() []domain.HazardEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make([]domain.HazardEvent, len(p.hazards))
	copy(snapshot, p.hazards)
	return snapshot
}
