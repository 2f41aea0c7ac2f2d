// Package alerting derives user-facing alerts from hazard set and
// location transitions.
//
// The engine is edge-triggered: every watch compares the current tick
// against remembered state (fingerprints per hazard id, the previous
// nearest-hazard snapshot) and fires only on the transition into a
// condition. Replaying an identical tick emits nothing.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-proximity-service/internal/domain"
	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
	"github.com/couchcryptid/hazard-proximity-service/internal/observability"
	"github.com/couchcryptid/hazard-proximity-service/internal/proximity"
)

const (
	// maxRetainedAlerts caps the alert list; the oldest are dropped.
	maxRetainedAlerts = 50

	// criticalDistanceKm and nearbyDistanceKm are the proximity watch
	// thresholds. Tuned against the vertex-distance approximation in
	// the geo package; see that package's doc comment.
	criticalDistanceKm = 2.0
	nearbyDistanceKm   = 5.0

	// Auto-dismiss delays per severity. Critical alerts never expire.
	infoDismissAfter    = 30 * time.Second
	warningDismissAfter = 60 * time.Second

	defaultSettleDelay = 5 * time.Second
)

// infDistance stands in for "no previous distance" when the snapshot is
// absent, so any finite distance counts as a crossing.
var infDistance = math.Inf(1)

// Sink receives every emitted alert, e.g. a Kafka producer. Publish
// failures are logged and do not affect the alert list.
type Sink interface {
	Publish(ctx context.Context, alert domain.Alert) error
}

// nearestSnapshot is the remembered previous proximity state.
type nearestSnapshot struct {
	HazardID   string
	DistanceKm float64
	IsInside   bool
}

// Engine is the per-subject alert state machine. All mutable state is
// owned by the engine and mutated only under its lock, so overlapping
// callers serialize rather than race.
type Engine struct {
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
	sink        Sink
	settleDelay time.Duration

	mu           sync.Mutex
	seeded       bool
	seededAt     time.Time
	fingerprints map[string]string
	prev         *nearestSnapshot
	alerts       []domain.Alert // most recent first
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock swaps the time source, used by tests to control the settle
// window and expiry deadlines.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSink attaches an alert sink.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithSettleDelay overrides the delay between the initial seed and the
// engine becoming ready.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) { e.settleDelay = d }
}

// New creates an alert engine.
func New(logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Engine {
	e := &Engine{
		clock:        clockwork.NewRealClock(),
		logger:       logger,
		metrics:      metrics,
		settleDelay:  defaultSettleDelay,
		fingerprints: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one tick of the state machine against the current hazard
// set and location (nil when unknown) and returns the alerts emitted by
// this tick, newest first.
//
// The first non-empty hazard set seeds the engine's memory without
// emitting; alerts only flow once the settle delay after that seed has
// elapsed. This avoids a burst of "new" alerts for hazards that existed
// before the engine started watching.
func (e *Engine) Evaluate(ctx context.Context, hazards []domain.HazardEvent, loc *geo.Point) []domain.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	if !e.seeded {
		if len(hazards) > 0 {
			e.seed(hazards, loc)
		}
		return nil
	}

	now := e.clock.Now()
	if now.Sub(e.seededAt) < e.settleDelay {
		return nil
	}
	e.metrics.EngineReady.Set(1)

	emitted := e.watchChanges(hazards, now)
	if loc != nil && len(hazards) > 0 {
		if a := e.watchProximity(loc, hazards, now); a != nil {
			emitted = append(emitted, *a)
		}
	}

	for _, a := range emitted {
		e.record(a)
		e.publish(ctx, a)
	}
	return emitted
}

// seed records every hazard's fingerprint and the current nearest
// snapshot without emitting.
func (e *Engine) seed(hazards []domain.HazardEvent, loc *geo.Point) {
	for _, h := range hazards {
		e.fingerprints[h.ID] = h.Updated
	}
	if nearest := proximity.Nearest(loc, hazards); nearest != nil {
		e.prev = &nearestSnapshot{
			HazardID:   nearest.Event.ID,
			DistanceKm: nearest.DistanceKm,
			IsInside:   nearest.IsInside,
		}
	}
	e.seeded = true
	e.seededAt = e.clock.Now()
	e.logger.Info("alert engine seeded",
		"hazards", len(hazards),
		"has_location", loc != nil,
		"settle_delay", e.settleDelay,
	)
}

// watchChanges detects hazards that are new to the engine or whose
// updated fingerprint changed. Memory is updated for every hazard,
// whether or not an alert fired.
func (e *Engine) watchChanges(hazards []domain.HazardEvent, now time.Time) []domain.Alert {
	var emitted []domain.Alert
	for _, h := range hazards {
		stored, known := e.fingerprints[h.ID]
		e.fingerprints[h.ID] = h.Updated

		if !known {
			if a := newWarningAlert(h, now); a != nil {
				emitted = append(emitted, *a)
			}
			continue
		}
		if stored != h.Updated {
			emitted = append(emitted, newAlert(now, domain.AlertTypeZoneChange, domain.SeverityInfo,
				"Warning updated",
				fmt.Sprintf("%s near %s has been updated", hazardName(h), locationText(h)),
				h.ID,
			))
		}
	}
	return emitted
}

// newWarningAlert builds the alert for a hazard first seen after the
// engine was seeded, or nil when its action text is not actionable.
func newWarningAlert(h domain.HazardEvent, now time.Time) *domain.Alert {
	priority := domain.ClassifyAction(h.Action)
	if priority == domain.ActionPriorityNone {
		return nil
	}
	severity := domain.SeverityWarning
	if priority == domain.ActionPriorityShelterInPlace {
		severity = domain.SeverityCritical
	}
	a := newAlert(now, domain.AlertTypeNewWarning, severity,
		fmt.Sprintf("New warning: %s", h.Action),
		fmt.Sprintf("%s issued for %s", hazardName(h), locationText(h)),
		h.ID,
	)
	return &a
}

// watchProximity compares the current nearest hazard against the stored
// snapshot and emits at most one alert, evaluating the conditions in
// priority order. The snapshot is overwritten unconditionally so each
// condition fires once per transition, not once per tick.
func (e *Engine) watchProximity(loc *geo.Point, hazards []domain.HazardEvent, now time.Time) *domain.Alert {
	nearest := proximity.Nearest(loc, hazards)
	if nearest == nil {
		e.prev = nil
		return nil
	}

	prev := e.prev
	prevDistance := infDistance
	prevInside := false
	nearestChanged := true
	if prev != nil {
		prevDistance = prev.DistanceKm
		prevInside = prev.IsInside
		nearestChanged = prev.HazardID != nearest.Event.ID
	}
	e.prev = &nearestSnapshot{
		HazardID:   nearest.Event.ID,
		DistanceKm: nearest.DistanceKm,
		IsInside:   nearest.IsInside,
	}

	h := nearest.Event
	var a domain.Alert
	switch {
	case nearest.IsInside && !prevInside:
		a = newAlert(now, domain.AlertTypeProximity, domain.SeverityCritical,
			"You are in a danger zone",
			fmt.Sprintf("%s — %s", hazardName(h), actionText(h)),
			h.ID,
		)
	case !nearest.IsInside && nearest.DistanceKm <= criticalDistanceKm && prevDistance > criticalDistanceKm:
		a = newAlert(now, domain.AlertTypeProximity, domain.SeverityCritical,
			"Danger zone very close",
			fmt.Sprintf("%s is %.1f km away", hazardName(h), nearest.DistanceKm),
			h.ID,
		)
	case nearestChanged && nearest.DistanceKm <= nearbyDistanceKm:
		a = newAlert(now, domain.AlertTypeProximity, domain.SeverityWarning,
			"New nearby warning",
			fmt.Sprintf("%s is now the closest hazard, %.1f km away", hazardName(h), nearest.DistanceKm),
			h.ID,
		)
	default:
		return nil
	}
	return &a
}

// record prepends an alert and enforces the retention cap.
func (e *Engine) record(a domain.Alert) {
	e.alerts = append([]domain.Alert{a}, e.alerts...)
	if len(e.alerts) > maxRetainedAlerts {
		e.alerts = e.alerts[:maxRetainedAlerts]
	}
	e.metrics.AlertsEmitted.WithLabelValues(a.Type, a.Severity).Inc()
	e.logger.Info("alert emitted",
		"alert_id", a.ID,
		"type", a.Type,
		"severity", a.Severity,
		"hazard_id", a.HazardID,
		"title", a.Title,
	)
}

func (e *Engine) publish(ctx context.Context, a domain.Alert) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(ctx, a); err != nil {
		e.metrics.AlertPublishErrors.Inc()
		e.logger.Warn("alert publish failed", "alert_id", a.ID, "error", err)
		return
	}
	e.metrics.AlertsPublished.Inc()
}

// Active returns the undismissed alerts, newest first. Expiry is applied
// lazily here: any non-critical alert whose deadline has passed is
// flipped to dismissed before the list is built.
func (e *Engine) Active() []domain.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expire(e.clock.Now())

	active := make([]domain.Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		if !a.Dismissed {
			active = append(active, a)
		}
	}
	return active
}

// All returns every retained alert, newest first, including dismissed
// ones.
func (e *Engine) All() []domain.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expire(e.clock.Now())

	all := make([]domain.Alert, len(e.alerts))
	copy(all, e.alerts)
	return all
}

// Dismiss marks the alert as dismissed. It reports whether the alert id
// is known; dismissing twice is a no-op.
func (e *Engine) Dismiss(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.alerts {
		if e.alerts[i].ID != id {
			continue
		}
		if !e.alerts[i].Dismissed {
			e.alerts[i].Dismissed = true
			e.metrics.AlertsDismissed.Inc()
		}
		return true
	}
	return false
}

func (e *Engine) expire(now time.Time) {
	for i := range e.alerts {
		a := &e.alerts[i]
		if !a.Dismissed && a.ExpiresAt != nil && !now.Before(*a.ExpiresAt) {
			a.Dismissed = true
		}
	}
}

// CheckReadiness reports nil once the engine has seeded and settled.
func (e *Engine) CheckReadiness(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.seeded {
		return errors.New("alert engine has not observed a hazard set yet")
	}
	if e.clock.Now().Sub(e.seededAt) < e.settleDelay {
		return errors.New("alert engine is settling")
	}
	return nil
}

// newAlert builds an alert with a fresh time+random id and the logical
// expiry deadline for its severity.
func newAlert(now time.Time, alertType, severity, title, message, hazardID string) domain.Alert {
	a := domain.Alert{
		ID:        fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Type:      alertType,
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: now,
		HazardID:  hazardID,
	}
	switch severity {
	case domain.SeverityInfo:
		deadline := now.Add(infoDismissAfter)
		a.ExpiresAt = &deadline
	case domain.SeverityWarning:
		deadline := now.Add(warningDismissAfter)
		a.ExpiresAt = &deadline
	}
	return a
}

func hazardName(h domain.HazardEvent) string {
	if h.Title != "" {
		return h.Title
	}
	if h.Category != "" {
		return h.Category
	}
	return h.ID
}

func locationText(h domain.HazardEvent) string {
	if h.LocationText != "" {
		return h.LocationText
	}
	return "the affected area"
}

func actionText(h domain.HazardEvent) string {
	if h.Action != "" {
		return h.Action
	}
	return "no action advised"
}
