// Package location holds the tracked subject location supplied by the
// consumer.
package location

import (
	"sync"

	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
)

// Tracker stores the most recent subject location. The location may be
// unknown, in which case Current returns nil and proximity evaluation is
// skipped for that tick.
type Tracker struct {
	mu    sync.RWMutex
	point *geo.Point
}

// NewTracker creates a tracker with no known location.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Set updates the tracked location.
func (t *Tracker) Set(p geo.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.point = &p
}

// Clear marks the location unknown.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.point = nil
}

// Current returns a copy of the tracked location, or nil when unknown.
func (t *Tracker) Current() *geo.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.point == nil {
		return nil
	}
	p := *t.point
	return &p
}
