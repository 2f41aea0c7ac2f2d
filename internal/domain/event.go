package domain

import (
	"time"

	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
)

// Feed types distinguish agency warnings from reported incidents.
const (
	FeedTypeWarning  = "warning"
	FeedTypeIncident = "incident"
)

// HazardEvent is one warning or incident from the feed. It is an
// immutable per-version snapshot: the same ID reappears across fetches
// with a new Updated fingerprint when its content changes.
type HazardEvent struct {
	ID       string `json:"id"`
	FeedType string `json:"feed_type"` // "warning" or "incident"
	Category string `json:"category,omitempty"`
	Title    string `json:"title,omitempty"`

	// Optional CAP-style classification fields.
	Severity  string `json:"severity,omitempty"`
	Urgency   string `json:"urgency,omitempty"`
	Certainty string `json:"certainty,omitempty"`

	// Action is the prescribed community action as free text,
	// e.g. "Shelter In Place Now". Classified by ClassifyAction.
	Action string `json:"action,omitempty"`

	// LocationText is the feed's human-readable locality description.
	LocationText string `json:"location,omitempty"`

	// Created and Updated are ISO 8601 strings kept raw. Updated is the
	// change fingerprint: compared for equality, never parsed.
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`

	// Extracted geometry. Either or both may be absent.
	Point   *geo.Point `json:"point,omitempty"`
	Polygon geo.Ring   `json:"polygon,omitempty"`
}

// HasPolygon reports whether the event carries a polygon usable for
// proximity ranking and area sums.
func (e HazardEvent) HasPolygon() bool {
	return len(e.Polygon) >= 3
}

// ProximityResult ranks one hazard relative to a location. Results are
// recomputed on every evaluation, never persisted.
type ProximityResult struct {
	Event          HazardEvent `json:"event"`
	DistanceKm     float64     `json:"distance_km"` // 0 when inside
	IsInside       bool        `json:"is_inside"`
	ActionPriority int         `json:"action_priority"`
}

// Alert types describe which watch produced an alert.
const (
	AlertTypeProximity  = "proximity"
	AlertTypeZoneChange = "zone-change"
	AlertTypeNewWarning = "new-warning"
)

// Alert severities, ranked critical > warning > info.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert is a user-facing notification emitted by the alert engine on a
// qualifying state transition. Once created it is mutated only to flip
// Dismissed; retention is handled by a most-recent-N cap, never deletion
// of individual alerts.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	HazardID  string    `json:"hazard_id,omitempty"`
	Dismissed bool      `json:"dismissed"`

	// ExpiresAt is the logical auto-dismiss deadline. Nil for critical
	// alerts, which only ever dismiss explicitly.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
