// Package proximity ranks hazard events by danger relative to a tracked
// location.
package proximity

import (
	"sort"

	"github.com/couchcryptid/hazard-proximity-service/internal/domain"
	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
)

// Rank orders polygon-bearing hazards by danger: inside-zone first, then
// action priority descending, then distance ascending. Hazards without a
// usable polygon (fewer than 3 vertices) are excluded. The sort is
// stable, so hazards equal on all three keys keep their feed order.
func Rank(loc geo.Point, hazards []domain.HazardEvent) []domain.ProximityResult {
	results := make([]domain.ProximityResult, 0, len(hazards))
	for _, h := range hazards {
		if !h.HasPolygon() {
			continue
		}
		inside := geo.PointInPolygon(loc, h.Polygon)
		distance := 0.0
		if !inside {
			distance = geo.DistanceToPolygonKm(loc, h.Polygon)
		}
		results = append(results, domain.ProximityResult{
			Event:          h,
			DistanceKm:     distance,
			IsInside:       inside,
			ActionPriority: domain.ClassifyAction(h.Action),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.IsInside != b.IsInside {
			return a.IsInside
		}
		if a.ActionPriority != b.ActionPriority {
			return a.ActionPriority > b.ActionPriority
		}
		return a.DistanceKm < b.DistanceKm
	})

	return results
}

// Nearest returns the most dangerous ranked hazard, or nil when the
// location is unknown or no hazard carries a usable polygon.
func Nearest(loc *geo.Point, hazards []domain.HazardEvent) *domain.ProximityResult {
	if loc == nil {
		return nil
	}
	ranked := Rank(*loc, hazards)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}
