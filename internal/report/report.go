// Package report derives area-coverage statistics from the current
// hazard set.
package report

import (
	"github.com/couchcryptid/hazard-proximity-service/internal/domain"
	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
)

// ReferenceRegionKm2 is the land area of Victoria, the region the feed
// covers. Tier percentages are reported against it.
const ReferenceRegionKm2 = 227444.0

// TierStats holds the aggregated coverage for one action tier.
type TierStats struct {
	Count   int     `json:"count"`
	AreaKm2 float64 `json:"area_km2"`
	Percent float64 `json:"percent"`
}

// Report summarizes hazard polygon coverage per action tier.
type Report struct {
	Shelter          TierStats `json:"shelter"`
	LeaveImmediately TierStats `json:"leave_immediately"`
	LeaveOther       TierStats `json:"leave_other"`
	TotalKm2         float64   `json:"total_km2"`
	TotalPercent     float64   `json:"total_percent"`
}

// Build partitions polygon-bearing hazards into action tiers and sums
// polygon area per tier. Hazards without a polygon or without a matched
// action tier are excluded from the sums.
func Build(hazards []domain.HazardEvent) Report {
	var r Report
	for _, h := range hazards {
		if !h.HasPolygon() {
			continue
		}

		var tier *TierStats
		switch domain.ActionTier(h.Action) {
		case domain.TierShelter:
			tier = &r.Shelter
		case domain.TierLeaveImmediately:
			tier = &r.LeaveImmediately
		case domain.TierLeaveOther:
			tier = &r.LeaveOther
		default:
			continue
		}

		tier.Count++
		tier.AreaKm2 += geo.PolygonAreaKm2(h.Polygon)
	}

	r.Shelter.Percent = percentOfRegion(r.Shelter.AreaKm2)
	r.LeaveImmediately.Percent = percentOfRegion(r.LeaveImmediately.AreaKm2)
	r.LeaveOther.Percent = percentOfRegion(r.LeaveOther.AreaKm2)
	r.TotalKm2 = r.Shelter.AreaKm2 + r.LeaveImmediately.AreaKm2 + r.LeaveOther.AreaKm2
	r.TotalPercent = percentOfRegion(r.TotalKm2)
	return r
}

func percentOfRegion(areaKm2 float64) float64 {
	return areaKm2 / ReferenceRegionKm2 * 100
}
