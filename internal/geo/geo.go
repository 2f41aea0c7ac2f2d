// Package geo provides the spherical geometry primitives used for hazard
// proximity ranking and area aggregation.
//
// All functions are pure and total: malformed geometry never raises, it
// degrades — an empty ring has infinite distance, a degenerate ring has
// zero area, a ring with fewer than three vertices contains nothing.
//
// Distance to a polygon is approximated as the minimum great-circle
// distance to the ring's vertices, not to its edges. This under-estimates
// the true boundary distance near long edges. The proximity thresholds
// (2 km critical, 5 km nearby) were tuned against this approximation, so
// it is kept deliberately.
package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS-84 coordinate in (longitude, latitude) order, matching
// GeoJSON coordinate order.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Ring is an ordered polygon boundary. It may arrive open or closed;
// consumers close it themselves via closeRing.
type Ring []Point

// closeRing appends the first vertex when the ring does not end where it
// started. Rings with fewer than 3 vertices are returned unchanged.
func closeRing(ring Ring) Ring {
	if len(ring) < 3 {
		return ring
	}
	if ring[0] == ring[len(ring)-1] {
		return ring
	}
	closed := make(Ring, len(ring)+1)
	copy(closed, ring)
	closed[len(ring)] = ring[0]
	return closed
}

// PointInPolygon reports whether p lies inside the polygon bounded by
// ring, using a ray-casting test. Rings with fewer than 3 vertices
// contain nothing.
func PointInPolygon(p Point, ring Ring) bool {
	if len(ring) < 3 {
		return false
	}
	closed := closeRing(ring)

	inside := false
	for i := 0; i < len(closed)-1; i++ {
		a, b := closed[i], closed[i+1]
		crosses := (a.Lat > p.Lat) != (b.Lat > p.Lat)
		if !crosses {
			continue
		}
		xAtLat := (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lon
		if p.Lon < xAtLat {
			inside = !inside
		}
	}
	return inside
}

// DistanceToPolygonKm returns the distance from p to the polygon bounded
// by ring: 0 when p is inside, otherwise the minimum great-circle
// distance to the ring's vertices. An empty ring is infinitely far away.
func DistanceToPolygonKm(p Point, ring Ring) float64 {
	if len(ring) == 0 {
		return math.Inf(1)
	}
	if PointInPolygon(p, ring) {
		return 0
	}

	min := math.Inf(1)
	for _, v := range ring {
		if d := GreatCircleKm(p, v); d < min {
			min = d
		}
	}
	return min
}

// PolygonAreaKm2 returns the area of the closed ring in km², computed
// with the shoelace formula on a local planar projection (longitude
// scaled by the cosine of the ring's mean latitude). Degenerate rings
// and non-finite results yield 0.
func PolygonAreaKm2(ring Ring) float64 {
	if len(ring) < 3 {
		return 0
	}
	closed := closeRing(ring)

	meanLat := 0.0
	for _, v := range ring {
		meanLat += v.Lat
	}
	meanLat = meanLat / float64(len(ring)) * math.Pi / 180

	kmPerDegLat := earthRadiusKm * math.Pi / 180
	kmPerDegLon := kmPerDegLat * math.Cos(meanLat)

	sum := 0.0
	for i := 0; i < len(closed)-1; i++ {
		a, b := closed[i], closed[i+1]
		ax, ay := a.Lon*kmPerDegLon, a.Lat*kmPerDegLat
		bx, by := b.Lon*kmPerDegLon, b.Lat*kmPerDegLat
		sum += ax*by - bx*ay
	}

	area := math.Abs(sum) / 2
	if math.IsNaN(area) || math.IsInf(area, 0) {
		return 0
	}
	return area
}

// GreatCircleKm returns the haversine great-circle distance between two
// points in kilometres.
func GreatCircleKm(a, b Point) float64 {
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := hsin(dLat) + math.Cos(la1)*math.Cos(la2)*hsin(dLon)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func hsin(theta float64) float64 {
	return math.Pow(math.Sin(theta/2), 2)
}
