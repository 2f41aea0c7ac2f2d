package feed

import (
	"encoding/json"

	"github.com/couchcryptid/hazard-proximity-service/internal/domain"
	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
)

// Feed envelope types. The events endpoint returns a GeoJSON-like
// FeatureCollection; feature geometry may be a Point, a Polygon, or a
// GeometryCollection mixing both.

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string     `json:"type"`
	Properties properties `json:"properties"`
	Geometry   *geometry  `json:"geometry"`
}

type properties struct {
	ID           string `json:"id"`
	FeedType     string `json:"feedType"`
	Category     string `json:"category"`
	Title        string `json:"title"`
	Severity     string `json:"severity"`
	Urgency      string `json:"urgency"`
	Certainty    string `json:"certainty"`
	Action       string `json:"action"`
	LocationText string `json:"location"`
	Created      string `json:"created"`
	Updated      string `json:"updated"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometries  []geometry      `json:"geometries"`
}

// toEvent maps a feature onto the domain event, extracting the first
// point and the first polygon independently from whatever geometry shape
// the feature carries. Malformed geometry degrades to no geometry.
func (f feature) toEvent() domain.HazardEvent {
	point, ring := extractGeometry(f.Geometry)
	return domain.HazardEvent{
		ID:           f.Properties.ID,
		FeedType:     f.Properties.FeedType,
		Category:     f.Properties.Category,
		Title:        f.Properties.Title,
		Severity:     f.Properties.Severity,
		Urgency:      f.Properties.Urgency,
		Certainty:    f.Properties.Certainty,
		Action:       f.Properties.Action,
		LocationText: f.Properties.LocationText,
		Created:      f.Properties.Created,
		Updated:      f.Properties.Updated,
		Point:        point,
		Polygon:      ring,
	}
}

// extractGeometry walks a geometry envelope and returns the first point
// and the first polygon ring found, either of which may be absent.
func extractGeometry(g *geometry) (*geo.Point, geo.Ring) {
	if g == nil {
		return nil, nil
	}

	switch g.Type {
	case "Point":
		return decodePoint(g.Coordinates), nil
	case "Polygon":
		return nil, decodePolygonRing(g.Coordinates)
	case "GeometryCollection":
		var point *geo.Point
		var ring geo.Ring
		for _, member := range g.Geometries {
			p, r := extractGeometry(&member)
			if point == nil && p != nil {
				point = p
			}
			if ring == nil && r != nil {
				ring = r
			}
		}
		return point, ring
	default:
		return nil, nil
	}
}

func decodePoint(raw json.RawMessage) *geo.Point {
	var coords []float64
	if err := json.Unmarshal(raw, &coords); err != nil || len(coords) < 2 {
		return nil
	}
	return &geo.Point{Lon: coords[0], Lat: coords[1]}
}

// decodePolygonRing returns the polygon's outer ring. Interior rings
// (holes) are ignored; the feed does not publish them.
func decodePolygonRing(raw json.RawMessage) geo.Ring {
	var rings [][][]float64
	if err := json.Unmarshal(raw, &rings); err != nil || len(rings) == 0 {
		return nil
	}

	outer := rings[0]
	ring := make(geo.Ring, 0, len(outer))
	for _, pair := range outer {
		if len(pair) < 2 {
			continue
		}
		ring = append(ring, geo.Point{Lon: pair[0], Lat: pair[1]})
	}
	if len(ring) == 0 {
		return nil
	}
	return ring
}
