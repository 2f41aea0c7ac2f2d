// Command feedsim serves a mock hazard warning feed for local runs.
// It exposes the same delta and events endpoints the watcher polls,
// with a small set of Victorian hazards whose "updated" fingerprints
// rotate periodically so change-detection alerts fire.
//
// Usage:
//
//	go run ./cmd/feedsim -addr :9090 -rotate 45s
//
// then point the watcher at it:
//
//	FEED_BASE_URL=http://localhost:9090 go run ./cmd/watcher
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

type geometry struct {
	Type        string     `json:"type"`
	Coordinates any        `json:"coordinates,omitempty"`
	Geometries  []geometry `json:"geometries,omitempty"`
}

type feature struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Geometry   *geometry         `json:"geometry,omitempty"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// simulator holds the rotating feed state.
type simulator struct {
	mu           sync.Mutex
	generation   int
	lastModified time.Time
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	rotate := flag.Duration("rotate", 45*time.Second, "interval between feed updates")
	flag.Parse()

	sim := &simulator{lastModified: time.Now().UTC()}

	go func() {
		for range time.Tick(*rotate) {
			sim.mu.Lock()
			sim.generation++
			sim.lastModified = time.Now().UTC()
			sim.mu.Unlock()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /delta", sim.handleDelta)
	mux.HandleFunc("GET /events", sim.handleEvents)

	log.Printf("feedsim listening on %s, rotating every %s", *addr, *rotate)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func (s *simulator) handleDelta(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	gen, modified := s.generation, s.lastModified
	s.mu.Unlock()

	hash := sha256.Sum256([]byte(fmt.Sprintf("gen-%d", gen)))
	writeJSON(w, map[string]string{
		"lastModified": modified.Format(time.RFC3339),
		"lastHash":     hex.EncodeToString(hash[:8]),
	})
}

func (s *simulator) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	gen, modified := s.generation, s.lastModified
	s.mu.Unlock()

	writeJSON(w, featureCollection{
		Type:     "FeatureCollection",
		Features: sampleFeatures(gen, modified),
	})
}

// sampleFeatures builds the rotating hazard set. The grassfire polygon
// sits just northwest of Melbourne; the flood warning carries a
// GeometryCollection mixing a point and a polygon; the storm incident
// has a bare point and therefore never ranks in proximity results.
func sampleFeatures(gen int, modified time.Time) []feature {
	updated := modified.Format(time.RFC3339)

	grassfire := feature{
		Type: "Feature",
		Properties: map[string]string{
			"id":       "vic-grassfire-001",
			"feedType": "warning",
			"category": "fire",
			"title":    "Grassfire",
			"action":   actionForGeneration(gen),
			"location": "Sunbury area",
			"created":  "2026-02-10T02:10:00Z",
			"updated":  updated,
		},
		Geometry: &geometry{
			Type: "Polygon",
			Coordinates: [][][]float64{{
				{144.70, -37.55},
				{144.78, -37.55},
				{144.78, -37.61},
				{144.70, -37.61},
			}},
		},
	}

	flood := feature{
		Type: "Feature",
		Properties: map[string]string{
			"id":       "vic-flood-014",
			"feedType": "warning",
			"category": "flood",
			"title":    "Riverine Flood",
			"action":   "Leave If Safe To Do So",
			"location": "Maribyrnong River",
			"created":  "2026-02-09T22:40:00Z",
			"updated":  "2026-02-09T23:15:00Z",
		},
		Geometry: &geometry{
			Type: "GeometryCollection",
			Geometries: []geometry{
				{Type: "Point", Coordinates: []float64{144.89, -37.77}},
				{Type: "Polygon", Coordinates: [][][]float64{{
					{144.86, -37.74},
					{144.92, -37.74},
					{144.92, -37.80},
					{144.86, -37.80},
				}}},
			},
		},
	}

	storm := feature{
		Type: "Feature",
		Properties: map[string]string{
			"id":       "vic-storm-103",
			"feedType": "incident",
			"category": "storm",
			"title":    "Building Damage",
			"location": "Footscray",
			"created":  "2026-02-10T01:05:00Z",
			"updated":  "2026-02-10T01:05:00Z",
		},
		Geometry: &geometry{
			Type:        "Point",
			Coordinates: []float64{144.90, -37.80},
		},
	}

	return []feature{grassfire, flood, storm}
}

// actionForGeneration escalates the grassfire every other rotation so
// both new-warning severities and zone-change alerts get exercised.
func actionForGeneration(gen int) string {
	if gen%2 == 0 {
		return "Leave Immediately"
	}
	return "Shelter In Place Now"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
