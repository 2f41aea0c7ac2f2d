package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, time.Millisecond, discardLogger())
}

func TestFetchVersionToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/delta", r.URL.Path)
		w.Write([]byte(`{"lastModified":"2026-02-10T03:00:00Z","lastHash":"abc123"}`))
	}))

	token, err := c.FetchVersionToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-02-10T03:00:00Z|abc123", token)
}

func TestFetchHazardSet(t *testing.T) {
	const body = `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {
					"id": "fire-1",
					"feedType": "warning",
					"category": "fire",
					"title": "Grassfire - Sunbury",
					"severity": "severe",
					"urgency": "immediate",
					"certainty": "observed",
					"action": "Leave Immediately",
					"location": "Sunbury and surrounds",
					"created": "2026-02-10T01:00:00Z",
					"updated": "2026-02-10T02:30:00Z"
				},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[144.70, -37.55], [144.76, -37.55], [144.73, -37.60], [144.70, -37.55]]]
				}
			},
			{
				"type": "Feature",
				"properties": {"id": "flood-1", "feedType": "warning", "title": "Flood Watch"},
				"geometry": {
					"type": "GeometryCollection",
					"geometries": [
						{"type": "Point", "coordinates": [144.36, -38.15]},
						{"type": "Polygon", "coordinates": [[[144.30, -38.10], [144.40, -38.10], [144.35, -38.20]]]}
					]
				}
			},
			{
				"type": "Feature",
				"properties": {"id": "incident-1", "feedType": "incident", "title": "Storm damage"},
				"geometry": {"type": "Point", "coordinates": [145.10, -37.90]}
			},
			{
				"type": "Feature",
				"properties": {"id": "bare-1", "feedType": "incident", "title": "No geometry"},
				"geometry": null
			}
		]
	}`

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		w.Write([]byte(body))
	}))

	events, err := c.FetchHazardSet(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 4)

	fire := events[0]
	assert.Equal(t, "fire-1", fire.ID)
	assert.Equal(t, "warning", fire.FeedType)
	assert.Equal(t, "Leave Immediately", fire.Action)
	assert.Equal(t, "Sunbury and surrounds", fire.LocationText)
	assert.Equal(t, "2026-02-10T02:30:00Z", fire.Updated)
	assert.Nil(t, fire.Point)
	require.Len(t, fire.Polygon, 4)
	assert.Equal(t, 144.70, fire.Polygon[0].Lon)
	assert.Equal(t, -37.55, fire.Polygon[0].Lat)

	// The collection contributes both the point and the polygon.
	flood := events[1]
	require.NotNil(t, flood.Point)
	assert.Equal(t, 144.36, flood.Point.Lon)
	assert.Len(t, flood.Polygon, 3)

	incident := events[2]
	require.NotNil(t, incident.Point)
	assert.Nil(t, incident.Polygon)

	bare := events[3]
	assert.Nil(t, bare.Point)
	assert.Nil(t, bare.Polygon)
}

func TestFetchHazardSet_EmptyCollectionIsValid(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))

	events, err := c.FetchHazardSet(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFetchHazardSet_MalformedGeometryDegrades(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"type": "FeatureCollection",
			"features": [
				{
					"type": "Feature",
					"properties": {"id": "odd-1", "title": "Bad coords"},
					"geometry": {"type": "Polygon", "coordinates": "not-an-array"}
				},
				{
					"type": "Feature",
					"properties": {"id": "odd-2", "title": "Unknown type"},
					"geometry": {"type": "MultiLineString", "coordinates": [[[1, 2]]]}
				}
			]
		}`))
	}))

	events, err := c.FetchHazardSet(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Nil(t, e.Point, "%s", e.ID)
		assert.Nil(t, e.Polygon, "%s", e.ID)
	}
}

func TestWithRetry_RecoversWithinBudget(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"lastModified":"m","lastHash":"h"}`))
	}))

	token, err := c.FetchVersionToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m|h", token)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWithRetry_BudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))

	_, err := c.FetchVersionToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(retryAttempts), calls.Load())
}

func TestWithRetry_ContextCancelStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	// A long retry delay so cancellation, not the budget, ends the loop.
	c := NewClient(srv.URL, time.Second, time.Minute, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.FetchVersionToken(ctx)
		done <- err
	}()

	// Let the first attempt land, then cancel mid-backoff.
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not return after cancellation")
	}
	assert.Equal(t, int32(1), calls.Load())
}
