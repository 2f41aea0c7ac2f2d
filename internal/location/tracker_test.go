package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-proximity-service/internal/geo"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()
	assert.Nil(t, tr.Current())

	tr.Set(geo.Point{Lon: 144.96, Lat: -37.81})
	cur := tr.Current()
	require.NotNil(t, cur)
	assert.Equal(t, 144.96, cur.Lon)

	// Current returns a copy, not the stored pointer.
	cur.Lon = 0
	assert.Equal(t, 144.96, tr.Current().Lon)

	tr.Clear()
	assert.Nil(t, tr.Current())
}
