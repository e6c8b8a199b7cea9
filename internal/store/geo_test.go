package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	assert.Zero(t, Haversine(3.3, 6.5, 3.3, 6.5))

	// One degree of latitude is about 111.2 km.
	assert.InDelta(t, 111195, Haversine(0, 0, 0, 1), 100)

	// Lagos to Abuja.
	assert.InDelta(t, 533800, Haversine(3.3792, 6.5244, 7.4951, 9.0579), 1000)

	assert.Equal(t, Haversine(3.3, 6.5, 3.4, 6.6), Haversine(3.4, 6.6, 3.3, 6.5))
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	lng, lat, radius := 3.3, 6.5, 10000.0
	b := boundingBox(lng, lat, radius)
	assert.False(t, b.allLng)
	assert.Less(t, b.minLat, lat)
	assert.Greater(t, b.maxLat, lat)

	// Points on the circle in the four cardinal directions must fall inside.
	assert.InDelta(t, radius, Haversine(lng, lat, lng, b.maxLat), 1)
	assert.InDelta(t, radius, Haversine(lng, lat, lng, b.minLat), 1)
	assert.InDelta(t, radius, Haversine(lng, lat, b.maxLng, lat), 10)
	assert.InDelta(t, radius, Haversine(lng, lat, b.minLng, lat), 10)
}

func TestBoundingBoxEdges(t *testing.T) {
	polar := boundingBox(0, 89.99, 10000)
	assert.True(t, polar.allLng)
	assert.Equal(t, 90.0, polar.maxLat)

	antimeridian := boundingBox(179.99, 0, 10000)
	assert.True(t, antimeridian.allLng)

	huge := boundingBox(0, 0, 20000000)
	assert.True(t, huge.allLng)
}
