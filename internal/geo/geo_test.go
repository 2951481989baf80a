package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKmSymmetry(t *testing.T) {
	mumbai := Coordinate{Lat: 19.076, Lng: 72.8777}
	pune := Coordinate{Lat: 18.5204, Lng: 73.8567}

	ab := DistanceKm(mumbai, pune)
	ba := DistanceKm(pune, mumbai)
	require.False(t, Undefined(ab))
	assert.Equal(t, ab, ba)
	// Mumbai to Pune is roughly 120 km great-circle.
	assert.InDelta(t, 120, ab, 10)
}

func TestDistanceKmIdentity(t *testing.T) {
	p := Coordinate{Lat: 19.076, Lng: 72.8777}
	assert.Equal(t, 0.0, DistanceKm(p, p))
}

func TestDistanceKmInvalidInput(t *testing.T) {
	valid := Coordinate{Lat: 19.076, Lng: 72.8777}
	cases := []Coordinate{
		{Lat: 91, Lng: 0},
		{Lat: -91, Lng: 0},
		{Lat: 0, Lng: 181},
		{Lat: 0, Lng: -181},
		{Lat: math.NaN(), Lng: 0},
	}
	for _, c := range cases {
		assert.True(t, Undefined(DistanceKm(c, valid)), "lat=%v lng=%v", c.Lat, c.Lng)
		assert.True(t, Undefined(DistanceKm(valid, c)), "lat=%v lng=%v", c.Lat, c.Lng)
	}
}

func TestCoordinateValidBounds(t *testing.T) {
	assert.True(t, Coordinate{Lat: 90, Lng: 180}.Valid())
	assert.True(t, Coordinate{Lat: -90, Lng: -180}.Valid())
	assert.False(t, Coordinate{Lat: 90.0001, Lng: 0}.Valid())
}

func TestFormatDistance(t *testing.T) {
	cases := []struct {
		km   float64
		want string
	}{
		{0.0421, "42m"},
		{0.9996, "1000m"},
		{1.0, "1.0km"},
		{3.14, "3.1km"},
		{9.99, "10.0km"},
		{10.0, "10km"},
		{12.6, "13km"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDistance(c.km), "km=%v", c.km)
	}
	assert.Equal(t, "", FormatDistance(math.NaN()))
}
