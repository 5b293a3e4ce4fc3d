package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"safecircle/apperr"
)

func TestDistanceSymmetricAndZero(t *testing.T) {
	points := []Point{
		{0, 0},
		{0, 0.01},
		{10, 10},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{89.9, 179.9},
	}
	for _, a := range points {
		assert.Equal(t, 0.0, Distance(a, a))
		for _, b := range points {
			assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
		}
	}
}

func TestDistanceKnownValues(t *testing.T) {
	// one hundredth of a degree of longitude on the equator
	assert.InDelta(t, 1.112, Distance(Point{0, 0}, Point{0, 0.01}), 0.001)
	assert.Greater(t, Distance(Point{0, 0}, Point{10, 10}), 1000.0)
	assert.InDelta(t, math.Pi*EarthRadiusKm, Distance(Point{0, 0}, Point{0, 180}), 1e-6)
}

func TestIsNearby(t *testing.T) {
	origin := Point{0, 0}
	assert.True(t, IsNearby(origin, Point{0, 0.01}, DefaultRadiusKm))
	assert.False(t, IsNearby(origin, Point{0, 0.02}, DefaultRadiusKm))
	assert.True(t, IsNearby(origin, origin, 0))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Point{45, -120}.Validate())
	assert.NoError(t, Point{-90, 180}.Validate())

	for _, p := range []Point{{91, 0}, {0, -181}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		err := p.Validate()
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%v", p)
	}
}
