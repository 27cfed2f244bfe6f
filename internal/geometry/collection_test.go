package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverage(t *testing.T) {
	square := []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}, {1, 1}}
	hull := Coverage(square)
	require.NotNil(t, hull)
	assert.True(t, hull.Closed())
	assert.Len(t, hull, 5)
	assert.InDelta(t, 4.0, planar.Area(hull), 1e-9)
	assert.Equal(t, orb.CCW, hull.Orientation())

	assert.Nil(t, Coverage([]orb.Point{{0, 0}, {1, 1}}))
	assert.Nil(t, Coverage([]orb.Point{{0, 0}, {1, 1}, {2, 2}}))
	assert.Nil(t, Coverage([]orb.Point{{0, 0}, {0, 0}, {0, 0}}))
}

func TestCollection(t *testing.T) {
	markers := []Marker{
		{ID: 1, Point: orb.Point{4.88, 52.37}, Properties: map[string]any{"price": 1000}},
		{ID: 2, Point: orb.Point{4.90, 52.36}},
		{ID: 3, Point: orb.Point{4.92, 52.38}},
	}

	fc := Collection(markers)
	require.Len(t, fc.Features, 4)
	assert.Equal(t, uint(1), fc.Features[0].ID)
	assert.Equal(t, 1000, fc.Features[0].Properties["price"])
	assert.Equal(t, "coverage", fc.Features[3].Properties["kind"])
	assert.Equal(t, orb.Bound{Min: orb.Point{4.88, 52.36}, Max: orb.Point{4.92, 52.38}}, fc.BBox.Bound())

	small := Collection(markers[:1])
	assert.Len(t, small.Features, 1)

	empty := Collection(nil)
	assert.Empty(t, empty.Features)
	assert.Nil(t, empty.BBox)
}
