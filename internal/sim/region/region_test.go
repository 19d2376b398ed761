package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apocalypse.sim/internal/sim/grid"
)

func square(x0, y0, x1, y1 float64) [][2]float64 {
	return [][2]float64{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}}
}

func TestPlace_ContainsBoundaryAndCoords(t *testing.T) {
	p := NewPlace("city", square(0, 0, 4, 4), 0.1)

	assert.True(t, p.Contains(grid.Pos{X: 0, Y: 0}))
	assert.True(t, p.Contains(grid.Pos{X: 4, Y: 2}))
	assert.False(t, p.Contains(grid.Pos{X: 5, Y: 2}))

	coords := p.Coords(10, 10)
	require.Len(t, coords, 25)
	assert.Equal(t, grid.Pos{X: 0, Y: 0}, coords[0])
	assert.Equal(t, grid.Pos{X: 1, Y: 0}, coords[1])

	clipped := p.Coords(3, 3)
	assert.Len(t, clipped, 9)
}

func TestPlace_DensityToAmount(t *testing.T) {
	tests := []struct {
		density float64
		cells   int
		want    int
	}{
		{0.1, 25, 3},
		{0.5, 10, 5},
		{0, 10, 0},
		{1.5, 4, 4},
		{0.3, 0, 0},
	}
	for _, tt := range tests {
		p := NewPlace("p", square(0, 0, 1, 1), tt.density)
		assert.Equal(t, tt.want, p.DensityToAmount(tt.cells), "density=%v cells=%d", tt.density, tt.cells)
	}
}

func TestRoad_FlipByNearestEdge(t *testing.T) {
	r := NewRoad("r", [][2]float64{{8, 10}, {10, 8}, {52, 50}, {50, 52}}, grid.Pos{X: 1, Y: 1}, 2)

	assert.Equal(t, grid.Pos{X: 1, Y: 1}, r.Flip(grid.Pos{X: 9, Y: 9}))
	assert.Equal(t, grid.Pos{X: -1, Y: -1}, r.Flip(grid.Pos{X: 51, Y: 51}))
	assert.Equal(t, grid.Pos{X: 1, Y: -1}, r.Flip(grid.Pos{X: 9, Y: 50}))

	neg := NewRoad("n", square(0, 0, 10, 2), grid.Pos{X: -1, Y: 0}, 0)
	assert.Equal(t, grid.Pos{X: 1, Y: 0}, neg.Direction)
	assert.Equal(t, 1, neg.Speed)
}

func TestLayout_RegionContainingPrefersPlaces(t *testing.T) {
	city := NewPlace("city", square(0, 0, 10, 10), 0.2)
	road := NewRoad("road", square(5, 5, 20, 6), grid.Pos{X: 1}, 2)
	l := &Layout{Places: []*Place{city}, Roads: []*Road{road}}

	r, ok := l.RegionContaining(grid.Pos{X: 5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, "city", r.Name())

	r, ok = l.RegionContaining(grid.Pos{X: 15, Y: 5})
	require.True(t, ok)
	assert.Equal(t, grid.KindRoad, r.Kind())

	_, ok = l.RegionContaining(grid.Pos{X: 15, Y: 15})
	assert.False(t, ok)

	k, ok := l.TerrainAt(grid.Pos{X: 15, Y: 15})
	require.True(t, ok)
	assert.Equal(t, grid.KindWall, k)

	_, ok = (&Layout{}).TerrainAt(grid.Pos{})
	assert.False(t, ok)

	pl, ok := l.PlaceByName("city")
	require.True(t, ok)
	assert.Same(t, city, pl)
}
