// Package region holds the polygonal places and roads a map is made of.
// Regions are read-only once a run starts.
package region

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"apocalypse.sim/internal/sim/grid"
)

type Region interface {
	Name() string
	Kind() grid.Kind
	Contains(p grid.Pos) bool
	Polygon() orb.Polygon
}

type shape struct {
	name string
	poly orb.Polygon
}

func newShape(name string, vertices [][2]float64) shape {
	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, orb.Point{v[0], v[1]})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return shape{name: name, poly: orb.Polygon{ring}}
}

func (s shape) Name() string         { return s.name }
func (s shape) Polygon() orb.Polygon { return s.poly }

// Vertices returns the closed outer ring.
func (s shape) Vertices() [][2]float64 {
	if len(s.poly) == 0 {
		return nil
	}
	out := make([][2]float64, len(s.poly[0]))
	for i, pt := range s.poly[0] {
		out[i] = [2]float64{pt.X(), pt.Y()}
	}
	return out
}

// Contains treats points on the boundary as inside.
func (s shape) Contains(p grid.Pos) bool {
	return planar.PolygonContains(s.poly, orb.Point{float64(p.X), float64(p.Y)})
}

// Coords lists the cells inside the shape, row by row, clipped to a
// width x height grid.
func (s shape) Coords(width, height int) []grid.Pos {
	b := s.poly.Bound()
	x0 := int(math.Floor(b.Min.X()))
	y0 := int(math.Floor(b.Min.Y()))
	x1 := int(math.Ceil(b.Max.X()))
	y1 := int(math.Ceil(b.Max.Y()))
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > width-1 {
		x1 = width - 1
	}
	if y1 > height-1 {
		y1 = height - 1
	}
	var out []grid.Pos
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			p := grid.Pos{X: x, Y: y}
			if s.Contains(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

type Place struct {
	shape

	Density     float64
	Color       string
	HumanSpeed  int
	ZombieSpeed int
}

func NewPlace(name string, vertices [][2]float64, density float64) *Place {
	return &Place{
		shape:       newShape(name, vertices),
		Density:     density,
		HumanSpeed:  2,
		ZombieSpeed: 1,
	}
}

func (p *Place) Kind() grid.Kind { return grid.KindPlace }

// DensityToAmount converts the place density into an agent count for a place
// covering cells cells.
func (p *Place) DensityToAmount(cells int) int {
	if cells <= 0 || p.Density <= 0 {
		return 0
	}
	n := int(math.Ceil(float64(cells) * p.Density))
	if n > cells {
		n = cells
	}
	return n
}

type Road struct {
	shape

	// Direction is the travel direction at the trailing edge; its components
	// are non-negative.
	Direction grid.Pos
	Speed     int
}

func NewRoad(name string, vertices [][2]float64, dir grid.Pos, speed int) *Road {
	if dir.X < 0 {
		dir.X = -dir.X
	}
	if dir.Y < 0 {
		dir.Y = -dir.Y
	}
	if speed < 1 {
		speed = 1
	}
	return &Road{shape: newShape(name, vertices), Direction: dir, Speed: speed}
}

func (r *Road) Kind() grid.Kind { return grid.KindRoad }

// Flip returns the travel direction for an agent entering the road at p.
// Each component is negated when p is at least as close to the road's max
// edge on that axis as to its min edge.
func (r *Road) Flip(p grid.Pos) grid.Pos {
	b := r.poly.Bound()
	dir := r.Direction
	x, y := float64(p.X), float64(p.Y)
	if math.Abs(b.Max.X()-x) <= math.Abs(b.Min.X()-x) {
		dir.X = -dir.X
	}
	if math.Abs(b.Max.Y()-y) <= math.Abs(b.Min.Y()-y) {
		dir.Y = -dir.Y
	}
	return dir
}

// Layout is the full set of regions of a map.
type Layout struct {
	Places []*Place
	Roads  []*Road
}

func (l *Layout) Empty() bool {
	return l == nil || (len(l.Places) == 0 && len(l.Roads) == 0)
}

// RegionContaining returns the first place containing p, then the first road.
func (l *Layout) RegionContaining(p grid.Pos) (Region, bool) {
	if l == nil {
		return nil, false
	}
	for _, pl := range l.Places {
		if pl.Contains(p) {
			return pl, true
		}
	}
	for _, r := range l.Roads {
		if r.Contains(p) {
			return r, true
		}
	}
	return nil, false
}

func (l *Layout) PlaceByName(name string) (*Place, bool) {
	if l == nil {
		return nil, false
	}
	for _, pl := range l.Places {
		if pl.Name() == name {
			return pl, true
		}
	}
	return nil, false
}

// TerrainAt classifies p as the kind of the containing region, or wall when
// the layout has regions and none contains p. An empty layout is open ground.
func (l *Layout) TerrainAt(p grid.Pos) (grid.Kind, bool) {
	if l.Empty() {
		return "", false
	}
	if r, ok := l.RegionContaining(p); ok {
		return r.Kind(), true
	}
	return grid.KindWall, true
}
