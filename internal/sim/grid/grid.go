// Package grid is a bounded, non-toroidal 2D lattice where any number of
// occupants may share a cell.
package grid

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds = errors.New("grid: position out of bounds")
	ErrNotPlaced   = errors.New("grid: occupant not placed")
	ErrPlaced      = errors.New("grid: occupant already placed")
)

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) Add(o Pos) Pos { return Pos{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Pos) Sub(o Pos) Pos { return Pos{X: p.X - o.X, Y: p.Y - o.Y} }

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

type Kind string

const (
	KindHuman  Kind = "human"
	KindZombie Kind = "zombie"
	KindWall   Kind = "wall"
	KindPlace  Kind = "place"
	KindRoad   Kind = "road"
)

// Occupant is anything that can sit on a cell. Implementations must be
// comparable (pointer types in practice); the grid indexes them by identity.
type Occupant interface {
	Kind() Kind
}

type Neighborhood uint8

const (
	// Moore is the 8-connected neighborhood (square of side 2r+1).
	Moore Neighborhood = iota
	// VonNeumann is the 4-connected neighborhood (diamond, |dx|+|dy| <= r).
	VonNeumann
)

type Grid struct {
	width  int
	height int

	cells [][]Occupant
	index map[Occupant]Pos
}

func New(width, height int) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([][]Occupant, width*height),
		index:  make(map[Occupant]Pos, 256),
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < g.width && p.Y < g.height
}

func (g *Grid) idx(p Pos) int { return p.Y*g.width + p.X }

// NeighborCells lists the in-bounds cells around p. Order is x-major, then y,
// both ascending, so callers that break ties by "first found" are stable.
func (g *Grid) NeighborCells(p Pos, nb Neighborhood, includeCenter bool, radius int) []Pos {
	if radius < 0 {
		radius = 0
	}
	out := make([]Pos, 0, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			if dx == 0 && dy == 0 && !includeCenter {
				continue
			}
			if nb == VonNeumann && abs(dx)+abs(dy) > radius {
				continue
			}
			q := Pos{X: p.X + dx, Y: p.Y + dy}
			if !g.InBounds(q) {
				continue
			}
			out = append(out, q)
		}
	}
	return out
}

// Neighbors returns every occupant in the neighborhood of p, cell by cell in
// NeighborCells order and in placement order within a cell.
func (g *Grid) Neighbors(p Pos, nb Neighborhood, includeCenter bool, radius int) []Occupant {
	var out []Occupant
	for _, q := range g.NeighborCells(p, nb, includeCenter, radius) {
		out = append(out, g.cells[g.idx(q)]...)
	}
	return out
}

func (g *Grid) IsEmpty(p Pos) bool {
	if !g.InBounds(p) {
		return false
	}
	return len(g.cells[g.idx(p)]) == 0
}

// OccupantsAt returns a copy of the occupant list of p.
func (g *Grid) OccupantsAt(p Pos) []Occupant {
	if !g.InBounds(p) {
		return nil
	}
	c := g.cells[g.idx(p)]
	out := make([]Occupant, len(c))
	copy(out, c)
	return out
}

// HasKind reports whether any occupant of p has one of kinds.
func (g *Grid) HasKind(p Pos, kinds ...Kind) bool {
	if !g.InBounds(p) {
		return false
	}
	for _, o := range g.cells[g.idx(p)] {
		k := o.Kind()
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
	}
	return false
}

func (g *Grid) PosOf(o Occupant) (Pos, bool) {
	p, ok := g.index[o]
	return p, ok
}

func (g *Grid) Place(o Occupant, p Pos) error {
	if !g.InBounds(p) {
		return fmt.Errorf("place at %s: %w", p, ErrOutOfBounds)
	}
	if _, ok := g.index[o]; ok {
		return ErrPlaced
	}
	i := g.idx(p)
	g.cells[i] = append(g.cells[i], o)
	g.index[o] = p
	return nil
}

// Remove takes o off the grid. It reports false when o was not placed.
func (g *Grid) Remove(o Occupant) bool {
	p, ok := g.index[o]
	if !ok {
		return false
	}
	g.detach(o, p)
	delete(g.index, o)
	return true
}

func (g *Grid) Move(o Occupant, to Pos) error {
	from, ok := g.index[o]
	if !ok {
		return ErrNotPlaced
	}
	if !g.InBounds(to) {
		return fmt.Errorf("move to %s: %w", to, ErrOutOfBounds)
	}
	if from == to {
		return nil
	}
	g.detach(o, from)
	i := g.idx(to)
	g.cells[i] = append(g.cells[i], o)
	g.index[o] = to
	return nil
}

func (g *Grid) detach(o Occupant, p Pos) {
	i := g.idx(p)
	c := g.cells[i]
	for k, cur := range c {
		if cur == o {
			g.cells[i] = append(c[:k], c[k+1:]...)
			return
		}
	}
}

// Count returns the number of placed occupants.
func (g *Grid) Count() int { return len(g.index) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
