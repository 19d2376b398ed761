package world

import (
	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/region"
	"apocalypse.sim/internal/sim/world/logic/mathx"
)

// trackRegion refreshes the region traits of a after it landed on a.Pos.
// Stepping onto a road from elsewhere picks the travel direction for the
// edge the agent came in from.
func (w *World) trackRegion(a *Agent) {
	r, ok := w.layout.RegionContaining(a.Pos)
	if !ok {
		a.Traits.Region = ""
		a.Traits.RoadDir = grid.Pos{}
		a.Traits.RoadSpeed = 0
		return
	}
	if r.Name() == a.Traits.Region {
		return
	}
	a.Traits.Region = r.Name()
	if road, ok := r.(*region.Road); ok {
		a.Traits.RoadDir = road.Flip(a.Pos)
		a.Traits.RoadSpeed = road.Speed
		return
	}
	a.Traits.RoadDir = grid.Pos{}
	a.Traits.RoadSpeed = 0
}

func onRoad(a *Agent) bool {
	return a.Traits.RoadSpeed > 0 && a.Traits.RoadDir != (grid.Pos{})
}

// travelRoad walks a up to RoadSpeed cells along its road direction and
// reports whether it moved at all.
func (w *World) travelRoad(a *Agent) bool {
	start := a.Pos
	dir := mathx.V(a.Traits.RoadDir.X, a.Traits.RoadDir.Y)
	for i := 0; i < a.Traits.RoadSpeed && onRoad(a); i++ {
		next := BestCell(a, mathx.V(a.Pos.X, a.Pos.Y).Add(dir))
		if next == a.Pos {
			break
		}
		w.move(a, next)
	}
	if a.Pos == start {
		return false
	}
	a.Traits.Direction = a.Pos.Sub(start)
	return true
}
