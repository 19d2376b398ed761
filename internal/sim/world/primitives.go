package world

import (
	"math"

	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/world/logic/mathx"
)

// Kinds an agent may not share a cell with.
var blockingKinds = []grid.Kind{grid.KindWall, grid.KindHuman, grid.KindZombie}

func vecOf(p grid.Pos) mathx.Vec2 { return mathx.V(p.X, p.Y) }

// FreeCells lists where a can be after one move: its own cell first, then
// every Moore neighbor holding no wall, human or zombie.
func FreeCells(a *Agent) []grid.Pos {
	if !a.Alive() {
		return nil
	}
	g := a.world.grid
	out := []grid.Pos{a.Pos}
	for _, c := range g.NeighborCells(a.Pos, grid.Moore, true, 1) {
		if c == a.Pos {
			continue
		}
		if g.HasKind(c, blockingKinds...) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// BestCell returns the free cell closest to target; the first one wins ties.
// A target equal to the current position returns it without a scan.
func BestCell(a *Agent, target mathx.Vec2) grid.Pos {
	if !a.Alive() || target == vecOf(a.Pos) {
		return a.Pos
	}
	best := a.Pos
	bestD := math.Inf(1)
	for _, c := range FreeCells(a) {
		d := mathx.Dist(vecOf(c), target)
		if d < bestD {
			best = c
			bestD = d
		}
	}
	return best
}

// NearestTarget picks the uninfected human closest to zombie a among
// visible. The remembered target is kept while it stays among the closest;
// otherwise one of the closest is drawn at random and remembered.
func NearestTarget(a *Agent, visible []*Agent) (*Agent, bool) {
	var nearest []*Agent
	bestD := -1
	for _, h := range visible {
		if !h.IsHuman() || !h.Alive() || h.InState(StateInfected) {
			continue
		}
		dx := h.Pos.X - a.Pos.X
		dy := h.Pos.Y - a.Pos.Y
		d := dx*dx + dy*dy
		switch {
		case bestD < 0 || d < bestD:
			bestD = d
			nearest = append(nearest[:0], h)
		case d == bestD:
			nearest = append(nearest, h)
		}
	}
	if len(nearest) == 0 {
		a.Traits.TargetID = 0
		return nil, false
	}
	for _, h := range nearest {
		if h.ID == a.Traits.TargetID {
			return h, true
		}
	}
	pick := nearest[a.world.rng.Intn(len(nearest))]
	a.Traits.TargetID = pick.ID
	return pick, true
}

// EscapeVector sums, over threats, the offset from the threat to a weighted
// by (vision + 1 - distance) and normalizes the sum. ok is false only when
// there are no threats; a threat layout that cancels out yields (0,0), true.
func EscapeVector(a *Agent, threats []*Agent) (v mathx.Vec2, ok bool) {
	if len(threats) == 0 {
		return mathx.Vec2{}, false
	}
	self := vecOf(a.Pos)
	vision := float64(a.Traits.Vision)
	var sum mathx.Vec2
	for _, z := range threats {
		d := self.Sub(vecOf(z.Pos))
		sum = sum.Add(d.Scale(vision + 1 - d.Len()))
	}
	return sum.Normalize(), true
}

// BruteForceEscape scores every free cell by the sum of square-rooted
// distances to the threats and heads for a random best-scoring one.
func BruteForceEscape(a *Agent, threats []*Agent) (mathx.Vec2, bool) {
	if len(threats) == 0 || !a.Alive() {
		return mathx.Vec2{}, false
	}
	var best []grid.Pos
	bestScore := math.Inf(-1)
	for _, c := range FreeCells(a) {
		score := 0.0
		for _, z := range threats {
			score += math.Sqrt(mathx.Dist(vecOf(c), vecOf(z.Pos)))
		}
		switch {
		case score > bestScore:
			bestScore = score
			best = append(best[:0], c)
		case score == bestScore:
			best = append(best, c)
		}
	}
	choice := best[a.world.rng.Intn(len(best))]
	return vecOf(choice.Sub(a.Pos)).Normalize(), true
}

// FindEscape is EscapeVector with a brute-force fallback for when following
// the vector would leave a where it is.
func FindEscape(a *Agent, neighbors []*Agent) (mathx.Vec2, bool) {
	threats := filterKind(neighbors, grid.KindZombie)
	v, ok := EscapeVector(a, threats)
	if !ok {
		return v, false
	}
	if BestCell(a, vecOf(a.Pos).Add(v)) == a.Pos {
		return BruteForceEscape(a, threats)
	}
	return v, true
}

// FlockingVector steers a with the humans it sees: alignment with their last
// moves, cohesion toward their centroid and separation from them. Each term
// is normalized before they are summed.
func FlockingVector(a *Agent, humans []*Agent) mathx.Vec2 {
	if len(humans) == 0 {
		return mathx.Vec2{}
	}
	n := float64(len(humans))
	self := vecOf(a.Pos)

	var heading, centroid, offsets mathx.Vec2
	for _, h := range humans {
		heading = heading.Add(vecOf(h.Traits.Direction))
		centroid = centroid.Add(vecOf(h.Pos))
		offsets = offsets.Add(vecOf(h.Pos).Sub(self))
	}
	alignment := heading.Scale(1 / n).Normalize()
	cohesion := centroid.Scale(1 / n).Sub(self).Normalize()
	separation := offsets.Scale(-1 / n).Normalize()

	return alignment.Add(cohesion).Add(separation).Normalize()
}
