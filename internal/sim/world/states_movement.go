package world

import (
	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/world/logic/mathx"
)

// wander steps a to a random free cell, or along its road when it is on one.
func wander(a *Agent) {
	w := a.world
	if onRoad(a) && w.travelRoad(a) {
		return
	}
	cells := FreeCells(a)
	if len(cells) == 0 {
		return
	}
	w.move(a, cells[w.rng.Intn(len(cells))])
}

type humanWandering struct {
	base
	grouping bool
}

func (humanWandering) Name() string { return StateHumanWandering }

func (s humanWandering) CanEnter(t *turn) bool {
	seen := t.Agent.world.visible(t.Agent)
	if anyKind(seen, grid.KindZombie) {
		return false
	}
	return !s.grouping || !anyKind(seen, grid.KindHuman)
}

func (humanWandering) OnEnter(t *turn) { wander(t.Agent) }
func (humanWandering) OnTick(t *turn)  { wander(t.Agent) }

type zombieWandering struct{ base }

func (zombieWandering) Name() string { return StateZombieWandering }

func (zombieWandering) CanEnter(t *turn) bool {
	_, ok := NearestTarget(t.Agent, t.Agent.world.visible(t.Agent))
	return !ok
}

func (zombieWandering) OnEnter(t *turn) { wander(t.Agent) }
func (zombieWandering) OnTick(t *turn)  { wander(t.Agent) }

type avoidingZombie struct{ base }

func (avoidingZombie) Name() string { return StateAvoidingZombie }

// escapeCell resolves the flee direction of a into a destination. ok is false
// when no zombie is in sight or fleeing leads nowhere.
func escapeCell(a *Agent) (grid.Pos, bool) {
	v, ok := FindEscape(a, a.world.visible(a))
	if !ok || v.IsZero() {
		return a.Pos, false
	}
	next := BestCell(a, vecOf(a.Pos).Add(v))
	return next, next != a.Pos
}

func (avoidingZombie) CanEnter(t *turn) bool {
	_, ok := escapeCell(t.Agent)
	return ok
}

// Halt keeps the human fleeing while it still has somewhere to go.
func (avoidingZombie) Halt(t *turn) bool {
	_, ok := escapeCell(t.Agent)
	return ok
}

func (avoidingZombie) OnTick(t *turn) {
	a := t.Agent
	next, ok := escapeCell(a)
	if !ok {
		a.Traits.Direction = grid.Pos{}
		return
	}
	a.world.move(a, next)
}

type formingHerd struct{ base }

func (formingHerd) Name() string { return StateFormingHerd }

func (formingHerd) CanEnter(t *turn) bool {
	seen := t.Agent.world.visible(t.Agent)
	return !anyKind(seen, grid.KindZombie) && anyKind(seen, grid.KindHuman)
}

func (formingHerd) OnTick(t *turn) {
	a := t.Agent
	w := a.world
	humans := filterKind(w.visible(a), grid.KindHuman)
	target := vecOf(a.Pos).Add(FlockingVector(a, humans))
	next := BestCell(a, target)
	if next == a.Pos {
		jitter := mathx.V(w.rng.Intn(3)-1, w.rng.Intn(3)-1)
		next = BestCell(a, target.Add(jitter))
	}
	w.move(a, next)
}

type chasingHuman struct{ base }

func (chasingHuman) Name() string { return StateChasingHuman }

func (chasingHuman) CanEnter(t *turn) bool {
	a := t.Agent
	if anyInfectedHuman(a.world.adjacent(a)) {
		return false
	}
	_, ok := NearestTarget(a, a.world.visible(a))
	return ok
}

func (chasingHuman) OnTick(t *turn) {
	a := t.Agent
	h, ok := NearestTarget(a, a.world.visible(a))
	if !ok {
		return
	}
	a.world.move(a, BestCell(a, vecOf(h.Pos)))
}
