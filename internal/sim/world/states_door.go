package world

import (
	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/world/logic/movement"
)

type findDoor struct{ base }

func (findDoor) Name() string { return StateFindDoor }

func (findDoor) OnTick(t *turn) {
	a := t.Agent
	w := a.world
	if w.doorSet[a.Pos] {
		t.Switch(StateFindDoor, StateEscaped)
		return
	}
	if len(w.doors) == 0 {
		wander(a)
		return
	}
	next, door := w.doorStep(a)
	if next == a.Pos {
		open := func(p grid.Pos) bool {
			return w.grid.InBounds(p) && !w.grid.HasKind(p, grid.KindWall)
		}
		if step, ok := movement.DetourStep(a.Pos, door, w.cfg.DetourDepth, open); ok && !w.grid.HasKind(step, blockingKinds...) {
			next = step
		}
	}
	w.move(a, next)
}

// doorStep lets every door propose the best cell toward it and returns the
// most proposed cell. Ties go to the door listed first. door is the door that
// first proposed the winning cell.
func (w *World) doorStep(a *Agent) (next, door grid.Pos) {
	votes := map[grid.Pos]int{}
	first := map[grid.Pos]grid.Pos{}
	var order []grid.Pos
	for _, d := range w.doors {
		c := BestCell(a, vecOf(d))
		if _, ok := first[c]; !ok {
			first[c] = d
			order = append(order, c)
		}
		votes[c]++
	}
	next = order[0]
	for _, c := range order[1:] {
		if votes[c] > votes[next] {
			next = c
		}
	}
	return next, first[next]
}

type escaped struct{ base }

func (escaped) Name() string { return StateEscaped }

func (escaped) OnEnter(t *turn) {
	a := t.Agent
	w := a.world
	w.pop.Escaped++
	w.stats.RecordEscape(w.tick.Load())
	w.Remove(a, ReasonEscaped)
}
