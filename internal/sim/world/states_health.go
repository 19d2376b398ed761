package world

import "apocalypse.sim/internal/sim/grid"

type susceptible struct{ base }

func (susceptible) Name() string { return StateSusceptible }

type infected struct{ base }

func (infected) Name() string { return StateInfected }

func (infected) CanEnter(t *turn) bool { return t.Agent.Traits.Infected }

func (infected) OnEnter(t *turn) { t.Agent.world.markInfected(t.Agent) }

type turned struct{ base }

func (turned) Name() string { return StateTurned }

func (turned) CanEnter(t *turn) bool {
	tr := t.Agent.Traits
	return tr.TimeAlive-tr.TimeAtInfection >= tr.IncubationTime
}

// OnEnter replaces the human with a zombie on the same cell. The zombie is
// placed before the human leaves so the cell is never free in between.
func (turned) OnEnter(t *turn) {
	a := t.Agent
	w := a.world
	pos := a.Pos
	if _, err := w.Spawn(grid.KindZombie, pos, ReasonTurned); err != nil {
		t.Fail(err)
		return
	}
	w.Remove(a, ReasonTurned)
	w.stats.RecordTurned(w.tick.Load())
}
