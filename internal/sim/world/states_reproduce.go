package world

import "apocalypse.sim/internal/sim/grid"

type resting struct{ base }

func (resting) Name() string { return StateResting }

func (resting) CanEnter(t *turn) bool {
	tr := t.Agent.Traits
	return tr.HasReproduced && tr.TimeAlive-tr.TimeAtReproduction <= t.Agent.world.cfg.ReproduceCooldown
}

type reproduce struct{ base }

func (reproduce) Name() string { return StateReproduce }

func (reproduce) CanEnter(t *turn) bool {
	tr := t.Agent.Traits
	cooldown := t.Agent.world.cfg.ReproduceCooldown
	if tr.HasReproduced {
		return tr.TimeAlive-tr.TimeAtReproduction > cooldown
	}
	return tr.TimeAlive > cooldown
}

func (reproduce) OnTick(t *turn) {
	a := t.Agent
	w := a.world
	adj := w.adjacent(a)
	if anyKind(adj, grid.KindZombie) {
		return
	}
	var partner *Agent
	for _, b := range adj {
		if b.IsHuman() && !b.InState(StateInfected) && !anyKind(w.adjacent(b), grid.KindZombie) {
			partner = b
			break
		}
	}
	if partner == nil {
		return
	}
	cells := birthCells(a, partner)
	if len(cells) == 0 {
		return
	}
	if _, err := w.Spawn(grid.KindHuman, cells[w.rng.Intn(len(cells))], ReasonBorn); err != nil {
		t.Fail(err)
		return
	}
	for _, p := range []*Agent{a, partner} {
		p.Traits.HasReproduced = true
		p.Traits.TimeAtReproduction = p.Traits.TimeAlive
	}
	w.stats.RecordBirth(w.tick.Load())
}

// birthCells are the free cells next to either parent, without their own
// cells and without duplicates.
func birthCells(a, b *Agent) []grid.Pos {
	seen := map[grid.Pos]bool{a.Pos: true, b.Pos: true}
	var out []grid.Pos
	for _, parent := range []*Agent{a, b} {
		for _, c := range FreeCells(parent) {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
