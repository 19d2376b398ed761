package world

import (
	"math"

	"apocalypse.sim/internal/sim/grid"
)

const stashTarget = "target"

type idle struct{ base }

func (idle) Name() string { return StateIdle }

func (idle) CanEnter(t *turn) bool {
	return !anyInfectedHuman(t.Agent.world.adjacent(t.Agent))
}

type interactionHuman struct{ base }

func (interactionHuman) Name() string { return StateInteractionHuman }

// CanEnter looks for an adjacent human nobody has bitten yet and stashes it
// for OnEnter.
func (interactionHuman) CanEnter(t *turn) bool {
	for _, h := range t.Agent.world.adjacent(t.Agent) {
		if !h.IsHuman() || !h.InState(StateSusceptible) || h.Traits.Infected {
			continue
		}
		t.Stash(stashTarget, h)
		return true
	}
	t.Forget(stashTarget)
	return false
}

func (interactionHuman) OnEnter(t *turn) {
	h, ok := stashedTarget(t)
	if !ok {
		return
	}
	w := t.Agent.world
	roll := w.draw()
	if roll <= w.surviveChance(h) {
		h.Traits.ZombieKills++
		t.Switch(StateInteractionHuman, StateRemoveZombie)
		return
	}
	t.Switch(StateInteractionHuman, StateInfectHuman)
}

func stashedTarget(t *turn) (*Agent, bool) {
	v, ok := t.Lookup(stashTarget)
	if !ok {
		return nil, false
	}
	h, ok := v.(*Agent)
	return h, ok && h.Alive()
}

// surviveChance is the probability that human h kills the zombie attacking
// it. Past kills and the humans standing around h both help.
func (w *World) surviveChance(h *Agent) float64 {
	c := w.cfg.Combat
	crowd := len(filterKind(w.adjacent(h), grid.KindHuman))
	killBuff := math.Min(float64(h.Traits.ZombieKills)*c.KillBuffStep, c.KillBuffCap)
	crowdBuff := math.Min(float64(crowd)*c.CrowdBuffStep, c.CrowdBuffCap)
	return math.Min(c.SurviveCap, c.HumanKillZombieChance+killBuff+crowdBuff)
}

type removeZombie struct{ base }

func (removeZombie) Name() string { return StateRemoveZombie }

func (removeZombie) OnEnter(t *turn) {
	w := t.Agent.world
	w.pop.Recovered++
	w.stats.RecordKill(w.tick.Load())
	w.Remove(t.Agent, ReasonKilled)
}

type infectHuman struct{ base }

func (infectHuman) Name() string { return StateInfectHuman }

func (infectHuman) OnEnter(t *turn) {
	if h, ok := stashedTarget(t); ok {
		h.Traits.Infected = true
	}
	t.Forget(stashTarget)
}
