package world

import (
	"apocalypse.sim/internal/sim/automaton"
	"apocalypse.sim/internal/sim/grid"
)

type Traits struct {
	Vision         int
	IncubationTime int

	// Infected is set by an attacking zombie; the health states pick it up.
	Infected        bool
	TimeAtInfection int

	HasReproduced      bool
	TimeAtReproduction int

	ZombieKills int

	// Direction is the displacement of the last move.
	Direction grid.Pos
	// TimeAlive grows by one every tick the agent is stepped.
	TimeAlive int

	// TargetID is the remembered pursuit target of a zombie (0 = none).
	TargetID uint64

	Region    string
	RoadDir   grid.Pos
	RoadSpeed int
}

type Agent struct {
	ID  uint64
	Pos grid.Pos

	Traits Traits

	kind    grid.Kind
	placed  bool
	carrier bool
	states  automaton.ActiveSet

	world *World
}

func (a *Agent) Kind() grid.Kind { return a.kind }

func (a *Agent) States() *automaton.ActiveSet { return &a.states }

// Alive is false once the agent has been removed; its Pos is stale then.
func (a *Agent) Alive() bool { return a != nil && a.placed }

func (a *Agent) InState(name string) bool { return a.states.Has(name) }

func (a *Agent) StateNames() []string { return a.states.Names() }

func (a *Agent) IsHuman() bool  { return a.kind == grid.KindHuman }
func (a *Agent) IsZombie() bool { return a.kind == grid.KindZombie }

// Marker is inert map decoration. It sits on the grid so movement can tell
// walls from open ground but never runs states.
type Marker struct {
	kind   grid.Kind
	Region string
}

func (m *Marker) Kind() grid.Kind { return m.kind }
