package world

import "apocalypse.sim/internal/sim/automaton"

// Wiring selects the optional parts of the transition graph.
type Wiring struct {
	// Grouping lets humans flock when they see each other and no zombie.
	Grouping bool
	// Reproduction adds the Resting/Reproduce pair to humans.
	Reproduction bool
}

// NewMachine builds the transition graph shared by every agent of a World.
func NewMachine(o Wiring) *automaton.Machine[*Agent] {
	m := automaton.New[*Agent]()

	var (
		hw = humanWandering{grouping: o.Grouping}
		zw = zombieWandering{}
		az = avoidingZombie{}
		fh = formingHerd{}
		ch = chasingHuman{}

		id = idle{}
		ih = interactionHuman{}
		bt = infectHuman{}
		rz = removeZombie{}

		su   = susceptible{}
		sick = infected{}
		tu   = turned{}

		fd = findDoor{}
		es = escaped{}
	)

	// zombies
	m.Connect(zw, ch)
	m.Connect(ch, zw)
	m.Connect(id, ih)
	m.Connect(ih, bt)
	m.Connect(ih, rz)
	m.Connect(bt, id)

	// humans
	m.Connect(hw, az)
	m.Connect(az, hw)
	if o.Grouping {
		m.Connect(hw, fh)
		m.Connect(az, fh)
		m.Connect(fh, hw)
		m.Connect(fh, az)
	}
	m.Connect(su, sick)
	m.Connect(sick, tu)
	m.Connect(fd, es)

	if o.Reproduction {
		m.Connect(resting{}, reproduce{})
		m.Connect(reproduce{}, resting{})
	}
	return m
}
