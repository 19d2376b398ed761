package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"apocalypse.sim/internal/sim/grid"
	world "apocalypse.sim/internal/sim/world"
)

// Counts reports what Populate spawned.
type Counts struct {
	Humans  int
	Zombies int
}

// Populate sets the doors, spawns the fixed agents, then fills every place of
// the world's layout to its density. In the outbreak place
// ceil(n*infected_chance) of the n spawned agents are zombies, or exactly one
// with patient_zero.
func (s Scenario) Populate(w *world.World, rng *rand.Rand) (Counts, error) {
	var c Counts
	doors := make([]grid.Pos, 0, len(s.Doors))
	for _, d := range s.Doors {
		doors = append(doors, grid.Pos{X: d[0], Y: d[1]})
	}
	if err := w.SetDoors(doors); err != nil {
		return c, err
	}

	for _, g := range s.Agents {
		kind := grid.Kind(g.Kind)
		for _, p := range g.Positions {
			if _, err := w.Spawn(kind, grid.Pos{X: p[0], Y: p[1]}, world.ReasonScenario); err != nil {
				return c, fmt.Errorf("agent %s at %v: %w", g.Kind, p, err)
			}
			c.add(kind)
		}
	}

	layout := w.Layout()
	outbreak, err := s.outbreak(layout)
	if err != nil {
		return c, err
	}
	g := w.Grid()
	for _, pl := range layout.Places {
		var cells []grid.Pos
		for _, p := range pl.Coords(g.Width(), g.Height()) {
			if !g.HasKind(p, grid.KindHuman, grid.KindZombie) {
				cells = append(cells, p)
			}
		}
		n := pl.DensityToAmount(len(cells))
		picks := rng.Perm(len(cells))[:n]

		zombies := 0
		if pl == outbreak && n > 0 {
			if s.PatientZero {
				zombies = 1
			} else {
				zombies = int(math.Ceil(float64(n) * s.InfectedChance))
			}
		}
		for i, idx := range picks {
			kind := grid.KindHuman
			if i < zombies {
				kind = grid.KindZombie
			}
			if _, err := w.Spawn(kind, cells[idx], world.ReasonScenario); err != nil {
				return c, fmt.Errorf("place %s: %w", pl.Name(), err)
			}
			c.add(kind)
		}
	}
	return c, nil
}

func (c *Counts) add(kind grid.Kind) {
	if kind == grid.KindZombie {
		c.Zombies++
	} else {
		c.Humans++
	}
}
