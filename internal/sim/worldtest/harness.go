package worldtest

import (
	"math/rand"
	"testing"

	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/region"
	world "apocalypse.sim/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - Spawn/Scatter place agents before or between ticks
// - Step()/StepN() advance the world and check the counters against a census
// - Ticks holds every tick log entry the world produced
//
// It intentionally avoids touching world internals so tests can live outside the world package.
type Harness struct {
	T *testing.T
	W *world.World

	Ticks []world.TickLogEntry
}

func NewHarness(t *testing.T, cfg world.Config, layout *region.Layout) *Harness {
	t.Helper()

	w, err := world.New(cfg, layout)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	h := &Harness{T: t, W: w}
	w.AddTickSink(h)
	return h
}

// WriteTick implements world.TickSink.
func (h *Harness) WriteTick(e world.TickLogEntry) error {
	h.Ticks = append(h.Ticks, e)
	return nil
}

func (h *Harness) Spawn(kind grid.Kind, x, y int) *world.Agent {
	h.T.Helper()
	a, err := h.W.Spawn(kind, grid.Pos{X: x, Y: y}, world.ReasonScenario)
	if err != nil {
		h.T.Fatalf("spawn %s at (%d,%d): %v", kind, x, y, err)
	}
	return a
}

// Scatter spawns n agents of kind on distinct random cells that hold no agent
// and no wall.
func (h *Harness) Scatter(kind grid.Kind, n int, r *rand.Rand) []*world.Agent {
	h.T.Helper()
	g := h.W.Grid()
	var free []grid.Pos
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			p := grid.Pos{X: x, Y: y}
			if !g.HasKind(p, grid.KindHuman, grid.KindZombie, grid.KindWall) {
				free = append(free, p)
			}
		}
	}
	if n > len(free) {
		h.T.Fatalf("scatter %d %s: only %d free cells", n, kind, len(free))
	}
	r.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	out := make([]*world.Agent, 0, n)
	for _, p := range free[:n] {
		out = append(out, h.Spawn(kind, p.X, p.Y))
	}
	return out
}

// Step advances one tick and returns its log entry.
func (h *Harness) Step() world.TickLogEntry {
	h.T.Helper()
	tick, err := h.W.StepOnce()
	if err != nil {
		h.T.Fatalf("tick %d: %v", tick, err)
	}
	h.CheckCounters()
	if len(h.Ticks) == 0 || h.Ticks[len(h.Ticks)-1].Tick != tick {
		h.T.Fatalf("tick %d: no log entry", tick)
	}
	return h.Ticks[len(h.Ticks)-1]
}

func (h *Harness) StepN(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Step()
	}
}

// StepUntil steps until done reports true or max ticks have passed, and
// reports whether done was reached.
func (h *Harness) StepUntil(max int, done func(world.PopulationStats) bool) bool {
	h.T.Helper()
	for i := 0; i < max; i++ {
		if done(h.W.Stats()) {
			return true
		}
		h.Step()
	}
	return done(h.W.Stats())
}

// CheckCounters fails the test when the maintained counters drift from a
// recount, or when a live agent has no active state.
func (h *Harness) CheckCounters() {
	h.T.Helper()
	if got, want := h.W.Stats(), h.W.Census(); got != want {
		h.T.Fatalf("counter drift at tick %d: stats=%+v census=%+v", h.W.CurrentTick(), got, want)
	}
	for _, a := range h.W.Agents() {
		if a.States().Len() == 0 {
			h.T.Fatalf("tick %d: agent %d has no active state", h.W.CurrentTick(), a.ID)
		}
	}
}

// CountEvents counts the logged lifecycle events matching kind and reason.
// An empty reason matches any.
func (h *Harness) CountEvents(kind world.EventKind, agentKind grid.Kind, reason string) int {
	n := 0
	for _, e := range h.Ticks {
		for _, ev := range e.Events {
			if ev.Kind != kind || ev.AgentKind != agentKind {
				continue
			}
			if reason != "" && ev.Reason != reason {
				continue
			}
			n++
		}
	}
	return n
}
