package world

import (
	"testing"

	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/region"
)

func newTestWorld(t *testing.T, mut func(*Config)) *World {
	t.Helper()
	return newTestWorldLayout(t, mut, nil)
}

func newTestWorldLayout(t *testing.T, mut func(*Config), layout *region.Layout) *World {
	t.Helper()
	cfg := Config{
		RunID:          "test",
		Width:          20,
		Height:         20,
		Seed:           42,
		TickRateHz:     1000,
		IncubationTime: 3,
	}
	if mut != nil {
		mut(&cfg)
	}
	w, err := New(cfg, layout)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func mustSpawn(t *testing.T, w *World, kind grid.Kind, x, y int) *Agent {
	t.Helper()
	a, err := w.Spawn(kind, grid.Pos{X: x, Y: y}, ReasonScenario)
	if err != nil {
		t.Fatalf("spawn %s at (%d,%d): %v", kind, x, y, err)
	}
	return a
}

func mustSpawnStates(t *testing.T, w *World, kind grid.Kind, x, y int, states ...string) *Agent {
	t.Helper()
	a, err := w.SpawnWithStates(kind, grid.Pos{X: x, Y: y}, ReasonScenario, states...)
	if err != nil {
		t.Fatalf("spawn %s at (%d,%d): %v", kind, x, y, err)
	}
	return a
}

func requireCensus(t *testing.T, w *World) {
	t.Helper()
	got, want := w.Stats(), w.Census()
	if got != want {
		t.Fatalf("counter drift at tick %d: stats=%+v census=%+v", w.CurrentTick(), got, want)
	}
}

func sameStates(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

type sliceSink struct{ entries []TickLogEntry }

func (s *sliceSink) WriteTick(e TickLogEntry) error {
	s.entries = append(s.entries, e)
	return nil
}
