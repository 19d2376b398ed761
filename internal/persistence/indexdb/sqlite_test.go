package indexdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"apocalypse.sim/internal/sim/grid"
	world "apocalypse.sim/internal/sim/world"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestSQLiteIndex_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	idx := openTest(t)

	id := NewRunID()
	if err := idx.RecordRun(ctx, Run{ID: id, Scenario: "two-cities", Seed: 42, Width: 40, Height: 30,
		Tuning: map[string]int{"incubation_time": 8}, StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := idx.RecordRun(ctx, Run{ID: id, Scenario: "dup"}); err == nil {
		t.Fatalf("duplicate run id accepted")
	}
	if err := idx.FinishRun(ctx, id, 120, "finished"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if err := idx.FinishRun(ctx, "nope", 1, "finished"); !errors.Is(err, ErrUnknownRun) {
		t.Fatalf("FinishRun(unknown)=%v want ErrUnknownRun", err)
	}

	runs, err := idx.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs=%d want 1", len(runs))
	}
	r := runs[0]
	if r.ID != id || r.Scenario != "two-cities" || r.Seed != 42 || r.Width != 40 || r.FinalTick != 120 || r.Status != "finished" {
		t.Fatalf("run row mismatch: %+v", r)
	}
	if len(r.TuningDigest) != 64 || r.EndedAt == "" || r.StartedAt != "2026-01-01T00:00:00Z" {
		t.Fatalf("run row mismatch: %+v", r)
	}
	if r.TuningJSON != `{"incubation_time":8}` {
		t.Fatalf("tuning json=%q", r.TuningJSON)
	}

	one, err := idx.Run(ctx, id)
	if err != nil || one != r {
		t.Fatalf("Run=%+v,%v want %+v", one, err, r)
	}
	if _, err := idx.Run(ctx, "nope"); !errors.Is(err, ErrUnknownRun) {
		t.Fatalf("Run(unknown)=%v want ErrUnknownRun", err)
	}
}

func TestSQLiteIndex_TicksFromWorld(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.RecordRun(ctx, Run{ID: "r1", Scenario: "test"}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	w, err := world.New(world.Config{RunID: "r1", Width: 10, Height: 10, Seed: 1}, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.AddTickSink(idx)
	for _, p := range []grid.Pos{{X: 1, Y: 1}, {X: 8, Y: 8}} {
		if _, err := w.Spawn(grid.KindHuman, p, world.ReasonScenario); err != nil {
			t.Fatalf("spawn: %v", err)
		}
	}
	for i := 0; i < 4; i++ {
		if _, err := w.StepOnce(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	ticks, err := idx.Ticks(ctx, "r1")
	if err != nil {
		t.Fatalf("Ticks: %v", err)
	}
	if len(ticks) != 4 {
		t.Fatalf("ticks=%d want 4", len(ticks))
	}
	if ticks[3].Tick != 3 || ticks[3].Agents != 2 || ticks[3].Stats.Susceptible != 2 {
		t.Fatalf("tick row mismatch: %+v", ticks[3])
	}
	counts, err := idx.LifecycleCounts(ctx, "r1")
	if err != nil {
		t.Fatalf("LifecycleCounts: %v", err)
	}
	if counts["created/scenario"] != 2 || len(counts) != 1 {
		t.Fatalf("lifecycle counts=%v", counts)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan world.TickLogEntry, 1)}
	s.ch <- world.TickLogEntry{Tick: 1}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteTick(world.TickLogEntry{Tick: 3})

	st := s.Stats()
	if st.DropTickTotal != 2 {
		t.Fatalf("DropTickTotal=%d want=2", st.DropTickTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_WriteAfterCloseIsNoop(t *testing.T) {
	idx, err := openSQLite(filepath.Join(t.TempDir(), "index.db"), 4)
	if err != nil {
		t.Fatalf("openSQLite: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := idx.WriteTick(world.TickLogEntry{Tick: 1}); err != nil {
		t.Fatalf("WriteTick after close: %v", err)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
