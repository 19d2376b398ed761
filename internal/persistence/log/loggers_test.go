package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apocalypse.sim/internal/sim/grid"
	world "apocalypse.sim/internal/sim/world"
)

func entry(tick uint64) world.TickLogEntry {
	return world.TickLogEntry{
		RunID:  "r1",
		Tick:   tick,
		Stats:  world.PopulationStats{Susceptible: 10 - int(tick), Infected: int(tick)},
		Agents: 10,
	}
}

func TestTickLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)

	first := entry(0)
	first.Events = []world.LifecycleEvent{{
		Kind: world.EventCreated, AgentID: 1, AgentKind: grid.KindZombie,
		Pos: grid.Pos{X: 2, Y: 3}, Reason: world.ReasonScenario,
	}}
	require.NoError(t, l.WriteTick(first))
	for i := uint64(1); i < 5; i++ {
		require.NoError(t, l.WriteTick(entry(i)))
	}
	require.NoError(t, l.Close())

	got, err := ReadTicks(dir)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, first, got[0])
	assert.Equal(t, uint64(4), got[4].Tick)
	assert.Equal(t, 4, got[4].Stats.Infected)
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	require.NoError(t, l.WriteTick(entry(0)))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, l.WriteTick(entry(1)))
	require.NoError(t, l.Close())

	files, err := listTickFiles(filepath.Join(dir, tickDir))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "ticks-2026-03-01-10.jsonl.zst", filepath.Base(files[0]))
	assert.Equal(t, "ticks-2026-03-01-11.jsonl.zst", filepath.Base(files[1]))

	got, err := ReadTicks(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(0), got[0].Tick)
	assert.Equal(t, uint64(1), got[1].Tick)
}

func TestTickLogger_ReopenAppendsFrame(t *testing.T) {
	dir := t.TempDir()
	for i := uint64(0); i < 2; i++ {
		l := NewTickLogger(dir)
		l.w.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
		require.NoError(t, l.WriteTick(entry(i)))
		require.NoError(t, l.Close())
	}
	got, err := ReadTicks(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestScanTicks_Errors(t *testing.T) {
	_, err := ReadTicks(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)

	dir := t.TempDir()
	l := NewTickLogger(dir)
	require.NoError(t, l.WriteTick(entry(0)))
	require.NoError(t, l.WriteTick(entry(1)))
	require.NoError(t, l.Close())

	stop := errors.New("stop")
	n := 0
	err = ScanTicks(dir, func(world.TickLogEntry) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)

	// stray files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, tickDir, "notes.txt"), []byte("x"), 0o644))
	got, err := ReadTicks(dir)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTickLogger_AsWorldSink(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	w, err := world.New(world.Config{RunID: "sink", Width: 10, Height: 10, Seed: 1}, nil)
	require.NoError(t, err)
	w.AddTickSink(l)
	_, err = w.Spawn(grid.KindHuman, grid.Pos{X: 1, Y: 1}, world.ReasonScenario)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := w.StepOnce()
		require.NoError(t, err)
	}
	require.NoError(t, l.Close())

	got, err := ReadTicks(dir)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "sink", got[2].RunID)
	assert.Len(t, got[0].Events, 1)
}
