package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"apocalypse.sim/internal/persistence/indexdb"
	persistlog "apocalypse.sim/internal/persistence/log"
	"apocalypse.sim/internal/sim/scenario"
	"apocalypse.sim/internal/sim/tuning"
	world "apocalypse.sim/internal/sim/world"
)

var errReplayMismatch = errors.New("replay mismatch")

type replayOptions struct {
	dataDir      string
	runID        string
	scenarioPath string
}

func (a *App) newReplayCmd() *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a recorded run and verify its tick log",
		Long: `Rebuild a recorded run from its scenario, seed and tuning, step it once per
logged tick and compare counters and state digests with the tick log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.replay(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.dataDir, "data", "./data", "Directory holding tick logs and the run index")
	cmd.Flags().StringVar(&opts.runID, "run", "", "Run ID (defaults to the latest run)")
	cmd.Flags().StringVar(&opts.scenarioPath, "scenario", "", "Scenario file (defaults to the recorded path)")
	return cmd
}

// lastTick keeps the entry of the most recent step.
type lastTick struct{ e world.TickLogEntry }

func (l *lastTick) WriteTick(e world.TickLogEntry) error {
	l.e = e
	return nil
}

func (a *App) replay(ctx context.Context, opts *replayOptions) error {
	runID := opts.runID
	if runID == "" {
		id, err := latestRun(ctx, opts.dataDir)
		if err != nil {
			return err
		}
		runID = id
	}

	idx, err := indexdb.OpenSQLite(filepath.Join(opts.dataDir, "index.db"))
	if err != nil {
		return err
	}
	row, err := idx.Run(ctx, runID)
	_ = idx.Close()
	if err != nil {
		return err
	}

	tune := tuning.Default()
	if err := json.Unmarshal([]byte(row.TuningJSON), &tune); err != nil {
		return fmt.Errorf("run %s tuning: %w", runID, err)
	}
	path := opts.scenarioPath
	if path == "" {
		path = row.Scenario
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	w, _, err := buildWorld(tune, sc, runID, 0)
	if err != nil {
		return err
	}
	last := &lastTick{}
	w.AddTickSink(last)

	var checked uint64
	err = persistlog.ScanTicks(filepath.Join(opts.dataDir, "runs", runID), func(want world.TickLogEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if want.Tick != w.CurrentTick() {
			return fmt.Errorf("%w: log has tick %d, world is at %d", errReplayMismatch, want.Tick, w.CurrentTick())
		}
		if _, err := w.StepOnce(); err != nil {
			return err
		}
		got := last.e
		if got.Stats != want.Stats || got.Agents != want.Agents || len(got.Events) != len(want.Events) {
			return fmt.Errorf("%w at tick %d: counters %+v agents=%d events=%d, logged %+v agents=%d events=%d",
				errReplayMismatch, want.Tick, got.Stats, got.Agents, len(got.Events), want.Stats, want.Agents, len(want.Events))
		}
		if want.Digest != "" && got.Digest != want.Digest {
			return fmt.Errorf("%w at tick %d: digest %s, logged %s", errReplayMismatch, want.Tick, got.Digest, want.Digest)
		}
		checked++
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "replay ok: run=%s checked=%d ticks\n", runID, checked)
	return nil
}
