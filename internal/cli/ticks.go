package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"apocalypse.sim/internal/persistence/indexdb"
	persistlog "apocalypse.sim/internal/persistence/log"
	world "apocalypse.sim/internal/sim/world"
)

var errNoRuns = errors.New("no runs recorded")

var tickHeader = []string{"tick", "agents", "susceptible", "infected", "carrier", "recovered", "escaped", "created", "removed"}

type ticksOptions struct {
	dataDir string
	runID   string
}

func (a *App) newTicksCmd() *cobra.Command {
	opts := &ticksOptions{}
	cmd := &cobra.Command{
		Use:   "ticks",
		Short: "Print the tick log of a run as CSV",
		Long: `Print the per-tick counters of a run as CSV on stdout. Without --run the
most recently started run in the index is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printTicks(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.dataDir, "data", "./data", "Directory holding tick logs and the run index")
	cmd.Flags().StringVar(&opts.runID, "run", "", "Run ID (defaults to the latest run)")
	return cmd
}

func (a *App) printTicks(ctx context.Context, opts *ticksOptions) error {
	runID := opts.runID
	if runID == "" {
		id, err := latestRun(ctx, opts.dataDir)
		if err != nil {
			return err
		}
		runID = id
	}
	runDir := filepath.Join(opts.dataDir, "runs", runID)
	if _, err := os.Stat(runDir); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	out := csv.NewWriter(a.stdout)
	if err := out.Write(tickHeader); err != nil {
		return err
	}
	err := persistlog.ScanTicks(runDir, func(e world.TickLogEntry) error {
		var created, removed int
		for _, ev := range e.Events {
			switch ev.Kind {
			case world.EventCreated:
				created++
			case world.EventRemoved:
				removed++
			}
		}
		s := e.Stats
		return out.Write([]string{
			strconv.FormatUint(e.Tick, 10),
			strconv.Itoa(e.Agents),
			strconv.Itoa(s.Susceptible),
			strconv.Itoa(s.Infected),
			strconv.Itoa(s.Carrier),
			strconv.Itoa(s.Recovered),
			strconv.Itoa(s.Escaped),
			strconv.Itoa(created),
			strconv.Itoa(removed),
		})
	})
	if err != nil {
		return err
	}
	out.Flush()
	return out.Error()
}

func latestRun(ctx context.Context, dataDir string) (string, error) {
	path := filepath.Join(dataDir, "index.db")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %v", errNoRuns, err)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return "", err
	}
	defer idx.Close()
	runs, err := idx.Runs(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errNoRuns
	}
	return runs[0].ID, nil
}
