package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"apocalypse.sim/internal/logging"
	"apocalypse.sim/internal/persistence/indexdb"
	persistlog "apocalypse.sim/internal/persistence/log"
	"apocalypse.sim/internal/sim/scenario"
	"apocalypse.sim/internal/sim/tuning"
	world "apocalypse.sim/internal/sim/world"
	"apocalypse.sim/internal/telemetry"
	"apocalypse.sim/internal/transport/observer"
)

type runOptions struct {
	scenarioPath string
	tuningPath   string
	ticks        uint64
	dataDir      string
	listen       string
	seed         int64
	seedSet      bool
	tickRate     int
	logLevel     string
	logFormat    string
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario",
		Long: `Run a scenario until the tick limit is reached, the outbreak is contained
(when the tuning asks for it) or the process is interrupted.

Examples:
  apocalypse run --scenario s.yaml --tuning t.yaml --ticks 500 --seed 7

  # no observer endpoint, JSON logs
  apocalypse run --scenario s.yaml --listen "" --log-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seedSet = cmd.Flags().Changed("seed")
			return a.runScenario(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scenarioPath, "scenario", "s", "", "Path to scenario YAML (required)")
	cmd.Flags().StringVarP(&opts.tuningPath, "tuning", "t", "", "Path to tuning YAML (defaults when empty)")
	cmd.Flags().Uint64Var(&opts.ticks, "ticks", 0, "Stop after this many ticks (0 = no limit)")
	cmd.Flags().StringVar(&opts.dataDir, "data", "./data", "Directory for tick logs and the run index")
	cmd.Flags().StringVar(&opts.listen, "listen", "127.0.0.1:8080", "Observer HTTP address (empty disables)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "RNG seed (overrides tuning)")
	cmd.Flags().IntVar(&opts.tickRate, "tick-rate", 0, "Ticks per second (overrides tuning)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "auto", "Log format: json, console, auto")

	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func (a *App) runScenario(ctx context.Context, opts *runOptions) error {
	if !logging.ValidLevel(opts.logLevel) {
		return fmt.Errorf("unknown log level %q", opts.logLevel)
	}
	logger := logging.New(logging.Config{Level: opts.logLevel, Format: opts.logFormat, Output: a.stderr})

	tune := tuning.Default()
	if opts.tuningPath != "" {
		t, err := tuning.Load(opts.tuningPath)
		if err != nil {
			return err
		}
		tune = t
	}
	if opts.seedSet {
		tune.Seed = opts.seed
	}
	if opts.tickRate > 0 {
		tune.TickRateHz = opts.tickRate
		if err := tune.Validate(); err != nil {
			return err
		}
	}

	sc, err := scenario.Load(opts.scenarioPath)
	if err != nil {
		return err
	}
	w, counts, err := buildWorld(tune, sc, indexdb.NewRunID(), opts.ticks)
	if err != nil {
		return err
	}
	cfg := w.Config()
	w.SetLogger(logger)
	logging.With(logger.Info(), logging.RunID(cfg.RunID), logging.Int("humans", counts.Humans), logging.Int("zombies", counts.Zombies)).
		Msg("scenario populated")

	runDir := filepath.Join(opts.dataDir, "runs", cfg.RunID)
	tickLog := persistlog.NewTickLogger(runDir)
	defer tickLog.Close()

	idx, err := indexdb.OpenSQLite(filepath.Join(opts.dataDir, "index.db"))
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	defer idx.Close()
	if err := idx.RecordRun(ctx, indexdb.Run{
		ID:       cfg.RunID,
		Scenario: opts.scenarioPath,
		Seed:     cfg.Seed,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Tuning:   tune,
	}); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())
	meter := provider.Meter(telemetry.MeterName)
	pop, err := telemetry.Register(meter, w)
	if err != nil {
		return err
	}
	defer pop.Unregister()
	lifecycle, err := telemetry.NewLifecycleCounter(meter)
	if err != nil {
		return err
	}

	w.AddTickSink(tickLog)
	w.AddTickSink(idx)
	w.AddTickSink(lifecycle)

	if opts.listen != "" {
		stop, err := serveObserver(opts.listen, w, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	start := time.Now()
	runErr := w.Run(ctx)
	status := "finished"
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, world.ErrStopped):
		status = "stopped"
		runErr = nil
	default:
		status = "failed"
	}
	final := w.CurrentTick()
	if err := idx.FinishRun(context.Background(), cfg.RunID, final, status); err != nil {
		logging.With(logger.Error(), logging.RunID(cfg.RunID), logging.ErrorField(err)).Msg("finish run")
	}

	if totals, err := telemetry.Totals(context.Background(), reader); err == nil {
		names := make([]string, 0, len(totals))
		for k := range totals {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			logging.With(logger.Debug(), logging.RunID(cfg.RunID), logging.Str("metric", k),
				logging.Str("value", strconv.FormatFloat(totals[k], 'f', -1, 64))).Msg("metric total")
		}
	}

	st := w.Stats()
	logging.With(logger.Info(), logging.RunID(cfg.RunID), logging.Tick(final), logging.Str("status", status), logging.Duration(time.Since(start))).
		Msg("run ended")
	fmt.Fprintf(a.stdout, "run %s status=%s ticks=%d susceptible=%d infected=%d carrier=%d recovered=%d escaped=%d\n",
		cfg.RunID, status, final, st.Susceptible, st.Infected, st.Carrier, st.Recovered, st.Escaped)
	return runErr
}

// buildWorld creates and populates the world of one run. The same tuning,
// scenario and run id always yield the same world.
func buildWorld(tune tuning.Tuning, sc scenario.Scenario, runID string, maxTicks uint64) (*world.World, scenario.Counts, error) {
	layout, err := sc.Layout()
	if err != nil {
		return nil, scenario.Counts{}, fmt.Errorf("scenario layout: %w", err)
	}
	cfg := tune.WorldConfig()
	sc.Apply(&cfg)
	cfg.MaxTicks = maxTicks
	cfg.RunID = runID

	w, err := world.New(cfg, layout)
	if err != nil {
		return nil, scenario.Counts{}, err
	}
	counts, err := sc.Populate(w, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return nil, scenario.Counts{}, fmt.Errorf("populate: %w", err)
	}
	return w, counts, nil
}

// serveObserver starts the observer endpoints on addr and returns a func
// that shuts them down.
func serveObserver(addr string, w *world.World, logger *bolt.Logger) (func(), error) {
	mux := http.NewServeMux()
	observer.NewServer(w, logger).Routes(mux)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.With(logger.Error(), logging.ErrorField(err)).Msg("observer server")
		}
	}()
	logging.With(logger.Info(), logging.Str("addr", ln.Addr().String())).Msg("observer listening")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
