package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers,
// telemetry callbacks and tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Agents     int             `json:"agents"`
	Observers  int             `json:"observers"`
	Population PopulationStats `json:"population"`

	StepMS float64 `json:"step_ms"`

	StatsWindowTicks uint64      `json:"stats_window_ticks"`
	StatsWindow      StatsBucket `json:"stats_window"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(stepMS float64) {
	nowTick := w.tick.Load()
	w.metrics.Store(WorldMetrics{
		Tick:             nowTick,
		Agents:           len(w.agents),
		Observers:        len(w.observers),
		Population:       w.pop,
		StepMS:           stepMS,
		StatsWindowTicks: w.stats.WindowTicks(),
		StatsWindow:      w.stats.Summarize(nowTick),
	})
}
