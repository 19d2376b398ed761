package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"apocalypse.sim/internal/sim/grid"
	world "apocalypse.sim/internal/sim/world"
)

type fixedSource world.WorldMetrics

func (f fixedSource) Metrics() world.WorldMetrics { return world.WorldMetrics(f) }

func setupTestMeter(t *testing.T) (*metric.ManualReader, *metric.MeterProvider) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func TestRegister_ObservesSnapshot(t *testing.T) {
	reader, provider := setupTestMeter(t)
	src := fixedSource{
		Tick:       12,
		StepMS:     1.5,
		Population: world.PopulationStats{Susceptible: 40, Infected: 3, Carrier: 2, Recovered: 5, Escaped: 1},
	}
	p, err := Register(provider.Meter(MeterName), src)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer p.Unregister()

	got, err := Totals(context.Background(), reader)
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	want := map[string]float64{
		"apocalypse.population.susceptible": 40,
		"apocalypse.population.infected":    3,
		"apocalypse.population.carrier":     2,
		"apocalypse.population.recovered":   5,
		"apocalypse.population.escaped":     1,
		"apocalypse.tick.step_ms":           1.5,
		"apocalypse.tick":                   12,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s=%v want %v", name, got[name], v)
		}
	}
}

func TestRegister_InstrumentKinds(t *testing.T) {
	reader, provider := setupTestMeter(t)
	if _, err := Register(provider.Meter(MeterName), fixedSource{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	kinds := map[string]string{}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != MeterName {
			t.Errorf("scope=%q", sm.Scope.Name)
		}
		for _, m := range sm.Metrics {
			switch d := m.Data.(type) {
			case metricdata.Gauge[int64], metricdata.Gauge[float64]:
				kinds[m.Name] = "gauge"
			case metricdata.Sum[int64]:
				if !d.IsMonotonic {
					t.Errorf("%s should be monotonic", m.Name)
				}
				kinds[m.Name] = "counter"
			}
		}
	}
	if kinds["apocalypse.population.infected"] != "gauge" || kinds["apocalypse.population.recovered"] != "counter" {
		t.Fatalf("kinds=%v", kinds)
	}
}

func TestLifecycleCounter_FromWorld(t *testing.T) {
	reader, provider := setupTestMeter(t)
	c, err := NewLifecycleCounter(provider.Meter(MeterName))
	if err != nil {
		t.Fatalf("NewLifecycleCounter: %v", err)
	}

	w, err := world.New(world.Config{Width: 10, Height: 10, Seed: 1}, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.AddTickSink(c)
	for _, p := range []grid.Pos{{X: 1, Y: 1}, {X: 5, Y: 5}, {X: 8, Y: 8}} {
		if _, err := w.Spawn(grid.KindHuman, p, world.ReasonScenario); err != nil {
			t.Fatalf("spawn: %v", err)
		}
	}
	if _, err := w.StepOnce(); err != nil {
		t.Fatalf("step: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "apocalypse.lifecycle.events" {
				continue
			}
			found = true
			sum := m.Data.(metricdata.Sum[int64])
			if len(sum.DataPoints) != 1 {
				t.Fatalf("data points=%d want 1 attribute set", len(sum.DataPoints))
			}
			dp := sum.DataPoints[0]
			if dp.Value != 3 {
				t.Errorf("value=%d want 3", dp.Value)
			}
			if v, _ := dp.Attributes.Value("reason"); v.AsString() != world.ReasonScenario {
				t.Errorf("reason=%q", v.AsString())
			}
			if v, _ := dp.Attributes.Value("agent_kind"); v.AsString() != "human" {
				t.Errorf("agent_kind=%q", v.AsString())
			}
		}
	}
	if !found {
		t.Error("apocalypse.lifecycle.events metric not found")
	}
}
