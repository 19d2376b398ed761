// Package telemetry exposes the population of a running world as
// OpenTelemetry instruments.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	world "apocalypse.sim/internal/sim/world"
)

const MeterName = "apocalypse.sim"

// MetricsSource is anything that can hand out a world metrics snapshot.
// *world.World satisfies it.
type MetricsSource interface {
	Metrics() world.WorldMetrics
}

// Population holds the observable instruments fed from a MetricsSource.
type Population struct {
	reg metric.Registration
}

// Register creates the population gauges and counters on meter. Values are
// read from src on every collection.
func Register(meter metric.Meter, src MetricsSource) (*Population, error) {
	gauge := func(name, desc string) (metric.Int64ObservableGauge, error) {
		return meter.Int64ObservableGauge(name, metric.WithDescription(desc), metric.WithUnit("{agent}"))
	}
	susceptible, err := gauge("apocalypse.population.susceptible", "Live humans not carrying the infection")
	if err != nil {
		return nil, err
	}
	infected, err := gauge("apocalypse.population.infected", "Live zombies")
	if err != nil {
		return nil, err
	}
	carrier, err := gauge("apocalypse.population.carrier", "Live humans incubating the infection")
	if err != nil {
		return nil, err
	}
	recovered, err := meter.Int64ObservableCounter("apocalypse.population.recovered",
		metric.WithDescription("Zombies killed"), metric.WithUnit("{agent}"))
	if err != nil {
		return nil, err
	}
	escaped, err := meter.Int64ObservableCounter("apocalypse.population.escaped",
		metric.WithDescription("Humans that left through a door"), metric.WithUnit("{agent}"))
	if err != nil {
		return nil, err
	}
	stepMS, err := meter.Float64ObservableGauge("apocalypse.tick.step_ms",
		metric.WithDescription("Duration of the last tick"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	tick, err := meter.Int64ObservableCounter("apocalypse.tick",
		metric.WithDescription("Ticks processed"), metric.WithUnit("{tick}"))
	if err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		m := src.Metrics()
		o.ObserveInt64(susceptible, int64(m.Population.Susceptible))
		o.ObserveInt64(infected, int64(m.Population.Infected))
		o.ObserveInt64(carrier, int64(m.Population.Carrier))
		o.ObserveInt64(recovered, int64(m.Population.Recovered))
		o.ObserveInt64(escaped, int64(m.Population.Escaped))
		o.ObserveFloat64(stepMS, m.StepMS)
		o.ObserveInt64(tick, int64(m.Tick))
		return nil
	}, susceptible, infected, carrier, recovered, escaped, stepMS, tick)
	if err != nil {
		return nil, fmt.Errorf("register population callback: %w", err)
	}
	return &Population{reg: reg}, nil
}

func (p *Population) Unregister() error { return p.reg.Unregister() }

// LifecycleCounter counts lifecycle events by kind, agent kind and reason.
// It is a world.TickSink.
type LifecycleCounter struct {
	events metric.Int64Counter
}

func NewLifecycleCounter(meter metric.Meter) (*LifecycleCounter, error) {
	c, err := meter.Int64Counter("apocalypse.lifecycle.events",
		metric.WithDescription("Agents created or removed"), metric.WithUnit("{event}"))
	if err != nil {
		return nil, err
	}
	return &LifecycleCounter{events: c}, nil
}

func (c *LifecycleCounter) WriteTick(e world.TickLogEntry) error {
	ctx := context.Background()
	for _, ev := range e.Events {
		c.events.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(ev.Kind)),
			attribute.String("agent_kind", string(ev.AgentKind)),
			attribute.String("reason", ev.Reason),
		))
	}
	return nil
}

// Totals collects reader once and sums every int64 and float64 data point
// per instrument name.
func Totals(ctx context.Context, reader sdkmetric.Reader) (map[string]float64, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch d := m.Data.(type) {
			case metricdata.Gauge[int64]:
				for _, dp := range d.DataPoints {
					out[m.Name] += float64(dp.Value)
				}
			case metricdata.Gauge[float64]:
				for _, dp := range d.DataPoints {
					out[m.Name] += dp.Value
				}
			case metricdata.Sum[int64]:
				for _, dp := range d.DataPoints {
					out[m.Name] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range d.DataPoints {
					out[m.Name] += dp.Value
				}
			}
		}
	}
	return out, nil
}
