package world

import (
	"context"
	"errors"
	"time"

	"apocalypse.sim/internal/logging"
)

// ErrStopped is returned by Run after Stop.
var ErrStopped = errors.New("world: stopped")

// Run steps the world at the configured tick rate until ctx is done, Stop is
// called, MaxTicks is reached, the outbreak is contained (when configured),
// or a step fails. Reaching a stop condition returns nil.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer w.closeObservers()
	w.publishMetrics(0)

	logging.With(w.log.Info(), logging.RunID(w.cfg.RunID), logging.Agents(len(w.agents)), logging.Int("tick_rate_hz", w.cfg.TickRateHz)).
		Msg("run started")

	for {
		if reason, done := w.finished(); done {
			logging.With(w.log.Info(), logging.RunID(w.cfg.RunID), logging.Tick(w.tick.Load()), logging.Str("reason", reason)).
				Msg("run finished")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return ErrStopped
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case <-ticker.C:
			if err := w.stepInternal(); err != nil {
				logging.With(w.log.Error(), logging.RunID(w.cfg.RunID), logging.ErrorField(err)).Msg("step failed")
				return err
			}
		}
	}
}

// Stop asks Run to return. It is safe to call more than once.
func (w *World) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// finished reports whether a configured stop condition holds.
func (w *World) finished() (string, bool) {
	if w.cfg.MaxTicks > 0 && w.tick.Load() >= w.cfg.MaxTicks {
		return "max_ticks", true
	}
	if w.cfg.StopWhenContained && w.pop.Contained() {
		return "contained", true
	}
	return "", false
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
