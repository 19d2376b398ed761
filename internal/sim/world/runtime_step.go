package world

import (
	"fmt"
	"sort"
	"time"

	"apocalypse.sim/internal/logging"
)

// StepOnce advances the world by a single tick using the same ordering
// semantics as Run. It returns the tick that was processed.
func (w *World) StepOnce() (uint64, error) {
	tick := w.tick.Load()
	return tick, w.stepInternal()
}

// stepOrder is the ID snapshot for this tick, shuffled by the seeded rng.
// Agents spawned during the tick are not in it.
func (w *World) stepOrder() []uint64 {
	ids := make([]uint64, 0, len(w.agents))
	for id := range w.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	w.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

func (w *World) stepAgent(a *Agent) error {
	if err := w.fsm.Update(a); err != nil {
		return err
	}
	if !a.Alive() {
		return nil
	}
	if err := w.fsm.Tick(a); err != nil {
		return err
	}
	if a.Alive() {
		a.Traits.TimeAlive++
	}
	return nil
}

func (w *World) stepInternal() error {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	for _, id := range w.stepOrder() {
		a := w.agents[id]
		if !a.Alive() {
			continue
		}
		if err := w.stepAgent(a); err != nil {
			return fmt.Errorf("tick %d agent %d: %w", nowTick, id, err)
		}
	}

	entry := TickLogEntry{
		RunID:  w.cfg.RunID,
		Tick:   nowTick,
		Stats:  w.pop,
		Agents: len(w.agents),
		Events: append([]LifecycleEvent(nil), w.events...),
		Digest: w.StateDigest(),
	}
	for _, s := range w.sinks {
		if err := s.WriteTick(entry); err != nil {
			logging.With(w.log.Warn(), logging.RunID(w.cfg.RunID), logging.Tick(nowTick), logging.ErrorField(err)).
				Msg("tick sink write failed")
		}
	}
	w.stepObservers(nowTick)
	w.events = w.events[:0]

	w.tick.Add(1)
	w.publishMetrics(float64(time.Since(stepStart).Microseconds()) / 1000.0)
	return nil
}
