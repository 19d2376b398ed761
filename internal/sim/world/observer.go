package world

import (
	"encoding/json"

	"apocalypse.sim/internal/observerproto"
	"apocalypse.sim/internal/sim/encoding"
	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/world/logic/mathx"
)

// ObserverJoinRequest registers a read-only observer session that receives
// one TICK message per tick (or per EveryTicks ticks) on TickOut.
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte

	EveryTicks int
	States     bool
}

// ObserverSubscribeRequest updates an existing observer session.
type ObserverSubscribeRequest struct {
	SessionID  string
	EveryTicks int
	States     bool
}

type observerClient struct {
	id      string
	tickOut chan []byte

	everyTicks int
	states     bool
}

func (w *World) ObserverJoin() chan<- ObserverJoinRequest { return w.observerJoin }

func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }

func (w *World) ObserverLeave() chan<- string { return w.observerLeave }

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	// Replace existing session id if any.
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
	}
	w.observers[req.SessionID] = &observerClient{
		id:         req.SessionID,
		tickOut:    req.TickOut,
		everyTicks: clampEvery(req.EveryTicks),
		states:     req.States,
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.everyTicks = clampEvery(req.EveryTicks)
	c.states = req.States
}

func (w *World) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.tickOut)
}

// closeObservers ends every session; called when the loop exits.
func (w *World) closeObservers() {
	for id, c := range w.observers {
		delete(w.observers, id)
		close(c.tickOut)
	}
}

func clampEvery(n int) int { return mathx.ClampInt(n, 1, 1000) }

func counters(s PopulationStats) observerproto.Counters {
	return observerproto.Counters{
		Susceptible: s.Susceptible,
		Infected:    s.Infected,
		Carrier:     s.Carrier,
		Recovered:   s.Recovered,
		Escaped:     s.Escaped,
	}
}

func pos2(p grid.Pos) [2]int { return [2]int{p.X, p.Y} }

// stepObservers sends the tick to every observer due for it. The message is
// built at most twice: with and without state names.
func (w *World) stepObservers(nowTick uint64) {
	if len(w.observers) == 0 {
		return
	}
	var plain, full []byte
	for _, c := range w.observers {
		if nowTick%uint64(c.everyTicks) != 0 {
			continue
		}
		var b *[]byte
		if c.states {
			b = &full
		} else {
			b = &plain
		}
		if *b == nil {
			msg, err := json.Marshal(w.tickMsg(nowTick, c.states))
			if err != nil {
				continue
			}
			*b = msg
		}
		sendLatest(c.tickOut, *b)
	}
}

func (w *World) tickMsg(nowTick uint64, withStates bool) observerproto.TickMsg {
	agents := w.Agents()
	out := make([]observerproto.AgentState, 0, len(agents))
	for _, a := range agents {
		st := observerproto.AgentState{
			ID:     a.ID,
			Kind:   string(a.kind),
			Pos:    pos2(a.Pos),
			Region: a.Traits.Region,
		}
		if withStates {
			st.States = a.StateNames()
		}
		out = append(out, st)
	}
	events := make([]observerproto.Lifecycle, 0, len(w.events))
	for _, e := range w.events {
		events = append(events, observerproto.Lifecycle{
			Kind:      string(e.Kind),
			AgentID:   e.AgentID,
			AgentKind: string(e.AgentKind),
			Pos:       pos2(e.Pos),
			Reason:    e.Reason,
		})
	}
	return observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		Counters:        counters(w.pop),
		Agents:          out,
		Events:          events,
	}
}

// Bootstrap describes the static map plus the latest published counters.
// It reads only data fixed before Run starts, so it is safe to call from
// other goroutines.
func (w *World) Bootstrap() observerproto.BootstrapResponse {
	m := w.Metrics()
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		RunID:           w.cfg.RunID,
		Tick:            w.CurrentTick(),
		WorldParams: observerproto.WorldParams{
			Width:      w.cfg.Width,
			Height:     w.cfg.Height,
			TickRateHz: w.cfg.TickRateHz,
			Seed:       w.cfg.Seed,
			MaxVision:  w.cfg.MaxVision,
		},
		Terrain: observerproto.Terrain{
			Encoding: "RLE8",
			Data:     encoding.EncodeTerrain(w.terrainCodes()),
		},
		Counters: counters(m.Population),
	}
	for _, p := range w.layout.Places {
		resp.Regions = append(resp.Regions, observerproto.Region{
			Name:    p.Name(),
			Kind:    string(p.Kind()),
			Polygon: p.Vertices(),
			Density: p.Density,
			Color:   p.Color,
		})
	}
	for _, r := range w.layout.Roads {
		resp.Regions = append(resp.Regions, observerproto.Region{
			Name:      r.Name(),
			Kind:      string(r.Kind()),
			Polygon:   r.Vertices(),
			Direction: pos2(r.Direction),
			Speed:     r.Speed,
		})
	}
	for _, d := range w.doors {
		resp.Doors = append(resp.Doors, pos2(d))
	}
	return resp
}

// terrainCodes classifies every cell, row-major.
func (w *World) terrainCodes() []uint8 {
	out := make([]uint8, 0, w.cfg.Width*w.cfg.Height)
	for y := 0; y < w.cfg.Height; y++ {
		for x := 0; x < w.cfg.Width; x++ {
			kind, _ := w.layout.TerrainAt(grid.Pos{X: x, Y: y})
			switch kind {
			case grid.KindPlace:
				out = append(out, observerproto.TerrainPlace)
			case grid.KindRoad:
				out = append(out, observerproto.TerrainRoad)
			case grid.KindWall:
				out = append(out, observerproto.TerrainWall)
			default:
				out = append(out, observerproto.TerrainOpen)
			}
		}
	}
	return out
}
