package world

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/bolt/v3"

	"apocalypse.sim/internal/logging"
	"apocalypse.sim/internal/sim/grid"
	"apocalypse.sim/internal/sim/region"
	"apocalypse.sim/internal/sim/world/logic/mathx"
)

var ErrBadKind = errors.New("world: agents are humans or zombies")

// World is a single-threaded simulation of one outbreak.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg    Config
	grid   *grid.Grid
	layout *region.Layout
	fsm    *machine

	rng  *rand.Rand
	draw func() float64

	tick atomic.Uint64

	agents map[uint64]*Agent
	nextID uint64

	doors   []grid.Pos
	doorSet map[grid.Pos]bool

	pop    PopulationStats
	stats  *WorldStats
	events []LifecycleEvent

	sinks []TickSink
	log   *bolt.Logger

	stop          chan struct{}
	stopOnce      sync.Once
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	observers     map[string]*observerClient

	metrics atomic.Value
}

func New(cfg Config, layout *region.Layout) (*World, error) {
	cfg.applyDefaults()
	if layout == nil {
		layout = &region.Layout{}
	}
	w := &World{
		cfg:    cfg,
		grid:   grid.New(cfg.Width, cfg.Height),
		layout: layout,
		fsm:    NewMachine(Wiring{Grouping: cfg.Grouping, Reproduction: cfg.Reproduction}),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		agents: map[uint64]*Agent{},

		doorSet: map[grid.Pos]bool{},
		stats:   NewWorldStats(cfg.StatsBucketTicks, cfg.StatsWindowTicks),
		log:     logging.Discard(),

		stop:          make(chan struct{}),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		observers:     map[string]*observerClient{},
	}
	w.draw = w.rng.Float64
	if err := w.spawnTerrain(); err != nil {
		return nil, err
	}
	w.publishMetrics(0)
	return w, nil
}

// spawnTerrain puts one marker on every cell of a layout with regions.
func (w *World) spawnTerrain() error {
	if w.layout.Empty() {
		return nil
	}
	for x := 0; x < w.cfg.Width; x++ {
		for y := 0; y < w.cfg.Height; y++ {
			p := grid.Pos{X: x, Y: y}
			kind, _ := w.layout.TerrainAt(p)
			m := &Marker{kind: kind}
			if r, ok := w.layout.RegionContaining(p); ok {
				m.Region = r.Name()
			}
			if err := w.grid.Place(m, p); err != nil {
				return fmt.Errorf("terrain: %w", err)
			}
		}
	}
	return nil
}

func (w *World) Config() Config {
	if w == nil {
		return Config{}
	}
	return w.cfg
}

func (w *World) RunID() string { return w.cfg.RunID }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Grid() *grid.Grid { return w.grid }

func (w *World) Layout() *region.Layout { return w.layout }

// Stats returns the maintained population counters.
func (w *World) Stats() PopulationStats { return w.pop }

func (w *World) SetLogger(l *bolt.Logger) {
	if l != nil {
		w.log = l
	}
}

func (w *World) AddTickSink(s TickSink) {
	if s != nil {
		w.sinks = append(w.sinks, s)
	}
}

// SetDoors replaces the exit cells used by evacuating humans.
func (w *World) SetDoors(doors []grid.Pos) error {
	for _, d := range doors {
		if !w.grid.InBounds(d) {
			return fmt.Errorf("door %s: %w", d, grid.ErrOutOfBounds)
		}
	}
	w.doors = append(w.doors[:0], doors...)
	w.doorSet = make(map[grid.Pos]bool, len(doors))
	for _, d := range doors {
		w.doorSet[d] = true
	}
	return nil
}

func (w *World) Doors() []grid.Pos {
	out := make([]grid.Pos, len(w.doors))
	copy(out, w.doors)
	return out
}

func (w *World) Agent(id uint64) *Agent { return w.agents[id] }

// Agents returns the live agents ordered by ID.
func (w *World) Agents() []*Agent {
	out := make([]*Agent, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) AgentsAt(p grid.Pos) []*Agent {
	var out []*Agent
	for _, o := range w.grid.OccupantsAt(p) {
		if a, ok := o.(*Agent); ok {
			out = append(out, a)
		}
	}
	return out
}

// Census recounts the population from the live agents. Outside of a tick it
// must agree with Stats on every field except the cumulative ones.
func (w *World) Census() PopulationStats {
	var s PopulationStats
	for _, a := range w.agents {
		switch {
		case a.IsZombie():
			s.Infected++
		case a.InState(StateInfected):
			s.Carrier++
		default:
			s.Susceptible++
		}
	}
	s.Recovered = w.pop.Recovered
	s.Escaped = w.pop.Escaped
	return s
}

func (w *World) initialStates(kind grid.Kind) []string {
	if kind == grid.KindZombie {
		return []string{StateZombieWandering, StateIdle}
	}
	move := StateHumanWandering
	if w.cfg.Evacuation {
		move = StateFindDoor
	}
	out := []string{move, StateSusceptible}
	if w.cfg.Reproduction {
		out = append(out, StateResting)
	}
	return out
}

func (w *World) vision(kind grid.Kind) int {
	v := w.cfg.HumanVision
	if kind == grid.KindZombie {
		v = w.cfg.ZombieVision
	}
	return mathx.MinInt(v, w.cfg.MaxVision)
}

// Spawn creates an agent of kind at p with the default initial states for
// its kind.
func (w *World) Spawn(kind grid.Kind, p grid.Pos, reason string) (*Agent, error) {
	return w.SpawnWithStates(kind, p, reason, w.initialStates(kind)...)
}

// SpawnWithStates creates an agent with an explicit initial state set. No
// enter hooks run.
func (w *World) SpawnWithStates(kind grid.Kind, p grid.Pos, reason string, states ...string) (*Agent, error) {
	if kind != grid.KindHuman && kind != grid.KindZombie {
		return nil, fmt.Errorf("%w: %q", ErrBadKind, kind)
	}
	if !w.grid.InBounds(p) {
		return nil, fmt.Errorf("spawn at %s: %w", p, grid.ErrOutOfBounds)
	}
	a := &Agent{ID: w.nextID + 1, Pos: p, kind: kind, world: w}
	a.Traits.Vision = w.vision(kind)
	a.Traits.IncubationTime = w.cfg.IncubationTime
	if err := w.fsm.SetInitialStates(a, states...); err != nil {
		return nil, err
	}
	if err := w.grid.Place(a, p); err != nil {
		return nil, err
	}
	w.nextID++
	a.placed = true
	w.agents[a.ID] = a

	switch {
	case a.IsZombie():
		w.pop.Infected++
	case a.InState(StateInfected):
		a.carrier = true
		w.pop.Carrier++
	default:
		w.pop.Susceptible++
	}
	w.trackRegion(a)
	w.emit(EventCreated, a, reason)
	return a, nil
}

// Remove takes a off the grid and out of the registry and adjusts the
// population counters. It reports false for an agent already removed.
func (w *World) Remove(a *Agent, reason string) bool {
	if !a.Alive() {
		return false
	}
	w.grid.Remove(a)
	delete(w.agents, a.ID)
	a.placed = false

	switch {
	case a.IsZombie():
		w.pop.Infected--
	case a.carrier:
		w.pop.Carrier--
	default:
		w.pop.Susceptible--
	}
	w.emit(EventRemoved, a, reason)
	return true
}

func (w *World) emit(kind EventKind, a *Agent, reason string) {
	w.events = append(w.events, LifecycleEvent{
		Tick:      w.tick.Load(),
		Kind:      kind,
		AgentID:   a.ID,
		AgentKind: a.kind,
		Pos:       a.Pos,
		Reason:    reason,
	})
}

// move puts a on p and records the displacement as its direction.
func (w *World) move(a *Agent, p grid.Pos) {
	if !a.Alive() {
		return
	}
	a.Traits.Direction = p.Sub(a.Pos)
	if p == a.Pos {
		return
	}
	if err := w.grid.Move(a, p); err != nil {
		return
	}
	a.Pos = p
	w.trackRegion(a)
}

// markInfected turns a human into a carrier: counters move from susceptible
// to carrier and the infection time is stamped.
func (w *World) markInfected(a *Agent) {
	if a.carrier {
		return
	}
	a.carrier = true
	a.Traits.TimeAtInfection = a.Traits.TimeAlive
	w.pop.Susceptible--
	w.pop.Carrier++
	w.stats.RecordInfection(w.tick.Load())
}

// nearby returns the agents other than a in the Moore neighborhood of the
// given radius around a.
func (w *World) nearby(a *Agent, radius int) []*Agent {
	if !a.Alive() {
		return nil
	}
	occ := w.grid.Neighbors(a.Pos, grid.Moore, true, radius)
	out := make([]*Agent, 0, len(occ))
	for _, o := range occ {
		if b, ok := o.(*Agent); ok && b != a {
			out = append(out, b)
		}
	}
	return out
}

func (w *World) visible(a *Agent) []*Agent { return w.nearby(a, a.Traits.Vision) }

func (w *World) adjacent(a *Agent) []*Agent { return w.nearby(a, 1) }

func filterKind(agents []*Agent, kind grid.Kind) []*Agent {
	var out []*Agent
	for _, b := range agents {
		if b.kind == kind {
			out = append(out, b)
		}
	}
	return out
}

func anyKind(agents []*Agent, kind grid.Kind) bool {
	for _, b := range agents {
		if b.kind == kind {
			return true
		}
	}
	return false
}

func anyInfectedHuman(agents []*Agent) bool {
	for _, b := range agents {
		if b.IsHuman() && b.InState(StateInfected) {
			return true
		}
	}
	return false
}
