package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAgent struct {
	set   ActiveSet
	alive bool
	flags map[string]bool
	log   []string
}

func newTestAgent() *testAgent {
	return &testAgent{alive: true, flags: map[string]bool{}}
}

func (a *testAgent) States() *ActiveSet { return &a.set }
func (a *testAgent) Alive() bool        { return a.alive }

// fnState is a state whose hooks are plain funcs; nil hooks fall back to Base.
type fnState struct {
	Base[*testAgent]
	name    string
	canEnt  func(t *Turn[*testAgent]) bool
	halt    func(t *Turn[*testAgent]) bool
	onEnter func(t *Turn[*testAgent])
	onTick  func(t *Turn[*testAgent])
}

func (s *fnState) Name() string { return s.name }

func (s *fnState) CanEnter(t *Turn[*testAgent]) bool {
	if s.canEnt == nil {
		return false
	}
	return s.canEnt(t)
}

func (s *fnState) Halt(t *Turn[*testAgent]) bool {
	if s.halt == nil {
		return false
	}
	return s.halt(t)
}

func (s *fnState) OnEnter(t *Turn[*testAgent]) {
	t.Agent.log = append(t.Agent.log, "enter:"+s.name)
	if s.onEnter != nil {
		s.onEnter(t)
	}
}

func (s *fnState) OnTick(t *Turn[*testAgent]) {
	t.Agent.log = append(t.Agent.log, "tick:"+s.name)
	if s.onTick != nil {
		s.onTick(t)
	}
}

func (s *fnState) OnLeave(t *Turn[*testAgent]) {
	t.Agent.log = append(t.Agent.log, "leave:"+s.name)
}

func flag(name string) func(t *Turn[*testAgent]) bool {
	return func(t *Turn[*testAgent]) bool { return t.Agent.flags[name] }
}

func TestRegister_Idempotent(t *testing.T) {
	m := New[*testAgent]()
	first := &fnState{name: "A"}
	m.Register(first)
	m.Register(&fnState{name: "A"})
	m.Connect(first, &fnState{name: "B"})

	got, err := m.State("A")
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, []string{"A", "B"}, m.Names())

	next, err := m.Successors("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, next)

	_, err = m.Successors("missing")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestSetInitialStates_NoHooksAndRoundTrip(t *testing.T) {
	m := New[*testAgent]()
	m.Connect(&fnState{name: "Wander"}, &fnState{name: "Flee", canEnt: flag("threat")})
	m.Register(&fnState{name: "Healthy"})

	a := newTestAgent()
	require.NoError(t, m.SetInitialStates(a, "Wander", "Healthy"))
	assert.Equal(t, []string{"Wander", "Healthy"}, a.set.Names())
	assert.Empty(t, a.log)

	require.NoError(t, m.Update(a))
	assert.Equal(t, []string{"Wander", "Healthy"}, a.set.Names())

	err := m.SetInitialStates(a, "Wander", "Nope")
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.Equal(t, []string{"Wander", "Healthy"}, a.set.Names())
}

func TestUpdate_EntersAllQualifiersInOrder(t *testing.T) {
	m := New[*testAgent]()
	idle := &fnState{name: "Idle"}
	m.Connect(idle, &fnState{name: "X", canEnt: flag("x")})
	m.Connect(idle, &fnState{name: "Y", canEnt: flag("y")})
	m.Connect(idle, &fnState{name: "Z", canEnt: flag("z")})

	a := newTestAgent()
	require.NoError(t, m.SetInitialStates(a, "Idle"))
	a.flags["x"] = true
	a.flags["z"] = true

	require.NoError(t, m.Update(a))
	assert.Equal(t, []string{"X", "Z"}, a.set.Names())
	assert.Equal(t, []string{"leave:Idle", "enter:X", "enter:Z"}, a.log)
}

func TestUpdate_HaltVetoesLeaving(t *testing.T) {
	m := New[*testAgent]()
	m.Connect(&fnState{name: "Flee", halt: flag("pinned")}, &fnState{name: "Wander", canEnt: flag("calm")})

	a := newTestAgent()
	require.NoError(t, m.SetInitialStates(a, "Flee"))
	a.flags["pinned"] = true
	a.flags["calm"] = true

	require.NoError(t, m.Update(a))
	assert.Equal(t, []string{"Flee"}, a.set.Names())

	a.flags["pinned"] = false
	require.NoError(t, m.Update(a))
	assert.Equal(t, []string{"Wander"}, a.set.Names())
}

func TestUpdate_SkipsRemovedAgent(t *testing.T) {
	m := New[*testAgent]()
	die := &fnState{name: "Die", canEnt: flag("go"), onEnter: func(t *Turn[*testAgent]) { t.Agent.alive = false }}
	m.Connect(&fnState{name: "A"}, die)
	m.Connect(&fnState{name: "B"}, &fnState{name: "C", canEnt: flag("go")})

	a := newTestAgent()
	require.NoError(t, m.SetInitialStates(a, "A", "B"))
	a.flags["go"] = true

	require.NoError(t, m.Update(a))
	assert.Equal(t, []string{"B", "Die"}, a.set.Names())
	assert.Equal(t, []string{"leave:A", "enter:Die"}, a.log)

	a.log = nil
	require.NoError(t, m.Tick(a))
	assert.Empty(t, a.log)
}

func TestUpdate_UnknownActiveState(t *testing.T) {
	m := New[*testAgent]()
	m.Register(&fnState{name: "A"})
	a := newTestAgent()
	a.set.Add("Ghost")
	assert.ErrorIs(t, m.Update(a), ErrUnknownState)
	assert.ErrorIs(t, m.Tick(a), ErrUnknownState)
}

func TestForceSwitch(t *testing.T) {
	m := New[*testAgent]()
	fight := &fnState{name: "Fight"}
	win := &fnState{name: "Win"}
	m.Connect(fight, win)
	m.Register(&fnState{name: "Lose"})

	a := newTestAgent()
	require.NoError(t, m.SetInitialStates(a, "Fight"))

	turn := m.NewTurn(a)
	err := m.ForceSwitch(turn, "Fight", "Lose")
	assert.ErrorIs(t, err, ErrNoEdge)
	assert.Equal(t, []string{"Fight"}, a.set.Names())
	assert.Empty(t, a.log)

	assert.ErrorIs(t, m.ForceSwitch(turn, "Fight", "Missing"), ErrUnknownState)
	assert.ErrorIs(t, m.ForceSwitch(turn, "Win", "Fight"), ErrNoEdge)

	require.NoError(t, m.ForceSwitch(turn, "Fight", "Win"))
	assert.Equal(t, []string{"Win"}, a.set.Names())
	assert.Equal(t, []string{"leave:Fight", "enter:Win"}, a.log)

	assert.ErrorIs(t, m.ForceSwitch(turn, "Fight", "Win"), ErrNotActive)
}

func TestTurn_StashSurvivesFromCanEnterToOnEnter(t *testing.T) {
	m := New[*testAgent]()
	var seen any
	engage := &fnState{
		name: "Engage",
		canEnt: func(t *Turn[*testAgent]) bool {
			t.Stash("target", 42)
			return true
		},
		onEnter: func(t *Turn[*testAgent]) {
			seen, _ = t.Lookup("target")
			t.Switch("Engage", "Resolve")
		},
	}
	m.Connect(&fnState{name: "Idle"}, engage)
	m.Connect(engage, &fnState{name: "Resolve"})

	a := newTestAgent()
	require.NoError(t, m.SetInitialStates(a, "Idle"))
	require.NoError(t, m.Update(a))

	assert.Equal(t, 42, seen)
	assert.Equal(t, []string{"Resolve"}, a.set.Names())
	assert.Equal(t, []string{"leave:Idle", "enter:Engage", "leave:Engage", "enter:Resolve"}, a.log)
}

func TestTurn_SwitchFailureAbortsUpdate(t *testing.T) {
	m := New[*testAgent]()
	bad := &fnState{
		name:    "Bad",
		canEnt:  flag("go"),
		onEnter: func(t *Turn[*testAgent]) { t.Switch("Bad", "Nowhere") },
	}
	m.Connect(&fnState{name: "Start"}, bad)
	m.Register(&fnState{name: "Nowhere"})

	a := newTestAgent()
	require.NoError(t, m.SetInitialStates(a, "Start"))
	a.flags["go"] = true

	err := m.Update(a)
	assert.ErrorIs(t, err, ErrNoEdge)
}

func TestTick_RunsStatesEnteredThisUpdate(t *testing.T) {
	m := New[*testAgent]()
	m.Connect(&fnState{name: "A"}, &fnState{name: "B", canEnt: flag("b")})
	m.Register(&fnState{name: "H"})

	a := newTestAgent()
	require.NoError(t, m.SetInitialStates(a, "A", "H"))
	a.flags["b"] = true
	require.NoError(t, m.Update(a))
	a.log = nil

	require.NoError(t, m.Tick(a))
	assert.Equal(t, []string{"tick:H", "tick:B"}, a.log)
}

func TestActiveSet(t *testing.T) {
	s := NewActiveSet("a", "b", "a")
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Add("b"))
	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	names := s.Names()
	s.Add("c")
	assert.Equal(t, []string{"b"}, names)
	s.Clear()
	assert.Zero(t, s.Len())
}
