package automaton

// Agent is what a Machine drives. States is the agent's own active set; Alive
// turns false once the agent has been taken off the map.
type Agent interface {
	States() *ActiveSet
	Alive() bool
}

// State is one named behaviour. Two states with the same Name are the same
// state as far as the machine is concerned.
//
// A State value is shared by every agent wired to the machine, so hooks must
// keep per-agent data on the agent or in the Turn, never on the state.
type State[A Agent] interface {
	Name() string

	// CanEnter reports whether the agent qualifies for this state. It is
	// evaluated on the successors of each active state.
	CanEnter(t *Turn[A]) bool
	// Halt vetoes leaving this state for the current update.
	Halt(t *Turn[A]) bool

	OnEnter(t *Turn[A])
	OnTick(t *Turn[A])
	OnLeave(t *Turn[A])
}

// Base gives no-op hooks. A state that embeds it is never entered through
// normal evaluation and never halts.
type Base[A Agent] struct{}

func (Base[A]) CanEnter(*Turn[A]) bool { return false }
func (Base[A]) Halt(*Turn[A]) bool     { return false }
func (Base[A]) OnEnter(*Turn[A])       {}
func (Base[A]) OnTick(*Turn[A])        {}
func (Base[A]) OnLeave(*Turn[A])       {}

// Turn is the context of a single Update or Tick call for one agent. Data a
// state needs to carry from CanEnter to OnEnter goes in its scratch space.
type Turn[A Agent] struct {
	Agent A

	m       *Machine[A]
	scratch map[string]any
	err     error
}

func (t *Turn[A]) Stash(key string, v any) {
	if t.scratch == nil {
		t.scratch = make(map[string]any, 2)
	}
	t.scratch[key] = v
}

func (t *Turn[A]) Lookup(key string) (any, bool) {
	v, ok := t.scratch[key]
	return v, ok
}

func (t *Turn[A]) Forget(key string) { delete(t.scratch, key) }

// Switch moves the agent from one state to a successor mid-hook. A wiring
// error is kept on the turn and returned by the Update or Tick call.
func (t *Turn[A]) Switch(from, to string) bool {
	if err := t.m.ForceSwitch(t, from, to); err != nil {
		t.Fail(err)
		return false
	}
	return true
}

// Fail records err unless an earlier error is already set.
func (t *Turn[A]) Fail(err error) {
	if t.err == nil {
		t.err = err
	}
}

func (t *Turn[A]) Err() error { return t.err }
