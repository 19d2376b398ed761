// Package automaton runs multi-state machines: an agent holds a set of
// active states and every one of them is evaluated for transitions on each
// update, so independent behaviours (movement, health, combat) progress side
// by side on the same agent.
package automaton

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownState = errors.New("automaton: unknown state")
	ErrNoEdge       = errors.New("automaton: no such transition")
	ErrNotActive    = errors.New("automaton: state not active")
)

type entry[A Agent] struct {
	state State[A]
	next  []string
}

// Machine is the state registry plus the directed transition graph. It is
// built once and then only read while agents are updated.
type Machine[A Agent] struct {
	entries map[string]*entry[A]
	order   []string
}

func New[A Agent]() *Machine[A] {
	return &Machine[A]{entries: map[string]*entry[A]{}}
}

// Register adds s with no successors. Registering a name twice keeps the
// first state and its edges.
func (m *Machine[A]) Register(s State[A]) {
	name := s.Name()
	if _, ok := m.entries[name]; ok {
		return
	}
	m.entries[name] = &entry[A]{state: s}
	m.order = append(m.order, name)
}

// Connect registers both states and appends to as a successor of from.
// Successors are evaluated in the order they were connected.
func (m *Machine[A]) Connect(from, to State[A]) {
	m.Register(from)
	m.Register(to)
	e := m.entries[from.Name()]
	e.next = append(e.next, to.Name())
}

func (m *Machine[A]) lookup(name string) (*entry[A], error) {
	e, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return e, nil
}

func (m *Machine[A]) State(name string) (State[A], error) {
	e, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.state, nil
}

func (m *Machine[A]) Successors(name string) ([]string, error) {
	e, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(e.next))
	copy(out, e.next)
	return out, nil
}

func (m *Machine[A]) HasEdge(from, to string) bool {
	e, ok := m.entries[from]
	if !ok {
		return false
	}
	for _, n := range e.next {
		if n == to {
			return true
		}
	}
	return false
}

// Names lists registered states in registration order.
func (m *Machine[A]) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// SetInitialStates replaces the agent's active set with names, in order. No
// hooks run; the first Tick is the effective entry. On an unknown name the
// agent is left untouched.
func (m *Machine[A]) SetInitialStates(a A, names ...string) error {
	for _, n := range names {
		if _, err := m.lookup(n); err != nil {
			return err
		}
	}
	set := a.States()
	set.Clear()
	for _, n := range names {
		set.Add(n)
	}
	return nil
}

func (m *Machine[A]) NewTurn(a A) *Turn[A] {
	return &Turn[A]{Agent: a, m: m}
}

// ForceSwitch leaves from and enters to outside the normal evaluation. The
// edge must exist and from must be active; otherwise nothing changes and an
// error is returned.
func (m *Machine[A]) ForceSwitch(t *Turn[A], from, to string) error {
	fe, err := m.lookup(from)
	if err != nil {
		return err
	}
	te, err := m.lookup(to)
	if err != nil {
		return err
	}
	if !m.HasEdge(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrNoEdge, from, to)
	}
	set := t.Agent.States()
	if !set.Has(from) {
		return fmt.Errorf("%w: %s", ErrNotActive, from)
	}
	fe.state.OnLeave(t)
	set.Remove(from)
	if set.Add(to) {
		te.state.OnEnter(t)
	}
	return nil
}

// Update evaluates transitions for every state active when the call starts.
// For each one that is still active and does not halt, all successors whose
// CanEnter holds are collected; if any are, the state is left and every
// qualifier is entered.
func (m *Machine[A]) Update(a A) error {
	t := m.NewTurn(a)
	set := a.States()
	for _, name := range set.Names() {
		if !a.Alive() {
			break
		}
		if !set.Has(name) {
			continue
		}
		cur, err := m.lookup(name)
		if err != nil {
			return err
		}
		if cur.state.Halt(t) {
			continue
		}

		var qualified []*entry[A]
		for _, n := range cur.next {
			next, err := m.lookup(n)
			if err != nil {
				return err
			}
			if next.state.CanEnter(t) {
				qualified = append(qualified, next)
			}
		}
		if len(qualified) == 0 {
			continue
		}

		cur.state.OnLeave(t)
		set.Remove(name)
		for _, next := range qualified {
			if !set.Add(next.state.Name()) {
				continue
			}
			next.state.OnEnter(t)
			if t.err != nil {
				return t.err
			}
		}
		if t.err != nil {
			return t.err
		}
	}
	return t.err
}

// Tick runs OnTick for every active state while the agent stays alive.
func (m *Machine[A]) Tick(a A) error {
	t := m.NewTurn(a)
	set := a.States()
	for _, name := range set.Names() {
		if !a.Alive() {
			break
		}
		if !set.Has(name) {
			continue
		}
		e, err := m.lookup(name)
		if err != nil {
			return err
		}
		e.state.OnTick(t)
		if t.err != nil {
			return t.err
		}
	}
	return nil
}
