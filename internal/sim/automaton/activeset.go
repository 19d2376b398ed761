package automaton

// ActiveSet is the set of state names an agent currently runs, kept in
// insertion order.
type ActiveSet struct {
	names []string
}

func NewActiveSet(names ...string) *ActiveSet {
	s := &ActiveSet{}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func (s *ActiveSet) Has(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Add reports false when name was already present.
func (s *ActiveSet) Add(name string) bool {
	if s.Has(name) {
		return false
	}
	s.names = append(s.names, name)
	return true
}

func (s *ActiveSet) Remove(name string) bool {
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			return true
		}
	}
	return false
}

func (s *ActiveSet) Clear() { s.names = s.names[:0] }

func (s *ActiveSet) Len() int { return len(s.names) }

// Names returns a copy, safe to range over while the set changes.
func (s *ActiveSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
