package world

// PopulationStats are the population counters maintained by spawns,
// removals and the health states.
type PopulationStats struct {
	// Susceptible counts live humans not carrying the infection.
	Susceptible int `json:"susceptible"`
	// Infected counts live zombies.
	Infected int `json:"infected"`
	// Carrier counts live humans incubating the infection.
	Carrier int `json:"carrier"`
	// Recovered counts zombies killed so far.
	Recovered int `json:"recovered"`
	// Escaped counts humans that left through a door so far.
	Escaped int `json:"escaped"`
}

func (s PopulationStats) Humans() int { return s.Susceptible + s.Carrier }

// Contained reports that the outbreak is over: nothing left can infect.
func (s PopulationStats) Contained() bool { return s.Infected == 0 && s.Carrier == 0 }

// StatsBucket counts epidemic events over one bucket of ticks.
type StatsBucket struct {
	Infections int `json:"infections"`
	Turned     int `json:"turned"`
	Kills      int `json:"kills"`
	Births     int `json:"births"`
	Escapes    int `json:"escapes"`
}

func (b *StatsBucket) add(o StatsBucket) {
	b.Infections += o.Infections
	b.Turned += o.Turned
	b.Kills += o.Kills
	b.Births += o.Births
	b.Escapes += o.Escapes
}

// WorldStats is a ring of StatsBuckets covering a sliding window of ticks.
type WorldStats struct {
	bucketTicks uint64
	windowTicks uint64

	buckets []StatsBucket
	curIdx  int
	curBase uint64 // start tick (inclusive) of current bucket
}

func NewWorldStats(bucketTicks, windowTicks uint64) *WorldStats {
	if bucketTicks == 0 {
		bucketTicks = 10
	}
	if windowTicks < bucketTicks {
		windowTicks = bucketTicks
	}
	n := int(windowTicks / bucketTicks)
	if n < 1 {
		n = 1
	}
	return &WorldStats{
		bucketTicks: bucketTicks,
		windowTicks: uint64(n) * bucketTicks,
		buckets:     make([]StatsBucket, n),
	}
}

func (s *WorldStats) rotate(nowTick uint64) {
	if s == nil {
		return
	}
	for nowTick >= s.curBase+s.bucketTicks {
		s.curIdx = (s.curIdx + 1) % len(s.buckets)
		s.buckets[s.curIdx] = StatsBucket{}
		s.curBase += s.bucketTicks
	}
}

func (s *WorldStats) record(nowTick uint64, d StatsBucket) {
	if s == nil {
		return
	}
	s.rotate(nowTick)
	s.buckets[s.curIdx].add(d)
}

func (s *WorldStats) RecordInfection(nowTick uint64) { s.record(nowTick, StatsBucket{Infections: 1}) }
func (s *WorldStats) RecordTurned(nowTick uint64)    { s.record(nowTick, StatsBucket{Turned: 1}) }
func (s *WorldStats) RecordKill(nowTick uint64)      { s.record(nowTick, StatsBucket{Kills: 1}) }
func (s *WorldStats) RecordBirth(nowTick uint64)     { s.record(nowTick, StatsBucket{Births: 1}) }
func (s *WorldStats) RecordEscape(nowTick uint64)    { s.record(nowTick, StatsBucket{Escapes: 1}) }

func (s *WorldStats) WindowTicks() uint64 {
	if s == nil {
		return 0
	}
	return s.windowTicks
}

func (s *WorldStats) Summarize(nowTick uint64) StatsBucket {
	if s == nil {
		return StatsBucket{}
	}
	s.rotate(nowTick)
	var out StatsBucket
	for _, b := range s.buckets {
		out.add(b)
	}
	return out
}
