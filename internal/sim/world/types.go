package world

import (
	"apocalypse.sim/internal/sim/automaton"
	"apocalypse.sim/internal/sim/grid"
)

// State names. Wiring, initial sets and membership checks all go through
// these constants.
const (
	StateHumanWandering  = "HumanWandering"
	StateZombieWandering = "ZombieWandering"
	StateAvoidingZombie  = "AvoidingZombie"
	StateFormingHerd     = "FormingHerd"
	StateChasingHuman    = "ChasingHuman"

	StateIdle             = "Idle"
	StateInteractionHuman = "InteractionHuman"
	StateInfectHuman      = "InfectHuman"
	StateRemoveZombie     = "RemoveZombie"

	StateSusceptible = "Susceptible"
	StateInfected    = "Infected"
	StateTurned      = "Turned"

	StateResting   = "Resting"
	StateReproduce = "Reproduce"

	StateFindDoor = "FindDoor"
	StateEscaped  = "Escaped"
)

type (
	machine = automaton.Machine[*Agent]
	turn    = automaton.Turn[*Agent]
	base    = automaton.Base[*Agent]
)

type EventKind string

const (
	EventCreated EventKind = "created"
	EventRemoved EventKind = "removed"
)

// Reasons attached to lifecycle events.
const (
	ReasonScenario = "scenario"
	ReasonBorn     = "born"
	ReasonTurned   = "turned"
	ReasonKilled   = "killed"
	ReasonEscaped  = "escaped"
	ReasonRemoved  = "removed"
)

// LifecycleEvent records an agent entering or leaving the map.
type LifecycleEvent struct {
	Tick      uint64    `json:"tick"`
	Kind      EventKind `json:"kind"`
	AgentID   uint64    `json:"agent_id"`
	AgentKind grid.Kind `json:"agent_kind"`
	Pos       grid.Pos  `json:"pos"`
	Reason    string    `json:"reason,omitempty"`
}

// TickLogEntry is what tick sinks receive once per tick.
type TickLogEntry struct {
	RunID  string           `json:"run_id,omitempty"`
	Tick   uint64           `json:"tick"`
	Stats  PopulationStats  `json:"stats"`
	Agents int              `json:"agents"`
	Events []LifecycleEvent `json:"events,omitempty"`

	// Digest is StateDigest after the tick's agents have stepped.
	Digest string `json:"digest,omitempty"`
}

type TickSink interface {
	WriteTick(TickLogEntry) error
}
