package observerproto

// Version is the observer protocol version.
const Version = "1.0"

// Terrain codes used in the bootstrap terrain layer.
const (
	TerrainOpen  uint8 = 0
	TerrainPlace uint8 = 1
	TerrainRoad  uint8 = 2
	TerrainWall  uint8 = 3
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// EveryTicks thins the stream to one TICK per N ticks.
	EveryTicks int `json:"every_ticks,omitempty"`
	// States asks for the active state names of every agent.
	States bool `json:"states,omitempty"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	RunID           string      `json:"run_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	Regions         []Region    `json:"regions,omitempty"`
	Doors           [][2]int    `json:"doors,omitempty"`
	Terrain         Terrain     `json:"terrain"`
	Counters        Counters    `json:"counters"`
}

type WorldParams struct {
	Width      int   `json:"width"`
	Height     int   `json:"height"`
	TickRateHz int   `json:"tick_rate_hz"`
	Seed       int64 `json:"seed"`
	MaxVision  int   `json:"max_vision"`
}

type Region struct {
	Name    string       `json:"name"`
	Kind    string       `json:"kind"`
	Polygon [][2]float64 `json:"polygon"`

	Density float64 `json:"density,omitempty"`
	Color   string  `json:"color,omitempty"`

	Direction [2]int `json:"direction,omitempty"`
	Speed     int    `json:"speed,omitempty"`
}

// Terrain is the static cell layer, row-major, run-length encoded.
type Terrain struct {
	Encoding string `json:"encoding"`
	Data     string `json:"data"`
}

type Counters struct {
	Susceptible int `json:"susceptible"`
	Infected    int `json:"infected"`
	Carrier     int `json:"carrier"`
	Recovered   int `json:"recovered"`
	Escaped     int `json:"escaped"`
}

// Server -> Client. Sent every tick (or every EveryTicks ticks).
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Counters Counters     `json:"counters"`
	Agents   []AgentState `json:"agents"`
	Events   []Lifecycle  `json:"events,omitempty"`
}

type AgentState struct {
	ID     uint64   `json:"id"`
	Kind   string   `json:"kind"`
	Pos    [2]int   `json:"pos"`
	Region string   `json:"region,omitempty"`
	States []string `json:"states,omitempty"`
}

type Lifecycle struct {
	Kind      string `json:"kind"`
	AgentID   uint64 `json:"agent_id"`
	AgentKind string `json:"agent_kind"`
	Pos       [2]int `json:"pos"`
	Reason    string `json:"reason,omitempty"`
}
