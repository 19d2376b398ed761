package world

type Config struct {
	RunID string

	Width      int
	Height     int
	Seed       int64
	TickRateHz int

	// MaxTicks stops Run once the tick counter reaches it. Zero runs forever.
	MaxTicks uint64
	// StopWhenContained stops Run once no zombies and no carriers remain.
	StopWhenContained bool

	MaxVision      int
	HumanVision    int
	ZombieVision   int
	IncubationTime int

	Grouping     bool
	Reproduction bool
	Evacuation   bool

	ReproduceCooldown int
	DetourDepth       int

	Combat CombatConfig

	StatsBucketTicks uint64
	StatsWindowTicks uint64
}

// CombatConfig drives the survive roll of a human attacked by a zombie:
//
//	min(SurviveCap, HumanKillZombieChance
//	    + min(kills*KillBuffStep, KillBuffCap)
//	    + min(crowd*CrowdBuffStep, CrowdBuffCap))
type CombatConfig struct {
	HumanKillZombieChance float64
	KillBuffStep          float64
	KillBuffCap           float64
	CrowdBuffStep         float64
	CrowdBuffCap          float64
	SurviveCap            float64
}

func DefaultCombat() CombatConfig {
	return CombatConfig{
		HumanKillZombieChance: 0.6,
		KillBuffStep:          0.05,
		KillBuffCap:           0.3,
		CrowdBuffStep:         0.05,
		CrowdBuffCap:          0.2,
		SurviveCap:            0.8,
	}
}

func (c *Config) applyDefaults() {
	if c.Width <= 0 {
		c.Width = 100
	}
	if c.Height <= 0 {
		c.Height = 100
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.MaxVision <= 0 {
		c.MaxVision = 9
	}
	if c.HumanVision <= 0 {
		c.HumanVision = 4
	}
	if c.ZombieVision <= 0 {
		c.ZombieVision = 7
	}
	if c.IncubationTime < 0 {
		c.IncubationTime = 0
	}
	if c.ReproduceCooldown <= 0 {
		c.ReproduceCooldown = 3
	}
	if c.DetourDepth <= 0 {
		c.DetourDepth = 16
	}
	if c.Combat == (CombatConfig{}) {
		c.Combat = DefaultCombat()
	}
	if c.StatsBucketTicks == 0 {
		c.StatsBucketTicks = 10
	}
	if c.StatsWindowTicks < c.StatsBucketTicks {
		c.StatsWindowTicks = 10 * c.StatsBucketTicks
	}
}
