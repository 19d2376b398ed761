package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	world "apocalypse.sim/internal/sim/world"
)

var ErrInvalid = errors.New("tuning: invalid value")

type Tuning struct {
	TickRateHz int   `yaml:"tick_rate_hz"`
	Seed       int64 `yaml:"seed"`

	MaxVision      int `yaml:"max_vision"`
	HumanVision    int `yaml:"human_vision"`
	ZombieVision   int `yaml:"zombie_vision"`
	IncubationTime int `yaml:"incubation_time"`

	Grouping          bool `yaml:"grouping"`
	Reproduction      bool `yaml:"reproduction"`
	StopWhenContained bool `yaml:"stop_when_contained"`

	ReproduceCooldown int `yaml:"reproduce_cooldown"`
	DetourDepth       int `yaml:"detour_depth"`

	StatsBucketTicks int `yaml:"stats_bucket_ticks"`
	StatsWindowTicks int `yaml:"stats_window_ticks"`

	Combat Combat `yaml:"combat"`
}

type Combat struct {
	HumanKillZombieChance float64 `yaml:"human_kill_zombie_chance"`
	KillBuffStep          float64 `yaml:"kill_buff_step"`
	KillBuffCap           float64 `yaml:"kill_buff_cap"`
	CrowdBuffStep         float64 `yaml:"crowd_buff_step"`
	CrowdBuffCap          float64 `yaml:"crowd_buff_cap"`
	SurviveCap            float64 `yaml:"survive_cap"`
}

func Default() Tuning {
	c := world.DefaultCombat()
	return Tuning{
		TickRateHz:        10,
		MaxVision:         9,
		HumanVision:       4,
		ZombieVision:      7,
		IncubationTime:    8,
		Grouping:          true,
		StopWhenContained: true,
		ReproduceCooldown: 3,
		DetourDepth:       16,
		StatsBucketTicks:  10,
		StatsWindowTicks:  100,
		Combat: Combat{
			HumanKillZombieChance: c.HumanKillZombieChance,
			KillBuffStep:          c.KillBuffStep,
			KillBuffCap:           c.KillBuffCap,
			CrowdBuffStep:         c.CrowdBuffStep,
			CrowdBuffCap:          c.CrowdBuffCap,
			SurviveCap:            c.SurviveCap,
		},
	}
}

// Load reads a tuning file over the defaults: keys missing from the file keep
// their default value.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz < 1 || t.TickRateHz > 1000 {
		return fmt.Errorf("%w: tick_rate_hz=%d (1..1000)", ErrInvalid, t.TickRateHz)
	}
	for _, v := range []struct {
		name string
		val  int
	}{
		{"max_vision", t.MaxVision},
		{"human_vision", t.HumanVision},
		{"zombie_vision", t.ZombieVision},
		{"reproduce_cooldown", t.ReproduceCooldown},
		{"detour_depth", t.DetourDepth},
		{"stats_bucket_ticks", t.StatsBucketTicks},
	} {
		if v.val < 1 {
			return fmt.Errorf("%w: %s=%d (must be >= 1)", ErrInvalid, v.name, v.val)
		}
	}
	if t.IncubationTime < 0 {
		return fmt.Errorf("%w: incubation_time=%d", ErrInvalid, t.IncubationTime)
	}
	if t.StatsWindowTicks < t.StatsBucketTicks {
		return fmt.Errorf("%w: stats_window_ticks=%d is shorter than one bucket", ErrInvalid, t.StatsWindowTicks)
	}
	for _, p := range []struct {
		name string
		val  float64
	}{
		{"combat.human_kill_zombie_chance", t.Combat.HumanKillZombieChance},
		{"combat.kill_buff_step", t.Combat.KillBuffStep},
		{"combat.kill_buff_cap", t.Combat.KillBuffCap},
		{"combat.crowd_buff_step", t.Combat.CrowdBuffStep},
		{"combat.crowd_buff_cap", t.Combat.CrowdBuffCap},
		{"combat.survive_cap", t.Combat.SurviveCap},
	} {
		if p.val < 0 || p.val > 1 {
			return fmt.Errorf("%w: %s=%v (0..1)", ErrInvalid, p.name, p.val)
		}
	}
	return nil
}

// WorldConfig maps the tuning onto a world config. Grid size, run id, tick
// limit and evacuation come from the scenario and the command line.
func (t Tuning) WorldConfig() world.Config {
	return world.Config{
		Seed:              t.Seed,
		TickRateHz:        t.TickRateHz,
		StopWhenContained: t.StopWhenContained,
		MaxVision:         t.MaxVision,
		HumanVision:       t.HumanVision,
		ZombieVision:      t.ZombieVision,
		IncubationTime:    t.IncubationTime,
		Grouping:          t.Grouping,
		Reproduction:      t.Reproduction,
		ReproduceCooldown: t.ReproduceCooldown,
		DetourDepth:       t.DetourDepth,
		Combat: world.CombatConfig{
			HumanKillZombieChance: t.Combat.HumanKillZombieChance,
			KillBuffStep:          t.Combat.KillBuffStep,
			KillBuffCap:           t.Combat.KillBuffCap,
			CrowdBuffStep:         t.Combat.CrowdBuffStep,
			CrowdBuffCap:          t.Combat.CrowdBuffCap,
			SurviveCap:            t.Combat.SurviveCap,
		},
		StatsBucketTicks: uint64(t.StatsBucketTicks),
		StatsWindowTicks: uint64(t.StatsWindowTicks),
	}
}
