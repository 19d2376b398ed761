package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	p := writeFile(t, `
tick_rate_hz: 20
seed: 7
incubation_time: 3
grouping: false
combat:
  human_kill_zombie_chance: 0.5
`)
	got, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 20, got.TickRateHz)
	assert.Equal(t, int64(7), got.Seed)
	assert.Equal(t, 3, got.IncubationTime)
	assert.False(t, got.Grouping)
	assert.Equal(t, 0.5, got.Combat.HumanKillZombieChance)
	// untouched keys keep their defaults
	assert.Equal(t, 4, got.HumanVision)
	assert.Equal(t, 0.8, got.Combat.SurviveCap)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "tick_rate_hz: [1, 2]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tuning.yaml")

	_, err = Load(writeFile(t, "combat:\n  survive_cap: 1.5\n"))
	require.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Tuning)
	}{
		{"tick rate", func(t *Tuning) { t.TickRateHz = 0 }},
		{"human vision", func(t *Tuning) { t.HumanVision = 0 }},
		{"incubation", func(t *Tuning) { t.IncubationTime = -1 }},
		{"window", func(t *Tuning) { t.StatsWindowTicks = 5 }},
		{"chance", func(t *Tuning) { t.Combat.HumanKillZombieChance = -0.1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tu := Default()
			tc.mut(&tu)
			assert.ErrorIs(t, tu.Validate(), ErrInvalid)
		})
	}
}

func TestWorldConfig(t *testing.T) {
	tu := Default()
	tu.Seed = 11
	tu.Reproduction = true
	cfg := tu.WorldConfig()

	assert.Equal(t, int64(11), cfg.Seed)
	assert.True(t, cfg.Reproduction)
	assert.True(t, cfg.StopWhenContained)
	assert.Equal(t, 9, cfg.MaxVision)
	assert.Equal(t, uint64(100), cfg.StatsWindowTicks)
	assert.Equal(t, 0.6, cfg.Combat.HumanKillZombieChance)
}
