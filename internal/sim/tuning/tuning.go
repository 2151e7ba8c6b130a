package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int   `yaml:"tick_rate_hz"`
	Seed       int64 `yaml:"seed"`

	Miracles Miracles `yaml:"miracles"`
	Favor    Favor    `yaml:"favor"`
}

type Miracles struct {
	CheckEveryTicks int `yaml:"check_every_ticks"`
	CooldownTicks   int `yaml:"cooldown_ticks"`

	HeroDurationTicks      int    `yaml:"hero_duration_ticks"`
	BurnDurationTicks      int    `yaml:"burn_duration_ticks"`
	HarvestDurationSeconds int    `yaml:"harvest_duration_seconds"`
	HarvestExpiry          string `yaml:"harvest_expiry"`
	SummonAidCount         int    `yaml:"summon_aid_count"`
	CommandTemplate        string `yaml:"command_template"`
}

type Favor struct {
	DefaultDeity string   `yaml:"default_deity"`
	Admins       []string `yaml:"admins"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz: 20,
		Seed:       1,
		Miracles: Miracles{
			CheckEveryTicks:        100,
			CooldownTicks:          6000,
			HeroDurationTicks:      6000,
			BurnDurationTicks:      300,
			HarvestDurationSeconds: 300,
			HarvestExpiry:          "restart",
			SummonAidCount:         3,
		},
		Favor: Favor{DefaultDeity: "Zeus"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.Miracles.HarvestExpiry = strings.ToLower(strings.TrimSpace(t.Miracles.HarvestExpiry))
	if t.Miracles.HarvestExpiry == "" {
		t.Miracles.HarvestExpiry = "restart"
	}
	t.Miracles.CommandTemplate = strings.TrimSpace(t.Miracles.CommandTemplate)
	t.Favor.DefaultDeity = strings.TrimSpace(t.Favor.DefaultDeity)
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	}
	m := t.Miracles
	if m.CheckEveryTicks < 0 || m.CooldownTicks < 0 {
		return errors.New("miracles: negative check interval or cooldown")
	}
	if m.HarvestDurationSeconds <= 0 {
		return fmt.Errorf("miracles.harvest_duration_seconds must be positive: %d", m.HarvestDurationSeconds)
	}
	if m.SummonAidCount < 0 || m.SummonAidCount > 64 {
		return fmt.Errorf("miracles.summon_aid_count out of range: %d", m.SummonAidCount)
	}
	switch m.HarvestExpiry {
	case "restart", "first":
	default:
		return fmt.Errorf("miracles.harvest_expiry: unknown policy %q", m.HarvestExpiry)
	}
	if strings.ContainsAny(m.CommandTemplate, "\r\n") {
		return errors.New("miracles.command_template must be a single line")
	}
	for _, a := range t.Favor.Admins {
		if strings.TrimSpace(a) == "" {
			return errors.New("favor.admins: empty name")
		}
	}
	return nil
}

// HarvestDurationTicks converts the harvest window to ticks at the
// configured tick rate.
func (t Tuning) HarvestDurationTicks() uint64 {
	return uint64(t.Miracles.HarvestDurationSeconds) * uint64(t.TickRateHz)
}

func (t Tuning) IsAdmin(name string) bool {
	for _, a := range t.Favor.Admins {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}
