package miracle

// Miracle is a named rule: every condition must hold, in order, before the
// effect is applied. Values are immutable once built.
type Miracle struct {
	name       string
	conditions []Condition
	effect     Effect
}

func New(name string, conditions []Condition, effect Effect) Miracle {
	return Miracle{
		name:       name,
		conditions: append([]Condition(nil), conditions...),
		effect:     effect,
	}
}

func (m Miracle) Name() string   { return m.name }
func (m Miracle) Effect() Effect { return m.effect }

func (m Miracle) Conditions() []Condition {
	return append([]Condition(nil), m.conditions...)
}

type DefaultParams struct {
	HeroDurationTicks    int
	BurnDurationTicks    int
	HarvestDurationTicks uint64
	SummonAidCount       int
	// CommandTemplate enables the command miracle when non-empty.
	CommandTemplate string
}

// Defaults is the built-in miracle set, in evaluation order.
func Defaults(p DefaultParams) []Miracle {
	out := []Miracle{
		New("revive_on_death", []Condition{IsDead{}}, ReviveOnDeath{}),
		New("save_from_burning", []Condition{IsOnFire{}}, SaveFromBurning{DurationTicks: p.BurnDurationTicks}),
		New("summon_aid", []Condition{LowHealth{}, NearHostileMobs{}}, SummonAid{Count: p.SummonAidCount}),
		New("hero_of_the_village", []Condition{NearVillagers{}}, HeroEffectInVillage{DurationTicks: p.HeroDurationTicks}),
		New("repair_all_items", []Condition{HasRepairableItems{}}, RepairAllItems{}),
		New("bountiful_harvest", []Condition{NearCrops{}}, DoubleCropDrops{DurationTicks: p.HarvestDurationTicks}),
	}
	if p.CommandTemplate != "" {
		out = append(out, New("divine_command", []Condition{LowHealth{}}, ExecuteCommand{Template: p.CommandTemplate}))
	}
	return out
}
