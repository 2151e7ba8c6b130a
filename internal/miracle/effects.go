package miracle

import (
	"strings"

	"devotions.gg/internal/sim/world"
)

// Effect is the action a miracle performs once its conditions hold.
// The set of effects is closed: only this package implements it.
type Effect interface {
	Kind() string
	apply(e *Engine, p world.Player)
}

const (
	heroDurationTicks    = 6000
	fireResistanceTicks  = 300
	miracleBuffAmplifier = 1

	// PlayerPlaceholder is replaced by the triggering player's name in
	// ExecuteCommand templates.
	PlayerPlaceholder = "{player}"
)

const (
	msgRevived        = "<green>A miracle has revived you upon death!"
	msgHero           = "<green>A miracle has granted you the Hero of the Village effect!"
	msgFireResistance = "<green>A miracle has granted you Fire Resistance!"
	msgRepaired       = "<green>A miracle has repaired all your items!"
	msgGolems         = "<green>A miracle has summoned Iron Golems to aid you!"
	msgWolves         = "<green>A miracle has summoned friendly Wolves to protect you!"
	msgCommand        = "<green>A miracle has been bestowed upon ye!"
	msgHarvest        = "<green>A miracle has blessed you with a bountiful harvest!"
)

// ReviveOnDeath restores the player to their max-health attribute. Without
// the attribute nothing happens and no message is sent.
type ReviveOnDeath struct{}

func (ReviveOnDeath) Kind() string { return "REVIVE_ON_DEATH" }

func (ReviveOnDeath) apply(e *Engine, p world.Player) {
	maxHP, ok := p.MaxHealth()
	if !ok {
		e.logf("revive %s: max health attribute missing", p.Name())
		return
	}
	p.SetHealth(maxHP)
	p.SendMessage(msgRevived)
}

// HeroEffectInVillage always grants 6000 ticks; DurationTicks is kept for
// configuration round-trips but does not change the buff.
type HeroEffectInVillage struct {
	DurationTicks int
}

func (HeroEffectInVillage) Kind() string { return "HERO_EFFECT_IN_VILLAGE" }

func (HeroEffectInVillage) apply(_ *Engine, p world.Player) {
	p.AddPotionEffect(world.PotionEffect{
		Type:          world.PotionHeroOfTheVillage,
		DurationTicks: heroDurationTicks,
		Amplifier:     miracleBuffAmplifier,
	})
	p.SendMessage(msgHero)
}

// SaveFromBurning always grants 300 ticks of fire resistance.
type SaveFromBurning struct {
	DurationTicks int
}

func (SaveFromBurning) Kind() string { return "SAVE_FROM_BURNING" }

func (SaveFromBurning) apply(_ *Engine, p world.Player) {
	p.AddPotionEffect(world.PotionEffect{
		Type:          world.PotionFireResistance,
		DurationTicks: fireResistanceTicks,
		Amplifier:     miracleBuffAmplifier,
	})
	p.SendMessage(msgFireResistance)
}

// RepairAllItems clears damage on every slot, off hand included.
type RepairAllItems struct{}

func (RepairAllItems) Kind() string { return "REPAIR_ALL_ITEMS" }

func (RepairAllItems) apply(_ *Engine, p world.Player) {
	for _, item := range p.Inventory().Contents() {
		if item == nil || item.Type == world.MaterialAir {
			continue
		}
		meta, ok := item.ItemMeta()
		if !ok || !meta.HasDamage() {
			continue
		}
		meta.Damage = 0
		item.SetItemMeta(meta)
	}
	p.SendMessage(msgRepaired)
}

// SummonAid flips one coin per application; every spawned entity shares
// the chosen kind. Wolves are tamed and owned by the player.
type SummonAid struct {
	Count int
}

func (SummonAid) Kind() string { return "SUMMON_AID" }

func (s SummonAid) apply(e *Engine, p world.Player) {
	kind := world.EntityWolf
	msg := msgWolves
	if e.rng.IntN(2) == 0 {
		kind = world.EntityIronGolem
		msg = msgGolems
	}
	loc := p.Location()
	for i := 0; i < s.Count; i++ {
		ent := e.w.SpawnEntity(loc, kind)
		if kind != world.EntityWolf {
			continue
		}
		if t, ok := ent.(world.Tameable); ok {
			t.SetOwner(p.ID())
			t.SetTamed(true)
		}
	}
	p.SendMessage(msg)
}

// ExecuteCommand runs Template through the console after substituting
// PlayerPlaceholder. Line validation belongs to the console boundary.
type ExecuteCommand struct {
	Template string
}

func (ExecuteCommand) Kind() string { return "EXECUTE_COMMAND" }

func (c ExecuteCommand) Line(playerName string) string {
	return strings.ReplaceAll(c.Template, PlayerPlaceholder, playerName)
}

func (c ExecuteCommand) apply(e *Engine, p world.Player) {
	line := c.Line(p.Name())
	if err := e.w.DispatchConsoleCommand(line); err != nil {
		e.logf("execute command for %s: %v", p.Name(), err)
		return
	}
	p.SendMessage(msgCommand)
}

// DoubleCropDrops only marks the player; the doubling happens when they
// break a mature crop while still marked.
type DoubleCropDrops struct {
	DurationTicks uint64
}

func (DoubleCropDrops) Kind() string { return "DOUBLE_CROP_DROPS" }

func (d DoubleCropDrops) apply(e *Engine, p world.Player) {
	e.harvest.Activate(p.ID(), d.DurationTicks)
	p.SendMessage(msgHarvest)
}
