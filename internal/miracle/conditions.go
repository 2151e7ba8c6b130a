package miracle

import "devotions.gg/internal/sim/world"

// Condition is a pure predicate over the player's current world state.
// The set of conditions is closed: only this package implements it.
type Condition interface {
	Kind() string
	check(e *Engine, p world.Player) bool
}

const (
	villagerRadius     = 10
	villagerMinCount   = 3
	lowHealthThreshold = 10.0
	hostileRadius      = 4
	cropScanRadius     = 5
)

var cropBlocks = map[world.Material]bool{
	world.MaterialWheat:     true,
	world.MaterialCarrots:   true,
	world.MaterialPotatoes:  true,
	world.MaterialBeetroots: true,
}

// NearVillagers holds when at least MinCount villagers stand inside the box
// of half-extent Radius around the player. Zero fields mean 10 and 3.
type NearVillagers struct {
	Radius   float64
	MinCount int
}

func (NearVillagers) Kind() string { return "NEAR_VILLAGERS" }

func (c NearVillagers) check(e *Engine, p world.Player) bool {
	r := c.Radius
	if r <= 0 {
		r = villagerRadius
	}
	need := c.MinCount
	if need <= 0 {
		need = villagerMinCount
	}
	count := 0
	for _, ent := range e.w.NearbyEntities(p, r, r, r) {
		if ent.Kind() == world.EntityVillager {
			count++
		}
	}
	e.logf("villagers near %s: %d", p.Name(), count)
	return count >= need
}

type IsDead struct{}

func (IsDead) Kind() string { return "IS_DEAD" }

func (IsDead) check(_ *Engine, p world.Player) bool { return p.IsDead() }

type IsOnFire struct{}

func (IsOnFire) Kind() string { return "IS_ON_FIRE" }

func (IsOnFire) check(_ *Engine, p world.Player) bool { return p.FireTicks() > 0 }

// LowHealth compares absolute health, not a fraction of max health.
// A zero Threshold means 10.
type LowHealth struct {
	Threshold float64
}

func (LowHealth) Kind() string { return "LOW_HEALTH" }

func (c LowHealth) check(e *Engine, p world.Player) bool {
	th := c.Threshold
	if th <= 0 {
		th = lowHealthThreshold
	}
	hp := p.Health()
	e.logf("health of %s: %.1f", p.Name(), hp)
	return hp <= th
}

type NearHostileMobs struct {
	Radius float64
}

func (NearHostileMobs) Kind() string { return "NEAR_HOSTILE_MOBS" }

func (c NearHostileMobs) check(e *Engine, p world.Player) bool {
	r := c.Radius
	if r <= 0 {
		r = hostileRadius
	}
	for _, ent := range e.w.NearbyEntities(p, r, r, r) {
		if ent.Kind().IsMonster() {
			return true
		}
	}
	return false
}

// HasRepairableItems looks at storage and armor only; the off hand is not
// considered here even though RepairAllItems repairs it.
type HasRepairableItems struct{}

func (HasRepairableItems) Kind() string { return "HAS_REPAIRABLE_ITEMS" }

func (HasRepairableItems) check(_ *Engine, p world.Player) bool {
	inv := p.Inventory()
	for _, item := range inv.StorageContents() {
		if isRepairable(item) {
			return true
		}
	}
	for _, armor := range inv.ArmorContents() {
		if isRepairable(armor) {
			return true
		}
	}
	return false
}

func isRepairable(item *world.ItemStack) bool {
	if item == nil || item.Type == world.MaterialAir {
		return false
	}
	meta, ok := item.ItemMeta()
	return ok && meta.HasDamage()
}

// NearCrops reads every block of the (2r+1)^3 cube around the player's block
// before looking for a crop, so the read volume is always the full cube.
type NearCrops struct {
	Radius int
}

func (NearCrops) Kind() string { return "NEAR_CROPS" }

func (c NearCrops) check(e *Engine, p world.Player) bool {
	for _, b := range nearbyBlocks(e.w, p.Location().Block(), c.radius()) {
		if cropBlocks[b.Type] {
			return true
		}
	}
	return false
}

func (c NearCrops) radius() int {
	if c.Radius <= 0 {
		return cropScanRadius
	}
	return c.Radius
}

func nearbyBlocks(w world.Facade, center world.Vec3i, r int) []world.Block {
	side := 2*r + 1
	blocks := make([]world.Block, 0, side*side*side)
	for x := center.X - r; x <= center.X+r; x++ {
		for y := center.Y - r; y <= center.Y+r; y++ {
			for z := center.Z - r; z <= center.Z+r; z++ {
				blocks = append(blocks, w.BlockAt(world.Vec3i{X: x, Y: y, Z: z}))
			}
		}
	}
	return blocks
}
