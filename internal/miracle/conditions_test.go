package miracle

import (
	"testing"

	"devotions.gg/internal/sim/world"
)

// countingWorld counts block reads made through the facade.
type countingWorld struct {
	*world.World
	blockReads int
}

func (c *countingWorld) BlockAt(pos world.Vec3i) world.Block {
	c.blockReads++
	return c.World.BlockAt(pos)
}

func TestNearVillagers_Threshold(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")
	c := NearVillagers{}

	w.SpawnEntity(world.Location{X: 1, Z: 1}, world.EntityVillager)
	w.SpawnEntity(world.Location{X: -3, Z: 2}, world.EntityVillager)
	w.SpawnEntity(world.Location{X: 2, Z: 0}, world.EntityCow)
	if c.check(e, p) {
		t.Fatalf("2 villagers should not satisfy the condition")
	}

	// Exactly on the box boundary counts as within.
	w.SpawnEntity(world.Location{X: 10, Y: 10, Z: -10}, world.EntityVillager)
	if !c.check(e, p) {
		t.Fatalf("3 villagers (one on the boundary) should satisfy the condition")
	}
}

func TestNearVillagers_OutsideBoxIgnored(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")
	for i := 0; i < 5; i++ {
		w.SpawnEntity(world.Location{X: 10.01, Z: float64(i)}, world.EntityVillager)
	}
	if (NearVillagers{}).check(e, p) {
		t.Fatalf("villagers outside the box must not count")
	}
}

func TestLowHealth_Boundary(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")

	p.SetHealth(10.0)
	if !(LowHealth{}).check(e, p) {
		t.Fatalf("health 10.0 should be low")
	}
	p.SetHealth(10.1)
	if (LowHealth{}).check(e, p) {
		t.Fatalf("health 10.1 should not be low")
	}
}

func TestIsDeadAndIsOnFire(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")

	if (IsDead{}).check(e, p) || (IsOnFire{}).check(e, p) {
		t.Fatalf("fresh player is neither dead nor burning")
	}
	p.Kill()
	p.SetFireTicks(1)
	if !(IsDead{}).check(e, p) || !(IsOnFire{}).check(e, p) {
		t.Fatalf("expected dead and burning")
	}
}

func TestNearHostileMobs(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")

	w.SpawnEntity(world.Location{X: 4.5}, world.EntityZombie)
	w.SpawnEntity(world.Location{X: 1}, world.EntityCow)
	if (NearHostileMobs{}).check(e, p) {
		t.Fatalf("only passive mobs inside the box")
	}
	w.SpawnEntity(world.Location{X: -4, Y: 4, Z: 4}, world.EntitySkeleton)
	if !(NearHostileMobs{}).check(e, p) {
		t.Fatalf("skeleton on the boundary should count")
	}
}

func TestHasRepairableItems(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")
	inv := p.Inventory()
	c := HasRepairableItems{}

	inv.Storage[0] = world.NewItem(world.MaterialBread, 5)
	inv.Storage[1] = world.NewTool(world.MaterialIronSword, 0)
	air := world.NewTool(world.MaterialAir, 10)
	inv.Storage[2] = air
	inv.OffHand = world.NewTool(world.MaterialShield, 30)
	if c.check(e, p) {
		t.Fatalf("undamaged, air and off-hand items are not repairable here")
	}

	inv.Armor[2] = world.NewTool(world.MaterialIronChestplate, 4)
	if !c.check(e, p) {
		t.Fatalf("damaged armor should be repairable")
	}
	inv.Armor[2] = nil
	inv.Storage[30] = world.NewTool(world.MaterialIronPickaxe, 1)
	if !c.check(e, p) {
		t.Fatalf("damaged storage item should be repairable")
	}
}

func TestNearCrops_ScansWholeCube(t *testing.T) {
	base, err := world.New(world.WorldConfig{ID: "W1", TickRateHz: 20}, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	cw := &countingWorld{World: base}
	e := NewEngine(cw, nil, Options{})
	defer e.Close()
	p, _ := base.AddPlayer("Bob", nil)
	p.Teleport(world.Location{X: 0.5, Y: 64, Z: 0.5})

	if (NearCrops{}).check(e, p) {
		t.Fatalf("no crops placed")
	}
	if cw.blockReads != 1331 {
		t.Fatalf("expected 1331 block reads, got %d", cw.blockReads)
	}

	// A crop at the very first scanned position still costs a full scan.
	base.SetBlock(world.Vec3i{X: -5, Y: 59, Z: -5}, world.MaterialBeetroots, 1)
	cw.blockReads = 0
	if !(NearCrops{}).check(e, p) {
		t.Fatalf("crop at the cube corner should be found")
	}
	if cw.blockReads != 1331 {
		t.Fatalf("expected 1331 block reads, got %d", cw.blockReads)
	}
}

func TestNearCrops_Range(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")

	w.SetBlock(world.Vec3i{X: 6, Y: 0, Z: 0}, world.MaterialWheat, 7)
	w.SetBlock(world.Vec3i{X: 0, Y: 0, Z: 2}, world.MaterialFarmland, 0)
	if (NearCrops{}).check(e, p) {
		t.Fatalf("wheat six blocks away is out of range")
	}
	w.SetBlock(world.Vec3i{X: 0, Y: -5, Z: 5}, world.MaterialPotatoes, 0)
	if !(NearCrops{}).check(e, p) {
		t.Fatalf("immature potatoes in range should count")
	}
}
