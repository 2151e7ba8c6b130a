package world

// PopulateStarterArea lays out a small village farm around the spawn point:
// a crop field with mixed growth stages, three villagers and a few animals.
// The layout is fixed so a fresh world always looks the same.
func (w *World) PopulateStarterArea() {
	spawn := w.cfg.Spawn.Block()
	crops := []Material{MaterialWheat, MaterialCarrots, MaterialPotatoes, MaterialBeetroots}
	for i, crop := range crops {
		maxAge := cropMaxAge[crop]
		for dx := 0; dx < 6; dx++ {
			farm := Vec3i{X: spawn.X + 3 + dx, Y: spawn.Y - 1, Z: spawn.Z + 2 + i}
			w.SetBlock(farm, MaterialFarmland, 0)
			age := maxAge
			if dx%3 == 2 {
				age = maxAge / 2
			}
			w.SetBlock(Vec3i{X: farm.X, Y: spawn.Y, Z: farm.Z}, crop, age)
		}
	}

	for _, off := range [][3]float64{{-4, 0, 3}, {-6, 0, -2}, {2, 0, -7}} {
		w.SpawnEntity(Location{X: w.cfg.Spawn.X + off[0], Y: w.cfg.Spawn.Y + off[1], Z: w.cfg.Spawn.Z + off[2]}, EntityVillager)
	}
	w.SpawnEntity(Location{X: w.cfg.Spawn.X + 9, Y: w.cfg.Spawn.Y, Z: w.cfg.Spawn.Z - 9}, EntityCow)
	w.SpawnEntity(Location{X: w.cfg.Spawn.X - 9, Y: w.cfg.Spawn.Y, Z: w.cfg.Spawn.Z + 9}, EntityCow)
}
