package world

import "math"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

// Location returns the position of the block's minimum corner.
func (v Vec3i) Location() Location {
	return Location{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Location is a continuous world position.
type Location struct {
	X float64
	Y float64
	Z float64
}

// Block returns the position of the block containing l.
func (l Location) Block() Vec3i {
	return Vec3i{
		X: int(math.Floor(l.X)),
		Y: int(math.Floor(l.Y)),
		Z: int(math.Floor(l.Z)),
	}
}

// WithinBox reports whether o lies inside the axis-aligned box of the given
// half-extents centered on l. The boundary is inclusive.
func (l Location) WithinBox(o Location, dx, dy, dz float64) bool {
	return math.Abs(o.X-l.X) <= dx && math.Abs(o.Y-l.Y) <= dy && math.Abs(o.Z-l.Z) <= dz
}

type Material string

const (
	MaterialAir      Material = "AIR"
	MaterialDirt     Material = "DIRT"
	MaterialStone    Material = "STONE"
	MaterialFarmland Material = "FARMLAND"

	MaterialWheat     Material = "WHEAT"
	MaterialCarrots   Material = "CARROTS"
	MaterialPotatoes  Material = "POTATOES"
	MaterialBeetroots Material = "BEETROOTS"

	MaterialWheatSeeds    Material = "WHEAT_SEEDS"
	MaterialCarrot        Material = "CARROT"
	MaterialPotato        Material = "POTATO"
	MaterialBeetroot      Material = "BEETROOT"
	MaterialBeetrootSeeds Material = "BEETROOT_SEEDS"
	MaterialBread         Material = "BREAD"

	MaterialIronSword      Material = "IRON_SWORD"
	MaterialIronPickaxe    Material = "IRON_PICKAXE"
	MaterialIronHelmet     Material = "IRON_HELMET"
	MaterialIronChestplate Material = "IRON_CHESTPLATE"
	MaterialShield         Material = "SHIELD"
)

// cropMaxAge lists the blocks whose data carries an age property.
var cropMaxAge = map[Material]int{
	MaterialWheat:     7,
	MaterialCarrots:   7,
	MaterialPotatoes:  7,
	MaterialBeetroots: 3,
}

func MaxAge(m Material) (int, bool) {
	n, ok := cropMaxAge[m]
	return n, ok
}

// Block is a read snapshot of one block position.
type Block struct {
	Pos  Vec3i
	Type Material
	Age  int
}

// Ageable returns the block's age data when the block type has one.
func (b Block) Ageable() (age, maxAge int, ok bool) {
	maxAge, ok = cropMaxAge[b.Type]
	if !ok {
		return 0, 0, false
	}
	return b.Age, maxAge, true
}

type EntityKind string

const (
	EntityVillager  EntityKind = "VILLAGER"
	EntityIronGolem EntityKind = "IRON_GOLEM"
	EntityWolf      EntityKind = "WOLF"
	EntityCow       EntityKind = "COW"
	EntityZombie    EntityKind = "ZOMBIE"
	EntitySkeleton  EntityKind = "SKELETON"
	EntityCreeper   EntityKind = "CREEPER"
	EntitySpider    EntityKind = "SPIDER"
	EntityWitch     EntityKind = "WITCH"
)

// IsMonster reports whether the kind belongs to the hostile monster category.
func (k EntityKind) IsMonster() bool {
	switch k {
	case EntityZombie, EntitySkeleton, EntityCreeper, EntitySpider, EntityWitch:
		return true
	}
	return false
}

type PotionType string

const (
	PotionHeroOfTheVillage PotionType = "HERO_OF_THE_VILLAGE"
	PotionFireResistance   PotionType = "FIRE_RESISTANCE"
)

type PotionEffect struct {
	Type          PotionType `json:"type"`
	DurationTicks int        `json:"duration_ticks"`
	Amplifier     int        `json:"amplifier"`
}

// ItemMeta is the mutable metadata of an item stack. Only damageable items
// carry a damage value.
type ItemMeta struct {
	Damageable bool
	Damage     int
}

func (m ItemMeta) HasDamage() bool { return m.Damageable && m.Damage > 0 }

type ItemStack struct {
	Type   Material
	Amount int

	meta *ItemMeta
}

func NewItem(t Material, amount int) *ItemStack {
	return &ItemStack{Type: t, Amount: amount}
}

// NewTool returns a single damageable item with the given accumulated damage.
func NewTool(t Material, damage int) *ItemStack {
	return &ItemStack{Type: t, Amount: 1, meta: &ItemMeta{Damageable: true, Damage: damage}}
}

// ItemMeta returns a copy of the stack's metadata. Callers write changes
// back with SetItemMeta.
func (s *ItemStack) ItemMeta() (ItemMeta, bool) {
	if s == nil || s.meta == nil {
		return ItemMeta{}, false
	}
	return *s.meta, true
}

func (s *ItemStack) SetItemMeta(m ItemMeta) {
	if s == nil {
		return
	}
	cp := m
	s.meta = &cp
}

func (s *ItemStack) IsEmpty() bool {
	return s == nil || s.Type == MaterialAir || s.Type == "" || s.Amount <= 0
}

func (s ItemStack) Clone() ItemStack {
	out := s
	if s.meta != nil {
		m := *s.meta
		out.meta = &m
	}
	return out
}

const (
	StorageSlots = 36
	ArmorSlots   = 4
)

type Inventory struct {
	Storage [StorageSlots]*ItemStack
	Armor   [ArmorSlots]*ItemStack
	OffHand *ItemStack
}

func (inv *Inventory) StorageContents() []*ItemStack { return inv.Storage[:] }

func (inv *Inventory) ArmorContents() []*ItemStack { return inv.Armor[:] }

// Contents returns every slot: storage, then armor, then the off hand.
func (inv *Inventory) Contents() []*ItemStack {
	out := make([]*ItemStack, 0, StorageSlots+ArmorSlots+1)
	out = append(out, inv.Storage[:]...)
	out = append(out, inv.Armor[:]...)
	return append(out, inv.OffHand)
}

// AddItem places s into the first empty storage slot.
func (inv *Inventory) AddItem(s *ItemStack) bool {
	for i, cur := range inv.Storage {
		if cur.IsEmpty() {
			inv.Storage[i] = s
			return true
		}
	}
	return false
}
