package world

import (
	"fmt"
	"sort"
)

// ItemEntity is a dropped item stack lying in the world.
type ItemEntity struct {
	EntityID    string
	Pos         Vec3i
	Item        Material
	Count       int
	CreatedTick uint64
	ExpiresTick uint64
}

const itemEntityTTLTicksDefault = 6000

func (w *World) BlockAt(pos Vec3i) Block {
	if b, ok := w.blocks[pos]; ok {
		return b
	}
	return Block{Pos: pos, Type: MaterialAir}
}

// SetBlock places a block. Ages are clamped to the type's maximum.
func (w *World) SetBlock(pos Vec3i, t Material, age int) {
	if t == MaterialAir || t == "" {
		delete(w.blocks, pos)
		return
	}
	if maxAge, ok := cropMaxAge[t]; ok {
		if age > maxAge {
			age = maxAge
		}
		if age < 0 {
			age = 0
		}
	} else {
		age = 0
	}
	w.blocks[pos] = Block{Pos: pos, Type: t, Age: age}
}

// BlockDrops computes the default drops of b. Crops drop their produce only
// when fully grown; immature crops give back their seed.
func (w *World) BlockDrops(b Block) []ItemStack {
	age, maxAge, ageable := b.Ageable()
	mature := ageable && age == maxAge
	switch b.Type {
	case MaterialAir:
		return nil
	case MaterialWheat:
		if mature {
			return []ItemStack{{Type: MaterialWheat, Amount: 1}, {Type: MaterialWheatSeeds, Amount: 2}}
		}
		return []ItemStack{{Type: MaterialWheatSeeds, Amount: 1}}
	case MaterialCarrots:
		if mature {
			return []ItemStack{{Type: MaterialCarrot, Amount: 3}}
		}
		return []ItemStack{{Type: MaterialCarrot, Amount: 1}}
	case MaterialPotatoes:
		if mature {
			return []ItemStack{{Type: MaterialPotato, Amount: 3}}
		}
		return []ItemStack{{Type: MaterialPotato, Amount: 1}}
	case MaterialBeetroots:
		if mature {
			return []ItemStack{{Type: MaterialBeetroot, Amount: 1}, {Type: MaterialBeetrootSeeds, Amount: 2}}
		}
		return []ItemStack{{Type: MaterialBeetrootSeeds, Amount: 1}}
	case MaterialFarmland:
		return []ItemStack{{Type: MaterialDirt, Amount: 1}}
	default:
		return []ItemStack{{Type: b.Type, Amount: 1}}
	}
}

func (w *World) DropItemNaturally(pos Vec3i, stack ItemStack) {
	w.spawnItemEntity(w.CurrentTick(), pos, stack.Type, stack.Amount)
}

func (w *World) spawnItemEntity(nowTick uint64, pos Vec3i, item Material, count int) string {
	if item == "" || item == MaterialAir || count <= 0 {
		return ""
	}
	n := w.nextItemNum + 1
	w.nextItemNum = n
	id := fmt.Sprintf("IT%06d", n)
	w.items[id] = &ItemEntity{
		EntityID:    id,
		Pos:         pos,
		Item:        item,
		Count:       count,
		CreatedTick: nowTick,
		ExpiresTick: nowTick + itemEntityTTLTicksDefault,
	}
	w.itemsAt[pos] = append(w.itemsAt[pos], id)
	return id
}

// ItemsAt returns the dropped stacks at pos in drop order.
func (w *World) ItemsAt(pos Vec3i) []ItemEntity {
	ids := w.itemsAt[pos]
	out := make([]ItemEntity, 0, len(ids))
	for _, id := range ids {
		if e := w.items[id]; e != nil {
			out = append(out, *e)
		}
	}
	return out
}

// ItemCountAt sums dropped stacks of item at pos.
func (w *World) ItemCountAt(pos Vec3i, item Material) int {
	total := 0
	for _, e := range w.ItemsAt(pos) {
		if e.Item == item {
			total += e.Count
		}
	}
	return total
}

func (w *World) ClearItems() {
	w.items = map[string]*ItemEntity{}
	w.itemsAt = map[Vec3i][]string{}
}

func (w *World) expireItemEntities(nowTick uint64) {
	var expired []string
	for id, e := range w.items {
		if e.ExpiresTick != 0 && nowTick >= e.ExpiresTick {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	for _, id := range expired {
		e := w.items[id]
		delete(w.items, id)
		ids := w.itemsAt[e.Pos]
		for i := range ids {
			if ids[i] == id {
				ids = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(w.itemsAt, e.Pos)
		} else {
			w.itemsAt[e.Pos] = ids
		}
	}
}

// BreakBlock breaks the block at pos on behalf of p. Listeners run first and
// may suppress the default drops; the block becomes air either way.
func (w *World) BreakBlock(p Player, pos Vec3i) bool {
	b := w.BlockAt(pos)
	if b.Type == MaterialAir {
		return false
	}
	ev := NewBlockBreakEvent(p, b)
	for _, l := range w.breakListeners {
		l(ev)
	}
	if ev.DropItems() {
		for _, d := range w.BlockDrops(b) {
			w.DropItemNaturally(pos, d)
		}
	}
	delete(w.blocks, pos)
	w.auditEvent(w.CurrentTick(), p.Name(), "BREAK_BLOCK", pos, "", map[string]any{
		"block":         string(b.Type),
		"age":           b.Age,
		"default_drops": ev.DropItems(),
	})
	return true
}
