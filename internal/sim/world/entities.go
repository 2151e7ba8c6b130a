package world

import (
	"sort"

	"github.com/google/uuid"
)

// Mob is a non-player entity. Wolves can be tamed and owned.
type Mob struct {
	id    uuid.UUID
	kind  EntityKind
	pos   Location
	tamed bool
	owner uuid.UUID
}

func (m *Mob) ID() uuid.UUID      { return m.id }
func (m *Mob) Kind() EntityKind   { return m.kind }
func (m *Mob) Location() Location { return m.pos }
func (m *Mob) Tamed() bool        { return m.tamed }

func (m *Mob) Owner() (uuid.UUID, bool) {
	return m.owner, m.owner != uuid.Nil
}

// wolf is the only mob kind that accepts an owner.
type wolf struct{ *Mob }

func (w wolf) SetTamed(tamed bool)      { w.tamed = tamed }
func (w wolf) SetOwner(owner uuid.UUID) { w.owner = owner }

func asEntity(m *Mob) Entity {
	if m.kind == EntityWolf {
		return wolf{m}
	}
	return m
}

func (w *World) SpawnEntity(loc Location, kind EntityKind) Entity {
	m := &Mob{id: w.newEntityID(), kind: kind, pos: loc}
	w.entities[m.id] = m
	w.entityOrder = append(w.entityOrder, m.id)
	w.auditEvent(w.CurrentTick(), "WORLD", "ENTITY_SPAWN", loc.Block(), "", map[string]any{
		"entity_id": m.id.String(),
		"kind":      string(kind),
	})
	return asEntity(m)
}

func (w *World) newEntityID() uuid.UUID {
	if w.idSource != nil {
		return w.idSource()
	}
	return uuid.New()
}

func (w *World) RemoveEntity(id uuid.UUID) {
	if _, ok := w.entities[id]; !ok {
		return
	}
	delete(w.entities, id)
	for i, cur := range w.entityOrder {
		if cur == id {
			w.entityOrder = append(w.entityOrder[:i], w.entityOrder[i+1:]...)
			break
		}
	}
}

// NearbyEntities returns mobs and other players inside the box, in spawn
// (then join) order.
func (w *World) NearbyEntities(p Player, dx, dy, dz float64) []Entity {
	center := p.Location()
	var out []Entity
	for _, id := range w.entityOrder {
		m := w.entities[id]
		if m == nil || !center.WithinBox(m.pos, dx, dy, dz) {
			continue
		}
		out = append(out, asEntity(m))
	}
	for _, other := range w.sortedPlayers() {
		if other.id == p.ID() {
			continue
		}
		if center.WithinBox(other.pos, dx, dy, dz) {
			out = append(out, playerEntity{other})
		}
	}
	return out
}

// Entities returns every mob of the given kind; an empty kind matches all.
func (w *World) Entities(kind EntityKind) []*Mob {
	var out []*Mob
	for _, id := range w.entityOrder {
		m := w.entities[id]
		if m == nil {
			continue
		}
		if kind == "" || m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

const EntityPlayer EntityKind = "PLAYER"

type playerEntity struct{ p *PlayerState }

func (e playerEntity) ID() uuid.UUID      { return e.p.id }
func (e playerEntity) Kind() EntityKind   { return EntityPlayer }
func (e playerEntity) Location() Location { return e.p.pos }

func (w *World) sortedPlayers() []*PlayerState {
	out := make([]*PlayerState, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
