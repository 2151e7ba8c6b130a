package world

import (
	"encoding/json"

	"github.com/google/uuid"

	"devotions.gg/internal/protocol"
)

const (
	defaultMaxHealth  = 20.0
	recentMessagesCap = 64
)

// PlayerState is the authoritative state of one online player.
// It implements Player and must only be touched from the world loop.
type PlayerState struct {
	w *World

	id   uuid.UUID
	name string
	pos  Location

	health       float64
	maxHealth    float64
	hasMaxHealth bool
	fireTicks    int
	dead         bool

	inv     Inventory
	effects []PotionEffect
	perms   map[string]bool

	out      chan []byte
	messages []string
}

// OfflineID derives the stable identifier used for a player name.
func OfflineID(name string) uuid.UUID {
	return uuid.NewMD5(uuid.NameSpaceOID, []byte("OfflinePlayer:"+name))
}

func newPlayerState(w *World, name string, pos Location, out chan []byte) *PlayerState {
	return &PlayerState{
		w:            w,
		id:           OfflineID(name),
		name:         name,
		pos:          pos,
		health:       defaultMaxHealth,
		maxHealth:    defaultMaxHealth,
		hasMaxHealth: true,
		perms:        map[string]bool{},
		out:          out,
	}
}

func (p *PlayerState) ID() uuid.UUID      { return p.id }
func (p *PlayerState) Name() string       { return p.name }
func (p *PlayerState) Location() Location { return p.pos }
func (p *PlayerState) Health() float64    { return p.health }
func (p *PlayerState) FireTicks() int     { return p.fireTicks }
func (p *PlayerState) IsDead() bool       { return p.dead }

func (p *PlayerState) Inventory() *Inventory { return &p.inv }

func (p *PlayerState) SetHealth(hp float64) {
	if hp < 0 {
		hp = 0
	}
	if p.hasMaxHealth && hp > p.maxHealth {
		hp = p.maxHealth
	}
	p.health = hp
	p.dead = hp <= 0
}

func (p *PlayerState) MaxHealth() (float64, bool) {
	return p.maxHealth, p.hasMaxHealth
}

func (p *PlayerState) SetMaxHealth(hp float64) {
	p.maxHealth = hp
	p.hasMaxHealth = true
}

// ClearMaxHealth removes the max-health attribute.
func (p *PlayerState) ClearMaxHealth() {
	p.maxHealth = 0
	p.hasMaxHealth = false
}

func (p *PlayerState) SetFireTicks(n int) {
	if n < 0 {
		n = 0
	}
	p.fireTicks = n
}

// Kill marks the player dead without removing them from the world.
func (p *PlayerState) Kill() {
	p.health = 0
	p.dead = true
}

func (p *PlayerState) Teleport(loc Location) { p.pos = loc }

// AddPotionEffect replaces any active effect of the same type.
func (p *PlayerState) AddPotionEffect(e PotionEffect) {
	for i := range p.effects {
		if p.effects[i].Type == e.Type {
			p.effects[i] = e
			return
		}
	}
	p.effects = append(p.effects, e)
}

func (p *PlayerState) PotionEffects() []PotionEffect {
	return append([]PotionEffect(nil), p.effects...)
}

func (p *PlayerState) ActivePotion(t PotionType) (PotionEffect, bool) {
	for _, e := range p.effects {
		if e.Type == t {
			return e, true
		}
	}
	return PotionEffect{}, false
}

func (p *PlayerState) HasPermission(perm string) bool { return p.perms[perm] }

func (p *PlayerState) GrantPermission(perm string) { p.perms[perm] = true }

// SendMessage queues a NOTIFY for the player's session and keeps a short
// history of recent messages.
func (p *PlayerState) SendMessage(text string) {
	p.messages = append(p.messages, text)
	if len(p.messages) > recentMessagesCap {
		p.messages = append(p.messages[:0], p.messages[len(p.messages)-recentMessagesCap:]...)
	}
	if p.out == nil {
		return
	}
	var tick uint64
	if p.w != nil {
		tick = p.w.CurrentTick()
	}
	b, err := json.Marshal(protocol.NotifyMsg{
		Type:            protocol.TypeNotify,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Text:            text,
	})
	if err != nil {
		return
	}
	sendLatest(p.out, b)
}

// Send queues an already encoded message for the player's session.
func (p *PlayerState) Send(b []byte) {
	if p.out == nil {
		return
	}
	sendLatest(p.out, b)
}

func (p *PlayerState) Messages() []string {
	return append([]string(nil), p.messages...)
}

func (p *PlayerState) LastMessage() string {
	if len(p.messages) == 0 {
		return ""
	}
	return p.messages[len(p.messages)-1]
}

// tickStatus advances per-tick player timers: burning and potion durations.
func (p *PlayerState) tickStatus() {
	if p.fireTicks > 0 {
		p.fireTicks--
	}
	kept := p.effects[:0]
	for _, e := range p.effects {
		e.DurationTicks--
		if e.DurationTicks > 0 {
			kept = append(kept, e)
		}
	}
	p.effects = kept
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
