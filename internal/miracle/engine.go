package miracle

import (
	"log"
	"math/rand/v2"

	"github.com/google/uuid"

	"devotions.gg/internal/sim/world"
)

// RandSource is the engine's only source of randomness. *rand.Rand from
// math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

type Options struct {
	Logger *log.Logger
	Rand   RandSource
	Expiry ExpiryPolicy

	// CheckEveryTicks spaces out the periodic check in Tick; 0 checks every tick.
	CheckEveryTicks uint64
	// CooldownTicks is how long a player waits after a miracle before the
	// periodic check considers them again.
	CooldownTicks uint64

	Audit     world.AuditLogger
	OnTrigger func(p world.Player, m Miracle)
}

// Engine evaluates miracles and applies their effects against one world.
// It owns the harvest registry; Close releases it. Like the world, an
// engine is confined to the world loop goroutine.
type Engine struct {
	w        world.Facade
	log      *log.Logger
	rng      RandSource
	harvest  *HarvestRegistry
	miracles []Miracle

	every    uint64
	cooldown uint64
	readyAt  map[uuid.UUID]uint64

	audit     world.AuditLogger
	onTrigger func(p world.Player, m Miracle)
}

func NewEngine(w world.Facade, miracles []Miracle, opts Options) *Engine {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return &Engine{
		w:         w,
		log:       opts.Logger,
		rng:       rng,
		harvest:   NewHarvestRegistry(w, opts.Expiry),
		miracles:  append([]Miracle(nil), miracles...),
		every:     opts.CheckEveryTicks,
		cooldown:  opts.CooldownTicks,
		readyAt:   map[uuid.UUID]uint64{},
		audit:     opts.Audit,
		onTrigger: opts.OnTrigger,
	}
}

func (e *Engine) Miracles() []Miracle { return append([]Miracle(nil), e.miracles...) }

func (e *Engine) Harvest() *HarvestRegistry { return e.harvest }

// CanTrigger is the ordered AND of the miracle's conditions; evaluation
// stops at the first one that fails.
func (e *Engine) CanTrigger(m Miracle, p world.Player) bool {
	for _, c := range m.conditions {
		if !c.check(e, p) {
			return false
		}
	}
	return true
}

// Apply runs one effect against p. Callers check CanTrigger first.
func (e *Engine) Apply(eff Effect, p world.Player) {
	if eff == nil {
		return
	}
	eff.apply(e, p)
}

// Trigger applies m when its conditions hold and reports whether it did.
func (e *Engine) Trigger(m Miracle, p world.Player) bool {
	if !e.CanTrigger(m, p) {
		return false
	}
	e.Apply(m.effect, p)

	kind := ""
	if m.effect != nil {
		kind = m.effect.Kind()
	}
	e.auditEvent(p, "MIRACLE", m.name, map[string]any{"effect": kind})
	if e.onTrigger != nil {
		e.onTrigger(p, m)
	}
	return true
}

// Tick is the periodic check: each online player that is not cooling down
// receives at most one miracle, the first in order whose conditions hold.
func (e *Engine) Tick(nowTick uint64) {
	if e.every > 0 && nowTick%e.every != 0 {
		return
	}
	for _, p := range e.w.OnlinePlayers() {
		if ready, ok := e.readyAt[p.ID()]; ok && nowTick < ready {
			continue
		}
		for _, m := range e.miracles {
			if e.Trigger(m, p) {
				e.readyAt[p.ID()] = nowTick + e.cooldown
				break
			}
		}
	}
}

// OnBlockBreak doubles the drops of a fully grown crop broken by a player
// inside a harvest window. Anything else keeps its default drops.
func (e *Engine) OnBlockBreak(ev *world.BlockBreakEvent) {
	if ev == nil || ev.Player == nil {
		return
	}
	age, maxAge, ok := ev.Block.Ageable()
	if !ok || age != maxAge {
		return
	}
	if !e.harvest.Active(ev.Player.ID()) {
		return
	}
	ev.SetDropItems(false)

	drops := e.w.BlockDrops(ev.Block)
	for _, item := range drops {
		doubled := item.Clone()
		doubled.Amount = item.Amount * 2
		e.w.DropItemNaturally(ev.Block.Pos, doubled)
	}
	e.auditEvent(ev.Player, "HARVEST_DOUBLE", string(ev.Block.Type), map[string]any{
		"block_pos": ev.Block.Pos.ToArray(),
		"stacks":    len(drops),
	})
}

// Close tears down the harvest registry, cancelling pending expiries.
func (e *Engine) Close() {
	e.harvest.Close()
}

func (e *Engine) logf(format string, args ...any) {
	if e.log == nil {
		return
	}
	e.log.Printf(format, args...)
}

func (e *Engine) auditEvent(p world.Player, action, target string, details map[string]any) {
	if e.audit == nil {
		return
	}
	_ = e.audit.WriteAudit(world.AuditEntry{
		Tick:    e.w.CurrentTick(),
		Actor:   p.Name(),
		Action:  action,
		Target:  target,
		Pos:     p.Location().Block().ToArray(),
		Details: details,
	})
}
