package world

import (
	"github.com/google/uuid"

	"devotions.gg/internal/sim/tasks"
)

// Player is the read/write surface of an online player.
type Player interface {
	ID() uuid.UUID
	Name() string
	Location() Location

	Health() float64
	SetHealth(hp float64)
	// MaxHealth resolves the max-health attribute; ok is false when the
	// attribute is absent.
	MaxHealth() (hp float64, ok bool)
	FireTicks() int
	IsDead() bool

	Inventory() *Inventory
	AddPotionEffect(e PotionEffect)

	HasPermission(perm string) bool
	SendMessage(text string)
}

type Entity interface {
	ID() uuid.UUID
	Kind() EntityKind
	Location() Location
}

// Tameable is implemented by entities that can be owned by a player.
type Tameable interface {
	Entity
	SetTamed(tamed bool)
	SetOwner(owner uuid.UUID)
	Owner() (uuid.UUID, bool)
}

// Facade is what rule evaluation and effects may see and do in the world.
// All calls happen on the world loop goroutine.
type Facade interface {
	CurrentTick() uint64
	OnlinePlayers() []Player

	// NearbyEntities returns entities within the half-extent box around p,
	// excluding p itself.
	NearbyEntities(p Player, dx, dy, dz float64) []Entity
	BlockAt(pos Vec3i) Block
	BlockDrops(b Block) []ItemStack

	SpawnEntity(loc Location, kind EntityKind) Entity
	DropItemNaturally(pos Vec3i, stack ItemStack)

	// DispatchConsoleCommand runs line with console authority.
	DispatchConsoleCommand(line string) error

	RunTaskLater(delayTicks uint64, fn func()) tasks.TaskID
	CancelTask(id tasks.TaskID) bool
}

// BlockBreakEvent is handed to every listener before default drops happen.
type BlockBreakEvent struct {
	Player Player
	Block  Block

	dropItems bool
}

func NewBlockBreakEvent(p Player, b Block) *BlockBreakEvent {
	return &BlockBreakEvent{Player: p, Block: b, dropItems: true}
}

func (e *BlockBreakEvent) DropItems() bool     { return e.dropItems }
func (e *BlockBreakEvent) SetDropItems(v bool) { e.dropItems = v }

type BlockBreakListener func(ev *BlockBreakEvent)

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "MIRACLE", "FAVOR_SET"
	Target  string         `json:"target,omitempty"`
	Pos     [3]int         `json:"pos"`
	Amount  int            `json:"amount,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
