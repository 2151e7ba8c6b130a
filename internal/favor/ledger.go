package favor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNoRecord = errors.New("player has no devotion")

// Record is one player's devotion.
type Record struct {
	Deity string
	Favor int
}

// Change describes a favor mutation. Op is "set", "give", "take" or "devote".
type Change struct {
	Player uuid.UUID
	Deity  string
	Op     string
	Amount int
	Before int
	After  int
}

// Ledger holds favor per player. Values are not clamped. Like the world it
// is confined to the world loop goroutine.
type Ledger struct {
	records  map[uuid.UUID]*Record
	onChange func(Change)
}

func NewLedger() *Ledger {
	return &Ledger{records: map[uuid.UUID]*Record{}}
}

// OnChange installs a hook that sees every mutation after it is applied.
func (l *Ledger) OnChange(fn func(Change)) { l.onChange = fn }

// Devote creates the player's record with zero favor. Devoting to the same
// deity again keeps the current favor; switching deity starts over at zero.
func (l *Ledger) Devote(id uuid.UUID, deity string) error {
	if deity == "" {
		return errors.New("empty deity")
	}
	r := l.records[id]
	if r != nil && r.Deity == deity {
		return nil
	}
	before := 0
	if r != nil {
		before = r.Favor
	}
	l.records[id] = &Record{Deity: deity}
	l.emit(Change{Player: id, Deity: deity, Op: "devote", Before: before})
	return nil
}

func (l *Ledger) Deity(id uuid.UUID) (string, bool) {
	r := l.records[id]
	if r == nil {
		return "", false
	}
	return r.Deity, true
}

func (l *Ledger) Has(id uuid.UUID) bool { return l.records[id] != nil }

func (l *Ledger) Get(id uuid.UUID) (int, error) {
	r := l.records[id]
	if r == nil {
		return 0, ErrNoRecord
	}
	return r.Favor, nil
}

func (l *Ledger) Set(id uuid.UUID, n int) error  { return l.mutate(id, "set", n) }
func (l *Ledger) Give(id uuid.UUID, n int) error { return l.mutate(id, "give", n) }
func (l *Ledger) Take(id uuid.UUID, n int) error { return l.mutate(id, "take", n) }

// Apply runs one of the named operations: set, give or take.
func (l *Ledger) Apply(id uuid.UUID, op string, n int) error {
	switch op {
	case "set", "give", "take":
		return l.mutate(id, op, n)
	}
	return fmt.Errorf("unknown favor op %q", op)
}

func (l *Ledger) mutate(id uuid.UUID, op string, n int) error {
	r := l.records[id]
	if r == nil {
		return ErrNoRecord
	}
	before := r.Favor
	switch op {
	case "set":
		r.Favor = n
	case "give":
		r.Favor += n
	case "take":
		r.Favor -= n
	}
	l.emit(Change{Player: id, Deity: r.Deity, Op: op, Amount: n, Before: before, After: r.Favor})
	return nil
}

func (l *Ledger) emit(c Change) {
	if l.onChange != nil {
		l.onChange(c)
	}
}

// Text renders a favor value with a color tag: green when positive, red when
// negative, yellow at zero.
func Text(n int) string {
	switch {
	case n > 0:
		return fmt.Sprintf("<green>%d", n)
	case n < 0:
		return fmt.Sprintf("<red>%d", n)
	}
	return "<yellow>0"
}

// Entry is a Change stamped with the tick it happened on, as written to the
// favor log and index.
type Entry struct {
	Tick   uint64 `json:"tick"`
	Player string `json:"player"`
	Name   string `json:"name,omitempty"`
	Deity  string `json:"deity"`
	Op     string `json:"op"`
	Amount int    `json:"amount"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

func (c Change) Entry(tick uint64, name string) Entry {
	return Entry{
		Tick:   tick,
		Player: c.Player.String(),
		Name:   name,
		Deity:  c.Deity,
		Op:     c.Op,
		Amount: c.Amount,
		Before: c.Before,
		After:  c.After,
	}
}
