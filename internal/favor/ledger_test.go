package favor

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestLedger_RoundTrip(t *testing.T) {
	l := NewLedger()
	id := uuid.New()
	if err := l.Devote(id, "Zeus"); err != nil {
		t.Fatalf("devote: %v", err)
	}

	if err := l.Set(id, 50); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := l.Give(id, 10); err != nil {
		t.Fatalf("give: %v", err)
	}
	if got, _ := l.Get(id); got != 60 {
		t.Fatalf("favor=%d want 60", got)
	}
	if err := l.Take(id, 25); err != nil {
		t.Fatalf("take: %v", err)
	}
	if got, _ := l.Get(id); got != 35 {
		t.Fatalf("favor=%d want 35", got)
	}

	// No clamping in either direction.
	_ = l.Take(id, 100)
	if got, _ := l.Get(id); got != -65 {
		t.Fatalf("favor=%d want -65", got)
	}
}

func TestLedger_NoRecord(t *testing.T) {
	l := NewLedger()
	id := uuid.New()
	if _, err := l.Get(id); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("get: expected ErrNoRecord, got %v", err)
	}
	for _, op := range []string{"set", "give", "take"} {
		if err := l.Apply(id, op, 1); !errors.Is(err, ErrNoRecord) {
			t.Fatalf("%s: expected ErrNoRecord, got %v", op, err)
		}
	}
	if _, ok := l.Deity(id); ok {
		t.Fatalf("unexpected deity")
	}
}

func TestLedger_Devote(t *testing.T) {
	l := NewLedger()
	id := uuid.New()
	var changes []Change
	l.OnChange(func(c Change) { changes = append(changes, c) })

	_ = l.Devote(id, "Zeus")
	_ = l.Set(id, 40)
	_ = l.Devote(id, "Zeus")
	if got, _ := l.Get(id); got != 40 {
		t.Fatalf("re-devoting to the same deity reset favor to %d", got)
	}
	_ = l.Devote(id, "Hera")
	if got, _ := l.Get(id); got != 0 {
		t.Fatalf("switching deity kept favor %d", got)
	}
	if d, _ := l.Deity(id); d != "Hera" {
		t.Fatalf("deity=%q", d)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %+v", changes)
	}
	if c := changes[2]; c.Op != "devote" || c.Before != 40 || c.After != 0 {
		t.Fatalf("unexpected switch change %+v", c)
	}
	if err := l.Devote(id, ""); err == nil {
		t.Fatalf("expected error for empty deity")
	}
	if err := l.Apply(id, "double", 2); err == nil {
		t.Fatalf("expected error for unknown op")
	}
}

func TestText(t *testing.T) {
	cases := map[int]string{35: "<green>35", 0: "<yellow>0", -4: "<red>-4"}
	for n, want := range cases {
		if got := Text(n); got != want {
			t.Fatalf("Text(%d)=%q want %q", n, got, want)
		}
	}
}

func TestChangeEntry(t *testing.T) {
	id := uuid.New()
	c := Change{Player: id, Deity: "Zeus", Op: "give", Amount: 5, Before: 1, After: 6}
	e := c.Entry(42, "Bob")
	if e.Tick != 42 || e.Player != id.String() || e.Name != "Bob" || e.After != 6 {
		t.Fatalf("unexpected entry %+v", e)
	}
}
