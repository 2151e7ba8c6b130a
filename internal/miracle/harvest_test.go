package miracle

import (
	"testing"

	"devotions.gg/internal/sim/world"
)

func breakWithEngine(t *testing.T, w *world.World, e *Engine) {
	t.Helper()
	w.OnBlockBreak(e.OnBlockBreak)
}

func TestDoubleCropDrops_Window(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	breakWithEngine(t, w, e)
	p := addPlayer(t, w, "Bob")

	e.Apply(DoubleCropDrops{DurationTicks: 100}, p)
	if !e.Harvest().Active(p.ID()) {
		t.Fatalf("expected harvest window to be open")
	}
	if p.LastMessage() != msgHarvest {
		t.Fatalf("unexpected message %q", p.LastMessage())
	}

	stepN(w, 50)
	inside := world.Vec3i{X: 1, Y: 0, Z: 1}
	w.SetBlock(inside, world.MaterialWheat, 7)
	w.BreakBlock(p, inside)
	if got := w.ItemCountAt(inside, world.MaterialWheat); got != 2 {
		t.Fatalf("expected doubled wheat 2, got %d", got)
	}
	if got := w.ItemCountAt(inside, world.MaterialWheatSeeds); got != 4 {
		t.Fatalf("expected doubled seeds 4, got %d", got)
	}

	// The expiry task for tick 100 runs on the 101st step.
	stepN(w, 51)
	if e.Harvest().Active(p.ID()) {
		t.Fatalf("expected harvest window to close at tick 100")
	}
	after := world.Vec3i{X: 2, Y: 0, Z: 1}
	w.SetBlock(after, world.MaterialCarrots, 7)
	w.BreakBlock(p, after)
	if got := w.ItemCountAt(after, world.MaterialCarrot); got != 3 {
		t.Fatalf("expected default carrots 3, got %d", got)
	}
}

func TestDoubleCropDrops_ImmatureAndOtherPlayers(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	breakWithEngine(t, w, e)
	bob := addPlayer(t, w, "Bob")
	ann := addPlayer(t, w, "Ann")
	e.Apply(DoubleCropDrops{DurationTicks: 1000}, bob)

	young := world.Vec3i{X: 0, Y: 0, Z: 3}
	w.SetBlock(young, world.MaterialWheat, 6)
	w.BreakBlock(bob, young)
	if got := w.ItemCountAt(young, world.MaterialWheatSeeds); got != 1 {
		t.Fatalf("immature wheat should keep default drops, got %d seeds", got)
	}
	if got := w.ItemCountAt(young, world.MaterialWheat); got != 0 {
		t.Fatalf("immature wheat dropped wheat %d", got)
	}

	other := world.Vec3i{X: 0, Y: 0, Z: 4}
	w.SetBlock(other, world.MaterialBeetroots, 3)
	w.BreakBlock(ann, other)
	if got := w.ItemCountAt(other, world.MaterialBeetroot); got != 1 {
		t.Fatalf("player outside the window got %d beetroots", got)
	}

	stone := world.Vec3i{X: 0, Y: 0, Z: 5}
	w.SetBlock(stone, world.MaterialStone, 0)
	w.BreakBlock(bob, stone)
	if got := w.ItemCountAt(stone, world.MaterialStone); got != 1 {
		t.Fatalf("non-crop block should not double, got %d", got)
	}
}

func TestHarvestExpiry_RestartHonorsNewestWindow(t *testing.T) {
	w, e := newTestEngine(t, Options{Expiry: ExpiryRestart})
	p := addPlayer(t, w, "Bob")
	h := e.Harvest()

	h.Activate(p.ID(), 100)
	stepN(w, 50)
	h.Activate(p.ID(), 100)
	if h.Pending(p.ID()) != 1 || w.PendingTasks() != 1 {
		t.Fatalf("restart should keep a single pending expiry, got %d", h.Pending(p.ID()))
	}

	stepN(w, 51)
	if !h.Active(p.ID()) {
		t.Fatalf("first expiry was cancelled; window should still be open after tick 100")
	}
	stepN(w, 50)
	if h.Active(p.ID()) || h.Pending(p.ID()) != 0 {
		t.Fatalf("expected window closed after tick 150")
	}
}

func TestHarvestExpiry_FirstTimerWins(t *testing.T) {
	w, e := newTestEngine(t, Options{Expiry: ExpiryFirst})
	p := addPlayer(t, w, "Bob")
	h := e.Harvest()

	h.Activate(p.ID(), 100)
	stepN(w, 50)
	h.Activate(p.ID(), 100)
	if h.Pending(p.ID()) != 2 {
		t.Fatalf("expected both expiries pending, got %d", h.Pending(p.ID()))
	}

	stepN(w, 51)
	if h.Active(p.ID()) {
		t.Fatalf("earliest expiry should close the window at tick 100")
	}
	if h.Pending(p.ID()) != 1 {
		t.Fatalf("expected the later expiry still pending, got %d", h.Pending(p.ID()))
	}
	stepN(w, 50)
	if h.Pending(p.ID()) != 0 || w.PendingTasks() != 0 {
		t.Fatalf("expected no pending expiries")
	}
}

func TestHarvestRegistry_Close(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	bob := addPlayer(t, w, "Bob")
	ann := addPlayer(t, w, "Ann")
	h := e.Harvest()
	h.Activate(bob.ID(), 20)
	h.Activate(ann.ID(), 40)
	if len(h.ActivePlayers()) != 2 {
		t.Fatalf("expected two active players")
	}

	e.Close()
	if w.PendingTasks() != 0 {
		t.Fatalf("close left %d tasks scheduled", w.PendingTasks())
	}
	if h.Active(bob.ID()) || h.Active(ann.ID()) {
		t.Fatalf("close should clear membership")
	}
	h.Activate(bob.ID(), 20)
	if h.Active(bob.ID()) || w.PendingTasks() != 0 {
		t.Fatalf("activation after close should be ignored")
	}
	e.Close()
}

func TestParseExpiryPolicy(t *testing.T) {
	for in, want := range map[string]ExpiryPolicy{"": ExpiryRestart, "restart": ExpiryRestart, "first": ExpiryFirst} {
		got, err := ParseExpiryPolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseExpiryPolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseExpiryPolicy("forever"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
