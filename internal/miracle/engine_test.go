package miracle

import (
	"testing"

	"devotions.gg/internal/sim/world"
)

type fixedRand struct {
	v     int
	calls int
}

func (r *fixedRand) IntN(n int) int {
	r.calls++
	return r.v % n
}

// counting is a test-only condition that records how often it is evaluated.
type counting struct {
	result bool
	calls  *int
}

func (counting) Kind() string { return "COUNTING" }

func (c counting) check(_ *Engine, _ world.Player) bool {
	*c.calls++
	return c.result
}

type memAudit struct{ entries []world.AuditEntry }

func (m *memAudit) WriteAudit(e world.AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func newTestEngine(t *testing.T, opts Options) (*world.World, *Engine) {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "W1", TickRateHz: 20}, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	e := NewEngine(w, nil, opts)
	t.Cleanup(e.Close)
	return w, e
}

func addPlayer(t *testing.T, w *world.World, name string) *world.PlayerState {
	t.Helper()
	p, err := w.AddPlayer(name, nil)
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	return p
}

func stepN(w *world.World, n int) {
	for i := 0; i < n; i++ {
		w.Step()
	}
}

func TestCanTrigger_ShortCircuitsInOrder(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")

	first, second := 0, 0
	m := New("counting", []Condition{counting{result: false, calls: &first}, counting{result: true, calls: &second}}, RepairAllItems{})
	if e.CanTrigger(m, p) {
		t.Fatalf("expected false when first condition fails")
	}
	if first != 1 || second != 0 {
		t.Fatalf("expected short-circuit, first=%d second=%d", first, second)
	}

	first, second = 0, 0
	m = New("counting", []Condition{counting{result: true, calls: &first}, counting{result: true, calls: &second}}, RepairAllItems{})
	if !e.CanTrigger(m, p) || first != 1 || second != 1 {
		t.Fatalf("expected both evaluated and true, first=%d second=%d", first, second)
	}
	if !e.CanTrigger(New("empty", nil, RepairAllItems{}), p) {
		t.Fatalf("miracle without conditions should trigger")
	}
}

func TestTrigger_FailingConditionHasNoSideEffect(t *testing.T) {
	w, e := newTestEngine(t, Options{})
	p := addPlayer(t, w, "Bob")
	p.Inventory().AddItem(world.NewTool(world.MaterialIronSword, 12))

	calls := 0
	m := New("guarded", []Condition{IsDead{}, counting{result: true, calls: &calls}}, RepairAllItems{})
	if e.Trigger(m, p) {
		t.Fatalf("expected no trigger")
	}
	if calls != 0 {
		t.Fatalf("later condition evaluated %d times", calls)
	}
	meta, _ := p.Inventory().Storage[0].ItemMeta()
	if meta.Damage != 12 || p.LastMessage() != "" {
		t.Fatalf("effect ran despite failing condition")
	}
}

func TestNew_CopiesConditions(t *testing.T) {
	conds := []Condition{IsDead{}}
	m := New("m", conds, ReviveOnDeath{})
	conds[0] = IsOnFire{}
	if m.Conditions()[0].Kind() != "IS_DEAD" {
		t.Fatalf("miracle shares caller's slice")
	}
}

func TestDefaults(t *testing.T) {
	ms := Defaults(DefaultParams{SummonAidCount: 2, HarvestDurationTicks: 100})
	if len(ms) != 6 {
		t.Fatalf("expected 6 miracles without command template, got %d", len(ms))
	}
	if ms[0].Name() != "revive_on_death" {
		t.Fatalf("unexpected first miracle %q", ms[0].Name())
	}
	ms = Defaults(DefaultParams{CommandTemplate: "heal {player}"})
	last := ms[len(ms)-1]
	if last.Name() != "divine_command" || last.Effect().Kind() != "EXECUTE_COMMAND" {
		t.Fatalf("expected command miracle last, got %q", last.Name())
	}
}

func TestTick_CooldownAndAudit(t *testing.T) {
	audit := &memAudit{}
	var fired []string
	w, err := world.New(world.WorldConfig{ID: "W1", TickRateHz: 20}, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	miracles := []Miracle{
		New("save_from_burning", []Condition{IsOnFire{}}, SaveFromBurning{}),
		New("repair", []Condition{HasRepairableItems{}}, RepairAllItems{}),
	}
	e := NewEngine(w, miracles, Options{
		CheckEveryTicks: 10,
		CooldownTicks:   100,
		Audit:           audit,
		OnTrigger:       func(_ world.Player, m Miracle) { fired = append(fired, m.Name()) },
	})
	defer e.Close()

	p := addPlayer(t, w, "Bob")
	p.SetFireTicks(1000)
	p.Inventory().AddItem(world.NewTool(world.MaterialIronPickaxe, 3))

	e.Tick(5)
	if len(fired) != 0 {
		t.Fatalf("checked off-cadence: %v", fired)
	}
	e.Tick(10)
	if len(fired) != 1 || fired[0] != "save_from_burning" {
		t.Fatalf("expected only the first matching miracle, got %v", fired)
	}
	e.Tick(20)
	if len(fired) != 1 {
		t.Fatalf("cooldown ignored: %v", fired)
	}
	e.Tick(110)
	if len(fired) != 2 {
		t.Fatalf("expected trigger after cooldown, got %v", fired)
	}
	if len(audit.entries) != 2 || audit.entries[0].Action != "MIRACLE" || audit.entries[0].Target != "save_from_burning" {
		t.Fatalf("unexpected audit entries %+v", audit.entries)
	}
	if audit.entries[0].Details["effect"] != "SAVE_FROM_BURNING" {
		t.Fatalf("audit missing effect kind: %+v", audit.entries[0])
	}
}
