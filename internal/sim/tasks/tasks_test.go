package tasks

import "testing"

func TestQueue_RunsOnceAtDueTick(t *testing.T) {
	q := NewQueue()
	runs := 0
	q.Schedule(10, 5, func() { runs++ })

	if n := q.RunDue(14); n != 0 || runs != 0 {
		t.Fatalf("ran early: n=%d runs=%d", n, runs)
	}
	if n := q.RunDue(15); n != 1 || runs != 1 {
		t.Fatalf("expected single run at due tick, n=%d runs=%d", n, runs)
	}
	if n := q.RunDue(100); n != 0 || runs != 1 {
		t.Fatalf("ran twice: n=%d runs=%d", n, runs)
	}
	if q.Pending() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Pending())
	}
}

func TestQueue_ZeroDelayRunsNextTick(t *testing.T) {
	q := NewQueue()
	id := q.Schedule(3, 0, func() {})
	due, ok := q.DueTick(id)
	if !ok || due != 4 {
		t.Fatalf("expected due=4, got %d ok=%v", due, ok)
	}
}

func TestQueue_OrderAndCancel(t *testing.T) {
	q := NewQueue()
	var order []string
	q.Schedule(0, 3, func() { order = append(order, "c") })
	a := q.Schedule(0, 1, func() { order = append(order, "a") })
	q.Schedule(0, 1, func() { order = append(order, "b") })
	drop := q.Schedule(0, 2, func() { order = append(order, "x") })

	if !q.Cancel(drop) {
		t.Fatalf("cancel pending task failed")
	}
	if q.Cancel(drop) {
		t.Fatalf("second cancel should report false")
	}
	q.RunDue(10)
	if got := len(order); got != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("unexpected order %v", order)
	}
	if q.Cancel(a) {
		t.Fatalf("cancel after run should report false")
	}
}

func TestQueue_TaskSchedulesTask(t *testing.T) {
	q := NewQueue()
	runs := 0
	q.Schedule(0, 1, func() {
		runs++
		q.Schedule(1, 1, func() { runs++ })
	})
	q.RunDue(1)
	if runs != 1 {
		t.Fatalf("nested task ran in the same tick, runs=%d", runs)
	}
	q.RunDue(2)
	if runs != 2 {
		t.Fatalf("nested task did not run, runs=%d", runs)
	}
}
