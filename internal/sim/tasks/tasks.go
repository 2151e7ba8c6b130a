package tasks

import "container/heap"

// TaskID identifies a scheduled one-shot task. Zero is never issued.
type TaskID uint64

type entry struct {
	id      TaskID
	dueTick uint64
	fn      func()
	index   int
}

// Queue is a tick-delayed task queue. It is not safe for concurrent use;
// the world loop goroutine owns it.
type Queue struct {
	nextID TaskID
	items  taskHeap
	byID   map[TaskID]*entry
}

func NewQueue() *Queue {
	return &Queue{byID: map[TaskID]*entry{}}
}

// Schedule registers fn to run once at nowTick+delay. A zero delay is
// treated as one tick: tasks never run in the tick that scheduled them.
func (q *Queue) Schedule(nowTick, delay uint64, fn func()) TaskID {
	if fn == nil {
		return 0
	}
	if delay == 0 {
		delay = 1
	}
	q.nextID++
	e := &entry{id: q.nextID, dueTick: nowTick + delay, fn: fn}
	heap.Push(&q.items, e)
	q.byID[e.id] = e
	return e.id
}

// Cancel drops a pending task. It reports false when the task already ran
// or was never scheduled.
func (q *Queue) Cancel(id TaskID) bool {
	e, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&q.items, e.index)
	delete(q.byID, id)
	return true
}

// RunDue runs every task due at or before nowTick in (due tick, id) order.
// Tasks scheduled by a running task are not run in the same call unless
// they are already due.
func (q *Queue) RunDue(nowTick uint64) int {
	n := 0
	for len(q.items) > 0 {
		next := q.items[0]
		if next.dueTick > nowTick {
			break
		}
		heap.Pop(&q.items)
		delete(q.byID, next.id)
		next.fn()
		n++
	}
	return n
}

func (q *Queue) Pending() int { return len(q.items) }

func (q *Queue) DueTick(id TaskID) (uint64, bool) {
	e, ok := q.byID[id]
	if !ok {
		return 0, false
	}
	return e.dueTick, true
}

type taskHeap []*entry

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].dueTick != h[j].dueTick {
		return h[i].dueTick < h[j].dueTick
	}
	return h[i].id < h[j].id
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
