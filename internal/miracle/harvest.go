package miracle

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"devotions.gg/internal/sim/tasks"
)

// ExpiryPolicy decides what a repeated activation does to the expiry that
// is already pending for the same player.
type ExpiryPolicy string

const (
	// ExpiryRestart cancels the pending expiry and schedules a fresh one, so
	// the newest activation's window is the one honored.
	ExpiryRestart ExpiryPolicy = "restart"
	// ExpiryFirst keeps every expiry; the earliest one to fire ends the
	// window even if a later activation asked for more time.
	ExpiryFirst ExpiryPolicy = "first"
)

func ParseExpiryPolicy(s string) (ExpiryPolicy, error) {
	switch ExpiryPolicy(s) {
	case "", ExpiryRestart:
		return ExpiryRestart, nil
	case ExpiryFirst:
		return ExpiryFirst, nil
	}
	return "", fmt.Errorf("unknown expiry policy %q", s)
}

type Scheduler interface {
	RunTaskLater(delayTicks uint64, fn func()) tasks.TaskID
	CancelTask(id tasks.TaskID) bool
}

// HarvestRegistry tracks players inside a doubled-crop-drops window.
// Membership only; pending holds the expiry tasks per player.
type HarvestRegistry struct {
	sched  Scheduler
	policy ExpiryPolicy

	active  map[uuid.UUID]struct{}
	pending map[uuid.UUID][]tasks.TaskID
	closed  bool
}

func NewHarvestRegistry(s Scheduler, policy ExpiryPolicy) *HarvestRegistry {
	if policy == "" {
		policy = ExpiryRestart
	}
	return &HarvestRegistry{
		sched:   s,
		policy:  policy,
		active:  map[uuid.UUID]struct{}{},
		pending: map[uuid.UUID][]tasks.TaskID{},
	}
}

func (r *HarvestRegistry) Policy() ExpiryPolicy { return r.policy }

func (r *HarvestRegistry) Activate(id uuid.UUID, durationTicks uint64) {
	if r.closed {
		return
	}
	if r.policy == ExpiryRestart {
		for _, tid := range r.pending[id] {
			r.sched.CancelTask(tid)
		}
		delete(r.pending, id)
	}
	r.active[id] = struct{}{}

	var tid tasks.TaskID
	tid = r.sched.RunTaskLater(durationTicks, func() { r.expire(id, tid) })
	r.pending[id] = append(r.pending[id], tid)
}

func (r *HarvestRegistry) expire(id uuid.UUID, tid tasks.TaskID) {
	delete(r.active, id)
	left := r.pending[id][:0]
	for _, cur := range r.pending[id] {
		if cur != tid {
			left = append(left, cur)
		}
	}
	if len(left) == 0 {
		delete(r.pending, id)
		return
	}
	r.pending[id] = left
}

func (r *HarvestRegistry) Active(id uuid.UUID) bool {
	_, ok := r.active[id]
	return ok
}

// Pending returns how many expiries are outstanding for the player.
func (r *HarvestRegistry) Pending(id uuid.UUID) int { return len(r.pending[id]) }

func (r *HarvestRegistry) ActivePlayers() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// Close cancels every pending expiry and empties the registry. Later
// activations are ignored.
func (r *HarvestRegistry) Close() {
	if r.closed {
		return
	}
	for _, ids := range r.pending {
		for _, tid := range ids {
			r.sched.CancelTask(tid)
		}
	}
	r.pending = map[uuid.UUID][]tasks.TaskID{}
	r.active = map[uuid.UUID]struct{}{}
	r.closed = true
}
