package world

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"devotions.gg/internal/protocol"
	"devotions.gg/internal/sim/tasks"
)

type WorldConfig struct {
	ID         string
	TickRateHz int
	Spawn      Location
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Code    string
}

// LeaveRequest ends a session. Out identifies the session; a leave whose Out
// no longer owns the player is stale and ignored. A nil Out always removes.
type LeaveRequest struct {
	PlayerID uuid.UUID
	Out      chan []byte
}

type BreakRequest struct {
	PlayerID uuid.UUID
	Pos      Vec3i
}

type CommandRequest struct {
	PlayerID uuid.UUID
	Line     string
}

type CompleteRequest struct {
	PlayerID uuid.UUID
	Line     string
	Resp     chan []string
}

// CommandHandler runs a command line typed by a player.
type CommandHandler func(p *PlayerState, line string)

// Completer returns suggestions for a partially typed command line.
type Completer func(p *PlayerState, line string) []string

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg WorldConfig
	log *log.Logger

	tick  atomic.Uint64
	queue *tasks.Queue

	players     map[uuid.UUID]*PlayerState
	entities    map[uuid.UUID]*Mob
	entityOrder []uuid.UUID
	blocks      map[Vec3i]Block

	items       map[string]*ItemEntity
	itemsAt     map[Vec3i][]string
	nextItemNum uint64

	idSource func() uuid.UUID

	console        ConsoleHandler
	commands       CommandHandler
	completer      Completer
	breakListeners []BlockBreakListener
	tickHooks      []func(nowTick uint64)
	joinHooks      []func(p *PlayerState)

	// Optional audit logger (may be nil). Implemented in internal/persistence/*.
	auditLogger AuditLogger

	join     chan JoinRequest
	leave    chan LeaveRequest
	breaks   chan BreakRequest
	cmds     chan CommandRequest
	complete chan CompleteRequest
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

var (
	ErrBadTickRate = errors.New("tick rate must be positive")
	ErrNameTaken   = errors.New("player name already online")

	validName = regexp.MustCompile(`^[A-Za-z0-9_]{3,16}$`)
)

func New(cfg WorldConfig, logger *log.Logger) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, ErrBadTickRate
	}
	if cfg.ID == "" {
		cfg.ID = "world_1"
	}
	return &World{
		cfg:      cfg,
		log:      logger,
		queue:    tasks.NewQueue(),
		players:  map[uuid.UUID]*PlayerState{},
		entities: map[uuid.UUID]*Mob{},
		blocks:   map[Vec3i]Block{},
		items:    map[string]*ItemEntity{},
		itemsAt:  map[Vec3i][]string{},
		join:     make(chan JoinRequest, 64),
		leave:    make(chan LeaveRequest, 64),
		breaks:   make(chan BreakRequest, 1024),
		cmds:     make(chan CommandRequest, 1024),
		complete: make(chan CompleteRequest, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) SetAuditLogger(l AuditLogger)       { w.auditLogger = l }
func (w *World) SetCommandHandler(h CommandHandler) { w.commands = h }
func (w *World) SetCompleter(c Completer)           { w.completer = c }
func (w *World) SetIDSource(fn func() uuid.UUID)    { w.idSource = fn }

func (w *World) OnBlockBreak(l BlockBreakListener) {
	w.breakListeners = append(w.breakListeners, l)
}

func (w *World) OnTick(fn func(nowTick uint64)) {
	w.tickHooks = append(w.tickHooks, fn)
}

func (w *World) OnJoin(fn func(p *PlayerState)) {
	w.joinHooks = append(w.joinHooks, fn)
}

// Channels used by transports; requests are applied at the next tick boundary.
func (w *World) Join() chan<- JoinRequest            { return w.join }
func (w *World) Leave() chan<- LeaveRequest          { return w.leave }
func (w *World) Breaks() chan<- BreakRequest         { return w.breaks }
func (w *World) Commands() chan<- CommandRequest     { return w.cmds }
func (w *World) Completions() chan<- CompleteRequest { return w.complete }

func (w *World) RunTaskLater(delayTicks uint64, fn func()) tasks.TaskID {
	return w.queue.Schedule(w.tick.Load(), delayTicks, fn)
}

func (w *World) CancelTask(id tasks.TaskID) bool { return w.queue.Cancel(id) }

func (w *World) PendingTasks() int { return w.queue.Pending() }

func (w *World) Run(ctx context.Context) error {
	defer close(w.done)
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingLeaves []LeaveRequest
	var pendingBreaks []BreakRequest
	var pendingCmds []CommandRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-w.leave:
			pendingLeaves = append(pendingLeaves, req)
		case req := <-w.breaks:
			pendingBreaks = append(pendingBreaks, req)
		case req := <-w.cmds:
			pendingCmds = append(pendingCmds, req)
		case req := <-w.complete:
			w.handleComplete(req)
		case <-ticker.C:
			for _, req := range pendingLeaves {
				w.handleLeave(req)
			}
			for _, req := range pendingJoins {
				resp := w.handleJoin(req.Name, req.Out)
				if req.Resp != nil {
					req.Resp <- resp
				}
			}
			for _, req := range pendingCmds {
				if p := w.players[req.PlayerID]; p != nil && w.commands != nil {
					w.commands(p, req.Line)
				}
			}
			for _, req := range pendingBreaks {
				if p := w.players[req.PlayerID]; p != nil {
					w.BreakBlock(p, req.Pos)
				}
			}
			w.Step()
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingBreaks = pendingBreaks[:0]
			pendingCmds = pendingCmds[:0]
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// Done is closed once Run has returned. Transports select on it so they
// never block on a world that stopped ticking.
func (w *World) Done() <-chan struct{} { return w.done }

// Step advances the world by a single tick: due tasks, player timers,
// item expiry, then tick hooks. It returns the tick that was processed.
func (w *World) Step() uint64 {
	nowTick := w.tick.Load()
	w.queue.RunDue(nowTick)
	for _, p := range w.sortedPlayers() {
		p.tickStatus()
	}
	w.expireItemEntities(nowTick)
	for _, h := range w.tickHooks {
		h(nowTick)
	}
	w.tick.Add(1)
	return nowTick
}

// AddPlayer puts a player into the world directly, bypassing transports.
func (w *World) AddPlayer(name string, out chan []byte) (*PlayerState, error) {
	if !validName.MatchString(name) {
		return nil, errors.New("invalid player name")
	}
	if _, online := w.PlayerByName(name); online {
		return nil, ErrNameTaken
	}
	p := newPlayerState(w, name, w.cfg.Spawn, out)
	w.players[p.id] = p
	for _, h := range w.joinHooks {
		h(p)
	}
	w.auditEvent(w.CurrentTick(), name, "JOIN", p.pos.Block(), "", map[string]any{"player_id": p.id.String()})
	return p, nil
}

func (w *World) handleJoin(name string, out chan []byte) JoinResponse {
	p, err := w.AddPlayer(strings.TrimSpace(name), out)
	if err != nil {
		return JoinResponse{Code: protocol.ErrBadRequest}
	}
	return JoinResponse{Welcome: protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        p.id.String(),
		PlayerName:      p.name,
		WorldParams: protocol.WorldParams{
			WorldID:    w.cfg.ID,
			TickRateHz: w.cfg.TickRateHz,
		},
	}}
}

func (w *World) RemovePlayer(id uuid.UUID) {
	p := w.players[id]
	if p == nil {
		return
	}
	delete(w.players, id)
	w.auditEvent(w.CurrentTick(), p.name, "LEAVE", p.pos.Block(), "", nil)
}

func (w *World) handleLeave(req LeaveRequest) {
	p := w.players[req.PlayerID]
	if p == nil {
		return
	}
	if req.Out != nil && p.out != req.Out {
		return
	}
	w.RemovePlayer(req.PlayerID)
}

func (w *World) handleComplete(req CompleteRequest) {
	var out []string
	if p := w.players[req.PlayerID]; p != nil && w.completer != nil {
		out = w.completer(p, req.Line)
	}
	if req.Resp != nil {
		req.Resp <- out
	}
}

func (w *World) PlayerState(id uuid.UUID) (*PlayerState, bool) {
	p, ok := w.players[id]
	return p, ok
}

// PlayerByName resolves an online player, ignoring case.
func (w *World) PlayerByName(name string) (Player, bool) {
	for _, p := range w.players {
		if strings.EqualFold(p.name, name) {
			return p, true
		}
	}
	return nil, false
}

func (w *World) OnlinePlayers() []Player {
	ps := w.sortedPlayers()
	out := make([]Player, 0, len(ps))
	for _, p := range ps {
		out = append(out, p)
	}
	return out
}

func (w *World) auditEvent(tick uint64, actor string, action string, pos Vec3i, reason string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:    tick,
		Actor:   actor,
		Action:  action,
		Pos:     pos.ToArray(),
		Reason:  reason,
		Details: details,
	})
}
