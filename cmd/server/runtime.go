package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"devotions.gg/internal/command"
	"devotions.gg/internal/config"
	"devotions.gg/internal/favor"
	"devotions.gg/internal/miracle"
	"devotions.gg/internal/persistence/indexdb"
	persistlog "devotions.gg/internal/persistence/log"
	"devotions.gg/internal/sim/tuning"
	"devotions.gg/internal/sim/world"
)

// runtime is one fully wired world: simulation, miracles, favor, commands
// and the persistence sinks behind them.
type runtime struct {
	world    *world.World
	engine   *miracle.Engine
	ledger   *favor.Ledger
	commands *command.Registry
	index    *indexdb.SQLiteIndex

	closers []func() error
}

func buildRuntime(env config.ServerEnv, tune tuning.Tuning, logger *log.Logger) (*runtime, error) {
	worldDir := filepath.Join(env.DataDir, "worlds", env.WorldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		return nil, err
	}

	w, err := world.New(world.WorldConfig{
		ID:         env.WorldID,
		TickRateHz: tune.TickRateHz,
		Spawn:      world.Location{X: 0.5, Y: 64, Z: 0.5},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	rt := &runtime{world: w}

	auditLog := persistlog.NewAuditLogger(worldDir)
	favorLog := persistlog.NewFavorLogger(worldDir)
	rt.closers = append(rt.closers, auditLog.Close, favorLog.Close)
	sinks := persistlog.MultiAudit{auditLog}

	// Optional: read-model index (JSONL logs stay the source of truth).
	if !env.DisableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		rt.index = idx
		rt.closers = append(rt.closers, idx.Close)
		sinks = append(sinks, idx)
		if err := idx.RecordTuning(tune); err != nil {
			logger.Printf("index: record tuning: %v", err)
		}
	}
	w.SetAuditLogger(sinks)

	rt.ledger = favor.NewLedger()
	rt.ledger.OnChange(func(c favor.Change) {
		name := ""
		if p, ok := w.PlayerState(c.Player); ok {
			name = p.Name()
		}
		e := c.Entry(w.CurrentTick(), name)
		if err := favorLog.WriteFavor(e); err != nil {
			logger.Printf("favor log: %v", err)
		}
		if rt.index != nil {
			_ = rt.index.WriteFavor(e)
		}
	})

	rt.commands = command.NewRegistry()
	if err := command.RegisterDefaults(rt.commands, rt.ledger, w); err != nil {
		_ = rt.Close()
		return nil, err
	}
	console := command.Console{Logger: logger}
	w.SetConsole(func(line string) error {
		code, err := rt.commands.Dispatch(console, line)
		if err != nil {
			return err
		}
		if code != "" {
			return errors.New(code)
		}
		return nil
	})
	w.SetCommandHandler(func(p *world.PlayerState, line string) {
		code, err := rt.commands.Dispatch(p, line)
		if err != nil && !errors.Is(err, command.ErrUnknownCommand) {
			logger.Printf("command from %s: %v", p.Name(), err)
		}
		if code != "" {
			logger.Printf("command from %s %q: %s", p.Name(), line, code)
		}
	})
	w.SetCompleter(func(p *world.PlayerState, line string) []string {
		return rt.commands.Complete(p, line)
	})
	w.OnJoin(func(p *world.PlayerState) {
		if tune.IsAdmin(p.Name()) {
			p.GrantPermission(command.AdminPermission)
		}
		if deity := tune.Favor.DefaultDeity; deity != "" && !rt.ledger.Has(p.ID()) {
			_ = rt.ledger.Devote(p.ID(), deity)
		}
	})

	expiry, err := miracle.ParseExpiryPolicy(tune.Miracles.HarvestExpiry)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	seed := uint64(tune.Seed)
	rt.engine = miracle.NewEngine(w, miracle.Defaults(miracle.DefaultParams{
		HeroDurationTicks:    tune.Miracles.HeroDurationTicks,
		BurnDurationTicks:    tune.Miracles.BurnDurationTicks,
		HarvestDurationTicks: tune.HarvestDurationTicks(),
		SummonAidCount:       tune.Miracles.SummonAidCount,
		CommandTemplate:      tune.Miracles.CommandTemplate,
	}), miracle.Options{
		Logger:          logger,
		Rand:            rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Expiry:          expiry,
		CheckEveryTicks: uint64(tune.Miracles.CheckEveryTicks),
		CooldownTicks:   uint64(tune.Miracles.CooldownTicks),
		Audit:           sinks,
		OnTrigger: func(p world.Player, m miracle.Miracle) {
			logger.Printf("miracle %s for %s", m.Name(), p.Name())
		},
	})
	w.OnBlockBreak(rt.engine.OnBlockBreak)
	w.OnTick(rt.engine.Tick)

	if env.Starter {
		w.PopulateStarterArea()
	}
	return rt, nil
}

// Close releases the engine and flushes every sink. Call it after the world
// loop has stopped.
func (rt *runtime) Close() error {
	if rt.engine != nil {
		rt.engine.Close()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}
