package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"devotions.gg/internal/favor"
	"devotions.gg/internal/sim/tuning"
	"devotions.gg/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of the audit and favor logs.
// Writes are queued to a single writer goroutine and dropped when the
// queue is full; the JSONL logs remain the source of truth.
//
// Ticks restart at 0 with every process, so rows are keyed by the run that
// wrote them as well as by tick.
type SQLiteIndex struct {
	db    *sql.DB
	runID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropAudit atomic.Uint64
	dropFavor atomic.Uint64
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqFavor
)

type req struct {
	kind reqKind

	audit world.AuditEntry
	favor favor.Entry
}

type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	DropAuditTotal uint64
	DropFavorTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	runID := uuid.NewString()
	if _, err := db.Exec(`INSERT INTO runs(run_id,started_at) VALUES(?,?)`, runID, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("record run: %w", err)
	}

	s := &SQLiteIndex{
		db:    db,
		runID: runID,
		ch:    make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			tuning_digest TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			target TEXT,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action_tick ON audits(action, tick);`,
		`CREATE TABLE IF NOT EXISTS miracles (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			player TEXT NOT NULL,
			miracle TEXT NOT NULL,
			effect TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_miracles_player ON miracles(player, tick);`,
		`CREATE TABLE IF NOT EXISTS favor_changes (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			name TEXT,
			deity TEXT NOT NULL,
			op TEXT NOT NULL,
			amount INTEGER NOT NULL,
			favor_before INTEGER NOT NULL,
			favor_after INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_favor_player_tick ON favor_changes(player_id, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RunID identifies this process's rows in every table.
func (s *SQLiteIndex) RunID() string {
	if s == nil {
		return ""
	}
	return s.runID
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteFavor(entry favor.Entry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqFavor, favor: entry}:
	default:
		s.dropFavor.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropAuditTotal: s.dropAudit.Load(),
		DropFavorTotal: s.dropFavor.Load(),
	}
}

// RecordTuning stores the tuning values actually applied, with a digest, in
// the meta table. It writes synchronously.
func (s *SQLiteIndex) RecordTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, kv := range [][2]string{
		{"schema_version", "2"},
		{"last_run_id", s.runID},
		{"tuning_json", string(b)},
		{"tuning_digest", hex.EncodeToString(sum[:])},
		{"tuning_recorded_at", time.Now().UTC().Format(time.RFC3339Nano)},
	} {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`UPDATE runs SET tuning_digest=? WHERE run_id=?`, hex.EncodeToString(sum[:]), s.runID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(run_id,tick,seq,actor,action,target,x,y,z,amount,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertMiracle, _ := s.db.Prepare(`INSERT INTO miracles(run_id,tick,seq,player,miracle,effect) VALUES(?,?,?,?,?,?)`)
	insertFavor, _ := s.db.Prepare(`INSERT INTO favor_changes(run_id,tick,seq,player_id,name,deity,op,amount,favor_before,favor_after) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertAudit, insertMiracle, insertFavor} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		audits = seqCounter{}
		favors = seqCounter{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			seq := audits.next(a.Tick)
			raw, _ := json.Marshal(a)
			if !exec(insertAudit,
				s.runID, int64(a.Tick), seq, a.Actor, a.Action, a.Target,
				a.Pos[0], a.Pos[1], a.Pos[2], a.Amount, a.Reason, string(raw),
			) {
				continue
			}
			if a.Action == "MIRACLE" {
				effect, _ := a.Details["effect"].(string)
				exec(insertMiracle, s.runID, int64(a.Tick), seq, a.Actor, a.Target, effect)
			}

		case reqFavor:
			f := r.favor
			exec(insertFavor,
				s.runID, int64(f.Tick), favors.next(f.Tick), f.Player, f.Name, f.Deity,
				f.Op, f.Amount, f.Before, f.After,
			)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

// seqCounter numbers rows within a tick.
type seqCounter struct {
	tick uint64
	seq  int
}

func (c *seqCounter) next(tick uint64) int {
	if tick != c.tick {
		c.tick = tick
		c.seq = 0
	}
	n := c.seq
	c.seq++
	return n
}
