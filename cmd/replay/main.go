package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"devotions.gg/internal/favor"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "runtime data directory")
		worldID  = flag.String("world", "world_1", "world id")
		favorDir = flag.String("favor", "", "dir containing favor-*.jsonl.zst (optional; overrides -data/-world)")
		toRun    = flag.Int("to_run", 0, "server run that -to_tick refers to (0 = first run in the logs)")
		toTick   = flag.Uint64("to_tick", 0, "stop after this tick of run -to_run (inclusive, optional)")
	)
	flag.Parse()

	dir := strings.TrimSpace(*favorDir)
	if dir == "" {
		dir = filepath.Join(*dataDir, "worlds", *worldID, "favor")
	}
	files, err := listFavorFiles(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list favor logs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no favor logs found in", dir)
		os.Exit(1)
	}

	r := newReplayer()
	if *toTick != 0 {
		r.stopAt = &cutoff{run: *toRun, tick: *toTick}
	}
	for _, path := range files {
		if err := replayFile(r, path); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if r.done {
			break
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	for _, s := range r.standings() {
		_ = enc.Encode(s)
	}
	fmt.Printf("replay ok: entries=%d players=%d runs=%d\n", r.entries, len(r.names), r.run+1)
}

func listFavorFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "favor-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// replayer rebuilds a ledger from logged changes and checks that every
// logged before/after value matches what the ledger computes.
//
// Favor lives in memory and ticks restart at 0 with every server process,
// so the logs are a sequence of runs. A run ends when the tick goes
// backwards, or when a player is devoted to the deity they already follow
// (only a fresh ledger logs that). Each run starts from an empty ledger.
type replayer struct {
	ledger  *favor.Ledger
	names   map[uuid.UUID]string
	entries int

	run      int
	lastTick uint64
	stopAt   *cutoff
	done     bool
}

// cutoff is the last (run, tick) position to replay.
type cutoff struct {
	run  int
	tick uint64
}

func (c cutoff) passed(run int, tick uint64) bool {
	return run > c.run || (run == c.run && tick > c.tick)
}

func newReplayer() *replayer {
	return &replayer{ledger: favor.NewLedger(), names: map[uuid.UUID]string{}}
}

// startsRun reports whether e belongs to a new server run.
func (r *replayer) startsRun(e favor.Entry, id uuid.UUID) bool {
	if r.entries == 0 {
		return false
	}
	if e.Tick < r.lastTick {
		return true
	}
	if e.Op == "devote" {
		if deity, ok := r.ledger.Deity(id); ok && deity == e.Deity {
			return true
		}
	}
	return false
}

// apply replays one entry. It returns false once the cutoff is passed.
func (r *replayer) apply(e favor.Entry) (bool, error) {
	id, err := uuid.Parse(e.Player)
	if err != nil {
		return false, fmt.Errorf("tick %d: bad player id %q: %w", e.Tick, e.Player, err)
	}
	if r.startsRun(e, id) {
		r.run++
		r.ledger = favor.NewLedger()
	}
	if r.stopAt != nil && r.stopAt.passed(r.run, e.Tick) {
		r.done = true
		return false, nil
	}
	r.lastTick = e.Tick
	return true, r.replay(e, id)
}

func (r *replayer) replay(e favor.Entry, id uuid.UUID) error {
	if e.Name != "" {
		r.names[id] = e.Name
	} else if _, ok := r.names[id]; !ok {
		r.names[id] = e.Player
	}
	r.entries++

	if e.Op == "devote" {
		return r.ledger.Devote(id, e.Deity)
	}

	before, err := r.ledger.Get(id)
	if err != nil {
		return fmt.Errorf("tick %d: %s %s: %w", e.Tick, e.Op, r.names[id], err)
	}
	if before != e.Before {
		return fmt.Errorf("tick %d: %s before mismatch: ledger=%d log=%d", e.Tick, r.names[id], before, e.Before)
	}
	if err := r.ledger.Apply(id, e.Op, e.Amount); err != nil {
		return fmt.Errorf("tick %d: %w", e.Tick, err)
	}
	after, _ := r.ledger.Get(id)
	if after != e.After {
		return fmt.Errorf("tick %d: %s after mismatch: ledger=%d log=%d", e.Tick, r.names[id], after, e.After)
	}
	return nil
}

type standing struct {
	Player string `json:"player"`
	Name   string `json:"name"`
	Deity  string `json:"deity"`
	Favor  int    `json:"favor"`
}

func (r *replayer) standings() []standing {
	out := make([]standing, 0, len(r.names))
	for id, name := range r.names {
		deity, ok := r.ledger.Deity(id)
		if !ok {
			continue
		}
		n, _ := r.ledger.Get(id)
		out = append(out, standing{Player: id.String(), Name: name, Deity: deity, Favor: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func replayFile(r *replayer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := replayStream(r, f); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func replayStream(r *replayer, src io.Reader) error {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e favor.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		more, err := r.apply(e)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return sc.Err()
}
