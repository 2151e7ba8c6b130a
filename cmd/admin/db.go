package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	player := fs.String("player", "", "player name filter (miracles, favor)")
	_ = fs.Parse(args)

	q := "miracles"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	var rows []any
	switch q {
	case "miracles":
		rows, err = queryMiracles(db, strings.TrimSpace(*player), *limit)
	case "miracle_counts":
		rows, err = queryMiracleCounts(db)
	case "favor":
		rows, err = queryFavor(db, strings.TrimSpace(*player), *limit)
	case "audits":
		rows, err = queryAudits(db, *limit)
	case "tuning":
		rows, err = queryMeta(db)
	case "runs":
		rows, err = queryRuns(db, *limit)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-player NAME] [-limit N] miracles|miracle_counts|favor|audits|tuning|runs")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

type miracleRow struct {
	RunID   string `json:"run_id"`
	Tick    uint64 `json:"tick"`
	Player  string `json:"player"`
	Miracle string `json:"miracle"`
	Effect  string `json:"effect"`
}

func queryMiracles(db *sql.DB, player string, limit int) ([]any, error) {
	q := `SELECT run_id,tick,player,miracle,effect FROM miracles ORDER BY rowid DESC LIMIT ?`
	args := []any{limit}
	if player != "" {
		q = `SELECT run_id,tick,player,miracle,effect FROM miracles WHERE player=? COLLATE NOCASE ORDER BY rowid DESC LIMIT ?`
		args = []any{player, limit}
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r miracleRow
		if err := rows.Scan(&r.RunID, &r.Tick, &r.Player, &r.Miracle, &r.Effect); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type miracleCountRow struct {
	Miracle string `json:"miracle"`
	Count   int    `json:"count"`
}

func queryMiracleCounts(db *sql.DB) ([]any, error) {
	rows, err := db.Query(`SELECT miracle,COUNT(*) FROM miracles GROUP BY miracle ORDER BY COUNT(*) DESC, miracle`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r miracleCountRow
		if err := rows.Scan(&r.Miracle, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type favorRow struct {
	RunID    string `json:"run_id"`
	Tick     uint64 `json:"tick"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	Deity    string `json:"deity"`
	Op       string `json:"op"`
	Amount   int    `json:"amount"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
}

func queryFavor(db *sql.DB, player string, limit int) ([]any, error) {
	q := `SELECT run_id,tick,player_id,COALESCE(name,''),deity,op,amount,favor_before,favor_after FROM favor_changes ORDER BY rowid DESC LIMIT ?`
	args := []any{limit}
	if player != "" {
		q = `SELECT run_id,tick,player_id,COALESCE(name,''),deity,op,amount,favor_before,favor_after FROM favor_changes WHERE name=? COLLATE NOCASE ORDER BY rowid DESC LIMIT ?`
		args = []any{player, limit}
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r favorRow
		if err := rows.Scan(&r.RunID, &r.Tick, &r.PlayerID, &r.Name, &r.Deity, &r.Op, &r.Amount, &r.Before, &r.After); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryAudits(db *sql.DB, limit int) ([]any, error) {
	rows, err := db.Query(`SELECT raw_json FROM audits ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(raw))
	}
	return out, rows.Err()
}

type metaRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func queryMeta(db *sql.DB) ([]any, error) {
	rows, err := db.Query(`SELECT key,value FROM meta ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r metaRow
		if err := rows.Scan(&r.Key, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ticks restart with every server process; runs tells the processes apart.
type runRow struct {
	RunID        string `json:"run_id"`
	StartedAt    string `json:"started_at"`
	TuningDigest string `json:"tuning_digest,omitempty"`
}

func queryRuns(db *sql.DB, limit int) ([]any, error) {
	rows, err := db.Query(`SELECT run_id,started_at,COALESCE(tuning_digest,'') FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r runRow
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.TuningDigest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
