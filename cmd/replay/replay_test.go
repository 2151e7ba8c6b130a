package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"devotions.gg/internal/favor"
	plog "devotions.gg/internal/persistence/log"
)

func writeFavorLog(t *testing.T, entries []favor.Entry) string {
	t.Helper()
	worldDir := t.TempDir()
	l := plog.NewFavorLogger(worldDir)
	for _, e := range entries {
		if err := l.WriteFavor(e); err != nil {
			t.Fatalf("WriteFavor: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return filepath.Join(worldDir, "favor")
}

func replayDir(t *testing.T, dir string, stopAt *cutoff) (*replayer, error) {
	t.Helper()
	files, err := listFavorFiles(dir)
	if err != nil || len(files) == 0 {
		t.Fatalf("list: %v %v", files, err)
	}
	r := newReplayer()
	r.stopAt = stopAt
	for _, path := range files {
		if err := replayFile(r, path); err != nil {
			return r, err
		}
		if r.done {
			break
		}
	}
	return r, nil
}

func TestReplay_RebuildsStandings(t *testing.T) {
	bob := uuid.NewSHA1(uuid.NameSpaceOID, []byte("Bob")).String()
	ann := uuid.NewSHA1(uuid.NameSpaceOID, []byte("Ann")).String()
	dir := writeFavorLog(t, []favor.Entry{
		{Tick: 1, Player: bob, Name: "Bob", Deity: "Zeus", Op: "devote"},
		{Tick: 1, Player: ann, Name: "Ann", Deity: "Zeus", Op: "devote"},
		{Tick: 5, Player: bob, Name: "Bob", Deity: "Zeus", Op: "set", Amount: 50, Before: 0, After: 50},
		{Tick: 6, Player: bob, Name: "Bob", Deity: "Zeus", Op: "give", Amount: 10, Before: 50, After: 60},
		{Tick: 7, Player: ann, Name: "Ann", Deity: "Zeus", Op: "take", Amount: 4, Before: 0, After: -4},
		{Tick: 9, Player: ann, Name: "Ann", Deity: "Hera", Op: "devote", Before: -4},
	})

	r, err := replayDir(t, dir, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	got := r.standings()
	if len(got) != 2 || r.entries != 6 {
		t.Fatalf("standings=%+v entries=%d", got, r.entries)
	}
	if got[0].Name != "Ann" || got[0].Deity != "Hera" || got[0].Favor != 0 {
		t.Fatalf("unexpected Ann %+v", got[0])
	}
	if got[1].Name != "Bob" || got[1].Favor != 60 {
		t.Fatalf("unexpected Bob %+v", got[1])
	}

	r, err = replayDir(t, dir, &cutoff{run: 0, tick: 5})
	if err != nil || r.entries != 3 {
		t.Fatalf("to_tick replay entries=%d err=%v", r.entries, err)
	}
}

func TestReplay_RestartResetsFavor(t *testing.T) {
	bob := uuid.NewSHA1(uuid.NameSpaceOID, []byte("Bob")).String()
	dir := writeFavorLog(t, []favor.Entry{
		{Tick: 1, Player: bob, Name: "Bob", Deity: "Zeus", Op: "devote"},
		{Tick: 2, Player: bob, Name: "Bob", Deity: "Zeus", Op: "give", Amount: 7, Before: 0, After: 7},
		{Tick: 1, Player: bob, Name: "Bob", Deity: "Zeus", Op: "devote"},
		{Tick: 3, Player: bob, Name: "Bob", Deity: "Zeus", Op: "give", Amount: 2, Before: 0, After: 2},
	})
	r, err := replayDir(t, dir, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if r.run != 1 || r.standings()[0].Favor != 2 {
		t.Fatalf("run=%d standings=%+v", r.run, r.standings())
	}
}

func TestReplay_CutoffAddressesLaterRuns(t *testing.T) {
	bob := uuid.NewSHA1(uuid.NameSpaceOID, []byte("Bob")).String()
	ann := uuid.NewSHA1(uuid.NameSpaceOID, []byte("Ann")).String()
	dir := writeFavorLog(t, []favor.Entry{
		{Tick: 3, Player: bob, Name: "Bob", Deity: "Zeus", Op: "devote"},
		{Tick: 40, Player: bob, Name: "Bob", Deity: "Zeus", Op: "give", Amount: 7, Before: 0, After: 7},
		// Second run: ticks start over and Ann joins on a different deity.
		{Tick: 2, Player: ann, Name: "Ann", Deity: "Hera", Op: "devote"},
		{Tick: 10, Player: ann, Name: "Ann", Deity: "Hera", Op: "give", Amount: 4, Before: 0, After: 4},
		{Tick: 30, Player: ann, Name: "Ann", Deity: "Hera", Op: "give", Amount: 1, Before: 4, After: 5},
	})

	r, err := replayDir(t, dir, &cutoff{run: 1, tick: 20})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if r.run != 1 || r.entries != 4 || !r.done {
		t.Fatalf("run=%d entries=%d done=%v", r.run, r.entries, r.done)
	}
	got := r.standings()
	if len(got) != 1 || got[0].Name != "Ann" || got[0].Favor != 4 {
		t.Fatalf("a new run starts from an empty ledger, got %+v", got)
	}

	r, err = replayDir(t, dir, &cutoff{run: 0, tick: 20})
	if err != nil || r.entries != 1 || r.run != 0 {
		t.Fatalf("first-run cutoff: entries=%d run=%d err=%v", r.entries, r.run, err)
	}
}

func TestReplay_DetectsMismatch(t *testing.T) {
	bob := uuid.NewSHA1(uuid.NameSpaceOID, []byte("Bob")).String()
	dir := writeFavorLog(t, []favor.Entry{
		{Tick: 1, Player: bob, Name: "Bob", Deity: "Zeus", Op: "devote"},
		{Tick: 2, Player: bob, Name: "Bob", Deity: "Zeus", Op: "give", Amount: 7, Before: 3, After: 10},
	})
	_, err := replayDir(t, dir, nil)
	if err == nil || !strings.Contains(err.Error(), "before mismatch") {
		t.Fatalf("expected before mismatch, got %v", err)
	}

	dir = writeFavorLog(t, []favor.Entry{
		{Tick: 2, Player: bob, Name: "Bob", Deity: "Zeus", Op: "give", Amount: 7},
	})
	if _, err := replayDir(t, dir, nil); !errors.Is(err, favor.ErrNoRecord) {
		t.Fatalf("expected missing record error, got %v", err)
	}
}
