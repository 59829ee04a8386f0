package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"stonebirds/lobby"
)

func TestMatchLogFlushesOnStop(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	l := newMatchLog(db, time.Hour)
	l.Track(MatchEvent{Type: EvtMatchReady, Room: "a"})
	l.Track(MatchEvent{Type: EvtMatchReady, Room: "b"})
	l.Track(MatchEvent{Type: EvtMatchOver, Room: "a", Winner: lobby.RoleStone, Loser: lobby.RoleBird, Duration: 90 * time.Second})
	l.Track(MatchEvent{Type: EvtMatchOver, Room: "b", Winner: lobby.RoleStone, Loser: lobby.RoleBird, Duration: 30 * time.Second})
	l.Track(MatchEvent{Type: EvtMatchAbandoned, Room: "c", Loser: lobby.RoleBird})
	l.Stop()
	l.Stop() // idempotent

	stats, err := db.MatchStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Started != 2 || stats.Finished != 2 || stats.Abandoned != 1 {
		t.Errorf("unexpected counts %+v", stats)
	}
	if stats.Wins["stone"] != 2 || stats.Wins["bird"] != 0 {
		t.Errorf("unexpected wins %v", stats.Wins)
	}
	if stats.AvgLength != 60 {
		t.Errorf("expected average length 60s, got %v", stats.AvgLength)
	}
}

func TestMatchLogWithoutDB(t *testing.T) {
	l := NewMatchLog(nil)
	l.Track(MatchEvent{Type: EvtMatchReady})
	l.Stop()
}

func TestSettings(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("expected empty setting, got %q", v)
	}
	if err := db.SetSetting("k", "one"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSetting("k", "two"); err != nil {
		t.Fatal(err)
	}
	if v := db.GetSetting("k"); v != "two" {
		t.Errorf("expected overwritten value, got %q", v)
	}
}
