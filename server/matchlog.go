package main

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"stonebirds/lobby"
)

// Match event types
const (
	EvtMatchReady     = "match_ready"
	EvtMatchOver      = "match_over"
	EvtMatchAbandoned = "match_abandoned"
)

const (
	matchLogBuffer    = 1024
	matchLogBatchSize = 50
	matchLogFlush     = 5 * time.Second
)

// MatchEvent is one match outcome record. Game state is never logged.
type MatchEvent struct {
	Type      string
	Room      string
	Winner    lobby.Role
	Loser     lobby.Role
	Duration  time.Duration
	Timestamp time.Time
}

// MatchLog records match events with batched background writes
type MatchLog struct {
	db         *DB
	events     chan MatchEvent
	stop       chan struct{}
	wg         sync.WaitGroup
	once       sync.Once
	flushEvery time.Duration
}

// NewMatchLog creates and starts the background writer. A nil db discards
// every event.
func NewMatchLog(db *DB) *MatchLog {
	return newMatchLog(db, matchLogFlush)
}

func newMatchLog(db *DB, flushEvery time.Duration) *MatchLog {
	l := &MatchLog{
		db:         db,
		events:     make(chan MatchEvent, matchLogBuffer),
		stop:       make(chan struct{}),
		flushEvery: flushEvery,
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

// Track enqueues an event for async persistence (non-blocking)
func (l *MatchLog) Track(evt MatchEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case l.events <- evt:
	default:
		// channel full, drop the event
	}
}

// RoomReady implements RoomEvents
func (l *MatchLog) RoomReady(r *Room) {
	l.Track(MatchEvent{Type: EvtMatchReady, Room: r.Name})
}

// RoomAbandoned implements RoomEvents. The role that stayed is not credited
// with a win.
func (l *MatchLog) RoomAbandoned(r *Room, left lobby.Role, played time.Duration) {
	l.Track(MatchEvent{Type: EvtMatchAbandoned, Room: r.Name, Loser: left, Duration: played})
}

// Stop drains pending events and shuts down the writer
func (l *MatchLog) Stop() {
	l.once.Do(func() { close(l.stop) })
	l.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (l *MatchLog) writer() {
	defer l.wg.Done()

	batch := make([]MatchEvent, 0, 64)
	ticker := time.NewTicker(l.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-l.events:
			batch = append(batch, evt)
			// Flush immediately if batch is large
			if len(batch) >= matchLogBatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-l.stop:
			for drained := false; !drained; {
				select {
				case evt := <-l.events:
					batch = append(batch, evt)
				default:
					drained = true
				}
			}
			if len(batch) > 0 {
				l.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch of events to the database
func (l *MatchLog) flush(events []MatchEvent) {
	if l.db == nil || len(events) == 0 {
		return
	}
	tx, err := l.db.conn.Begin()
	if err != nil {
		slog.Error("match log: begin tx", "err", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO match_events (event_type, room, winner, loser, duration, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		slog.Error("match log: prepare", "err", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		winner := sql.NullString{String: string(evt.Winner), Valid: evt.Winner != ""}
		loser := sql.NullString{String: string(evt.Loser), Valid: evt.Loser != ""}
		_, err := stmt.Exec(evt.Type, evt.Room, winner, loser, evt.Duration.Seconds(), evt.Timestamp.Format(time.RFC3339))
		if err != nil {
			slog.Error("match log: insert", "err", err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("match log: commit", "err", err)
	}
}
