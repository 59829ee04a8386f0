package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stonebirds/game"
	"stonebirds/netsync"
)

// Input drives the locally controlled entity once per tick. It returns true
// when the launch action fired.
type Input interface {
	Steer(m *game.Manager, dt float64) (launch bool)
}

// Renderer is the view collaborator. Spawned is the view-creation hook for
// entities appearing at runtime.
type Renderer interface {
	Spawned(e *game.Entity)
	Draw(m *game.Manager)
}

// Loop runs the fixed-order frame loop of one peer. A nil syncer plays an
// offline singleplayer match.
type Loop struct {
	m      *game.Manager
	sync   *netsync.Syncer
	inbox  <-chan []byte
	input  Input
	render Renderer
	tick   time.Duration
	now    func() time.Time
	frames int
}

// NewLoop wires a manager to its collaborators and hooks the renderer onto
// runtime spawns
func NewLoop(m *game.Manager, s *netsync.Syncer, inbox <-chan []byte, in Input, r Renderer, tick time.Duration) *Loop {
	if r == nil {
		r = nopRenderer{}
	}
	m.OnSpawn = r.Spawned
	return &Loop{m: m, sync: s, inbox: inbox, input: in, render: r, tick: tick, now: time.Now}
}

// Run ticks until the match ends or ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		now := l.now()
		dt := now.Sub(last).Seconds()
		last = now

		if err := l.Tick(ctx, dt); err != nil {
			return err
		}
		if l.Ended() {
			slog.InfoContext(ctx, "match over", "won", l.Won(), "frames", l.frames)
			return nil
		}
	}
}

// Tick runs one frame: drain remote frames, prune, update, spawn, emit, check
// for defeat, draw. The stages never interleave.
func (l *Loop) Tick(ctx context.Context, dt float64) error {
	dt = l.m.ClampDelta(dt)
	l.frames++

	if err := l.drain(ctx); err != nil {
		return err
	}

	l.m.PruneEntities()
	launch := false
	if l.input != nil {
		launch = l.input.Steer(l.m, dt)
	}
	l.m.UpdateEntities(dt)

	if err := l.spawn(ctx, launch); err != nil {
		return err
	}

	if l.sync != nil {
		if err := l.sync.Emit(ctx); err != nil {
			return err
		}
		if fired, err := l.sync.CheckDefeat(ctx); err != nil {
			return err
		} else if fired {
			slog.InfoContext(ctx, "defeated", "mode", l.m.Mode())
		}
	}

	l.render.Draw(l.m)
	return nil
}

// drain hands every queued remote frame to the syncer. Malformed frames are
// logged and skipped.
func (l *Loop) drain(ctx context.Context) error {
	if l.inbox == nil || l.sync == nil {
		return nil
	}
	for {
		select {
		case frame, ok := <-l.inbox:
			if !ok {
				return ErrDisconnected
			}
			if err := l.sync.Handle(ctx, frame); err != nil {
				if errors.Is(err, netsync.ErrShortFrame) || errors.Is(err, netsync.ErrUnknownKind) {
					slog.DebugContext(ctx, "dropping frame", "err", err)
					continue
				}
				slog.WarnContext(ctx, "handle frame", "err", err)
			}
		default:
			return nil
		}
	}
}

// spawn grows berries on the berry owner's side and drops a poop when the
// bird side launched
func (l *Loop) spawn(ctx context.Context, launch bool) error {
	mode := l.m.Mode()
	if game.Owns(mode, game.KindBerry) && l.m.BerrySpawnDue() {
		if berry := l.m.SpawnBerry(); berry != nil && l.sync != nil {
			if err := l.sync.AnnounceBerry(ctx, berry); err != nil {
				return err
			}
		}
	}
	if launch && game.Owns(mode, game.KindPoop) {
		bird := l.m.ControlledEntity(mode)
		if poop := l.m.LaunchPoop(bird); poop != nil && l.sync != nil {
			if err := l.sync.AnnouncePoop(ctx, poop); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ended reports whether the match is decided. Offline, it ends when either
// side is destroyed.
func (l *Loop) Ended() bool {
	if l.sync == nil {
		return broken(l.m.Stone()) || (broken(l.m.Birds()[0]) && broken(l.m.Birds()[1]))
	}
	return l.sync.Ended()
}

// Won reports whether the local side won. Offline the player is the stone.
func (l *Loop) Won() bool {
	if l.sync == nil {
		return !broken(l.m.Stone())
	}
	return l.sync.Won()
}

func broken(e *game.Entity) bool {
	if e == nil {
		return true
	}
	d := e.Damageable()
	return d != nil && d.Broken
}

type nopRenderer struct{}

func (nopRenderer) Spawned(*game.Entity) {}
func (nopRenderer) Draw(*game.Manager)   {}

// logRenderer stands in for a view in headless runs: it logs spawns and a
// periodic summary of the world
type logRenderer struct {
	every time.Duration
	last  time.Time
}

func (r *logRenderer) Spawned(e *game.Entity) {
	slog.Debug("spawned", "kind", e.Kind, "id", e.ID, "x", e.X, "y", e.Y)
}

func (r *logRenderer) Draw(m *game.Manager) {
	if time.Since(r.last) < r.every {
		return
	}
	r.last = time.Now()
	attrs := []any{"berries", len(m.Berries()), "poops", len(m.Poops())}
	if s := m.Stone(); s != nil {
		attrs = append(attrs, "stone_hp", s.Health())
	}
	for _, b := range m.Birds() {
		if b != nil {
			attrs = append(attrs, b.ID+"_hp", b.Health())
		}
	}
	slog.Info("world", attrs...)
}
