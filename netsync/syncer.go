package netsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stonebirds/game"
)

//go:generate go tool mockgen -destination=./mocks/sender_mock.go -package=mocks . Sender

// Sender delivers an encoded frame to the remote peer
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// Syncer ties a local Manager to the remote peer. Every method must run on the
// frame-loop goroutine; incoming frames are queued by the transport and handed
// to Handle between ticks.
type Syncer struct {
	m    *game.Manager
	mode game.Mode
	out  Sender

	ended bool
	won   bool
}

// New creates a syncer for a peer playing mode
func New(m *game.Manager, mode game.Mode, out Sender) *Syncer {
	return &Syncer{m: m, mode: mode, out: out}
}

// Ended reports whether the match is over for this peer
func (s *Syncer) Ended() bool { return s.ended }

// Won reports whether this peer won. Only meaningful once Ended is true.
func (s *Syncer) Won() bool { return s.won }

// Emit sends one state record per owned networked entity
func (s *Syncer) Emit(ctx context.Context) error {
	if s.ended {
		return nil
	}
	var errs []error
	for _, e := range s.m.Entities() {
		if e.Mirror || e.ID == "" || !game.Owns(s.mode, e.Kind) {
			continue
		}
		kind, ok := StateKind(e.Kind)
		if !ok {
			continue
		}
		frame, err := Encode(kind, Snapshot(e))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.out.Send(ctx, frame); err != nil {
			return fmt.Errorf("emit %s: %w", e.ID, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot flattens an entity into its wire record
func Snapshot(e *game.Entity) EntityState {
	st := EntityState{ID: e.ID, X: e.X, Y: e.Y, Health: e.Health()}
	if p := e.Physics(); p != nil {
		st.VX, st.VY = p.VX, p.VY
	}
	switch e.Kind {
	case game.KindBird:
		st.BerryCount = e.BerryCount
		st.IsFlying = e.IsFlying
	case game.KindStone:
		st.IsLaunched = e.IsLaunched
	case game.KindBerry:
		st.TreePosition = e.TreeSide
		if b := e.BerryCollectable(); b != nil {
			st.IsCollected = b.IsCollected
		}
	case game.KindPoop:
		if p := e.PoopState(); p != nil {
			st.IsLanded = p.IsLanded
		}
	}
	return st
}

// Handle applies one frame from the remote peer
func (s *Syncer) Handle(ctx context.Context, frame []byte) error {
	kind, payload, err := Decode(frame)
	if err != nil {
		return err
	}
	switch kind {
	case KindStoneState, KindBirdState, KindBerryState, KindPoopState:
		var st EntityState
		if err := Unmarshal(payload, &st); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		s.apply(ctx, kind, st)
	case KindBerrySpawn:
		var sp BerrySpawn
		if err := Unmarshal(payload, &sp); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		s.replayBerry(ctx, sp)
	case KindPoopSpawn:
		var sp PoopSpawn
		if err := Unmarshal(payload, &sp); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		s.replayPoop(ctx, sp)
	case KindGameOver:
		var g GameOver
		if err := Unmarshal(payload, &g); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		if !s.ended {
			s.ended = true
			s.won = true
			slog.InfoContext(ctx, "remote peer lost", "loser", g.Loser)
		}
	}
	return nil
}

// apply writes a record verbatim onto the mirror with the same id. Records for
// unknown ids or for entities this peer owns are dropped.
func (s *Syncer) apply(ctx context.Context, kind Kind, st EntityState) {
	e := s.m.Entity(st.ID)
	if e == nil {
		slog.DebugContext(ctx, "state for unknown entity", "id", st.ID, "kind", kind)
		return
	}
	if want, _ := StateKind(e.Kind); want != kind || !e.Mirror {
		return
	}

	e.X, e.Y = st.X, st.Y
	if p := e.Physics(); p != nil {
		p.VX, p.VY = st.VX, st.VY
	}
	if d := e.Damageable(); d != nil {
		d.SetHealth(st.Health)
	}
	switch e.Kind {
	case game.KindBird:
		e.BerryCount = st.BerryCount
		e.IsFlying = st.IsFlying
	case game.KindStone:
		e.IsLaunched = st.IsLaunched
	case game.KindBerry:
		if b := e.BerryCollectable(); b != nil && st.IsCollected && !b.IsCollected {
			b.IsCollected = true
			b.MarkedForDeletion = true
		}
	case game.KindPoop:
		if p := e.PoopState(); p != nil && st.IsLanded && !p.IsLanded {
			p.Land()
		}
	}
}

func (s *Syncer) replayBerry(ctx context.Context, sp BerrySpawn) {
	if s.m.Entity(sp.ID) != nil {
		return
	}
	tree := s.m.Tree(sp.TreePosition)
	if tree == nil {
		slog.WarnContext(ctx, "berry spawn for unknown tree", "id", sp.ID, "tree", sp.TreePosition)
		return
	}
	pos, sprite := sp.Position, sp.SpriteIndex
	berry := s.m.GenerateBerryInTree(tree, game.BerryOptions{ID: sp.ID, Position: &pos, SpriteIndex: &sprite})
	if berry == nil {
		slog.WarnContext(ctx, "berry spawn dropped by caps", "id", sp.ID, "tree", sp.TreePosition)
	}
}

func (s *Syncer) replayPoop(ctx context.Context, sp PoopSpawn) {
	if s.m.Entity(sp.ID) != nil {
		return
	}
	pos := sp.Position
	if s.m.SpawnPoop(sp.BirdType, sp.ID, &pos) == nil {
		slog.WarnContext(ctx, "poop spawn dropped", "id", sp.ID, "bird", sp.BirdType)
	}
}

// AnnounceBerry tells the remote peer about a berry this peer grew. There is
// no acknowledgement: a lost announcement leaves the berry unknown remotely.
func (s *Syncer) AnnounceBerry(ctx context.Context, berry *game.Entity) error {
	frame, err := Encode(KindBerrySpawn, BerrySpawn{
		ID:           berry.ID,
		TreePosition: berry.TreeSide,
		Position:     game.Vec{X: berry.X, Y: berry.Y},
		SpriteIndex:  berry.SpriteIndex,
	})
	if err != nil {
		return err
	}
	return s.out.Send(ctx, frame)
}

// AnnouncePoop tells the remote peer about a poop this peer dropped
func (s *Syncer) AnnouncePoop(ctx context.Context, poop *game.Entity) error {
	frame, err := Encode(KindPoopSpawn, PoopSpawn{
		ID:       poop.ID,
		BirdType: poop.BirdColor,
		Position: game.Vec{X: poop.X, Y: poop.Y},
	})
	if err != nil {
		return err
	}
	return s.out.Send(ctx, frame)
}

// Defeated reports whether this peer's losing condition holds: both birds
// broken for the bird side, the stone broken otherwise.
func (s *Syncer) Defeated() bool {
	if s.mode == game.ModeBirdPlayer {
		for _, b := range s.m.Birds() {
			if b != nil && !broken(b) {
				return false
			}
		}
		return true
	}
	stone := s.m.Stone()
	return stone != nil && broken(stone)
}

func broken(e *game.Entity) bool {
	d := e.Damageable()
	return d != nil && d.Broken
}

// CheckDefeat ends the match and notifies the remote peer the first time the
// local losing condition holds. It reports whether it fired.
func (s *Syncer) CheckDefeat(ctx context.Context) (bool, error) {
	if s.ended || !s.Defeated() {
		return false, nil
	}
	s.ended = true
	s.won = false
	frame, err := Encode(KindGameOver, GameOver{Loser: s.mode})
	if err != nil {
		return true, err
	}
	if err := s.out.Send(ctx, frame); err != nil {
		return true, fmt.Errorf("send game over: %w", err)
	}
	return true, nil
}
