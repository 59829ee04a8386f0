// Package netsync keeps two peers' simulations in step: each side streams the
// state of the entities it owns, announces the ones it spawns and signals its
// own defeat.
package netsync

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"stonebirds/game"
)

// Kind is the first byte of every binary frame
type Kind byte

const (
	KindStoneState Kind = iota + 1
	KindBirdState
	KindBerryState
	KindPoopState
	KindBerrySpawn
	KindPoopSpawn
	KindGameOver
)

var kindNames = map[Kind]string{
	KindStoneState: "stone",
	KindBirdState:  "bird",
	KindBerryState: "berry",
	KindPoopState:  "poop",
	KindBerrySpawn: "berry-spawn",
	KindPoopSpawn:  "poop-spawn",
	KindGameOver:   "game-over",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// Valid reports whether k is a known frame kind
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

var (
	ErrShortFrame  = errors.New("netsync: empty frame")
	ErrUnknownKind = errors.New("netsync: unknown frame kind")
)

// EntityState is the flat per-tick record of one owned entity
type EntityState struct {
	ID     string  `msgpack:"id"`
	X      float64 `msgpack:"x"`
	Y      float64 `msgpack:"y"`
	VX     float64 `msgpack:"vx"`
	VY     float64 `msgpack:"vy"`
	Health float64 `msgpack:"hp"`

	BerryCount   int    `msgpack:"bc,omitempty"`  // bird
	IsFlying     bool   `msgpack:"fly,omitempty"` // bird
	IsLaunched   bool   `msgpack:"ln,omitempty"`  // stone
	IsCollected  bool   `msgpack:"col,omitempty"` // berry
	TreePosition string `msgpack:"tp,omitempty"`  // berry
	IsLanded     bool   `msgpack:"ld,omitempty"`  // poop
}

// BerrySpawn announces a berry grown by the stone peer
type BerrySpawn struct {
	ID           string   `msgpack:"id"`
	TreePosition string   `msgpack:"tp"`
	Position     game.Vec `msgpack:"pos"`
	SpriteIndex  int      `msgpack:"si"`
}

// PoopSpawn announces a poop dropped by the bird peer
type PoopSpawn struct {
	ID       string   `msgpack:"id"`
	BirdType string   `msgpack:"bird"`
	Position game.Vec `msgpack:"pos"`
}

// GameOver is sent once by the peer that lost
type GameOver struct {
	Loser game.Mode `msgpack:"loser"`
}

// Encode builds a frame: the kind byte followed by the msgpack payload
func Encode(kind Kind, payload any) ([]byte, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	body, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, byte(kind))
	return append(frame, body...), nil
}

// Decode splits a frame into its kind and raw payload
func Decode(frame []byte) (Kind, []byte, error) {
	kind, ok := PeekKind(frame)
	if !ok {
		return 0, nil, ErrShortFrame
	}
	if !kind.Valid() {
		return kind, nil, ErrUnknownKind
	}
	return kind, frame[1:], nil
}

// PeekKind reads the kind byte without touching the payload
func PeekKind(frame []byte) (Kind, bool) {
	if len(frame) == 0 {
		return 0, false
	}
	return Kind(frame[0]), true
}

// Unmarshal decodes a payload returned by Decode
func Unmarshal(payload []byte, v any) error {
	return msgpack.Unmarshal(payload, v)
}

// StateKind maps an entity kind onto its state channel
func StateKind(k game.Kind) (Kind, bool) {
	switch k {
	case game.KindStone:
		return KindStoneState, true
	case game.KindBird:
		return KindBirdState, true
	case game.KindBerry:
		return KindBerryState, true
	case game.KindPoop:
		return KindPoopState, true
	}
	return 0, false
}
