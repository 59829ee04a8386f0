package game

import (
	"math"

	"github.com/google/uuid"
)

// BerryOptions carries the values a remote announcement pins down. Zero values
// mean "pick locally".
type BerryOptions struct {
	ID          string
	Position    *Vec // top-left corner
	SpriteIndex *int
}

// replay reports whether the call replays a berry announced by the other peer
func (o BerryOptions) replay() bool { return o.Position != nil }

// GenerateBerryInTree grows a berry inside tree's crown. It enforces the global
// and per-tree caps, falls back to the other tree when tree is full (local path
// only) and gives up silently, returning nil, when no free spot turns up.
func (m *Manager) GenerateBerryInTree(tree *Entity, opts BerryOptions) *Entity {
	if tree == nil || tree.Kind != KindTree {
		return nil
	}
	if m.liveBerries() >= m.cfg.MaxBerriesTotal {
		return nil
	}
	if m.liveBerriesOn(tree.TreeSide) >= m.cfg.MaxBerriesPerTree {
		if opts.replay() {
			return nil
		}
		tree = m.otherTree(tree)
		if tree == nil || m.liveBerriesOn(tree.TreeSide) >= m.cfg.MaxBerriesPerTree {
			return nil
		}
	}

	var pos Vec
	if opts.Position != nil {
		pos = *opts.Position
	} else {
		p, ok := m.sampleBerrySpot(tree)
		if !ok {
			return nil
		}
		pos = p
	}

	sprite := 0
	if opts.SpriteIndex != nil {
		sprite = *opts.SpriteIndex
	} else if m.cfg.BerrySpriteCount > 0 {
		sprite = m.rng.Intn(m.cfg.BerrySpriteCount)
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	berry := NewBerry(&m.cfg, id, tree.TreeSide, pos.X, pos.Y, sprite)
	berry.Mirror = !Owns(m.mode, KindBerry)
	m.entities = append(m.entities, berry)
	m.berries = append(m.berries, berry)
	m.berriesPerTree[tree.TreeSide]++
	if m.OnSpawn != nil {
		m.OnSpawn(berry)
	}
	return berry
}

// sampleBerrySpot draws centers uniformly from a disk in the upper middle of the
// tree and rejects any closer than two radii to a live berry.
func (m *Manager) sampleBerrySpot(tree *Entity) (Vec, bool) {
	size := m.cfg.BerrySize
	r := size / 2
	cx := tree.X + tree.Width/2
	cy := tree.Y + tree.Height*0.35
	spread := tree.Width * 0.3

	for range m.cfg.BerryPlaceAttempts {
		dist := spread * math.Sqrt(m.rng.Float64())
		angle := m.rng.Float64() * 2 * math.Pi
		x := cx + dist*math.Cos(angle)
		y := cy + dist*math.Sin(angle)
		if m.crowded(x, y, 2*r) {
			continue
		}
		return Vec{X: x - size/2, Y: y - size/2}, true
	}
	return Vec{}, false
}

func (m *Manager) crowded(x, y, minDist float64) bool {
	for _, b := range m.berries {
		if b.MarkedForDeletion() {
			continue
		}
		bx, by := b.Center()
		if math.Hypot(bx-x, by-y) < minDist {
			return true
		}
	}
	return false
}

// liveBerries counts berries not yet collected. Collected berries linger in the
// list until the next prune but no longer count against the caps.
func (m *Manager) liveBerries() int {
	n := 0
	for _, b := range m.berries {
		if !b.MarkedForDeletion() {
			n++
		}
	}
	return n
}

func (m *Manager) liveBerriesOn(side string) int {
	n := 0
	for _, b := range m.berries {
		if b.TreeSide == side && !b.MarkedForDeletion() {
			n++
		}
	}
	return n
}

func (m *Manager) otherTree(tree *Entity) *Entity {
	for _, t := range m.trees {
		if t != nil && t != tree {
			return t
		}
	}
	return nil
}
