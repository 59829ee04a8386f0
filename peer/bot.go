package main

import (
	"math"
	"math/rand"

	"stonebirds/game"
)

const (
	botJumpMin   = 1.5 // seconds between stone hops
	botJumpMax   = 3.0
	botHoverGap  = 1.5 // how far above the stone a loaded bird lines up
	botAlignSlop = 0.2
)

// Bot is a scripted Input. Birds fetch berries and drop them on the stone;
// the stone rolls after the nearest bird and hops at it.
type Bot struct {
	rng      *rand.Rand
	nextJump float64
	sinceHop float64
}

// NewBot creates a bot. seed makes its hops reproducible.
func NewBot(seed int64) *Bot {
	b := &Bot{rng: rand.New(rand.NewSource(seed))}
	b.scheduleJump()
	return b
}

func (b *Bot) scheduleJump() {
	b.nextJump = botJumpMin + b.rng.Float64()*(botJumpMax-botJumpMin)
	b.sinceHop = 0
}

// Steer implements Input
func (b *Bot) Steer(m *game.Manager, dt float64) bool {
	e := m.ControlledEntity(m.Mode())
	if e == nil {
		return false
	}
	if e.Kind == game.KindBird {
		return b.steerBird(m, e)
	}
	b.steerStone(m, e, dt)
	return false
}

func (b *Bot) steerBird(m *game.Manager, bird *game.Entity) bool {
	if broken(bird) {
		bird = m.SwitchBird()
		if broken(bird) {
			return false
		}
	}
	p := bird.Physics()
	if p == nil {
		return false
	}
	cfg := m.Config()
	bx, by := bird.Center()

	stone := m.Stone()
	if bird.BerryCount > 0 && stone != nil && !broken(stone) {
		sx, _ := stone.Center()
		tx, ty := sx, stone.Y-botHoverGap
		moveToward(p, bx, by, tx, ty, cfg.BirdSpeed)
		bird.IsFlying = true
		return math.Abs(bx-sx) < stone.Width/2+botAlignSlop && by < stone.Y
	}

	target := nearestBerry(m, bx, by)
	if target == nil {
		p.SetVelocity(0, 0)
		bird.IsFlying = false
		return false
	}
	tx, ty := target.Center()
	moveToward(p, bx, by, tx, ty, cfg.BirdSpeed)
	bird.IsFlying = true
	return false
}

func (b *Bot) steerStone(m *game.Manager, stone *game.Entity, dt float64) {
	p := stone.Physics()
	if p == nil {
		return
	}
	cfg := m.Config()
	sx, _ := stone.Center()

	var target *game.Entity
	best := math.Inf(1)
	for _, bird := range m.Birds() {
		if broken(bird) {
			continue
		}
		bx, _ := bird.Center()
		if d := math.Abs(bx - sx); d < best {
			best, target = d, bird
		}
	}
	if target == nil {
		return
	}
	tx, _ := target.Center()
	vx := math.Copysign(cfg.BirdSpeed, tx-sx)
	if math.Abs(tx-sx) < botAlignSlop {
		vx = 0
	}

	b.sinceHop += dt
	vy := p.VY
	if b.sinceHop >= b.nextJump && math.Abs(p.VY) < cfg.RestThreshold {
		vy = -cfg.BirdSpeed * 1.5
		stone.IsLaunched = true
		b.scheduleJump()
	} else if math.Abs(p.VY) < cfg.RestThreshold {
		stone.IsLaunched = false
	}
	p.SetVelocity(vx, vy)
}

func nearestBerry(m *game.Manager, x, y float64) *game.Entity {
	var best *game.Entity
	bestDist := math.Inf(1)
	for _, berry := range m.Berries() {
		if berry.MarkedForDeletion() {
			continue
		}
		bx, by := berry.Center()
		if d := math.Hypot(bx-x, by-y); d < bestDist {
			best, bestDist = berry, d
		}
	}
	return best
}

func moveToward(p *game.PhysicsComponent, x, y, tx, ty, speed float64) {
	dx, dy := tx-x, ty-y
	dist := math.Hypot(dx, dy)
	if dist < 1e-6 {
		p.SetVelocity(0, 0)
		return
	}
	p.SetVelocity(dx/dist*speed, dy/dist*speed)
}
