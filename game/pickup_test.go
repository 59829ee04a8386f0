package game

import (
	"math"
	"testing"
)

func TestBerryCollectedOnce(t *testing.T) {
	cfg := DefaultConfig()
	berry := NewBerry(&cfg, "b1", TreeLeft, 4.85, 4.85, 0)
	red := NewBird(&cfg, BirdRed, 4.5, 4.7)
	blue := NewBird(&cfg, BirdBlue, 4.6, 4.8)
	red.Damageable().Health = 50
	all := []*Entity{red, blue, berry}

	berry.BerryCollectable().Update(all, 1.0/60)
	berry.BerryCollectable().Update(all, 1.0/60)

	if red.BerryCount != 1 {
		t.Errorf("expected first bird to hold 1 berry, got %d", red.BerryCount)
	}
	if blue.BerryCount != 0 {
		t.Errorf("expected second bird to get nothing, got %d", blue.BerryCount)
	}
	if want := 50 + cfg.BirdMaxHealth*cfg.BerryHealFraction; math.Abs(red.Health()-want) > eps {
		t.Errorf("expected heal to %v, got %v", want, red.Health())
	}
	if berry.BerryCollectable().Collect(blue) {
		t.Error("Collect on a taken berry should report false")
	}
	if !berry.BerryCollectable().IsCollected || !berry.MarkedForDeletion() {
		t.Error("berry should be collected and marked")
	}
}

func TestBerryHealCappedAtMax(t *testing.T) {
	cfg := DefaultConfig()
	berry := NewBerry(&cfg, "b1", TreeRight, 0, 0, 1)
	bird := NewBird(&cfg, BirdRed, 0, 0)
	bird.Damageable().Health = cfg.BirdMaxHealth - 1
	berry.BerryCollectable().Collect(bird)
	if bird.Health() != cfg.BirdMaxHealth {
		t.Errorf("expected health capped at %v, got %v", cfg.BirdMaxHealth, bird.Health())
	}
}

func TestPoopOnMirrorStoneLeavesHealth(t *testing.T) {
	cfg := DefaultConfig()
	stone := NewStone(&cfg, 5, 5)
	stone.Mirror = true
	stone.Damageable().Health = cfg.PoopDamage
	poop := NewPoop(&cfg, "p1", 5.2, 5.0)

	poop.PoopState().Update([]*Entity{stone, poop}, 1.0/60)

	if stone.Health() != cfg.PoopDamage || stone.MarkedForDeletion() {
		t.Errorf("mirror stone changed locally: hp=%v", stone.Health())
	}
	if !poop.MarkedForDeletion() {
		t.Error("poop should still be spent on contact")
	}
}

func TestPoopHitsStoneOnce(t *testing.T) {
	cfg := DefaultConfig()
	stone := NewStone(&cfg, 5, 5)
	poop := NewPoop(&cfg, "p1", 5.2, 5.0)
	all := []*Entity{stone, poop}

	poop.PoopState().Update(all, 1.0/60)
	poop.PoopState().Update(all, 1.0/60)

	if want := cfg.StoneMaxHealth - cfg.PoopDamage; stone.Health() != want {
		t.Errorf("expected stone health %v, got %v", want, stone.Health())
	}
	if !poop.MarkedForDeletion() {
		t.Error("poop should be destroyed on stone contact")
	}
}

func TestPoopLandsThenExpires(t *testing.T) {
	cfg := DefaultConfig()
	poop := NewPoop(&cfg, "p1", 3, 8.5)
	poop.Physics().SetVelocity(1, 2)
	all := []*Entity{poop}

	poop.Update(all, 0.1)
	ps := poop.PoopState()
	if !ps.IsLanded {
		t.Fatal("poop below the floor should land")
	}
	if p := poop.Physics(); p.VX != 0 || p.VY != 0 || p.Gravity != 0 {
		t.Errorf("landed poop should be still, got v=(%v,%v) g=%v", p.VX, p.VY, p.Gravity)
	}
	if poop.MarkedForDeletion() {
		t.Fatal("poop should not expire right after landing")
	}

	for range 40 {
		poop.Update(all, 0.1)
	}
	if !poop.MarkedForDeletion() {
		t.Error("landed poop should expire after the timeout")
	}
}

func TestPoopAndBerryAreNotPhysical(t *testing.T) {
	cfg := DefaultConfig()
	stone := NewStone(&cfg, 5, 5)
	berry := NewBerry(&cfg, "b1", TreeLeft, 5.1, 5.1, 0)
	stone.Physics().SetVelocity(10, 0)
	x, y := berry.X, berry.Y

	stone.Collider().Update([]*Entity{stone, berry}, 1.0/60)
	if berry.X != x || berry.Y != y {
		t.Error("stone should pass through berries")
	}
	if stone.Physics().VX != 10 {
		t.Error("berry contact should not change stone velocity")
	}
}

func TestLaunchPoop(t *testing.T) {
	cfg := DefaultConfig()
	bird := NewBird(&cfg, BirdRed, 4, 2)
	bird.BerryCount = 1

	poop := bird.LaunchPoop()
	if poop == nil {
		t.Fatal("expected a poop")
	}
	wantX := bird.X + bird.Width/2 - cfg.PoopSize/2
	wantY := bird.Y + bird.Height
	if math.Abs(poop.X-wantX) > eps || math.Abs(poop.Y-wantY) > eps {
		t.Errorf("poop at %v,%v, want %v,%v", poop.X, poop.Y, wantX, wantY)
	}
	if bird.BerryCount != 0 {
		t.Errorf("expected berry count 0, got %d", bird.BerryCount)
	}
	if poop.BirdColor != BirdRed {
		t.Errorf("expected poop from red bird, got %q", poop.BirdColor)
	}

	if again := bird.LaunchPoop(); again != nil {
		t.Error("launch without berries should return nil")
	}
	if bird.BerryCount != 0 {
		t.Errorf("berry count changed to %d", bird.BerryCount)
	}
}
