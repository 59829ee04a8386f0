package game

import (
	"testing"

	"pgregory.net/rapid"
)

func newTestManager(mode Mode) *Manager {
	m := NewManager(DefaultConfig(), 1)
	m.CreateEntities(mode)
	return m
}

func TestCreateEntitiesIdempotent(t *testing.T) {
	m := newTestManager(ModeSingleplayer)
	m.CreateEntities(ModeSingleplayer)
	if n := len(m.Entities()); n != 5 {
		t.Fatalf("expected 5 entities, got %d", n)
	}
	if m.Stone() == nil || m.Bird(BirdRed) == nil || m.Bird(BirdBlue) == nil {
		t.Fatal("missing core entities")
	}
	if m.Tree(TreeLeft) == nil || m.Tree(TreeRight) == nil {
		t.Fatal("missing trees")
	}
	if m.Entity(StoneID) != m.Stone() {
		t.Error("stone should be reachable by id")
	}
	if m.Entity(BirdID(BirdBlue)) != m.Bird(BirdBlue) {
		t.Error("blue bird should be reachable by id")
	}
}

func TestCreateEntitiesMarksMirrors(t *testing.T) {
	birdSide := newTestManager(ModeBirdPlayer)
	if !birdSide.Stone().Mirror {
		t.Error("bird peer should mirror the stone")
	}
	for _, b := range birdSide.Birds() {
		if b.Mirror {
			t.Error("bird peer should own its birds")
		}
	}

	stoneSide := newTestManager(ModeStonePlayer)
	if stoneSide.Stone().Mirror {
		t.Error("stone peer should own the stone")
	}
	for _, b := range stoneSide.Birds() {
		if !b.Mirror {
			t.Error("stone peer should mirror the birds")
		}
	}

	solo := newTestManager(ModeSingleplayer)
	for _, e := range solo.Entities() {
		if e.Mirror {
			t.Errorf("singleplayer should own %s", e.Kind)
		}
	}
}

func TestControlledEntity(t *testing.T) {
	m := newTestManager(ModeBirdPlayer)
	if m.ControlledEntity(ModeSingleplayer) != m.Stone() {
		t.Error("singleplayer controls the stone")
	}
	if m.ControlledEntity(ModeStonePlayer) != m.Stone() {
		t.Error("stoneplayer controls the stone")
	}
	first := m.ControlledEntity(ModeBirdPlayer)
	if first.Kind != KindBird {
		t.Fatalf("birdplayer should control a bird, got %s", first.Kind)
	}
	if second := m.SwitchBird(); second == first {
		t.Error("SwitchBird should hand over to the other bird")
	}

	m.Birds()[0].Damageable().TakeDamage(1000)
	if m.SwitchBird() != m.Birds()[1] {
		t.Error("SwitchBird should not select a broken bird")
	}
}

func TestBerryCapsNeverExceeded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := DefaultConfig()
		cfg.MaxBerriesTotal = rapid.IntRange(0, 10).Draw(t, "maxTotal")
		cfg.MaxBerriesPerTree = rapid.IntRange(0, 6).Draw(t, "maxPerTree")
		m := NewManager(cfg, rapid.Int64().Draw(t, "seed"))
		m.CreateEntities(ModeStonePlayer)

		steps := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 40).Draw(t, "steps")
		for _, s := range steps {
			switch s {
			case 0:
				m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{})
			case 1:
				m.GenerateBerryInTree(m.Tree(TreeRight), BerryOptions{})
			case 2:
				pos := Vec{X: 2, Y: 5}
				m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{ID: "remote", Position: &pos})
			case 3:
				if bs := m.Berries(); len(bs) > 0 {
					bs[0].BerryCollectable().Collect(m.Bird(BirdRed))
				}
				m.PruneEntities()
			}

			left, right := 0, 0
			for _, b := range m.Berries() {
				if b.MarkedForDeletion() {
					continue
				}
				if b.TreeSide == TreeLeft {
					left++
				} else {
					right++
				}
			}
			if left > cfg.MaxBerriesPerTree || right > cfg.MaxBerriesPerTree {
				t.Fatalf("per-tree cap %d exceeded: left=%d right=%d", cfg.MaxBerriesPerTree, left, right)
			}
			if left+right > cfg.MaxBerriesTotal {
				t.Fatalf("total cap %d exceeded: %d", cfg.MaxBerriesTotal, left+right)
			}
		}
	})
}

func TestGenerateBerryRetriesOtherTree(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBerriesPerTree = 1
	m := NewManager(cfg, 7)
	m.CreateEntities(ModeStonePlayer)

	first := m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{})
	if first == nil || first.TreeSide != TreeLeft {
		t.Fatalf("expected a berry on the left tree, got %+v", first)
	}
	second := m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{})
	if second == nil || second.TreeSide != TreeRight {
		t.Fatalf("expected overflow onto the right tree, got %+v", second)
	}
	if third := m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{}); third != nil {
		t.Error("both trees full, expected nil")
	}
}

func TestGenerateBerryReplayDoesNotRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBerriesPerTree = 1
	m := NewManager(cfg, 7)
	m.CreateEntities(ModeBirdPlayer)

	pos := Vec{X: 2, Y: 5}
	sprite := 2
	b := m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{ID: "berry-1", Position: &pos, SpriteIndex: &sprite})
	if b == nil {
		t.Fatal("expected replayed berry")
	}
	if b.ID != "berry-1" || b.X != 2 || b.Y != 5 || b.SpriteIndex != 2 {
		t.Errorf("replay should keep supplied values, got id=%s pos=%v,%v sprite=%d", b.ID, b.X, b.Y, b.SpriteIndex)
	}
	if !b.Mirror {
		t.Error("berries are mirrors on the bird peer")
	}

	pos2 := Vec{X: 3, Y: 5}
	if again := m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{ID: "berry-2", Position: &pos2}); again != nil {
		t.Error("replay onto a full tree should fail without moving trees")
	}
}

func TestGenerateBerrySoftFailsWhenCrowded(t *testing.T) {
	cfg := DefaultConfig()
	// a berry wider than the sampling disk leaves no room for a second one
	cfg.BerrySize = 2
	m := NewManager(cfg, 3)
	m.CreateEntities(ModeSingleplayer)

	if b := m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{}); b == nil {
		t.Fatal("first berry should fit")
	}
	if b := m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{}); b != nil {
		t.Error("expected placement to give up")
	}
	if n := len(m.Berries()); n != 1 {
		t.Errorf("expected 1 berry, got %d", n)
	}
}

func TestGenerateBerryPlacedInCrown(t *testing.T) {
	m := newTestManager(ModeSingleplayer)
	tree := m.Tree(TreeRight)
	for range 20 {
		b := m.GenerateBerryInTree(tree, BerryOptions{})
		if b == nil {
			continue
		}
		cx, cy := b.Center()
		if cx < tree.X || cx > tree.X+tree.Width || cy < tree.Y || cy > tree.Y+tree.Height/2+tree.Width*0.3 {
			t.Errorf("berry center %v,%v outside the crown of %+v", cx, cy, tree)
		}
		b.BerryCollectable().MarkedForDeletion = true
		m.PruneEntities()
	}
}

func TestPruneRemovesMarkedEntities(t *testing.T) {
	m := newTestManager(ModeSingleplayer)
	berry := m.GenerateBerryInTree(m.Tree(TreeLeft), BerryOptions{})
	if berry == nil {
		t.Fatal("expected a berry")
	}
	if m.BerriesOnTree(TreeLeft) != 1 {
		t.Fatalf("expected 1 berry on left tree, got %d", m.BerriesOnTree(TreeLeft))
	}
	berry.BerryCollectable().Collect(m.Bird(BirdRed))

	removed := m.PruneEntities()
	if len(removed) != 1 || removed[0] != berry {
		t.Fatalf("expected the berry to be removed, got %v", removed)
	}
	if len(m.Berries()) != 0 || m.BerriesOnTree(TreeLeft) != 0 {
		t.Error("berry lists and counters should be rebuilt")
	}
	if m.Entity(berry.ID) != nil {
		t.Error("pruned berry still reachable")
	}
}

func TestStepPrunesBeforeUpdate(t *testing.T) {
	m := newTestManager(ModeSingleplayer)
	poop := m.SpawnPoop(BirdRed, "p1", &Vec{X: 3, Y: 2})
	poop.Physics().SetVelocity(5, 5)
	poop.PoopState().MarkedForDeletion = true
	x, y := poop.X, poop.Y

	m.Step(0.1)

	if poop.X != x || poop.Y != y {
		t.Error("marked entity received an update")
	}
	if len(m.Poops()) != 0 {
		t.Error("marked poop should be gone")
	}
}

func TestSpawnPoopReplayAndLaunch(t *testing.T) {
	m := newTestManager(ModeStonePlayer)
	var spawned []*Entity
	m.OnSpawn = func(e *Entity) { spawned = append(spawned, e) }

	p := m.SpawnPoop(BirdBlue, "poop-9", &Vec{X: 4, Y: 1})
	if p == nil || p.ID != "poop-9" || p.X != 4 || p.Y != 1 {
		t.Fatalf("replayed poop mismatch: %+v", p)
	}
	if !p.Mirror {
		t.Error("poops are mirrors on the stone peer")
	}

	bird := m.Bird(BirdRed)
	under := m.SpawnPoop(BirdRed, "", nil)
	if under == nil || under.Y != bird.Y+bird.Height || under.ID == "" {
		t.Errorf("poop without position should drop under the bird, got %+v", under)
	}

	if m.LaunchPoop(bird) != nil {
		t.Error("bird without berries should not launch")
	}
	bird.BerryCount = 1
	launched := m.LaunchPoop(bird)
	if launched == nil || launched.ID == "" {
		t.Fatal("expected launched poop with an id")
	}
	if len(spawned) != 3 || len(m.Poops()) != 3 {
		t.Errorf("expected 3 spawn callbacks and poops, got %d and %d", len(spawned), len(m.Poops()))
	}
}

func TestBerrySpawnScheduling(t *testing.T) {
	m := newTestManager(ModeSingleplayer)
	if m.BerrySpawnDue() {
		t.Fatal("spawn should not be due right after scheduling")
	}
	for range 60 {
		m.UpdateEntities(0.1)
	}
	if !m.BerrySpawnDue() {
		t.Fatal("spawn should be due after the maximum interval")
	}
	m.SpawnBerry()
	if m.BerrySpawnDue() {
		t.Error("SpawnBerry should reschedule")
	}
}

func TestClampDelta(t *testing.T) {
	m := NewManager(DefaultConfig(), 1)
	if got := m.ClampDelta(1); got != m.Config().MaxDeltaTime {
		t.Errorf("expected clamp to %v, got %v", m.Config().MaxDeltaTime, got)
	}
	if got := m.ClampDelta(0.01); got != 0.01 {
		t.Errorf("small delta should pass through, got %v", got)
	}
	if got := m.ClampDelta(-1); got != 0 {
		t.Errorf("negative delta should clamp to 0, got %v", got)
	}
}
