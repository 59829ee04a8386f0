package game

import (
	"math/rand"

	"github.com/google/uuid"
)

// Manager owns every live entity of one match and drives the per-tick pass
type Manager struct {
	cfg  Config
	rng  *rand.Rand
	mode Mode

	entities []*Entity
	stone    *Entity
	birds    [2]*Entity
	trees    [2]*Entity
	berries  []*Entity
	poops    []*Entity

	berriesPerTree map[string]int
	activeBird     int
	created        bool

	berrySpawnElapsed float64
	nextBerrySpawn    float64

	// OnSpawn is the view-creation hook for berries and poops spawned at runtime
	OnSpawn func(*Entity)
}

// NewManager creates an empty manager. seed drives berry timing and placement.
func NewManager(cfg Config, seed int64) *Manager {
	return &Manager{
		cfg:            cfg,
		rng:            rand.New(rand.NewSource(seed)),
		mode:           ModeSingleplayer,
		berriesPerTree: make(map[string]int, 2),
	}
}

// Config returns the manager's tuning
func (m *Manager) Config() *Config { return &m.cfg }

// Mode returns the mode set by CreateEntities
func (m *Manager) Mode() Mode { return m.mode }

// CreateEntities builds the five core entities: the stone, two birds and two
// trees. Entities the mode does not own become mirrors. Later calls are no-ops.
func (m *Manager) CreateEntities(mode Mode) {
	if m.created {
		return
	}
	m.created = true
	m.mode = mode
	cfg := &m.cfg

	ground := cfg.WorldHeight - cfg.FloorOffset
	m.stone = NewStone(cfg, cfg.WorldWidth/2-cfg.StoneSize/2, ground-cfg.StoneSize)
	m.birds[0] = NewBird(cfg, BirdRed, cfg.WorldWidth*0.3-cfg.BirdWidth/2, 1)
	m.birds[1] = NewBird(cfg, BirdBlue, cfg.WorldWidth*0.7-cfg.BirdWidth/2, 1)
	m.trees[0] = NewTree(cfg, TreeLeft, 0.5, ground-cfg.TreeHeight)
	m.trees[1] = NewTree(cfg, TreeRight, cfg.WorldWidth-0.5-cfg.TreeWidth, ground-cfg.TreeHeight)

	for _, e := range []*Entity{m.stone, m.birds[0], m.birds[1], m.trees[0], m.trees[1]} {
		e.Mirror = !Owns(mode, e.Kind)
		m.entities = append(m.entities, e)
	}
	m.ScheduleNextBerrySpawn()
}

// Add registers a static entity such as a platform
func (m *Manager) Add(e *Entity) {
	m.entities = append(m.entities, e)
}

// ControlledEntity is the entity local input drives: the stone in singleplayer
// and stoneplayer modes, the active bird in birdplayer mode.
func (m *Manager) ControlledEntity(mode Mode) *Entity {
	if mode == ModeBirdPlayer {
		return m.birds[m.activeBird]
	}
	return m.stone
}

// SwitchBird hands control to the other bird unless it is broken
func (m *Manager) SwitchBird() *Entity {
	next := 1 - m.activeBird
	if b := m.birds[next]; b != nil {
		if d := b.Damageable(); d == nil || !d.Broken {
			m.activeBird = next
		}
	}
	return m.birds[m.activeBird]
}

func (m *Manager) Entities() []*Entity { return m.entities }
func (m *Manager) Stone() *Entity      { return m.stone }
func (m *Manager) Birds() [2]*Entity   { return m.birds }
func (m *Manager) Berries() []*Entity  { return m.berries }
func (m *Manager) Poops() []*Entity    { return m.poops }

// Bird returns the bird of color, or nil
func (m *Manager) Bird(color string) *Entity {
	for _, b := range m.birds {
		if b != nil && b.BirdColor == color {
			return b
		}
	}
	return nil
}

// Tree returns the tree on side, or nil
func (m *Manager) Tree(side string) *Entity {
	for _, t := range m.trees {
		if t != nil && t.TreeSide == side {
			return t
		}
	}
	return nil
}

// Entity looks up a live networked entity by id
func (m *Manager) Entity(id string) *Entity {
	if id == "" {
		return nil
	}
	for _, e := range m.entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// BerriesOnTree returns the live berry count of a tree as of the last prune
func (m *Manager) BerriesOnTree(side string) int {
	return m.berriesPerTree[side]
}

// ScheduleNextBerrySpawn draws the next interval from the spawn window and
// resets the accumulator.
func (m *Manager) ScheduleNextBerrySpawn() {
	lo, hi := m.cfg.BerrySpawnMin, m.cfg.BerrySpawnMax
	m.nextBerrySpawn = lo + m.rng.Float64()*(hi-lo)
	m.berrySpawnElapsed = 0
}

// BerrySpawnDue is polled by the frame loop once per tick
func (m *Manager) BerrySpawnDue() bool {
	return m.berrySpawnElapsed >= m.nextBerrySpawn
}

// SpawnBerry grows a berry on a random tree and reschedules the next one. It
// returns nil when no berry could be placed.
func (m *Manager) SpawnBerry() *Entity {
	defer m.ScheduleNextBerrySpawn()
	tree := m.trees[m.rng.Intn(len(m.trees))]
	return m.GenerateBerryInTree(tree, BerryOptions{})
}

// LaunchPoop drops a poop from bird and registers it
func (m *Manager) LaunchPoop(bird *Entity) *Entity {
	if bird == nil {
		return nil
	}
	poop := bird.LaunchPoop()
	if poop == nil {
		return nil
	}
	poop.ID = uuid.NewString()
	m.registerPoop(poop)
	return poop
}

// SpawnPoop is the replay path for a poop announced by the remote peer. Without
// a position the poop appears under the bird of birdColor.
func (m *Manager) SpawnPoop(birdColor, id string, pos *Vec) *Entity {
	var x, y float64
	switch {
	case pos != nil:
		x, y = pos.X, pos.Y
	default:
		bird := m.Bird(birdColor)
		if bird == nil {
			return nil
		}
		x = bird.X + bird.Width/2 - m.cfg.PoopSize/2
		y = bird.Y + bird.Height
	}
	if id == "" {
		id = uuid.NewString()
	}
	poop := NewPoop(&m.cfg, id, x, y)
	poop.BirdColor = birdColor
	m.registerPoop(poop)
	return poop
}

func (m *Manager) registerPoop(poop *Entity) {
	poop.Mirror = !Owns(m.mode, KindPoop)
	m.entities = append(m.entities, poop)
	m.poops = append(m.poops, poop)
	if m.OnSpawn != nil {
		m.OnSpawn(poop)
	}
}

// PruneEntities sweeps out everything marked for deletion, rebuilds the per-tree
// berry counters and trims the berry and poop lists. It returns the removed
// entities.
func (m *Manager) PruneEntities() []*Entity {
	var removed []*Entity
	kept := make([]*Entity, 0, len(m.entities))
	for _, e := range m.entities {
		if e.MarkedForDeletion() {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	m.entities = kept
	if len(removed) == 0 {
		return nil
	}

	m.berries = liveOnly(m.berries)
	m.poops = liveOnly(m.poops)
	clear(m.berriesPerTree)
	for _, b := range m.berries {
		m.berriesPerTree[b.TreeSide]++
	}
	return removed
}

func liveOnly(list []*Entity) []*Entity {
	out := list[:0]
	for _, e := range list {
		if !e.MarkedForDeletion() {
			out = append(out, e)
		}
	}
	clear(list[len(out):])
	return out
}

// UpdateEntities advances the spawn accumulator and updates every entity
func (m *Manager) UpdateEntities(dt float64) {
	m.berrySpawnElapsed += dt
	for _, e := range m.entities {
		e.Update(m.entities, dt)
	}
}

// Step runs one simulation tick: prune first so removed entities never receive
// an extra update.
func (m *Manager) Step(dt float64) {
	m.PruneEntities()
	m.UpdateEntities(dt)
}

// ClampDelta caps a wall-clock delta so a stalled frame cannot blow up physics
func (m *Manager) ClampDelta(dt float64) float64 {
	if dt < 0 {
		return 0
	}
	if dt > m.cfg.MaxDeltaTime {
		return m.cfg.MaxDeltaTime
	}
	return dt
}
