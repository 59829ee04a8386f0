package game

// Fixed ids of the networked core entities
const (
	StoneID = "stone"

	BirdRed  = "red"
	BirdBlue = "blue"

	TreeLeft  = "left"
	TreeRight = "right"
)

// BirdID returns the network id of the bird of the given color
func BirdID(color string) string { return "bird-" + color }

// NewStone builds the circular projectile
func NewStone(cfg *Config, x, y float64) *Entity {
	e := newEntity(cfg, KindStone, ShapeCircle, x, y, cfg.StoneSize, cfg.StoneSize, TagStone)
	e.ID = StoneID
	e.mustAdd(
		&PhysicsComponent{Gravity: cfg.StoneGravity, Friction: cfg.StoneFriction},
		&ColliderComponent{},
		&DamageableComponent{Health: cfg.StoneMaxHealth, MaxHealth: cfg.StoneMaxHealth},
	)
	return e.seal()
}

// NewBird builds a rectangular bird tagged with its color
func NewBird(cfg *Config, color string, x, y float64) *Entity {
	e := newEntity(cfg, KindBird, ShapeRectangle, x, y, cfg.BirdWidth, cfg.BirdHeight, TagBird, TagBird+"-"+color)
	e.ID = BirdID(color)
	e.BirdColor = color
	e.IsFlying = true
	e.mustAdd(
		&PhysicsComponent{Gravity: cfg.BirdGravity, Friction: cfg.BirdFriction},
		&ColliderComponent{},
		&DamageableComponent{Health: cfg.BirdMaxHealth, MaxHealth: cfg.BirdMaxHealth},
	)
	return e.seal()
}

// NewBerry builds a weightless pickup hanging in the tree on side
func NewBerry(cfg *Config, id, side string, x, y float64, spriteIndex int) *Entity {
	e := newEntity(cfg, KindBerry, ShapeCircle, x, y, cfg.BerrySize, cfg.BerrySize, TagBerry, TagBerry+"-"+side)
	e.ID = id
	e.TreeSide = side
	e.SpriteIndex = spriteIndex
	e.mustAdd(
		&PhysicsComponent{Friction: 1},
		&ColliderComponent{},
		&BerryCollectableComponent{},
	)
	return e.seal()
}

// NewPoop builds a falling dropping
func NewPoop(cfg *Config, id string, x, y float64) *Entity {
	e := newEntity(cfg, KindPoop, ShapeCircle, x, y, cfg.PoopSize, cfg.PoopSize, TagPoop)
	e.ID = id
	e.mustAdd(
		&PhysicsComponent{Gravity: cfg.PoopGravity, Friction: 1},
		&ColliderComponent{},
		&PoopStateComponent{},
	)
	return e.seal()
}

// NewTree builds a decorative tree. It has no components and takes no part in
// collisions; berries spawn inside its crown.
func NewTree(cfg *Config, side string, x, y float64) *Entity {
	e := newEntity(cfg, KindTree, ShapeRectangle, x, y, cfg.TreeWidth, cfg.TreeHeight, TagTree, TagDecorative, TagTree+"-"+side)
	e.TreeSide = side
	return e.seal()
}

// NewPlatform builds a static rectangle that other bodies rest on
func NewPlatform(cfg *Config, x, y, w, h float64) *Entity {
	e := newEntity(cfg, KindPlatform, ShapeRectangle, x, y, w, h, TagPlatform)
	e.mustAdd(&ColliderComponent{})
	return e.seal()
}

// LaunchPoop drops a poop from under a bird, spending one berry. It returns nil
// and changes nothing when the bird has no berries.
func (e *Entity) LaunchPoop() *Entity {
	if e.Kind != KindBird || e.BerryCount <= 0 {
		return nil
	}
	e.BerryCount--
	size := e.cfg.PoopSize
	poop := NewPoop(e.cfg, "", e.X+e.Width/2-size/2, e.Y+e.Height)
	poop.BirdColor = e.BirdColor
	return poop
}
