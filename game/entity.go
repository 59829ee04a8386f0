package game

import (
	"errors"
	"math"
)

// Shape is the collider geometry of an entity
type Shape int

const (
	ShapeRectangle Shape = iota
	ShapeCircle
)

func (s Shape) String() string {
	if s == ShapeCircle {
		return "circle"
	}
	return "rectangle"
}

// Kind is the tagged variant of an entity. Collision and damage rules branch on
// it together with component presence.
type Kind int

const (
	KindDecorative Kind = iota
	KindStone
	KindBird
	KindBerry
	KindPoop
	KindTree
	KindPlatform
)

var kindNames = [...]string{"decorative", "stone", "bird", "berry", "poop", "tree", "platform"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Type tags
const (
	TagStone      = "stone"
	TagBird       = "bird"
	TagBerry      = "berry"
	TagPoop       = "poop"
	TagTree       = "tree"
	TagDecorative = "decorative"
	TagPlatform   = "platform"
)

// Vec is a point or vector in world units
type Vec struct {
	X float64 `msgpack:"x" json:"x"`
	Y float64 `msgpack:"y" json:"y"`
}

var ErrDuplicateComponent = errors.New("entity already has a component of this kind")

// Entity is a positioned object defined by its tags and attached components.
// X and Y are the top-left corner; y grows downward.
type Entity struct {
	ID     string
	Kind   Kind
	X, Y   float64
	Width  float64
	Height float64
	Shape  Shape
	// Mirror marks a remotely owned entity. Mirrors are written by incoming
	// network state and are not integrated locally.
	Mirror bool

	BerryCount  int
	IsFlying    bool
	IsLaunched  bool
	BirdColor   string
	TreeSide    string
	SpriteIndex int

	radius     float64
	tags       map[string]struct{}
	sealed     bool
	components []Component
	cfg        *Config
}

func newEntity(cfg *Config, kind Kind, shape Shape, x, y, w, h float64, tags ...string) *Entity {
	e := &Entity{
		Kind:   kind,
		X:      x,
		Y:      y,
		Width:  w,
		Height: h,
		Shape:  shape,
		tags:   make(map[string]struct{}, len(tags)),
		cfg:    cfg,
	}
	for _, t := range tags {
		e.AddTag(t)
	}
	return e
}

// Config returns the tuning the entity was built with
func (e *Entity) Config() *Config { return e.cfg }

// AddTag adds an identity tag. Tags are frozen once the constructor returns;
// later calls report false and change nothing.
func (e *Entity) AddTag(tag string) bool {
	if e.sealed {
		return false
	}
	e.tags[tag] = struct{}{}
	return true
}

func (e *Entity) seal() *Entity {
	e.sealed = true
	return e
}

// HasTag reports whether the entity carries tag
func (e *Entity) HasTag(tag string) bool {
	_, ok := e.tags[tag]
	return ok
}

// Tags returns a copy of the tag set
func (e *Entity) Tags() []string {
	out := make([]string, 0, len(e.tags))
	for t := range e.tags {
		out = append(out, t)
	}
	return out
}

// AddComponent attaches c and points its back-reference at e
func (e *Entity) AddComponent(c Component) error {
	if e.Component(c.Kind()) != nil {
		return ErrDuplicateComponent
	}
	c.attach(e)
	e.components = append(e.components, c)
	return nil
}

// mustAdd is used by constructors, which never attach a kind twice
func (e *Entity) mustAdd(cs ...Component) {
	for _, c := range cs {
		if err := e.AddComponent(c); err != nil {
			panic(err)
		}
	}
}

// Component returns the first attached component of kind, or nil
func (e *Entity) Component(kind ComponentKind) Component {
	for _, c := range e.components {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// Components returns the attached components in attachment order
func (e *Entity) Components() []Component {
	return e.components
}

func (e *Entity) Physics() *PhysicsComponent {
	c, _ := e.Component(ComponentPhysics).(*PhysicsComponent)
	return c
}

func (e *Entity) Collider() *ColliderComponent {
	c, _ := e.Component(ComponentCollider).(*ColliderComponent)
	return c
}

func (e *Entity) Damageable() *DamageableComponent {
	c, _ := e.Component(ComponentDamageable).(*DamageableComponent)
	return c
}

func (e *Entity) PoopState() *PoopStateComponent {
	c, _ := e.Component(ComponentPoopState).(*PoopStateComponent)
	return c
}

func (e *Entity) BerryCollectable() *BerryCollectableComponent {
	c, _ := e.Component(ComponentBerryCollectable).(*BerryCollectableComponent)
	return c
}

// MarkedForDeletion reports whether any lifecycle component asked for removal
func (e *Entity) MarkedForDeletion() bool {
	if d := e.Damageable(); d != nil && d.MarkedForDeletion {
		return true
	}
	if p := e.PoopState(); p != nil && p.MarkedForDeletion {
		return true
	}
	if b := e.BerryCollectable(); b != nil && b.MarkedForDeletion {
		return true
	}
	return false
}

// Radius is min(width, height)/2 unless overridden
func (e *Entity) Radius() float64 {
	if e.radius > 0 {
		return e.radius
	}
	return math.Min(e.Width, e.Height) / 2
}

// SetRadius overrides the derived circle radius. Zero restores the default.
func (e *Entity) SetRadius(r float64) {
	e.radius = r
}

// Center returns the geometric center
func (e *Entity) Center() (float64, float64) {
	return e.X + e.Width/2, e.Y + e.Height/2
}

func (e *Entity) setCenter(cx, cy float64) {
	e.X = cx - e.Width/2
	e.Y = cy - e.Height/2
}

func (e *Entity) translate(dx, dy float64) {
	e.X += dx
	e.Y += dy
}

// Speed is the magnitude of the entity's velocity, zero without physics
func (e *Entity) Speed() float64 {
	p := e.Physics()
	if p == nil {
		return 0
	}
	return math.Hypot(p.VX, p.VY)
}

// Health returns the current health, zero if the entity cannot take damage
func (e *Entity) Health() float64 {
	if d := e.Damageable(); d != nil {
		return d.Health
	}
	return 0
}

// IsColliding dispatches on the shape pair. Touching counts as colliding.
func (e *Entity) IsColliding(other *Entity) bool {
	switch {
	case e.Shape == ShapeCircle && other.Shape == ShapeCircle:
		ax, ay := e.Center()
		bx, by := other.Center()
		return CirclesOverlap(ax, ay, e.Radius(), bx, by, other.Radius())
	case e.Shape == ShapeRectangle && other.Shape == ShapeRectangle:
		return RectsOverlap(e.X, e.Y, e.Width, e.Height, other.X, other.Y, other.Width, other.Height)
	case e.Shape == ShapeRectangle:
		cx, cy := other.Center()
		return RectCircleOverlap(e.X, e.Y, e.Width, e.Height, cx, cy, other.Radius())
	default:
		cx, cy := e.Center()
		return RectCircleOverlap(other.X, other.Y, other.Width, other.Height, cx, cy, e.Radius())
	}
}

// Update runs every attached component in attachment order
func (e *Entity) Update(all []*Entity, dt float64) {
	for _, c := range e.components {
		c.Update(all, dt)
	}
	if e.Kind == KindBird {
		col := e.Collider()
		e.IsFlying = col == nil || !col.OnGround
	}
}
