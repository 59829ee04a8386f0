package game

import "math"

// ComponentKind identifies a component type. An entity holds at most one of each.
type ComponentKind int

const (
	ComponentPhysics ComponentKind = iota
	ComponentCollider
	ComponentDamageable
	ComponentPoopState
	ComponentBerryCollectable
)

// Component is an attachable unit of behavior or state
type Component interface {
	Kind() ComponentKind
	Owner() *Entity
	Update(all []*Entity, dt float64)
	attach(owner *Entity)
}

type base struct {
	owner *Entity
}

func (b *base) attach(owner *Entity) { b.owner = owner }

// Owner is the back-reference to the entity the component is attached to
func (b *base) Owner() *Entity { return b.owner }

// PhysicsComponent integrates velocity under gravity and friction
type PhysicsComponent struct {
	base
	VX, VY   float64
	Gravity  float64
	Friction float64 // velocity multiplier per tick
}

func (p *PhysicsComponent) Kind() ComponentKind { return ComponentPhysics }

// Update applies gravity, friction and moves the owner. Mirrors hold their last
// received state.
func (p *PhysicsComponent) Update(_ []*Entity, dt float64) {
	e := p.owner
	if e == nil || e.Mirror {
		return
	}
	p.VY += p.Gravity * dt
	p.VX *= p.Friction
	p.VY *= p.Friction
	e.X += p.VX * dt
	e.Y += p.VY * dt
}

// SetVelocity is the input collaborator's entry point
func (p *PhysicsComponent) SetVelocity(vx, vy float64) {
	p.VX = vx
	p.VY = vy
}

// DamageableComponent tracks health. Once health reaches zero the entity is
// broken and is swept on the next prune.
type DamageableComponent struct {
	base
	Health            float64
	MaxHealth         float64
	Broken            bool
	MarkedForDeletion bool
}

func (d *DamageableComponent) Kind() ComponentKind { return ComponentDamageable }

// Update catches health written from outside, e.g. by remote state
func (d *DamageableComponent) Update(_ []*Entity, _ float64) {
	if !d.Broken && d.Health <= 0 {
		d.breakApart()
	}
}

// TakeDamage subtracts amount and returns the health actually lost. A mirror
// reports what it would lose but keeps the health its owner last sent.
func (d *DamageableComponent) TakeDamage(amount float64) float64 {
	if d.Broken || amount <= 0 {
		return 0
	}
	lost := math.Min(amount, d.Health)
	if d.mirrored() {
		return lost
	}
	d.Health -= lost
	if d.Health <= 0 {
		d.Health = 0
		d.breakApart()
	}
	return lost
}

// Heal adds amount, capped at MaxHealth. Broken entities stay broken.
func (d *DamageableComponent) Heal(amount float64) {
	if d.Broken || amount <= 0 || d.mirrored() {
		return
	}
	d.Health = math.Min(d.MaxHealth, d.Health+amount)
}

// SetHealth writes health reported by the owning peer. Positive health
// restores an entity that was broken locally.
func (d *DamageableComponent) SetHealth(hp float64) {
	d.Health = hp
	if hp > 0 {
		d.Broken = false
		d.MarkedForDeletion = false
	}
}

func (d *DamageableComponent) mirrored() bool {
	return d.owner != nil && d.owner.Mirror
}

func (d *DamageableComponent) breakApart() {
	d.Broken = true
	d.MarkedForDeletion = true
}
