package game

// BerryCollectableComponent lets the first bird to touch a berry collect it
type BerryCollectableComponent struct {
	base
	IsCollected       bool
	MarkedForDeletion bool
}

func (b *BerryCollectableComponent) Kind() ComponentKind { return ComponentBerryCollectable }

// Update scans for a colliding bird. A berry is collected at most once: a second
// candidate in the same tick sees MarkedForDeletion and does nothing.
func (b *BerryCollectableComponent) Update(all []*Entity, _ float64) {
	e := b.owner
	if e == nil || b.MarkedForDeletion {
		return
	}
	for _, other := range all {
		if other.Kind != KindBird || other.MarkedForDeletion() {
			continue
		}
		if e.IsColliding(other) {
			b.Collect(other)
			return
		}
	}
}

// Collect hands the berry to bird and heals it by a fixed fraction of its max
// health. Returns false if the berry was already taken.
func (b *BerryCollectableComponent) Collect(bird *Entity) bool {
	if b.MarkedForDeletion {
		return false
	}
	b.IsCollected = true
	b.MarkedForDeletion = true
	bird.BerryCount++
	if d := bird.Damageable(); d != nil {
		d.Heal(d.MaxHealth * b.owner.cfg.BerryHealFraction)
	}
	return true
}

// PoopStateComponent drives a dropping: it lands on the ground, hurts the stone
// on first contact and disappears after a while on the ground.
type PoopStateComponent struct {
	base
	IsLanded          bool
	MarkedForDeletion bool
	landedFor         float64
}

func (p *PoopStateComponent) Kind() ComponentKind { return ComponentPoopState }

func (p *PoopStateComponent) Update(all []*Entity, dt float64) {
	e := p.owner
	if e == nil || p.MarkedForDeletion {
		return
	}
	for _, other := range all {
		if other.Kind != KindStone || other.MarkedForDeletion() || !e.IsColliding(other) {
			continue
		}
		if d := other.Damageable(); d != nil {
			d.TakeDamage(e.cfg.PoopDamage)
		}
		p.Land()
		p.MarkedForDeletion = true
		return
	}

	if !p.IsLanded {
		if col := e.Collider(); col != nil && col.OnGround {
			p.Land()
		}
		return
	}
	p.landedFor += dt
	if p.landedFor >= e.cfg.PoopLandedTimeout {
		p.MarkedForDeletion = true
	}
}

// Land stops the dropping where it is
func (p *PoopStateComponent) Land() {
	p.IsLanded = true
	if p.owner == nil {
		return
	}
	if ph := p.owner.Physics(); ph != nil {
		ph.VX, ph.VY = 0, 0
		ph.Gravity = 0
	}
}
