package game

import "math"

// separationSlop keeps a resolved pair from re-touching through rounding
const separationSlop = 1e-6

// ColliderComponent keeps its owner inside the world and resolves overlaps
// against every other live collidable entity.
type ColliderComponent struct {
	base
	OnGround bool
}

func (c *ColliderComponent) Kind() ComponentKind { return ComponentCollider }

// Update clamps the owner to the world, then runs the pairwise pass.
// The broad phase is exhaustive: a match holds a handful of entities.
func (c *ColliderComponent) Update(all []*Entity, _ float64) {
	e := c.owner
	if e == nil || e.MarkedForDeletion() {
		return
	}
	c.OnGround = false
	c.CheckBounds()
	if !isPhysical(e) {
		return
	}
	for _, other := range all {
		if other == e || other.Collider() == nil || !isPhysical(other) || other.MarkedForDeletion() {
			continue
		}
		if !e.IsColliding(other) {
			continue
		}
		c.applyImpact(other)
		c.resolve(other)
	}
}

// isPhysical is false for pickups and droppings; their components handle contact
func isPhysical(e *Entity) bool {
	return e.PoopState() == nil && e.BerryCollectable() == nil
}

// CheckBounds clamps the owner into the play space. Circles test center±radius
// against a floor raised by FloorOffset; rectangles test their box.
func (c *ColliderComponent) CheckBounds() {
	e := c.owner
	if e == nil {
		return
	}
	cfg := e.cfg
	p := e.Physics()

	// allowed range of the top-left corner
	var minX, maxX, minY, maxY float64
	if e.Shape == ShapeCircle {
		r := e.Radius()
		minX = r - e.Width/2
		maxX = cfg.WorldWidth - r - e.Width/2
		minY = r - e.Height/2
		maxY = cfg.WorldHeight - cfg.FloorOffset - r - e.Height/2
	} else {
		maxX = cfg.WorldWidth - e.Width
		maxY = cfg.WorldHeight - e.Height
	}

	if e.X < minX {
		e.X = minX
		if p != nil && p.VX < 0 {
			p.VX *= -cfg.Bounce
		}
	} else if e.X > maxX {
		e.X = maxX
		if p != nil && p.VX > 0 {
			p.VX *= -cfg.Bounce
		}
	}

	if e.Y < minY {
		e.Y = minY
		if p != nil && p.VY < 0 {
			p.VY *= -cfg.Bounce
		}
	} else if e.Y >= maxY {
		e.Y = maxY
		c.OnGround = true
		if p != nil && p.VY > 0 {
			p.VY = c.settle(p.VY)
		}
	}
}

// settle stops a slow hit outright and reflects a fast one. Without the
// threshold a resting body would keep bouncing by ever smaller amounts.
func (c *ColliderComponent) settle(v float64) float64 {
	cfg := c.owner.cfg
	if math.Abs(v) < cfg.RestThreshold {
		return 0
	}
	return -v * cfg.Bounce
}

// applyImpact converts the owner's speed into damage on other. Birds never hurt
// birds or the stone; a stone hitting a bird heals by what the bird lost.
func (c *ColliderComponent) applyImpact(other *Entity) {
	e := c.owner
	if e.Kind == KindBird && (other.Kind == KindBird || other.Kind == KindStone) {
		return
	}
	dmg := other.Damageable()
	if dmg == nil || dmg.Broken {
		return
	}
	impact := e.Speed()
	lost := dmg.TakeDamage(impact * e.cfg.DamageMultiplier)
	if lost > 0 && e.Kind == KindStone && other.Kind == KindBird {
		if own := e.Damageable(); own != nil {
			own.Heal(lost)
		}
	}
}

func (c *ColliderComponent) resolve(other *Entity) {
	e := c.owner
	switch {
	case e.Shape == ShapeCircle && other.Shape == ShapeCircle:
		c.resolveCircles(other)
	case e.Shape == ShapeRectangle && other.Shape == ShapeRectangle:
		c.resolveRects(other)
	default:
		c.resolveMixed(other)
	}
}

// resolveCircles splits the interpenetration between the movable members of the
// pair along the connecting vector and reflects the approaching velocity
// components by ContactRestitution.
func (c *ColliderComponent) resolveCircles(other *Entity) {
	e := c.owner
	ax, ay := e.Center()
	bx, by := other.Center()
	dx, dy := ax-bx, ay-by
	d := math.Hypot(dx, dy)
	overlap := e.Radius() + other.Radius() - d
	if overlap < 0 {
		return
	}
	nx, ny := 0.0, -1.0
	if d > 0 {
		nx, ny = dx/d, dy/d
	}
	selfShare, otherShare := moveShares(e, other)
	if selfShare+otherShare == 0 {
		return
	}
	push := overlap + separationSlop
	e.translate(nx*push*selfShare, ny*push*selfShare)
	other.translate(-nx*push*otherShare, -ny*push*otherShare)

	rest := e.cfg.ContactRestitution
	if p := e.Physics(); p != nil {
		reflectAlong(p, nx, ny, rest)
	}
	if p := other.Physics(); p != nil {
		reflectAlong(p, -nx, -ny, rest)
	}
	if ny < -0.5 && selfShare > 0 {
		c.OnGround = true
	}
}

// resolveRects snaps the owner to contact along the axis of least overlap
func (c *ColliderComponent) resolveRects(other *Entity) {
	e := c.owner
	p := e.Physics()
	if p == nil {
		return
	}
	overlapX := math.Min(e.X+e.Width, other.X+other.Width) - math.Max(e.X, other.X)
	overlapY := math.Min(e.Y+e.Height, other.Y+other.Height) - math.Max(e.Y, other.Y)
	if overlapX < 0 || overlapY < 0 {
		return
	}
	ecx, ecy := e.Center()
	ocx, ocy := other.Center()
	if overlapX < overlapY {
		if ecx < ocx {
			e.X = other.X - e.Width
			if p.VX > 0 {
				p.VX = c.settle(p.VX)
			}
		} else {
			e.X = other.X + other.Width
			if p.VX < 0 {
				p.VX = c.settle(p.VX)
			}
		}
		return
	}
	if ecy < ocy {
		e.Y = other.Y - e.Height
		c.OnGround = true
		if p.VY > 0 {
			p.VY = c.settle(p.VY)
		}
	} else {
		e.Y = other.Y + other.Height
		if p.VY < 0 {
			p.VY = c.settle(p.VY)
		}
	}
}

// resolveMixed pushes along the dominant center-delta axis by the overlap of the
// bounding extents. This separates the pair in one step instead of nudging by a
// fixed small amount each tick.
func (c *ColliderComponent) resolveMixed(other *Entity) {
	e := c.owner
	ecx, ecy := e.Center()
	ocx, ocy := other.Center()
	ehx, ehy := halfExtents(e)
	ohx, ohy := halfExtents(other)
	dx, dy := ecx-ocx, ecy-ocy
	sx, sy := ehx+ohx, ehy+ohy

	mover, sign := e, 1.0
	if e.Physics() == nil {
		if other.Physics() == nil {
			return
		}
		mover, sign = other, -1.0
	}
	p := mover.Physics()

	if math.Abs(dx)/sx > math.Abs(dy)/sy {
		push := sx - math.Abs(dx)
		if push <= 0 {
			return
		}
		dir := sign * direction(dx, 1)
		mover.X += dir * push
		if p.VX*dir < 0 {
			p.VX = c.settle(p.VX)
		}
		return
	}

	push := sy - math.Abs(dy)
	if push <= 0 {
		return
	}
	dir := sign * direction(dy, -1)
	mover.Y += dir * push
	if dir < 0 {
		if col := mover.Collider(); col != nil {
			col.OnGround = true
		}
	}
	if p.VY*dir < 0 {
		p.VY = c.settle(p.VY)
	}
}

func halfExtents(e *Entity) (float64, float64) {
	if e.Shape == ShapeCircle {
		r := e.Radius()
		return r, r
	}
	return e.Width / 2, e.Height / 2
}

// direction is the sign of v, or fallback when v is zero
func direction(v, fallback float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return fallback
}

func moveShares(a, b *Entity) (float64, float64) {
	am, bm := a.Physics() != nil, b.Physics() != nil
	switch {
	case am && bm:
		return 0.5, 0.5
	case am:
		return 1, 0
	case bm:
		return 0, 1
	}
	return 0, 0
}

// reflectAlong removes the velocity component heading against normal n and
// sends back the fraction rest of it.
func reflectAlong(p *PhysicsComponent, nx, ny, rest float64) {
	vn := p.VX*nx + p.VY*ny
	if vn >= 0 {
		return
	}
	k := (1 + rest) * vn
	p.VX -= k * nx
	p.VY -= k * ny
}
