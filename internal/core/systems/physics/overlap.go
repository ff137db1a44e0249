package physics

// shape is the collider of one body as seen by the narrow phase.
type shape struct {
	center  Vec2
	circle  bool
	radius  float32
	half    Vec2
	trigger bool
}

func circleShape(b Rigidbody, c CircleCollider) shape {
	return shape{center: b.Position, circle: true, radius: c.Radius, trigger: c.IsTrigger}
}

func boxShape(b Rigidbody, c BoxCollider) shape {
	return shape{center: b.Position, half: c.HalfExtents, trigger: c.IsTrigger}
}

// overlap tests two shapes. Touching counts as overlapping.
func overlap(a, b shape) (Vec2, bool) {
	switch {
	case a.circle && b.circle:
		return OverlapCircles(a.center, a.radius, b.center, b.radius)
	case a.circle:
		return OverlapCircleBox(a.center, a.radius, b.center, b.half)
	case b.circle:
		mtv, ok := OverlapCircleBox(b.center, b.radius, a.center, a.half)
		return mtv.Scale(-1), ok
	default:
		return OverlapBoxes(a.center, a.half, b.center, b.half)
	}
}

// OverlapCircles tests two circles and returns the MTV pushing b away from a.
func OverlapCircles(ca Vec2, ra float32, cb Vec2, rb float32) (Vec2, bool) {
	d := cb.Sub(ca)
	dist := d.Length()
	sum := ra + rb
	mtv := d.Normalized().Scale(sum - dist)
	return mtv, dist <= sum
}

// OverlapCircleBox tests a circle against an axis aligned box and returns
// the MTV pushing the box away from the circle.
func OverlapCircleBox(c Vec2, r float32, center, half Vec2) (Vec2, bool) {
	closest := Vec2{
		X: clamp(c.X, center.X-half.X, center.X+half.X),
		Y: clamp(c.Y, center.Y-half.Y, center.Y+half.Y),
	}
	d := closest.Sub(c)
	if d.SqrLength() == 0 {
		// Circle centre inside the box: leave through the nearest face.
		delta := center.Sub(c)
		px := half.X + r - abs(delta.X)
		py := half.Y + r - abs(delta.Y)
		if px < py {
			return Vec2{X: sign(delta.X) * px}, true
		}
		return Vec2{Y: sign(delta.Y) * py}, true
	}
	dist := d.Length()
	if dist > r {
		return Vec2{}, false
	}
	return d.Normalized().Scale(r - dist), true
}

// OverlapBoxes tests two axis aligned boxes and returns the MTV along the
// axis of least penetration.
func OverlapBoxes(ca, ha, cb, hb Vec2) (Vec2, bool) {
	delta := cb.Sub(ca)
	px := ha.X + hb.X - abs(delta.X)
	py := ha.Y + hb.Y - abs(delta.Y)
	if px < 0 || py < 0 {
		return Vec2{}, false
	}
	if px < py {
		return Vec2{X: sign(delta.X) * px}, true
	}
	return Vec2{Y: sign(delta.Y) * py}, true
}
