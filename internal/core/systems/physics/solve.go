package physics

// SolveCollision applies an elastic response to a pair of overlapping
// bodies. Two dynamic bodies exchange the normal components of their
// velocities and keep their tangential components, each scaled by its own
// bounciness. When one body is static, the dynamic one loses its velocity
// into the obstacle and bounces back by the obstacle bounciness; mtv gives
// the contact normal in that case.
func SolveCollision(a, b *Rigidbody, mtv Vec2) {
	switch {
	case a.Kind == Static && b.Kind == Static:
		return
	case a.Kind == Static:
		bounceOff(b, mtv.Scale(-1), a.Bounciness)
		return
	case b.Kind == Static:
		bounceOff(a, mtv, b.Bounciness)
		return
	}

	n := b.Position.Sub(a.Position).Normalized()
	g := n.RightOrtho()

	v1n := Dot(n, a.Velocity)
	v1g := Dot(g, a.Velocity)
	v2n := Dot(n, b.Velocity)
	v2g := Dot(g, b.Velocity)

	v1 := n.Scale(v2n).Add(g.Scale(v1g))
	v2 := n.Scale(v1n).Add(g.Scale(v2g))

	a.Velocity = v1.Scale(a.Bounciness)
	b.Velocity = v2.Scale(b.Bounciness)
}

// bounceOff removes the velocity of body along toward (pointing from the
// body into the obstacle) and reflects it by bounciness.
func bounceOff(body *Rigidbody, toward Vec2, bounciness float32) {
	n := toward.Normalized()
	if n.SqrLength() == 0 {
		return
	}
	vn := Dot(body.Velocity, n)
	if vn <= 0 {
		return
	}
	body.Velocity = body.Velocity.Sub(n.Scale(float32(vn * (1 + bounciness))))
}

// SolveMTV separates two bodies along mtv. Dynamic pairs move half of it
// each; against a static body the dynamic one moves the full distance.
func SolveMTV(a, b *Rigidbody, mtv Vec2) {
	if mtv.SqrLength() <= 0 {
		return
	}
	switch {
	case a.Kind == Dynamic && b.Kind == Dynamic:
		half := mtv.Scale(0.5)
		a.Position = a.Position.Sub(half)
		b.Position = b.Position.Add(half)
	case a.Kind == Dynamic:
		a.Position = a.Position.Sub(mtv)
	case b.Kind == Dynamic:
		b.Position = b.Position.Add(mtv)
	}
}
