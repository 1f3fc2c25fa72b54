package server

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"marbleparty/pose"
)

var testContact = ContactParams{
	BodyRadius:  0.2,
	Restitution: 0.6,
	SkinMargin:  0.005,
	Epsilon:     0.0001,
}

func body(x, vx float64) pose.Pose {
	p := pose.Rest()
	p.Position = mgl64.Vec3{x, 0, 0}
	p.Velocity = mgl64.Vec3{vx, 0, 0}
	return p
}

func TestResolveContact_Approaching(t *testing.T) {
	a := body(0, 0)
	b := body(0.3, -1)

	assert.True(t, ResolveContact(&b, &a, testContact))

	assert.InDelta(t, -0.2, b.Velocity[0], 1e-12)
	assert.InDelta(t, -0.8, a.Velocity[0], 1e-12)
	assert.InDelta(t, 0.355, b.Position[0], 1e-12)
	assert.InDelta(t, -0.055, a.Position[0], 1e-12)

	// 分离后不再重叠，法向相对速度反号并按恢复系数缩放
	assert.Greater(t, b.Position.Sub(a.Position).Len(), 0.4)
	assert.InDelta(t, 0.6, b.Velocity[0]-a.Velocity[0], 1e-12)
}

func TestResolveContact_NoOp(t *testing.T) {
	tests := []struct {
		name string
		p, q pose.Pose
	}{
		{"separating", body(0.3, 1), body(0, 0)},
		{"sliding", body(0.3, 0), body(0, 0)},
		{"far apart", body(1.0, -5), body(0, 0)},
		{"exactly touching", body(0.4, -1), body(0, 0)},
		{"coincident", body(0, -1), body(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, q := tt.p, tt.q
			assert.False(t, ResolveContact(&p, &q, testContact))
			assert.Equal(t, tt.p, p)
			assert.Equal(t, tt.q, q)
		})
	}
}

func TestResolveContact_IncreasesSeparation(t *testing.T) {
	dirs := []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0.6, 0, 0.8}, {-0.3, 0.4, -0.5}}
	for _, d := range dirs {
		n := d.Normalize()
		p := pose.Rest()
		q := pose.Rest()
		p.Position = n.Mul(0.25)
		p.Velocity = n.Mul(-2).Add(mgl64.Vec3{0.1, 0.2, 0.3})
		q.Velocity = n.Mul(0.5)

		before := p.Position.Sub(q.Position).Len()
		relBefore := p.Velocity.Sub(q.Velocity).Dot(n)
		assert.True(t, ResolveContact(&p, &q, testContact))
		after := p.Position.Sub(q.Position).Len()
		relAfter := p.Velocity.Sub(q.Velocity).Dot(n)

		assert.Greater(t, after, before)
		assert.Less(t, relBefore, 0.0)
		assert.InDelta(t, -testContact.Restitution*relBefore, relAfter, 1e-9)
	}
}

func TestPairKey_Unordered(t *testing.T) {
	assert.Equal(t, newPairKey("a", "b"), newPairKey("b", "a"))
}
