package server

import (
	"math"
	"time"

	"marbleparty/config"
	"marbleparty/pose"
)

// ContactParams 两球接触判定与冲量参数（两球等质量、等半径）
type ContactParams struct {
	BodyRadius  float64
	Restitution float64
	SkinMargin  float64
	Epsilon     float64       // 距离平方低于此值视为重合，法线无定义，跳过
	Cooldown    time.Duration // 同一对玩家两次修正的最小间隔
}

// ContactParamsFrom 从配置构造
func ContactParamsFrom(c config.ContactSettings) ContactParams {
	return ContactParams{
		BodyRadius:  c.BodyRadius,
		Restitution: c.Restitution,
		SkinMargin:  c.SkinMargin,
		Epsilon:     c.Epsilon,
		Cooldown:    c.PairCooldown,
	}
}

// ResolveContact 判定 p（刚上报位姿的一方）与 q 是否接触并就地修正二者位置与速度。
// 仅当二者重叠且沿法线相互接近时返回 true。
func ResolveContact(p, q *pose.Pose, c ContactParams) bool {
	d := p.Position.Sub(q.Position)
	distSq := d.Dot(d)
	contactDist := 2 * c.BodyRadius
	if distSq >= contactDist*contactDist || distSq < c.Epsilon {
		return false
	}

	dist := math.Sqrt(distSq)
	n := d.Mul(1 / dist) // 由 q 指向 p

	relVelNormal := p.Velocity.Sub(q.Velocity).Dot(n)
	if relVelNormal >= 0 {
		return false
	}

	// 等质量弹性冲量
	impulse := -(1 + c.Restitution) * relVelNormal / 2
	p.Velocity = p.Velocity.Add(n.Mul(impulse))
	q.Velocity = q.Velocity.Sub(n.Mul(impulse))

	sep := (contactDist-dist)/2 + c.SkinMargin
	p.Position = p.Position.Add(n.Mul(sep))
	q.Position = q.Position.Sub(n.Mul(sep))
	return true
}

// pairKey 无序玩家对
type pairKey struct{ a, b string }

func newPairKey(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}
