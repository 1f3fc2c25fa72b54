// Package pose 位姿采样与插值：位置线性插值、朝向最短路径球面插值、基于速度的有限外推。
package pose

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"marbleparty/protocol"
)

// NearParallel 两个四元数点积超过该值时退化为线性混合，避免 sinθ 过小
const NearParallel = 0.9995

// Pose 刚体某一时刻的位置、朝向与线速度
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Velocity    mgl64.Vec3
}

// Rest 原点静止、无旋转
func Rest() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// FromUpdate 从线上位姿消息构造
func FromUpdate(u *protocol.PlayerUpdate) Pose {
	return Pose{
		Position:    u.Position.Mgl(),
		Orientation: u.Orientation.Mgl().Normalize(),
		Velocity:    u.Velocity.Mgl(),
	}
}

// FromRecord 从服务端玩家记录构造
func FromRecord(r protocol.PlayerRecord) Pose {
	p := Pose{
		Position:    r.Position.Mgl(),
		Orientation: r.Orientation.Mgl(),
		Velocity:    r.Velocity.Mgl(),
	}
	if p.Orientation.Dot(p.Orientation) == 0 {
		p.Orientation = mgl64.QuatIdent()
	} else {
		p.Orientation = p.Orientation.Normalize()
	}
	return p
}

// Update 转为上行消息；发送前保证朝向为单位四元数
func (p Pose) Update(skin int, captured time.Time) *protocol.PlayerUpdate {
	return &protocol.PlayerUpdate{
		Position:    protocol.VecFrom(p.Position),
		Orientation: protocol.QuatFrom(Normalize(p.Orientation)),
		Velocity:    protocol.VecFrom(p.Velocity),
		SkinIndex:   &skin,
		CaptureTime: captured.UnixMilli(),
	}
}

// Lerp 位置线性插值
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Normalize 归一化；零长度返回单位四元数
func Normalize(q mgl64.Quat) mgl64.Quat {
	l := math.Sqrt(q.Dot(q))
	if l == 0 {
		return mgl64.QuatIdent()
	}
	return q.Scale(1 / l)
}

// Slerp 最短路径球面插值。点积为负时整体取反目标四元数；近平行时线性混合后归一化。
// 结果总是单位四元数。
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	dot := a.Dot(b)
	if dot < 0 {
		b = b.Scale(-1)
		dot = -dot
	}

	var r mgl64.Quat
	if dot > NearParallel {
		r = a.Add(b.Sub(a).Scale(t))
	} else {
		theta := math.Acos(dot)
		sinTheta := math.Sin(theta)
		wa := math.Sin((1-t)*theta) / sinTheta
		wb := math.Sin(t*theta) / sinTheta
		r = a.Scale(wa).Add(b.Scale(wb))
	}
	return Normalize(r)
}

// Extrapolate 沿速度外推 extra 时长，extra 超过 limit 时截断
func Extrapolate(from, vel mgl64.Vec3, extra, limit time.Duration) mgl64.Vec3 {
	if extra > limit {
		extra = limit
	}
	if extra <= 0 {
		return from
	}
	return from.Add(vel.Mul(extra.Seconds()))
}
