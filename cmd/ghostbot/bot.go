package main

import (
	"context"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"marbleparty/ghost"
	"marbleparty/logging"
	"marbleparty/pose"
	"marbleparty/protocol"
)

const (
	normalRadius = 0.2
	ultraRadius  = 0.3
)

// levelSize ultra 关卡使用更大的球体
type levelSize struct{ level protocol.Level }

func (s levelSize) BodyRadius() float64 {
	if s.level.Modification == "ultra" {
		return ultraRadius
	}
	return normalRadius
}

// circlingBody 沿水平圆周匀速运动的脚本刚体；碰撞修正会把它推离轨道，之后重新拉回
type circlingBody struct {
	center mgl64.Vec3
	radius float64
	speed  float64 // rad/s

	angle    float64
	position mgl64.Vec3
	velocity mgl64.Vec3
	pushed   bool
}

func newCirclingBody(center mgl64.Vec3, radius, speed float64) *circlingBody {
	b := &circlingBody{center: center, radius: radius, speed: speed}
	b.place()
	return b
}

func (b *circlingBody) place() {
	s, c := math.Sincos(b.angle)
	b.position = b.center.Add(mgl64.Vec3{c * b.radius, s * b.radius, 0})
	b.velocity = mgl64.Vec3{-s * b.radius * b.speed, c * b.radius * b.speed, 0}
}

// Step 推进 dt；被修正后先沿修正速度滑行一步再回到轨道
func (b *circlingBody) Step(dt time.Duration) {
	if b.pushed {
		b.position = b.position.Add(b.velocity.Mul(dt.Seconds()))
		b.pushed = false
		return
	}
	b.angle = math.Mod(b.angle+b.speed*dt.Seconds(), 2*math.Pi)
	b.place()
}

func (b *circlingBody) Pose() pose.Pose {
	heading := mgl64.QuatRotate(b.angle, mgl64.Vec3{0, 0, 1})
	return pose.Pose{Position: b.position, Orientation: heading, Velocity: b.velocity}
}

func (b *circlingBody) SetPosition(p mgl64.Vec3) { b.position = p }
func (b *circlingBody) SetVelocity(v mgl64.Vec3) { b.velocity = v }

func (b *circlingBody) SyncShapes() {
	b.pushed = true
	logging.Log.Debugw("body corrected", "position", b.position, "velocity", b.velocity)
}

// nullEntity 无渲染环境下记录最近一次变换
type nullEntity struct {
	name    string
	visible bool
	skin    ghost.Texture
	pos     mgl64.Vec3
	scale   float64
}

func (e *nullEntity) SetTexture(tex ghost.Texture) { e.skin = tex }
func (e *nullEntity) SetVisible(v bool)            { e.visible = v }
func (e *nullEntity) SetTransform(pos mgl64.Vec3, _ mgl64.Quat, scale float64) {
	e.pos, e.scale = pos, scale
}

type nullScene struct{ entities []*nullEntity }

func (s *nullScene) NewSphere(name string, tex ghost.Texture) (ghost.Entity, error) {
	e := &nullEntity{name: name, skin: tex}
	s.entities = append(s.entities, e)
	return e, nil
}

// report 输出所有可见幽灵的位置
func (s *nullScene) report() {
	for _, e := range s.entities {
		if !e.visible {
			continue
		}
		logging.Log.Infow("ghost", "entity", e.name, "skin", e.skin, "position", e.pos, "scale", e.scale)
	}
}

// pathLoader 纹理即路径
type pathLoader struct{}

func (pathLoader) LoadTexture(_ context.Context, path string) (ghost.Texture, error) {
	return path, nil
}
