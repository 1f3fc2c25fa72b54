package ghost

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"marbleparty/pose"
)

type stage int

const (
	stageHidden  stage = iota // 已建立状态，等待本关卡第一帧位姿
	stageVisible              // 已显示，正常插值
)

// remote 单个远端玩家在当前关卡的同步状态
type remote struct {
	id    string
	slot  int
	stage stage
	skin  int
	name  string

	prev, target         pose.Pose
	prevTime, targetTime time.Time
}

// ingest 接收一帧位姿：首帧直接对齐，之后 target 前移为 prev
func (r *remote) ingest(p pose.Pose, at time.Time) bool {
	if r.stage == stageHidden {
		r.prev, r.target = p, p
		r.prevTime, r.targetTime = at, at
		r.stage = stageVisible
		return true
	}
	r.prev, r.prevTime = r.target, r.targetTime
	r.target, r.targetTime = p, at
	return false
}

// correct 碰撞修正：以新目标位置重新开始一段插值，朝向保持不变
func (r *remote) correct(position, velocity mgl64.Vec3, at time.Time) {
	r.prev, r.prevTime = r.target, r.targetTime
	r.prev.Orientation = r.target.Orientation
	r.target.Position = position
	r.target.Velocity = velocity
	r.targetTime = at
}

// sample 渲染游标处的位姿；t ≤ 1 插值，t > 1 按目标速度有限外推并保持目标朝向
func (r *remote) sample(cursor time.Time, interval, maxExtra time.Duration) (mgl64.Vec3, mgl64.Quat) {
	span := r.targetTime.Sub(r.prevTime)
	if span <= 0 {
		span = interval
	}
	t := float64(cursor.Sub(r.prevTime)) / float64(span)
	if t < 0 {
		t = 0
	}
	if t <= 1 {
		return pose.Lerp(r.prev.Position, r.target.Position, t),
			pose.Slerp(r.prev.Orientation, r.target.Orientation, t)
	}
	extra := time.Duration((t - 1) * float64(span))
	return pose.Extrapolate(r.target.Position, r.target.Velocity, extra, maxExtra), r.target.Orientation
}
