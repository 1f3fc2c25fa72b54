package protocol

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 三维向量的线上格式：{"x":..,"y":..,"z":..}
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quat 旋转四元数的线上格式
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuat 无旋转
var IdentityQuat = Quat{W: 1}

func VecFrom(v mgl64.Vec3) Vec3 { return Vec3{X: v[0], Y: v[1], Z: v[2]} }

func (v Vec3) Mgl() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

func QuatFrom(q mgl64.Quat) Quat { return Quat{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W} }

func (q Quat) Mgl() mgl64.Quat { return mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}} }

func (v Vec3) finite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func (q Quat) finite() bool {
	return isFinite(q.X) && isFinite(q.Y) && isFinite(q.Z) && isFinite(q.W)
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Level 关卡标识：关卡路径 + 变体（如 ultra）
type Level struct {
	Path         string `json:"path"`
	Modification string `json:"modification,omitempty"`
}

// PlayerRecord 服务端权威视角下的玩家记录
type PlayerRecord struct {
	ID          string `json:"id"`
	Position    Vec3   `json:"position"`
	Orientation Quat   `json:"orientation"`
	Velocity    Vec3   `json:"velocity"`
	SkinIndex   int    `json:"skinIndex"`
	Name        string `json:"name,omitempty"`
	JoinedAt    int64  `json:"joinedAt"`      // unix ms
	Seq         uint64 `json:"seq,omitempty"` // 房间内加入顺序，毫秒时间戳相同时仍可排序
}
