package ghost

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
)

// Texture 渲染侧的纹理句柄，引擎只负责传递
type Texture any

// TextureLoader 异步加载纹理资源
type TextureLoader interface {
	LoadTexture(ctx context.Context, path string) (Texture, error)
}

// Entity 预创建的占位渲染实体（带纹理的球体）
type Entity interface {
	SetTexture(tex Texture)
	SetVisible(visible bool)
	SetTransform(pos mgl64.Vec3, ori mgl64.Quat, scale float64)
}

// Scene 在关卡渲染图定稿前创建实体
type Scene interface {
	NewSphere(name string, tex Texture) (Entity, error)
}

// LocalBody 本地物理模拟中的玩家刚体
type LocalBody interface {
	SetPosition(p mgl64.Vec3)
	SetVelocity(v mgl64.Vec3)
	// SyncShapes 位置被外部改写后同步碰撞形状
	SyncShapes()
}

// BodySize 当前关卡的玩家球体半径（ultra 关卡更大）
type BodySize interface {
	BodyRadius() float64
}

// FixedSize 固定半径
type FixedSize float64

func (s FixedSize) BodyRadius() float64 { return float64(s) }
