package server

import (
	"time"

	"marbleparty/pose"
	"marbleparty/protocol"
)

// Conn 房间向连接写出数据的抽象（实现方负责异步写出）
type Conn interface {
	// Enqueue 非阻塞入队，队列满时丢弃并返回 false
	Enqueue(b []byte) bool
	Close()
}

// Player 房间内的玩家记录（服务端权威状态，仅保存最近一次位姿）
type Player struct {
	ID        string
	Pose      pose.Pose
	SkinIndex int
	Name      string
	JoinedAt  time.Time
	Captured  int64 // 发送方采样时间戳（原样转发）

	seq  uint64 // 加入顺序，用于确定性地选择继任房主
	Conn Conn
}

// Record 转为线上格式
func (p *Player) Record() protocol.PlayerRecord {
	return protocol.PlayerRecord{
		ID:          p.ID,
		Position:    protocol.VecFrom(p.Pose.Position),
		Orientation: protocol.QuatFrom(p.Pose.Orientation),
		Velocity:    protocol.VecFrom(p.Pose.Velocity),
		SkinIndex:   p.SkinIndex,
		Name:        p.Name,
		JoinedAt:    p.JoinedAt.UnixMilli(),
		Seq:         p.seq,
	}
}

// Update 当前位姿的转发消息
func (p *Player) Update() *protocol.PlayerUpdate {
	skin := p.SkinIndex
	return &protocol.PlayerUpdate{
		ID:          p.ID,
		Position:    protocol.VecFrom(p.Pose.Position),
		Orientation: protocol.QuatFrom(p.Pose.Orientation),
		Velocity:    protocol.VecFrom(p.Pose.Velocity),
		SkinIndex:   &skin,
		CaptureTime: p.Captured,
	}
}

// Correction 碰撞修正条目
func (p *Player) Correction() protocol.Correction {
	return protocol.Correction{
		ID:       p.ID,
		Position: protocol.VecFrom(p.Pose.Position),
		Velocity: protocol.VecFrom(p.Pose.Velocity),
	}
}
