package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	Joins              int64 // 加入次数
	Leaves             int64 // 离开次数
	UpdatesRelayed     int64 // 已转发的位姿更新
	ContactsResolved   int64 // 已下发的碰撞修正
	ContactsSuppressed int64 // 因同一对玩家冷却而跳过的重复修正
	FramesDiscarded    int64 // 解析失败或类型不符被丢弃的帧
	LevelRejected      int64 // 非房主的切关请求
	HostChanges        int64 // 房主变更次数
	SendDrops          int64 // 因发送队列满被丢弃的下行帧
	QueueFull          int64 // 因房间事件队列满被丢弃的上行帧
	Throttled          int64 // 因入站限流被丢弃的上行帧
}

func (m *RoomMetrics) IncJoins()              { atomic.AddInt64(&m.Joins, 1) }
func (m *RoomMetrics) IncLeaves()             { atomic.AddInt64(&m.Leaves, 1) }
func (m *RoomMetrics) IncUpdatesRelayed()     { atomic.AddInt64(&m.UpdatesRelayed, 1) }
func (m *RoomMetrics) IncContacts()           { atomic.AddInt64(&m.ContactsResolved, 1) }
func (m *RoomMetrics) IncContactsSuppressed() { atomic.AddInt64(&m.ContactsSuppressed, 1) }
func (m *RoomMetrics) IncFramesDiscarded()    { atomic.AddInt64(&m.FramesDiscarded, 1) }
func (m *RoomMetrics) IncLevelRejected()      { atomic.AddInt64(&m.LevelRejected, 1) }
func (m *RoomMetrics) IncHostChanges()        { atomic.AddInt64(&m.HostChanges, 1) }
func (m *RoomMetrics) IncSendDrops()          { atomic.AddInt64(&m.SendDrops, 1) }
func (m *RoomMetrics) IncQueueFull()          { atomic.AddInt64(&m.QueueFull, 1) }
func (m *RoomMetrics) IncThrottled()          { atomic.AddInt64(&m.Throttled, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	return map[string]any{
		"joins":               atomic.LoadInt64(&m.Joins),
		"leaves":              atomic.LoadInt64(&m.Leaves),
		"updates_relayed":     atomic.LoadInt64(&m.UpdatesRelayed),
		"contacts_resolved":   atomic.LoadInt64(&m.ContactsResolved),
		"contacts_suppressed": atomic.LoadInt64(&m.ContactsSuppressed),
		"frames_discarded":    atomic.LoadInt64(&m.FramesDiscarded),
		"level_rejected":      atomic.LoadInt64(&m.LevelRejected),
		"host_changes":        atomic.LoadInt64(&m.HostChanges),
		"send_drops":          atomic.LoadInt64(&m.SendDrops),
		"queue_full":          atomic.LoadInt64(&m.QueueFull),
		"throttled":           atomic.LoadInt64(&m.Throttled),
	}
}
