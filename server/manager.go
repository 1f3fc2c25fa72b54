package server

import (
	"context"
	"sync"

	"marbleparty/config"
	"marbleparty/logging"
)

// RoomManager 管理多个房间的生命周期；每个房间一个事件循环协程
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	ctx context.Context
	cfg *config.ServerConfig
}

// NewRoomManager 房间协程随 ctx 结束
func NewRoomManager(ctx context.Context, cfg *config.ServerConfig) *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*Room),
		ctx:   ctx,
		cfg:   cfg,
	}
}

// GetOrCreateRoom 获取或创建房间，并确保事件循环已启动
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(id)
}

func (m *RoomManager) getOrCreateLocked(id string) *Room {
	r, ok := m.rooms[id]
	if !ok {
		r = NewRoom(id, ContactParamsFrom(m.cfg.Contact))
		ctx, cancel := context.WithCancel(m.ctx)
		r.stop = cancel
		r.onVacant = m.vacate
		m.rooms[id] = r
		go r.Run(ctx)
		logging.Log.Infow("room created", "room", id)
	}
	return r
}

// Admit 为新连接预留席位；房间满员时返回 ErrRoomFull。
// 预留与房间移除都在 m.mu 下进行，预留成功的房间不会被回收。
func (m *RoomManager) Admit(id string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.getOrCreateLocked(id)
	if !r.TryReserve(m.cfg.Server.MaxPlayersPerRoom) {
		return nil, ErrRoomFull
	}
	return r, nil
}

// vacate 释放一个席位；最后一个席位释放时移除房间并停止其事件循环
func (m *RoomManager) vacate(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.seats.Add(-1) > 0 {
		return
	}
	if m.rooms[r.ID] != r {
		return
	}
	delete(m.rooms, r.ID)
	r.stop()
	logging.Log.Infow("room closed", "room", r.ID)
}

// Room 查找已存在的房间
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Stats 房间数与在线玩家总数
func (m *RoomManager) Stats() (rooms, players int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms = len(m.rooms)
	for _, r := range m.rooms {
		players += r.Size()
	}
	return rooms, players
}
