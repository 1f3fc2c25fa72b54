package server

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"marbleparty/identity"
	"marbleparty/logging"
	"marbleparty/pose"
	"marbleparty/protocol"
)

// Room 房间权威：维护玩家表、房主与当前关卡；所有状态只在房间协程内修改
type Room struct {
	ID string

	players  map[string]*Player
	hostID   string
	level    *protocol.Level
	contact  ContactParams
	resolved map[pairKey]time.Time // 每对玩家最近一次接触修正时间
	nextSeq  uint64

	events chan any
	done   chan struct{}
	size   atomic.Int32
	now    func() time.Time

	seats    atomic.Int32 // 已占用席位：在线玩家加上已预留、尚未加入的连接
	onVacant func(r *Room)
	stop     context.CancelFunc

	metrics *RoomMetrics
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, contact ContactParams) *Room {
	return &Room{
		ID:       id,
		players:  make(map[string]*Player),
		contact:  contact,
		resolved: make(map[pairKey]time.Time),
		events:   make(chan any, 256), // 足够缓冲，避免网络读阻塞
		done:     make(chan struct{}),
		now:      time.Now,
		metrics:  &RoomMetrics{},
	}
}

// Join 请求加入；阻塞入队，保证先于该连接的任何消息帧被处理
func (r *Room) Join(id string, conn Conn) error {
	return r.enqueue(joinEvent{id: id, conn: conn})
}

// Leave 请求移除玩家
func (r *Room) Leave(id string) {
	_ = r.enqueue(leaveEvent{id: id})
}

// Deliver 投递一帧上行消息；队列满时丢弃
func (r *Room) Deliver(id string, data []byte) bool {
	select {
	case r.events <- frameEvent{id: id, data: data}:
		return true
	default:
		r.metrics.IncQueueFull()
		return false
	}
}

// Do 在房间协程中执行 fn 并等待完成
func (r *Room) Do(fn func(r *Room)) error {
	ev := callEvent{fn: fn, done: make(chan struct{})}
	if err := r.enqueue(ev); err != nil {
		return err
	}
	select {
	case <-ev.done:
		return nil
	case <-r.done:
		return ErrRoomStopped
	}
}

func (r *Room) enqueue(ev any) error {
	select {
	case <-r.done:
		return ErrRoomStopped
	default:
	}
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrRoomStopped
	}
}

// TryReserve 升级连接前原子地占用一个席位，已满时返回 false
func (r *Room) TryReserve(limit int) bool {
	for {
		n := r.seats.Load()
		if int(n) >= limit {
			return false
		}
		if r.seats.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Size 当前玩家数（可跨协程读取）
func (r *Room) Size() int { return int(r.size.Load()) }

// Metrics 运行指标
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// Contact 当前接触参数（仅限房间协程内调用，外部使用 Do）
func (r *Room) Contact() ContactParams { return r.contact }

// SetContact 更新接触参数（仅限房间协程内调用）
func (r *Room) SetContact(c ContactParams) { r.contact = c }

func (r *Room) join(id string, conn Conn) {
	if _, exists := r.players[id]; exists {
		return
	}
	r.nextSeq++
	p := &Player{
		ID:       id,
		Pose:     pose.Rest(),
		JoinedAt: r.now(),
		seq:      r.nextSeq,
		Conn:     conn,
	}
	r.players[id] = p
	r.size.Store(int32(len(r.players)))
	r.metrics.IncJoins()

	if r.hostID == "" {
		r.hostID = id
		r.metrics.IncHostChanges()
	}

	snapshot := make(map[string]protocol.PlayerRecord, len(r.players))
	for pid, other := range r.players {
		snapshot[pid] = other.Record()
	}
	initMsg := &protocol.Init{
		ID:      id,
		IsHost:  r.hostID == id,
		HostID:  r.hostID,
		Players: snapshot,
	}
	if r.level != nil {
		lvl := *r.level
		initMsg.Level = &lvl
	}
	r.send(p, initMsg)
	r.broadcast(&protocol.PlayerJoined{ID: id, Player: p.Record()}, id)

	logging.Log.Infow("player joined", "room", r.ID, "player", id, "host", r.hostID, "players", len(r.players))
}

func (r *Room) leave(id string) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	delete(r.players, id)
	r.size.Store(int32(len(r.players)))
	r.metrics.IncLeaves()
	if p.Conn != nil {
		p.Conn.Close()
	}
	for key := range r.resolved {
		if key.a == id || key.b == id {
			delete(r.resolved, key)
		}
	}

	if r.hostID == id {
		r.hostID = ""
		if next := r.successor(); next != nil {
			r.hostID = next.ID
			r.metrics.IncHostChanges()
			r.broadcast(&protocol.HostChanged{HostID: next.ID}, "")
			logging.Log.Infow("host reassigned", "room", r.ID, "from", id, "to", next.ID)
		}
	}
	if len(r.players) == 0 {
		r.level = nil
	}
	r.broadcast(&protocol.PlayerLeft{ID: id}, "")

	logging.Log.Infow("player left", "room", r.ID, "player", id, "players", len(r.players))
	if r.onVacant != nil {
		r.onVacant(r)
	}
}

// successor 最早加入的在线玩家继任房主
func (r *Room) successor() *Player {
	var best *Player
	for _, p := range r.players {
		if best == nil || p.seq < best.seq {
			best = p
		}
	}
	return best
}

// ordered 按加入顺序返回玩家，保证接触检测顺序确定
func (r *Room) ordered() []*Player {
	list := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	return list
}

func (r *Room) handleFrame(id string, data []byte) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		r.metrics.IncFramesDiscarded()
		logging.Log.Debugw("frame discarded", "room", r.ID, "player", id, "error", err)
		return
	}

	switch m := msg.(type) {
	case *protocol.PlayerUpdate:
		r.updatePose(p, m)
	case *protocol.SetName:
		r.setName(p, m.Name)
	case *protocol.LevelChange:
		if err := r.changeLevel(p, m.Level); err != nil {
			logging.Log.Infow("level change rejected", "room", r.ID, "player", id, "error", err)
		}
	case *protocol.TakeHost:
		r.takeHost(p)
	default:
		// 仅服务端下发的类型，客户端上行时丢弃
		r.metrics.IncFramesDiscarded()
		logging.Log.Debugw("unexpected kind from client", "room", r.ID, "player", id, "kind", msg.Kind())
	}
}

func (r *Room) updatePose(p *Player, u *protocol.PlayerUpdate) {
	p.Pose = pose.FromUpdate(u)
	p.Captured = u.CaptureTime
	if skin, ok := u.Skin(); ok {
		p.SkinIndex = skin
	}
	r.resolveContacts(p)
	r.broadcast(p.Update(), p.ID)
	r.metrics.IncUpdatesRelayed()
}

// resolveContacts 仅检测刚上报位姿的玩家与其他玩家，代价 O(players)
func (r *Room) resolveContacts(p *Player) {
	now := r.now()
	for _, q := range r.ordered() {
		if q.ID == p.ID {
			continue
		}
		pp, qp := p.Pose, q.Pose
		if !ResolveContact(&pp, &qp, r.contact) {
			continue
		}
		key := newPairKey(p.ID, q.ID)
		if last, ok := r.resolved[key]; ok && now.Sub(last) < r.contact.Cooldown {
			r.metrics.IncContactsSuppressed()
			continue
		}
		p.Pose, q.Pose = pp, qp
		r.resolved[key] = now
		r.metrics.IncContacts()

		r.broadcast(&protocol.Collision{Pairs: []protocol.Correction{p.Correction(), q.Correction()}}, "")
		logging.Log.Debugw("contact resolved", "room", r.ID, "a", p.ID, "b", q.ID)
	}
}

func (r *Room) setName(p *Player, raw string) {
	p.Name = identity.SanitizeName(raw)
	r.broadcast(&protocol.PlayerName{ID: p.ID, Name: p.Name}, "")
}

func (r *Room) changeLevel(p *Player, lvl protocol.Level) error {
	if p.ID != r.hostID {
		r.metrics.IncLevelRejected()
		return ErrNotHost
	}
	r.level = &lvl
	r.broadcast(&protocol.LevelChange{ID: p.ID, Level: lvl}, "")
	logging.Log.Infow("level changed", "room", r.ID, "host", p.ID, "path", lvl.Path, "modification", lvl.Modification)
	return nil
}

// takeHost 任何玩家都可无条件接管房主
func (r *Room) takeHost(p *Player) {
	r.hostID = p.ID
	r.metrics.IncHostChanges()
	r.broadcast(&protocol.HostChanged{HostID: p.ID}, "")
	logging.Log.Infow("host taken", "room", r.ID, "player", p.ID)
}

func (r *Room) send(p *Player, msg protocol.Message) {
	b, err := protocol.Encode(msg)
	if err != nil {
		logging.Log.Errorw("encode failed", "room", r.ID, "kind", msg.Kind(), "error", err)
		return
	}
	r.deliver(p, b)
}

// broadcast 编码一次，发给 except 之外的所有玩家
func (r *Room) broadcast(msg protocol.Message, except string) {
	b, err := protocol.Encode(msg)
	if err != nil {
		logging.Log.Errorw("encode failed", "room", r.ID, "kind", msg.Kind(), "error", err)
		return
	}
	for id, p := range r.players {
		if id == except {
			continue
		}
		r.deliver(p, b)
	}
}

func (r *Room) deliver(p *Player, b []byte) {
	if p.Conn == nil {
		return
	}
	if !p.Conn.Enqueue(b) {
		r.metrics.IncSendDrops()
	}
}
