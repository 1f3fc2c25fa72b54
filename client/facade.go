package client

import (
	"sort"
	"time"

	"golang.org/x/time/rate"

	"marbleparty/identity"
	"marbleparty/logging"
	"marbleparty/pose"
	"marbleparty/protocol"
)

// Transport Facade 依赖的连接能力，由 Session 实现
type Transport interface {
	Send(m protocol.Message) bool
	Open() bool
	Events() <-chan Event
}

// LevelSync 单个关卡生命周期内的同步实例
type LevelSync interface {
	// Seed 关卡开始时以当前玩家表建立远端状态
	Seed(localID string, roster []Peer)
	Handle(msg protocol.Message)
}

// SlotLookup 可选：同步实例按幽灵槽位给未命名玩家编号
type SlotLookup interface {
	Slot(id string) (int, bool)
}

// Hooks 游戏侧扩展点
type Hooks interface {
	// LevelAnnounced 服务端告知需要加载的关卡（init 携带或其他玩家发起切换）
	LevelAnnounced(lvl protocol.Level)
	// Ready 收到 init，本地可以开始参与
	Ready()
	// LocalSkin 本地玩家的皮肤（已按目录取模），关卡开始与切换皮肤时调用
	LocalSkin(index int)
}

// HookFuncs 以函数实现 Hooks，未设置的回调忽略
type HookFuncs struct {
	OnLevel     func(lvl protocol.Level)
	OnReady     func()
	OnLocalSkin func(index int)
}

func (h HookFuncs) LevelAnnounced(lvl protocol.Level) {
	if h.OnLevel != nil {
		h.OnLevel(lvl)
	}
}

func (h HookFuncs) Ready() {
	if h.OnReady != nil {
		h.OnReady()
	}
}

func (h HookFuncs) LocalSkin(index int) {
	if h.OnLocalSkin != nil {
		h.OnLocalSkin(index)
	}
}

// Peer 玩家表镜像中的一项
type Peer struct {
	ID        string
	Name      string
	SkinIndex int
	Pose      pose.Pose
	JoinedAt  int64
	Seq       uint64
}

func peerFrom(r protocol.PlayerRecord) *Peer {
	return &Peer{
		ID:        r.ID,
		Name:      r.Name,
		SkinIndex: r.SkinIndex,
		Pose:      pose.FromRecord(r),
		JoinedAt:  r.JoinedAt,
		Seq:       r.Seq,
	}
}

// ListEntry 玩家列表展示项
type ListEntry struct {
	ID     string
	Name   string
	Host   bool
	Online bool
	Self   bool
}

// Facade 跨关卡存活的连接门面。
// 所有方法只在游戏主循环所在的 goroutine 调用；会话事件经 Pump 在同一 goroutine 内处理。
type Facade struct {
	transport Transport
	prefs     *identity.Prefs
	hooks     Hooks
	limiter   *rate.Limiter

	open   bool
	myID   string
	hostID string
	level  *protocol.Level
	peers  map[string]*Peer
	active LevelSync
}

// NewFacade sendRate 为每秒最多上行的位姿次数
func NewFacade(t Transport, prefs *identity.Prefs, hooks Hooks, sendRate float64) *Facade {
	if hooks == nil {
		hooks = HookFuncs{}
	}
	return &Facade{
		transport: t,
		prefs:     prefs,
		hooks:     hooks,
		limiter:   rate.NewLimiter(rate.Limit(sendRate), 1),
		peers:     make(map[string]*Peer),
	}
}

// Pump 处理邮箱中已到达的全部事件，返回处理数量
func (f *Facade) Pump() int {
	n := 0
	for {
		select {
		case ev := <-f.transport.Events():
			f.dispatch(ev)
			n++
		default:
			return n
		}
	}
}

func (f *Facade) dispatch(ev Event) {
	switch ev.Kind {
	case EventOpen:
		f.open = true
		if name := f.prefs.Name(); name != "" {
			f.transport.Send(&protocol.SetName{Name: name})
		}
	case EventClose:
		// 离线期间不再认为自己或他人是房主，下一次 init 恢复
		f.open = false
		f.hostID = ""
	case EventMessage:
		f.handle(ev.Msg)
	}
}

// handle 先更新镜像，再转交当前关卡实例，最后触发扩展点
func (f *Facade) handle(msg protocol.Message) {
	var announce *protocol.Level
	ready := false

	switch m := msg.(type) {
	case *protocol.Init:
		f.myID = m.ID
		f.hostID = m.HostID
		f.peers = make(map[string]*Peer, len(m.Players))
		for id, rec := range m.Players {
			p := peerFrom(rec)
			p.ID = id
			f.peers[id] = p
		}
		f.level = nil
		if m.Level != nil {
			lvl := *m.Level
			f.level = &lvl
			announce = &lvl
		}
		ready = true
		logging.Log.Infow("session initialised", "id", m.ID, "host", m.IsHost, "players", len(m.Players))
	case *protocol.PlayerJoined:
		p := peerFrom(m.Player)
		p.ID = m.ID
		f.peers[m.ID] = p
	case *protocol.PlayerLeft:
		delete(f.peers, m.ID)
	case *protocol.PlayerUpdate:
		if p, ok := f.peers[m.ID]; ok {
			p.Pose = pose.FromUpdate(m)
			if skin, ok := m.Skin(); ok {
				p.SkinIndex = skin
			}
		}
	case *protocol.Collision:
		for _, c := range m.Pairs {
			if p, ok := f.peers[c.ID]; ok {
				p.Pose.Position = c.Position.Mgl()
				p.Pose.Velocity = c.Velocity.Mgl()
			}
		}
	case *protocol.PlayerName:
		if p, ok := f.peers[m.ID]; ok {
			p.Name = m.Name
		}
	case *protocol.HostChanged:
		f.hostID = m.HostID
	case *protocol.LevelChange:
		lvl := m.Level
		f.level = &lvl
		// 自己发起的切换已在本地加载
		if m.ID != f.myID {
			announce = &lvl
		}
	}

	if f.active != nil {
		f.active.Handle(msg)
	}
	if announce != nil {
		f.hooks.LevelAnnounced(*announce)
	}
	if ready {
		f.hooks.Ready()
	}
}

// Attach 关卡开始：挂接同步实例并以当前玩家表播种，同时应用本地皮肤
func (f *Facade) Attach(ls LevelSync) {
	f.active = ls
	ls.Seed(f.myID, f.Roster())
	f.hooks.LocalSkin(f.SkinIndex())
}

// Detach 关卡卸载；仅当 ls 仍为当前实例时解除
func (f *Facade) Detach(ls LevelSync) {
	if f.active == ls {
		f.active = nil
	}
}

// Roster 按房间加入顺序排列的玩家表（含本地玩家）
func (f *Facade) Roster() []Peer {
	out := make([]Peer, 0, len(f.peers))
	for _, p := range f.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		if out[i].JoinedAt != out[j].JoinedAt {
			return out[i].JoinedAt < out[j].JoinedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PlayerList 本地玩家在首位，其余按加入顺序。
// 远端玩家未命名时按幽灵槽位显示默认名；无槽位信息时按列表位置编号。
func (f *Facade) PlayerList() []ListEntry {
	slots, _ := f.active.(SlotLookup)
	online := f.transport.Open()
	self := f.prefs.Name()
	if self == "" {
		self = "You"
	}
	list := []ListEntry{{
		ID:     f.myID,
		Name:   self,
		Host:   f.myID != "" && f.myID == f.hostID,
		Online: online,
		Self:   true,
	}}
	order := 0
	for _, p := range f.Roster() {
		if p.ID == f.myID {
			continue
		}
		slot := order
		if slots != nil {
			if s, ok := slots.Slot(p.ID); ok {
				slot = s
			}
		}
		order++
		list = append(list, ListEntry{
			ID:     p.ID,
			Name:   identity.DisplayName(p.Name, slot),
			Host:   p.ID == f.hostID,
			Online: online,
		})
	}
	return list
}

// PublishPose 按发送频率节流上行本地位姿；未连接或被节流时返回 false
func (f *Facade) PublishPose(now time.Time, p pose.Pose) bool {
	if !f.transport.Open() {
		return false
	}
	if !f.limiter.AllowN(now, 1) {
		return false
	}
	return f.transport.Send(p.Update(f.prefs.SkinIndex(), now))
}

// RequestLevelChange 仅房主可发起
func (f *Facade) RequestLevelChange(lvl protocol.Level) error {
	if !f.transport.Open() {
		return ErrNotConnected
	}
	if !f.IsHost() {
		return ErrNotHost
	}
	if !f.transport.Send(&protocol.LevelChange{Level: lvl}) {
		return ErrNotConnected
	}
	f.level = &lvl
	return nil
}

func (f *Facade) TakeHost() error {
	if !f.transport.Send(&protocol.TakeHost{}) {
		return ErrNotConnected
	}
	return nil
}

// SetName 规范化并保存；已连接时同步给房间
func (f *Facade) SetName(raw string) (string, error) {
	name, err := f.prefs.SetName(raw)
	if err != nil {
		return "", err
	}
	f.transport.Send(&protocol.SetName{Name: name})
	return name, nil
}

// SetSkin 保存皮肤选择并立即应用到本地球体；远端随下一次位姿上行生效
func (f *Facade) SetSkin(index int) error {
	wrapped := identity.WrapSkin(index, len(identity.Skins))
	if err := f.prefs.SetSkinIndex(wrapped); err != nil {
		return err
	}
	f.hooks.LocalSkin(wrapped)
	return nil
}

// SkinIndex 已保存的皮肤，按目录取模
func (f *Facade) SkinIndex() int {
	return identity.WrapSkin(f.prefs.SkinIndex(), len(identity.Skins))
}

func (f *Facade) LocalID() string { return f.myID }

func (f *Facade) HostID() string { return f.hostID }

func (f *Facade) IsHost() bool { return f.myID != "" && f.myID == f.hostID }

func (f *Facade) Connected() bool { return f.open }

// Level 服务端最近一次告知的关卡
func (f *Facade) Level() (protocol.Level, bool) {
	if f.level == nil {
		return protocol.Level{}, false
	}
	return *f.level, true
}
