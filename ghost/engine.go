// Package ghost 关卡级实体同步：固定容量的幽灵实体池、远端玩家到槽位的映射、
// 位姿快照接收以及每帧的插值/外推渲染。
package ghost

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"marbleparty/client"
	"marbleparty/identity"
	"marbleparty/logging"
	"marbleparty/pose"
	"marbleparty/protocol"
)

const (
	// MaxExtrapolation 更新停滞时最多向前外推的时长
	MaxExtrapolation = 150 * time.Millisecond
	DefaultRadius    = 0.2
)

// Offstage 空闲实体的停放位置
var Offstage = mgl64.Vec3{0, 0, -1000}

// Config 引擎参数
type Config struct {
	Capacity     int           // 幽灵池容量
	SendInterval time.Duration // 名义发送间隔，同时作为渲染回退量
	Skins        []string      // 可选皮肤纹理路径
}

// Collaborators 渲染与物理侧依赖；Body 与 Size 可为空
type Collaborators struct {
	Scene  Scene
	Loader TextureLoader
	Body   LocalBody
	Size   BodySize
}

type slot struct {
	entity Entity
	owner  string
}

// Engine 单个关卡生命周期内的同步实例。
// 与 client.Facade 在同一 goroutine 中使用，不加锁。
type Engine struct {
	cfg  Config
	deps Collaborators
	now  func() time.Time

	localID  string
	textures []Texture
	slots    []slot
	remotes  map[string]*remote
}

func NewEngine(cfg Config, deps Collaborators) *Engine {
	if cfg.Skins == nil {
		cfg.Skins = identity.Skins
	}
	return &Engine{
		cfg:     cfg,
		deps:    deps,
		now:     time.Now,
		remotes: make(map[string]*remote),
	}
}

// InitGhostMarbles 预加载全部皮肤并一次性创建整个幽灵池（隐藏、停放在场外）。
// 必须在关卡渲染图定稿前完成，之后运行期间不再加载资源或创建实体。
func (e *Engine) InitGhostMarbles(ctx context.Context) error {
	e.textures = make([]Texture, 0, len(e.cfg.Skins))
	for _, path := range e.cfg.Skins {
		tex, err := e.deps.Loader.LoadTexture(ctx, path)
		if err != nil {
			return fmt.Errorf("load skin %s: %w", path, err)
		}
		e.textures = append(e.textures, tex)
	}

	e.slots = make([]slot, 0, e.cfg.Capacity)
	for i := 0; i < e.cfg.Capacity; i++ {
		ent, err := e.deps.Scene.NewSphere(fmt.Sprintf("ghost-%d", i), e.Texture(0))
		if err != nil {
			return fmt.Errorf("create ghost %d: %w", i, err)
		}
		park(ent, e.radius())
		e.slots = append(e.slots, slot{entity: ent})
	}
	logging.Log.Infow("ghost pool ready", "capacity", e.cfg.Capacity, "skins", len(e.textures))
	return nil
}

// Texture 皮肤索引对应的纹理，索引按目录长度取模
func (e *Engine) Texture(skin int) Texture {
	if len(e.textures) == 0 {
		return nil
	}
	return e.textures[identity.WrapSkin(skin, len(e.textures))]
}

// Seed 以 Facade 已知的玩家表建立隐藏状态，等待本关卡的第一帧位姿
func (e *Engine) Seed(localID string, roster []client.Peer) {
	e.localID = localID
	for _, p := range roster {
		if p.ID == localID {
			continue
		}
		e.track(p.ID, p.SkinIndex, p.Name)
	}
}

// Handle 处理一条已被 Facade 记录的消息
func (e *Engine) Handle(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Init:
		// 重连后的新会话：丢弃旧 ID 下的全部状态并重新播种
		e.releaseAll()
		e.localID = m.ID
		for id, rec := range m.Players {
			if id == m.ID {
				continue
			}
			e.track(id, rec.SkinIndex, rec.Name)
		}
	case *protocol.PlayerJoined:
		if m.ID != e.localID {
			e.track(m.ID, m.Player.SkinIndex, m.Player.Name)
		}
	case *protocol.PlayerLeft:
		e.release(m.ID)
	case *protocol.PlayerUpdate:
		e.ingest(m)
	case *protocol.PlayerName:
		if r, ok := e.remotes[m.ID]; ok {
			r.name = m.Name
		}
	case *protocol.Collision:
		for _, c := range m.Pairs {
			e.applyCorrection(c)
		}
	}
}

// track 为新玩家分配首个空闲槽位；池满时忽略
func (e *Engine) track(id string, skin int, name string) {
	if _, ok := e.remotes[id]; ok {
		return
	}
	idx, err := e.claim(id)
	if err != nil {
		logging.Log.Warnw("remote player not rendered", "id", id, "error", err)
		return
	}
	e.remotes[id] = &remote{id: id, slot: idx, stage: stageHidden, skin: skin, name: name}
	e.slots[idx].entity.SetTexture(e.Texture(skin))
}

func (e *Engine) claim(id string) (int, error) {
	for i := range e.slots {
		if e.slots[i].owner == "" {
			e.slots[i].owner = id
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %d slots", ErrPoolExhausted, len(e.slots))
}

// release 归还槽位并将实体隐藏、移回场外
func (e *Engine) release(id string) {
	r, ok := e.remotes[id]
	if !ok {
		return
	}
	delete(e.remotes, id)
	s := &e.slots[r.slot]
	s.owner = ""
	park(s.entity, e.radius())
}

func (e *Engine) releaseAll() {
	for id := range e.remotes {
		e.release(id)
	}
}

func (e *Engine) ingest(u *protocol.PlayerUpdate) {
	r, ok := e.remotes[u.ID]
	if !ok {
		return
	}
	if skin, ok := u.Skin(); ok && skin != r.skin {
		r.skin = skin
		e.slots[r.slot].entity.SetTexture(e.Texture(skin))
	}
	if r.ingest(pose.FromUpdate(u), e.now()) {
		e.slots[r.slot].entity.SetVisible(true)
	}
}

// applyCorrection 本地玩家直接写回刚体；远端玩家以修正位置开始新一段插值。
// 尚未显示的远端玩家没有可信朝向，忽略修正，由下一帧位姿显示。
func (e *Engine) applyCorrection(c protocol.Correction) {
	if c.ID == e.localID {
		if b := e.deps.Body; b != nil {
			b.SetPosition(c.Position.Mgl())
			b.SetVelocity(c.Velocity.Mgl())
			b.SyncShapes()
		}
		return
	}
	r, ok := e.remotes[c.ID]
	if !ok || r.stage != stageVisible {
		return
	}
	r.correct(c.Position.Mgl(), c.Velocity.Mgl(), e.now())
}

// Update 每帧调用：渲染游标取 now 减一个发送间隔，更新所有可见幽灵的变换
func (e *Engine) Update(now time.Time) {
	cursor := now.Add(-e.cfg.SendInterval)
	scale := e.radius()
	for _, r := range e.remotes {
		if r.stage != stageVisible {
			continue
		}
		pos, ori := r.sample(cursor, e.cfg.SendInterval, MaxExtrapolation)
		e.slots[r.slot].entity.SetTransform(pos, ori, scale)
	}
}

// Dispose 关卡卸载：清空玩家状态并隐藏全部实体，不影响连接
func (e *Engine) Dispose() {
	e.releaseAll()
	e.localID = ""
}

// Slot 玩家占用的槽位
func (e *Engine) Slot(id string) (int, bool) {
	r, ok := e.remotes[id]
	if !ok {
		return 0, false
	}
	return r.slot, true
}

// Visible 玩家幽灵是否已显示
func (e *Engine) Visible(id string) bool {
	r, ok := e.remotes[id]
	return ok && r.stage == stageVisible
}

// DisplayName 玩家显示名，未命名时为槽位默认名
func (e *Engine) DisplayName(id string) (string, bool) {
	r, ok := e.remotes[id]
	if !ok {
		return "", false
	}
	return identity.DisplayName(r.name, r.slot), true
}

// Tracked 当前占用槽位的远端玩家数
func (e *Engine) Tracked() int { return len(e.remotes) }

func (e *Engine) radius() float64 {
	if e.deps.Size == nil {
		return DefaultRadius
	}
	return e.deps.Size.BodyRadius()
}

func park(ent Entity, scale float64) {
	ent.SetVisible(false)
	ent.SetTransform(Offstage, mgl64.QuatIdent(), scale)
}
