package ghost

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marbleparty/client"
	"marbleparty/protocol"
)

type fakeEntity struct {
	name    string
	tex     Texture
	visible bool
	pos     mgl64.Vec3
	ori     mgl64.Quat
	scale   float64
}

func (f *fakeEntity) SetTexture(tex Texture) { f.tex = tex }
func (f *fakeEntity) SetVisible(v bool)      { f.visible = v }
func (f *fakeEntity) SetTransform(pos mgl64.Vec3, ori mgl64.Quat, scale float64) {
	f.pos, f.ori, f.scale = pos, ori, scale
}

type fakeScene struct{ entities []*fakeEntity }

func (s *fakeScene) NewSphere(name string, tex Texture) (Entity, error) {
	e := &fakeEntity{name: name, tex: tex, visible: true}
	s.entities = append(s.entities, e)
	return e, nil
}

type pathLoader struct{ fail string }

func (l pathLoader) LoadTexture(_ context.Context, path string) (Texture, error) {
	if path == l.fail {
		return nil, errors.New("404")
	}
	return "tex:" + path, nil
}

type fakeBody struct {
	pos, vel mgl64.Vec3
	synced   int
}

func (b *fakeBody) SetPosition(p mgl64.Vec3) { b.pos = p }
func (b *fakeBody) SetVelocity(v mgl64.Vec3) { b.vel = v }
func (b *fakeBody) SyncShapes()              { b.synced++ }

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

const interval = 100 * time.Millisecond

type harness struct {
	engine *Engine
	scene  *fakeScene
	body   *fakeBody
	clock  *clock
}

func newHarness(t *testing.T, capacity int) *harness {
	t.Helper()
	h := &harness{
		scene: &fakeScene{},
		body:  &fakeBody{},
		clock: &clock{t: time.Unix(5000, 0)},
	}
	h.engine = NewEngine(Config{
		Capacity:     capacity,
		SendInterval: interval,
		Skins:        []string{"a.png", "b.png", "c.png"},
	}, Collaborators{
		Scene:  h.scene,
		Loader: pathLoader{},
		Body:   h.body,
		Size:   FixedSize(0.2),
	})
	h.engine.now = h.clock.now
	require.NoError(t, h.engine.InitGhostMarbles(context.Background()))
	return h
}

func (h *harness) entity(t *testing.T, id string) *fakeEntity {
	t.Helper()
	idx, ok := h.engine.Slot(id)
	require.True(t, ok, "no slot for %s", id)
	return h.scene.entities[idx]
}

func update(id string, x float64, vel mgl64.Vec3) *protocol.PlayerUpdate {
	return &protocol.PlayerUpdate{
		ID:          id,
		Position:    protocol.Vec3{X: x},
		Orientation: protocol.IdentityQuat,
		Velocity:    protocol.VecFrom(vel),
	}
}

func joined(id string, skin int) *protocol.PlayerJoined {
	return &protocol.PlayerJoined{ID: id, Player: protocol.PlayerRecord{ID: id, SkinIndex: skin}}
}

func TestInitGhostMarbles_PoolParkedAndHidden(t *testing.T) {
	h := newHarness(t, 4)
	require.Len(t, h.scene.entities, 4)
	for _, e := range h.scene.entities {
		assert.False(t, e.visible)
		assert.Equal(t, Offstage, e.pos)
		assert.Equal(t, "tex:a.png", e.tex)
	}
}

func TestInitGhostMarbles_TextureFailure(t *testing.T) {
	e := NewEngine(Config{Capacity: 2, Skins: []string{"a.png", "b.png"}}, Collaborators{
		Scene:  &fakeScene{},
		Loader: pathLoader{fail: "b.png"},
	})
	err := e.InitGhostMarbles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.png")
}

func TestEngine_StateMachine(t *testing.T) {
	h := newHarness(t, 2)
	h.engine.Seed("me", []client.Peer{{ID: "me"}, {ID: "b", SkinIndex: 1}})

	ent := h.entity(t, "b")
	assert.False(t, h.engine.Visible("b"), "seeded players wait for a pose")
	assert.Equal(t, "tex:b.png", ent.tex)

	h.engine.Update(h.clock.now())
	assert.Equal(t, Offstage, ent.pos, "hidden ghosts are not moved")

	h.engine.Handle(update("b", 7, mgl64.Vec3{}))
	assert.True(t, h.engine.Visible("b"))
	assert.True(t, ent.visible)

	// 首帧直接对齐，无插值过渡
	h.engine.Update(h.clock.now())
	assert.InDelta(t, 7, ent.pos[0], 1e-9)
	assert.Equal(t, 0.2, ent.scale)

	h.engine.Handle(&protocol.PlayerLeft{ID: "b"})
	assert.Equal(t, 0, h.engine.Tracked())
	assert.False(t, ent.visible)
	assert.Equal(t, Offstage, ent.pos)
}

func TestEngine_LocalPlayerNotTracked(t *testing.T) {
	h := newHarness(t, 2)
	h.engine.Handle(&protocol.Init{ID: "me", Players: map[string]protocol.PlayerRecord{
		"me": {ID: "me"},
		"b":  {ID: "b"},
	}})
	h.engine.Handle(joined("me", 0))
	assert.Equal(t, 1, h.engine.Tracked())
	_, ok := h.engine.Slot("me")
	assert.False(t, ok)
}

func TestEngine_InterpolatesMidpoint(t *testing.T) {
	h := newHarness(t, 1)
	h.engine.Seed("me", nil)
	h.engine.Handle(joined("b", 0))

	t0 := h.clock.now()
	h.engine.Handle(update("b", 0, mgl64.Vec3{}))
	h.clock.advance(interval)
	h.engine.Handle(update("b", 10, mgl64.Vec3{}))

	// 游标 = now - interval = t0 + interval/2
	h.engine.Update(t0.Add(interval/2 + interval))
	assert.InDelta(t, 5, h.entity(t, "b").pos[0], 1e-9)
}

func TestEngine_SlerpsOrientation(t *testing.T) {
	h := newHarness(t, 1)
	h.engine.Seed("me", []client.Peer{{ID: "b"}})

	t0 := h.clock.now()
	h.engine.Handle(update("b", 0, mgl64.Vec3{}))
	h.clock.advance(interval)
	turned := update("b", 0, mgl64.Vec3{})
	turned.Orientation = protocol.QuatFrom(mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	h.engine.Handle(turned)

	h.engine.Update(t0.Add(interval/2 + interval))
	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	got := h.entity(t, "b").ori
	assert.InDelta(t, 1, math.Abs(got.Dot(want)), 1e-9)
}

func TestEngine_ExtrapolationCapped(t *testing.T) {
	h := newHarness(t, 1)
	h.engine.Seed("me", []client.Peer{{ID: "b"}})
	vel := mgl64.Vec3{2, 0, 0}
	turned := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})

	t0 := h.clock.now()
	h.engine.Handle(update("b", 0, vel))
	h.clock.advance(interval)
	target := update("b", 1, vel)
	target.Orientation = protocol.QuatFrom(turned)
	h.engine.Handle(target)

	// 游标超出目标 50ms：外推 0.1，朝向停在目标
	h.engine.Update(t0.Add(interval + 50*time.Millisecond + interval))
	ent := h.entity(t, "b")
	assert.InDelta(t, 1.1, ent.pos[0], 1e-9)
	assert.InDelta(t, 1, ent.ori.Dot(turned), 1e-9)

	// 长时间停滞：截断在 0.15s，朝向不再变化
	h.engine.Update(t0.Add(10 * time.Second))
	assert.InDelta(t, 1+2*MaxExtrapolation.Seconds(), ent.pos[0], 1e-9)
	assert.InDelta(t, 1, ent.ori.Dot(turned), 1e-9)
}

func TestEngine_PoolExhaustion(t *testing.T) {
	const capacity = 3
	h := newHarness(t, capacity)
	h.engine.Seed("me", nil)
	for i := 0; i <= capacity; i++ {
		h.engine.Handle(joined(fmt.Sprintf("p%d", i), i))
	}
	assert.Equal(t, capacity, h.engine.Tracked())
	_, ok := h.engine.Slot(fmt.Sprintf("p%d", capacity))
	assert.False(t, ok, "excess player gets no ghost")

	// 超出的玩家的更新不影响其他槽位
	h.engine.Handle(update(fmt.Sprintf("p%d", capacity), 9, mgl64.Vec3{}))
	seen := map[int]bool{}
	for i := 0; i < capacity; i++ {
		idx, ok := h.engine.Slot(fmt.Sprintf("p%d", i))
		require.True(t, ok)
		assert.False(t, seen[idx])
		seen[idx] = true
		assert.False(t, h.scene.entities[idx].visible)
	}

	// 释放后首个空闲槽位分配给新玩家
	h.engine.Handle(&protocol.PlayerLeft{ID: "p1"})
	h.engine.Handle(joined("late", 0))
	idx, ok := h.engine.Slot("late")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestEngine_SkinSwapWraps(t *testing.T) {
	h := newHarness(t, 1)
	h.engine.Seed("me", []client.Peer{{ID: "b"}})
	u := update("b", 0, mgl64.Vec3{})
	skin := 5
	u.SkinIndex = &skin
	h.engine.Handle(u)
	assert.Equal(t, "tex:c.png", h.entity(t, "b").tex)

	skin = -1
	h.engine.Handle(u)
	assert.Equal(t, "tex:c.png", h.entity(t, "b").tex)
	assert.Equal(t, "tex:a.png", h.engine.Texture(3))
}

func TestEngine_LocalCorrectionWritesBody(t *testing.T) {
	h := newHarness(t, 1)
	h.engine.Seed("me", nil)
	h.engine.Handle(&protocol.Collision{Pairs: []protocol.Correction{
		{ID: "me", Position: protocol.Vec3{X: 1, Y: 2}, Velocity: protocol.Vec3{Z: -3}},
	}})
	assert.Equal(t, mgl64.Vec3{1, 2, 0}, h.body.pos)
	assert.Equal(t, mgl64.Vec3{0, 0, -3}, h.body.vel)
	assert.Equal(t, 1, h.body.synced)
}

func TestEngine_RemoteCorrectionRestartsInterpolation(t *testing.T) {
	h := newHarness(t, 1)
	h.engine.Seed("me", []client.Peer{{ID: "b"}})

	t0 := h.clock.now()
	h.engine.Handle(update("b", 0, mgl64.Vec3{}))
	h.clock.advance(interval)
	h.engine.Handle(update("b", 4, mgl64.Vec3{}))
	h.clock.advance(20 * time.Millisecond)
	h.engine.Handle(&protocol.Collision{Pairs: []protocol.Correction{
		{ID: "b", Position: protocol.Vec3{X: 6}, Velocity: protocol.Vec3{X: -1}},
	}})

	// 新一段从 4 (t0+100ms) 到 6 (t0+120ms)
	h.engine.Update(t0.Add(110*time.Millisecond + interval))
	assert.InDelta(t, 5, h.entity(t, "b").pos[0], 1e-9)
}

func TestEngine_CorrectionIgnoredWhileHidden(t *testing.T) {
	h := newHarness(t, 1)
	h.engine.Seed("me", []client.Peer{{ID: "b"}})
	h.engine.Handle(&protocol.Collision{Pairs: []protocol.Correction{
		{ID: "b", Position: protocol.Vec3{X: 6}},
		{ID: "gone", Position: protocol.Vec3{X: 1}},
	}})
	assert.False(t, h.engine.Visible("b"))
	assert.Equal(t, Offstage, h.entity(t, "b").pos)
}

func TestEngine_DisposeHidesEverything(t *testing.T) {
	h := newHarness(t, 2)
	h.engine.Seed("me", []client.Peer{{ID: "b"}, {ID: "c"}})
	h.engine.Handle(update("b", 1, mgl64.Vec3{}))
	h.engine.Dispose()

	assert.Equal(t, 0, h.engine.Tracked())
	for _, e := range h.scene.entities {
		assert.False(t, e.visible)
		assert.Equal(t, Offstage, e.pos)
	}
	h.engine.Handle(update("b", 2, mgl64.Vec3{}))
	assert.Equal(t, 0, h.engine.Tracked())
}

func TestEngine_DisplayNames(t *testing.T) {
	h := newHarness(t, 2)
	h.engine.Seed("me", []client.Peer{{ID: "b"}, {ID: "c", Name: "Cy"}})
	h.engine.Handle(&protocol.PlayerName{ID: "b", Name: "Bea"})

	name, ok := h.engine.DisplayName("b")
	require.True(t, ok)
	assert.Equal(t, "Bea", name)

	h.engine.Handle(&protocol.PlayerName{ID: "c", Name: ""})
	idx, _ := h.engine.Slot("c")
	name, _ = h.engine.DisplayName("c")
	assert.Equal(t, fmt.Sprintf("Player %d", idx+2), name)
}

func TestEngine_ScaleFollowsBodySize(t *testing.T) {
	h := newHarness(t, 1)
	size := FixedSize(0.3)
	h.engine.deps.Size = size
	h.engine.Seed("me", []client.Peer{{ID: "b"}})
	h.engine.Handle(update("b", 0, mgl64.Vec3{}))
	h.engine.Update(h.clock.now())
	assert.Equal(t, 0.3, h.entity(t, "b").scale)
}
