package protocol

// Kind 消息判别字段（JSON 中的 "type"）
type Kind string

const (
	KindInit         Kind = "init"
	KindPlayerJoined Kind = "player_joined"
	KindPlayerUpdate Kind = "player_update"
	KindCollision    Kind = "collision"
	KindPlayerLeft   Kind = "player_left"
	KindSetName      Kind = "set_name"
	KindPlayerName   Kind = "player_name"
	KindLevelChange  Kind = "level_change"
	KindHostChanged  Kind = "host_changed"
	KindTakeHost     Kind = "take_host"
)

// Message 所有消息载荷的公共接口；Decode 返回下列具体类型的指针
type Message interface {
	Kind() Kind
}

// Init 新连接建立后服务端发送的初始化快照
type Init struct {
	ID      string                  `json:"id"`
	IsHost  bool                    `json:"isHost"`
	HostID  string                  `json:"hostId"`
	Players map[string]PlayerRecord `json:"players"`
	Level   *Level                  `json:"level,omitempty"`
}

type PlayerJoined struct {
	ID     string       `json:"id"`
	Player PlayerRecord `json:"player"`
}

// PlayerUpdate 客户端上行时不带 ID，服务端转发时填入发送者 ID
type PlayerUpdate struct {
	ID          string `json:"id,omitempty"`
	Position    Vec3   `json:"position"`
	Orientation Quat   `json:"orientation"`
	Velocity    Vec3   `json:"velocity"`
	SkinIndex   *int   `json:"skinIndex,omitempty"`
	CaptureTime int64  `json:"t,omitempty"`
}

// Correction 碰撞后某一参与者的权威位置与速度
type Correction struct {
	ID       string `json:"id"`
	Position Vec3   `json:"position"`
	Velocity Vec3   `json:"velocity"`
}

type Collision struct {
	Pairs []Correction `json:"pairs"`
}

type PlayerLeft struct {
	ID string `json:"id"`
}

type SetName struct {
	Name string `json:"name"`
}

type PlayerName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LevelChange 上行为房主的切换请求，下行为带请求者 ID 的广播
type LevelChange struct {
	ID    string `json:"id,omitempty"`
	Level Level  `json:"level"`
}

type HostChanged struct {
	HostID string `json:"hostId"`
}

type TakeHost struct{}

func (Init) Kind() Kind         { return KindInit }
func (PlayerJoined) Kind() Kind { return KindPlayerJoined }
func (PlayerUpdate) Kind() Kind { return KindPlayerUpdate }
func (Collision) Kind() Kind    { return KindCollision }
func (PlayerLeft) Kind() Kind   { return KindPlayerLeft }
func (SetName) Kind() Kind      { return KindSetName }
func (PlayerName) Kind() Kind   { return KindPlayerName }
func (LevelChange) Kind() Kind  { return KindLevelChange }
func (HostChanged) Kind() Kind  { return KindHostChanged }
func (TakeHost) Kind() Kind     { return KindTakeHost }

// Skin 返回随位姿附带的皮肤索引（可选）
func (u *PlayerUpdate) Skin() (int, bool) {
	if u.SkinIndex == nil {
		return 0, false
	}
	return *u.SkinIndex, true
}
