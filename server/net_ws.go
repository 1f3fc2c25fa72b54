package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"marbleparty/config"
	"marbleparty/logging"
)

const maxFrameSize = 8 << 10

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws        *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	cfg       config.ServerSettings
}

func NewClientConn(ws *websocket.Conn, cfg config.ServerSettings) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
		cfg:  cfg,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 关闭发送队列，写协程发送关闭帧后退出；只由房间协程调用
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	pingPeriod := c.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息帧并投递到房间；超出入站限流的帧直接丢弃
func (c *ClientConn) readPump(room *Room, playerID string) {
	defer c.ws.Close()
	// 读泵退出时，通知房间在房间协程中移除该玩家
	defer room.Leave(playerID)

	limiter := rate.NewLimiter(rate.Limit(c.cfg.InboundRate), c.cfg.InboundBurst)
	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Log.Warnw("read error", "room", room.ID, "player", playerID, "error", err)
			}
			return
		}
		if !limiter.Allow() {
			room.Metrics().IncThrottled()
			continue
		}
		room.Deliver(playerID, payload)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 浏览器客户端可能来自任意静态站点
		return true
	},
}

// HandleWS WebSocket 接入：/party/{room}；玩家 ID 由服务端分配，永不复用
func (m *RoomManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	if roomID == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}

	room, err := m.Admit(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Log.Warnw("upgrade error", "room", roomID, "error", err)
		m.vacate(room)
		return
	}

	playerID := uuid.NewString()
	client := NewClientConn(ws, m.cfg.Server)
	if err := room.Join(playerID, client); err != nil {
		logging.Log.Warnw("join failed", "room", roomID, "error", err)
		m.vacate(room)
		ws.Close()
		return
	}

	go client.writePump()
	go client.readPump(room, playerID)
}
