// Package client 客户端连接层：Session 负责单条 WebSocket 连接的建立、重试与收发，
// Facade 跨关卡存活，维护玩家表镜像并把消息分发给当前关卡的同步实例。
package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marbleparty/config"
	"marbleparty/logging"
	"marbleparty/protocol"
)

const writeWait = 5 * time.Second

// EventKind 会话事件类型
type EventKind int

const (
	EventOpen EventKind = iota
	EventClose
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	case EventMessage:
		return "message"
	}
	return "unknown"
}

// Event 会话投递到邮箱的事件；EventMessage 携带已解析的消息
type Event struct {
	Kind EventKind
	Msg  protocol.Message
	Err  error
}

// SessionConfig 连接与重试参数
type SessionConfig struct {
	Endpoint       string
	HangTimeout    time.Duration // 单次握手无结果的放弃时限，同时作为重试节奏
	MaxAttempts    int           // 每轮最多尝试次数
	ReconnectDelay time.Duration // 断开或一轮失败后的重连等待
}

// SessionConfigFrom 从客户端配置构造
func SessionConfigFrom(c config.ClientSettings) SessionConfig {
	return SessionConfig{
		Endpoint:       c.Endpoint(),
		HangTimeout:    c.HangTimeout,
		MaxAttempts:    c.MaxAttempts,
		ReconnectDelay: c.ReconnectDelay,
	}
}

// Session 持有一条到房间端点的出站连接
type Session struct {
	cfg    SessionConfig
	dialer *websocket.Dialer
	events chan Event

	mu  sync.Mutex
	out chan []byte // 当前连接的发送队列；未连接时为 nil
}

func NewSession(cfg SessionConfig) *Session {
	return &Session{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HangTimeout},
		events: make(chan Event, 256),
	}
}

// Events 单消费者邮箱
func (s *Session) Events() <-chan Event { return s.events }

// Open 连接是否处于打开状态
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out != nil
}

// Send 未连接或发送队列满时直接丢弃（不排队、不报错），返回是否已入队
func (s *Session) Send(m protocol.Message) bool {
	b, err := protocol.Encode(m)
	if err != nil {
		logging.Log.Errorw("encode failed", "kind", m.Kind(), "error", err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return false
	}
	select {
	case s.out <- b:
		return true
	default:
		return false
	}
}

// Run 连接循环：断开（无论是否正常）后等待 ReconnectDelay 重连，直到 ctx 结束
func (s *Session) Run(ctx context.Context) {
	for {
		conn, err := s.connect(ctx)
		if err == nil {
			s.serve(ctx, conn)
		}
		if ctx.Err() != nil {
			return
		}
		logging.Log.Infow("reconnect scheduled", "endpoint", s.cfg.Endpoint, "delay", s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

// connect 一轮连接：握手在 HangTimeout 内无结果则放弃并立即重试，最多 MaxAttempts 次；
// 握手被明确拒绝则结束本轮
func (s *Session) connect(ctx context.Context) (*websocket.Conn, error) {
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		logging.Log.Infow("connecting", "endpoint", s.cfg.Endpoint, "attempt", attempt)

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.HangTimeout)
		conn, _, err := s.dialer.DialContext(attemptCtx, s.cfg.Endpoint, nil)
		hung := attemptCtx.Err() != nil || isTimeout(err)
		cancel()

		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !hung {
			logging.Log.Warnw("connection failed", "endpoint", s.cfg.Endpoint, "attempt", attempt, "error", err)
			return nil, err
		}
		logging.Log.Warnw("attempt hung, retrying", "endpoint", s.cfg.Endpoint, "attempt", attempt, "timeout", s.cfg.HangTimeout)
	}
	return nil, ErrGaveUp
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// serve 处理一条已建立的连接直到断开
func (s *Session) serve(ctx context.Context, conn *websocket.Conn) {
	out := make(chan []byte, 64)
	s.mu.Lock()
	s.out = out
	s.mu.Unlock()

	logging.Log.Infow("connected", "endpoint", s.cfg.Endpoint)
	s.emit(ctx, Event{Kind: EventOpen})

	written := make(chan struct{})
	go writePump(conn, out, written)
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	err := s.readLoop(ctx, conn)

	stop()
	s.mu.Lock()
	s.out = nil
	s.mu.Unlock()
	close(out)
	<-written
	conn.Close()

	var ce *websocket.CloseError
	clean := errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure
	logging.Log.Infow("disconnected", "endpoint", s.cfg.Endpoint, "clean", clean, "error", err)
	s.emit(ctx, Event{Kind: EventClose, Err: err})
}

// readLoop 解析失败的帧直接丢弃，不影响后续帧
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			logging.Log.Debugw("frame discarded", "error", err)
			continue
		}
		s.emit(ctx, Event{Kind: EventMessage, Msg: msg})
	}
}

// emit 保序投递；ctx 结束时放弃
func (s *Session) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func writePump(conn *websocket.Conn, out <-chan []byte, done chan<- struct{}) {
	defer close(done)
	for msg := range out {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			for range out {
			}
			return
		}
	}
}
