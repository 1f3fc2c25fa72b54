package server

// 房间事件：连接读协程与 HTTP 管理接口只负责入队，由房间协程串行处理

type joinEvent struct {
	id   string
	conn Conn
}

type leaveEvent struct {
	id string
}

// frameEvent 客户端上行的原始帧，在房间协程中解析
type frameEvent struct {
	id   string
	data []byte
}

// callEvent 在房间协程内执行任意读写（管理接口使用）
type callEvent struct {
	fn   func(r *Room)
	done chan struct{}
}
