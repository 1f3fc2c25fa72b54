package server

import "context"

// Run 房间事件循环：单协程串行处理加入、离开与消息帧，房间状态无需加锁
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case ev := <-r.events:
			r.apply(ev)
		}
	}
}

// ProcessEvents 非阻塞处理当前队列中的全部事件
func (r *Room) ProcessEvents() {
	for {
		select {
		case ev := <-r.events:
			r.apply(ev)
		default:
			return
		}
	}
}

func (r *Room) apply(ev any) {
	switch e := ev.(type) {
	case joinEvent:
		r.join(e.id, e.conn)
	case leaveEvent:
		r.leave(e.id)
	case frameEvent:
		r.handleFrame(e.id, e.data)
	case callEvent:
		e.fn(r)
		close(e.done)
	}
}

// shutdown 关闭所有连接
func (r *Room) shutdown() {
	for id, p := range r.players {
		if p.Conn != nil {
			p.Conn.Close()
		}
		delete(r.players, id)
	}
	r.size.Store(0)
}
