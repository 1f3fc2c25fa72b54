package server

import "errors"

var (
	ErrNotHost     = errors.New("only the host may change level")
	ErrRoomFull    = errors.New("room is full")
	ErrRoomStopped = errors.New("room loop stopped")
)
