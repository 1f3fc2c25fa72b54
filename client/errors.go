package client

import "errors"

var (
	ErrNotConnected = errors.New("not connected")
	ErrNotHost      = errors.New("not the host")
	ErrGaveUp       = errors.New("connection attempts exhausted")
)
