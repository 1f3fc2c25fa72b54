package protocol

import "errors"

var (
	ErrMalformed   = errors.New("malformed frame")
	ErrUnknownKind = errors.New("unknown message kind")
	ErrInvalidPose = errors.New("invalid pose")
)
