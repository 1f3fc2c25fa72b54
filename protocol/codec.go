package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// 入站朝向四元数允许的最小长度平方
const minQuatLenSq = 1e-8

type envelope struct {
	Type Kind `json:"type"`
}

// Decode 解析一帧消息：未知类型返回 ErrUnknownKind，无法解析返回 ErrMalformed，
// 调用方在两种情况下都直接丢弃该帧
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var msg Message
	switch env.Type {
	case KindInit:
		msg = &Init{}
	case KindPlayerJoined:
		msg = &PlayerJoined{}
	case KindPlayerUpdate:
		msg = &PlayerUpdate{}
	case KindCollision:
		msg = &Collision{}
	case KindPlayerLeft:
		msg = &PlayerLeft{}
	case KindSetName:
		msg = &SetName{}
	case KindPlayerName:
		msg = &PlayerName{}
	case KindLevelChange:
		msg = &LevelChange{}
	case KindHostChanged:
		msg = &HostChanged{}
	case KindTakeHost:
		msg = &TakeHost{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	if err := validate(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode 序列化消息，"type" 字段位于首位
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: %w: not an object", m.Kind(), ErrMalformed)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(m.Kind()) + 12)
	buf.WriteString(`{"type":"`)
	buf.WriteString(string(m.Kind()))
	buf.WriteByte('"')
	if len(body) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

// MustEncode 用于由可信值构造的消息
func MustEncode(m Message) []byte {
	b, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return b
}

func validate(m Message) error {
	switch v := m.(type) {
	case *PlayerUpdate:
		if !v.Position.finite() || !v.Velocity.finite() || !v.Orientation.finite() {
			return fmt.Errorf("%w: non-finite component", ErrInvalidPose)
		}
		if v.Orientation.Mgl().Dot(v.Orientation.Mgl()) < minQuatLenSq {
			return fmt.Errorf("%w: zero-length orientation", ErrInvalidPose)
		}
	case *Collision:
		for _, c := range v.Pairs {
			if !c.Position.finite() || !c.Velocity.finite() {
				return fmt.Errorf("%w: non-finite correction for %s", ErrInvalidPose, c.ID)
			}
		}
	}
	return nil
}
