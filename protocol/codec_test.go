package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Kinds(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, m Message)
	}{
		{
			name:  "client pose update",
			frame: `{"type":"player_update","position":{"x":1,"y":2,"z":3},"orientation":{"x":0,"y":0,"z":0,"w":1},"velocity":{"x":-1,"y":0,"z":0},"skinIndex":4}`,
			check: func(t *testing.T, m Message) {
				u, ok := m.(*PlayerUpdate)
				require.True(t, ok)
				assert.Equal(t, Vec3{X: 1, Y: 2, Z: 3}, u.Position)
				assert.Empty(t, u.ID)
				skin, ok := u.Skin()
				assert.True(t, ok)
				assert.Equal(t, 4, skin)
			},
		},
		{
			name:  "update without skin",
			frame: `{"type":"player_update","id":"a","position":{"x":0,"y":0,"z":0},"orientation":{"x":0,"y":0,"z":0,"w":1},"velocity":{"x":0,"y":0,"z":0}}`,
			check: func(t *testing.T, m Message) {
				_, ok := m.(*PlayerUpdate).Skin()
				assert.False(t, ok)
			},
		},
		{
			name:  "init snapshot",
			frame: `{"type":"init","id":"me","isHost":true,"hostId":"me","players":{"me":{"id":"me","position":{"x":0,"y":0,"z":0},"orientation":{"x":0,"y":0,"z":0,"w":1},"velocity":{"x":0,"y":0,"z":0},"skinIndex":2,"joinedAt":10}},"level":{"path":"beginner/m1.mis"}}`,
			check: func(t *testing.T, m Message) {
				in := m.(*Init)
				assert.True(t, in.IsHost)
				require.Contains(t, in.Players, "me")
				assert.Equal(t, 2, in.Players["me"].SkinIndex)
				require.NotNil(t, in.Level)
				assert.Equal(t, "beginner/m1.mis", in.Level.Path)
			},
		},
		{
			name:  "collision pairs",
			frame: `{"type":"collision","pairs":[{"id":"a","position":{"x":1,"y":0,"z":0},"velocity":{"x":0,"y":0,"z":0}},{"id":"b","position":{"x":0,"y":0,"z":0},"velocity":{"x":0,"y":0,"z":0}}]}`,
			check: func(t *testing.T, m Message) {
				assert.Len(t, m.(*Collision).Pairs, 2)
			},
		},
		{
			name:  "take host has no payload",
			frame: `{"type":"take_host"}`,
			check: func(t *testing.T, m Message) {
				assert.Equal(t, KindTakeHost, m.Kind())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			tt.check(t, m)
		})
	}
}

func TestDecode_Faults(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{"not json", "not json", ErrMalformed},
		{"unknown kind", `{"type":"teleport"}`, ErrUnknownKind},
		{"missing kind", `{"id":"x"}`, ErrUnknownKind},
		{"wrong field type", `{"type":"player_left","id":5}`, ErrMalformed},
		{"zero orientation", `{"type":"player_update","position":{"x":0,"y":0,"z":0},"orientation":{"x":0,"y":0,"z":0,"w":0},"velocity":{"x":0,"y":0,"z":0}}`, ErrInvalidPose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.frame))
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEncode_Discriminant(t *testing.T) {
	b, err := Encode(TakeHost{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"take_host"}`, string(b))

	b, err = Encode(&PlayerLeft{ID: "p1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"player_left","id":"p1"}`, string(b))

	b = MustEncode(LevelChange{Level: Level{Path: "advanced/m3.mis", Modification: "ultra"}})
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "level_change", raw["type"])
	assert.NotContains(t, raw, "id")
}

func TestQuatConversion(t *testing.T) {
	q := Quat{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9}
	assert.Equal(t, q, QuatFrom(q.Mgl()))
	assert.Equal(t, 1.0, IdentityQuat.Mgl().W)
}
