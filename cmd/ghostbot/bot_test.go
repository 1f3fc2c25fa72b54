package main

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"marbleparty/protocol"
)

func TestLevelSize(t *testing.T) {
	assert.Equal(t, normalRadius, levelSize{protocol.Level{Path: "a.mis"}}.BodyRadius())
	assert.Equal(t, ultraRadius, levelSize{protocol.Level{Path: "a.mis", Modification: "ultra"}}.BodyRadius())
}

func TestCirclingBody_StaysOnOrbit(t *testing.T) {
	b := newCirclingBody(mgl64.Vec3{1, 1, 0}, 2, 1.5)
	for i := 0; i < 50; i++ {
		b.Step(16 * time.Millisecond)
		p := b.Pose()
		assert.InDelta(t, 2, p.Position.Sub(mgl64.Vec3{1, 1, 0}).Len(), 1e-9)
		assert.InDelta(t, 3, p.Velocity.Len(), 1e-9)
		assert.InDelta(t, 1, p.Orientation.Len(), 1e-9)
	}
}

func TestCirclingBody_CorrectionSlidesOnce(t *testing.T) {
	b := newCirclingBody(mgl64.Vec3{}, 2, 1.5)
	b.SetPosition(mgl64.Vec3{5, 0, 0})
	b.SetVelocity(mgl64.Vec3{1, 0, 0})
	b.SyncShapes()

	b.Step(time.Second)
	assert.Equal(t, mgl64.Vec3{6, 0, 0}, b.Pose().Position)

	b.Step(16 * time.Millisecond)
	assert.InDelta(t, 2, b.Pose().Position.Len(), 1e-9)
}
