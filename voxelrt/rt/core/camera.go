package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraUniformSize is the byte size of the camera block uploaded each frame:
// view @0, proj @64, inv_view_proj @128, eye (vec4) @192.
const CameraUniformSize = 208

// OrbitCamera looks at Target from Distance away. Yaw turns around the world
// Y axis, Pitch lifts the eye above (positive) or below the XZ plane.
type OrbitCamera struct {
	Distance float32
	Yaw      float32
	Pitch    float32
	Target   mgl32.Vec3
	Aspect   float32

	FovY float32
	Near float32
	Far  float32

	// PitchLimit clamps |Pitch| when > 0.
	PitchLimit float32
}

func NewOrbitCamera(distance, pitch, yaw float32, target mgl32.Vec3, aspect float32) *OrbitCamera {
	return &OrbitCamera{
		Distance: distance,
		Yaw:      yaw,
		Pitch:    pitch,
		Target:   target,
		Aspect:   aspect,
		FovY:     mgl32.DegToRad(45),
		Near:     0.01,
		Far:      100,
	}
}

func (c *OrbitCamera) AddZoom(delta float32) {
	c.Distance += delta
}

func (c *OrbitCamera) AddYaw(delta float32) {
	c.Yaw += delta
}

func (c *OrbitCamera) AddPitch(delta float32) {
	c.Pitch += delta
	if c.PitchLimit > 0 {
		if c.Pitch > c.PitchLimit {
			c.Pitch = c.PitchLimit
		} else if c.Pitch < -c.PitchLimit {
			c.Pitch = -c.PitchLimit
		}
	}
}

// SetAspect is called from resize only. Zero heights are ignored.
func (c *OrbitCamera) SetAspect(width, height uint32) {
	if height == 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

func (c *OrbitCamera) direction() mgl32.Vec3 {
	sy, cy := math.Sincos(float64(c.Yaw))
	sp, cp := math.Sincos(float64(c.Pitch))
	return mgl32.Vec3{float32(cp * sy), float32(sp), float32(cp * cy)}
}

// up is the derivative of direction with respect to pitch, so it stays
// orthogonal to the view direction for every pitch.
func (c *OrbitCamera) up() mgl32.Vec3 {
	sy, cy := math.Sincos(float64(c.Yaw))
	sp, cp := math.Sincos(float64(c.Pitch))
	return mgl32.Vec3{float32(-sp * sy), float32(cp), float32(-sp * cy)}
}

func (c *OrbitCamera) Eye() mgl32.Vec3 {
	return c.Target.Add(c.direction().Mul(c.Distance))
}

func (c *OrbitCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), c.Target, c.up())
}

func (c *OrbitCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// Bytes packs the camera block in the layout of CameraUniformSize.
func (c *OrbitCamera) Bytes() []byte {
	buf := make([]byte, CameraUniformSize)
	view := c.View()
	proj := c.Projection()
	invViewProj := proj.Mul4(view).Inv()

	putMat4(buf[0:], view)
	putMat4(buf[64:], proj)
	putMat4(buf[128:], invViewProj)

	eye := c.Eye()
	putF32(buf[192:], eye.X())
	putF32(buf[196:], eye.Y())
	putF32(buf[200:], eye.Z())
	putF32(buf[204:], 1)
	return buf
}

func putMat4(buf []byte, m mgl32.Mat4) {
	for i, v := range m {
		putF32(buf[i*4:], v)
	}
}

func putF32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}
