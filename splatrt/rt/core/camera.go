package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraState is a Y-up fly camera. It is only a producer of view-projection
// matrices; the ordering pipeline never reads it directly.
type CameraState struct {
	Position mgl32.Vec3
	Yaw      float32 // radians, -pi/2 looks down -Z
	Pitch    float32 // radians
	FovY     float32 // radians
	Near     float32
	Far      float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position: mgl32.Vec3{0, 0, 20},
		Yaw:      -math.Pi / 2,
		Pitch:    0,
		FovY:     mgl32.DegToRad(45),
		Near:     0.05,
		Far:      2000,
	}
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	cp := math.Cos(float64(c.Pitch))
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Yaw)) * cp),
		float32(math.Sin(float64(c.Pitch))),
		float32(math.Sin(float64(c.Yaw)) * cp),
	}.Normalize()
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return c.GetForward().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	forward := c.GetForward()
	up := c.GetRight().Cross(forward).Normalize()
	return mgl32.LookAtV(c.Position, c.Position.Add(forward), up)
}

func (c *CameraState) GetProjMatrix(aspect float32) mgl32.Mat4 {
	if !(aspect > 0) {
		aspect = 1
	}
	return mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// ViewProj returns proj * view for a render target of the given size.
func (c *CameraState) ViewProj(width, height int) mgl32.Mat4 {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	return c.GetProjMatrix(aspect).Mul4(c.GetViewMatrix())
}

// Orbit places the camera on a horizontal circle around target and aims it at target.
func (c *CameraState) Orbit(target mgl32.Vec3, radius, height, angle float32) {
	c.Position = target.Add(mgl32.Vec3{
		radius * float32(math.Cos(float64(angle))),
		height,
		radius * float32(math.Sin(float64(angle))),
	})
	dir := target.Sub(c.Position)
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()
	c.Yaw = float32(math.Atan2(float64(dir.Z()), float64(dir.X())))
	c.Pitch = float32(math.Asin(float64(dir.Y())))
}
