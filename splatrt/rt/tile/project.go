package tile

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ScreenPoint is a projected splat centre in pixels plus its clip-space w.
type ScreenPoint struct {
	X, Y  float32
	Depth float32
}

// Project maps a world position through viewProj onto a width x height
// render target. It fails when the point is behind the eye or its NDC depth
// lies outside [-1, 1]; callers treat that as "no tiles", not as an error.
func Project(pos mgl32.Vec3, viewProj mgl32.Mat4, width, height int) (ScreenPoint, bool) {
	clip := viewProj.Mul4x1(pos.Vec4(1))
	w := clip.W()
	if !(w > 0) {
		return ScreenPoint{}, false
	}
	z := clip.Z() / w
	if !(z >= -1 && z <= 1) {
		return ScreenPoint{}, false
	}
	return ScreenPoint{
		X:     (clip.X()/w + 1) * 0.5 * float32(width),
		Y:     (clip.Y()/w + 1) * 0.5 * float32(height),
		Depth: w,
	}, true
}
