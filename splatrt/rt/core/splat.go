package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// MinScale is the smallest axis scale accepted by the text and generated scene paths.
const MinScale = 0.0001

// Covariance holds the upper-left 2x2 block of a splat's symmetric 3x3
// covariance, stored as [xx, xy, yy].
type Covariance [3]float32

// Radius is the conservative screen radius sqrt(xx + yy).
// Negative or NaN sums give 0.
func (c Covariance) Radius() float32 {
	r2 := c[0] + c[2]
	if !(r2 > 0) {
		return 0
	}
	return math32.Sqrt(r2)
}

// Splat is one oriented Gaussian. Colour channels and Alpha are expected in [0,1].
type Splat struct {
	Position   mgl32.Vec3
	Covariance Covariance
	Color      mgl32.Vec3
	Alpha      float32
}

// CovarianceFromScaleRotation builds R*S*S^T*R^T for the given axis scales and
// rotation and returns its [xx, xy, yy] block. A zero quaternion is treated as identity.
func CovarianceFromScaleRotation(scale mgl32.Vec3, rot mgl32.Quat) Covariance {
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	r := rot.Normalize().Mat4().Mat3()
	m := r.Mul3(mgl32.Diag3(scale))
	sigma := m.Mul3(m.Transpose())
	return Covariance{sigma.At(0, 0), sigma.At(0, 1), sigma.At(1, 1)}
}

// Scene is an immutable splat set. A new ID is issued whenever the set is replaced.
type Scene struct {
	ID     uuid.UUID
	Splats []Splat
}

func NewScene(splats []Splat) *Scene {
	return &Scene{
		ID:     uuid.New(),
		Splats: splats,
	}
}

func (s *Scene) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Splats)
}
