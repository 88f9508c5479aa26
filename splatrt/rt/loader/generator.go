package loader

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gsplat/splatrt/rt/core"
)

// hslToRGB converts hue, saturation and lightness in [0,1] to RGB.
func hslToRGB(h, s, l float32) mgl32.Vec3 {
	if s == 0 {
		return mgl32.Vec3{l, l, l}
	}
	var q float32
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	hue := func(t float32) float32 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		switch {
		case t < 1.0/6:
			return p + (q-p)*6*t
		case t < 0.5:
			return q
		case t < 2.0/3:
			return p + (q-p)*(2.0/3-t)*6
		}
		return p
	}
	return mgl32.Vec3{hue(h + 1.0/3), hue(h), hue(h - 1.0/3)}
}

// Spiral generates n splats on a rising rainbow spiral around the Y axis.
func Spiral(n int) *core.Scene {
	splats := make([]core.Splat, n)
	up := mgl32.Vec3{0, 1, 0}
	for i := range splats {
		t := float32(i) * 0.1
		r := math32.Sqrt(t) * 2
		a := t * 4
		s := 1 + t*0.002
		hue := math32.Mod(t*0.1, 1)
		splats[i] = core.Splat{
			Position:   mgl32.Vec3{r * math32.Cos(a), t*0.2 - 5, r * math32.Sin(a)},
			Covariance: core.CovarianceFromScaleRotation(clampScale(mgl32.Vec3{s, s * 0.7, s * 0.5}), mgl32.QuatRotate(a, up)),
			Color:      hslToRGB(hue, 0.8, 0.5),
			Alpha:      0.8,
		}
	}
	return core.NewScene(splats)
}

// Grid generates size*size splats on a gently rippled plane, each tilted to
// follow the surface normal.
func Grid(size int, spacing float32) *core.Scene {
	if size <= 0 {
		return core.NewScene(nil)
	}
	up := mgl32.Vec3{0, 1, 0}
	scale := clampScale(mgl32.Vec3{2 * spacing, 0.5 * spacing, spacing})
	fs := float32(size)
	splats := make([]core.Splat, 0, size*size)
	for x := 0; x < size; x++ {
		for z := 0; z < size; z++ {
			px := (float32(x) - fs/2) * spacing
			pz := (float32(z) - fs/2) * spacing
			py := 0.2 * math32.Sin(px) * math32.Cos(pz)

			dx := 0.2 * math32.Cos(px) * math32.Cos(pz)
			dz := -0.2 * math32.Sin(px) * math32.Sin(pz)
			normal := mgl32.Vec3{dx, 1, dz}.Normalize()

			splats = append(splats, core.Splat{
				Position:   mgl32.Vec3{px, py, pz},
				Covariance: core.CovarianceFromScaleRotation(scale, mgl32.QuatBetweenVectors(up, normal)),
				Color:      mgl32.Vec3{clamp01(math32.Abs(px / fs)), clamp01(math32.Abs(py)), clamp01(math32.Abs(pz / fs))},
				Alpha:      1,
			})
		}
	}
	return core.NewScene(splats)
}
