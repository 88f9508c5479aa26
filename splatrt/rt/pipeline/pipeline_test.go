package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gsplat"
	"github.com/gekko3d/gsplat/splatrt/rt/core"
	"github.com/gekko3d/gsplat/splatrt/rt/pack"
)

// screenViewProj maps world (X, Y, Z) to clip (X, Y, 0, Z), so a point at
// depth Z lands at pixel ((X/Z + 1)/2*w, (Y/Z + 1)/2*h).
func screenViewProj() mgl32.Mat4 {
	var m mgl32.Mat4
	m[0] = 1
	m[5] = 1
	m[11] = 1
	return m
}

// atPixel places a splat that screenViewProj projects to (x, y) on a size x size target.
func atPixel(x, y, depth float32, size int) core.Splat {
	half := float32(size) / 2
	return core.Splat{
		Position: mgl32.Vec3{depth * (x/half - 1), depth * (y/half - 1), depth},
		Color:    mgl32.Vec3{1, 1, 1},
		Alpha:    1,
	}
}

func newTestPipeline() *Pipeline {
	return New(gsplat.DefaultConfig(), nil)
}

func TestGoldenOrdering(t *testing.T) {
	// 512 px at 16 px per tile is a 32 tile wide grid.
	scene := core.NewScene([]core.Splat{
		atPixel(10, 10, 5, 512),
		atPixel(10, 10, 1, 512),
		atPixel(500, 500, 3, 512),
	})
	p := newTestPipeline()

	res, ran := p.Update(Frame{ViewProj: screenViewProj(), Width: 512, Height: 512}, scene)
	require.True(t, ran)
	assert.False(t, res.Fallback)
	assert.Equal(t, 3, res.Instances)

	// Tile 0 holds splats 0 (depth 5) and 1 (depth 1), farther first.
	// Splat 2 sits alone in tile 31*32+31.
	assert.Equal(t, []uint32{0, 1, 2}, res.Indices)

	counts := p.TileCounts()
	require.Len(t, counts, 32*32)
	assert.Equal(t, uint32(2), counts[0])
	assert.Equal(t, uint32(1), counts[1023])
}

func TestBackToFrontWithinTile(t *testing.T) {
	splats := make([]core.Splat, 0, 20)
	for i := 0; i < 20; i++ {
		// Depth zig-zags so input order is neither sorted nor reversed.
		depth := float32(1 + (i*7)%20)
		splats = append(splats, atPixel(100, 100, depth, 256))
	}
	scene := core.NewScene(splats)
	p := newTestPipeline()
	res, _ := p.Update(Frame{ViewProj: screenViewProj(), Width: 256, Height: 256}, scene)

	require.Len(t, res.Indices, 20)
	for i := 1; i < len(res.Indices); i++ {
		prev := splats[res.Indices[i-1]].Position.Z()
		cur := splats[res.Indices[i]].Position.Z()
		assert.GreaterOrEqual(t, prev, cur, "instance %d drawn before a farther splat", i)
	}
}

func TestMultiTileSplatEmitsOneInstancePerTile(t *testing.T) {
	s := atPixel(32, 32, 2, 128)
	s.Covariance = core.Covariance{64, 0, 36} // radius 10 px
	scene := core.NewScene([]core.Splat{s})

	p := newTestPipeline()
	res, ran := p.Update(Frame{ViewProj: screenViewProj(), Width: 128, Height: 128}, scene)
	require.True(t, ran)
	// [22, 42] covers tiles 1 and 2 on both axes.
	assert.Equal(t, 4, res.Instances)
	assert.Equal(t, []uint32{0, 0, 0, 0}, res.Indices)

	var sum uint32
	for _, c := range p.TileCounts() {
		sum += c
	}
	assert.Equal(t, uint32(4), sum)
}

func TestFallbackIdentityWhenAllOffScreen(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := gsplat.NewLoggerTo(&out, &errOut, "test", false)

	// Negative depth puts everything behind the eye.
	scene := core.NewScene([]core.Splat{
		atPixel(10, 10, -1, 64),
		atPixel(20, 20, -2, 64),
		atPixel(30, 30, -3, 64),
		atPixel(40, 40, -4, 64),
	})
	p := New(gsplat.DefaultConfig(), logger)

	res, ran := p.Update(Frame{ViewProj: screenViewProj(), Width: 64, Height: 64}, scene)
	require.True(t, ran)
	assert.True(t, res.Fallback)
	assert.Zero(t, res.Instances)
	assert.Equal(t, []uint32{0, 1, 2, 3}, res.Indices)
	require.NotNil(t, res.Buffer)
	assert.Equal(t, 4, res.Buffer.Splats)

	// A fallback run does not commit, so the next frame retries; the warning is not repeated.
	res, ran = p.Update(Frame{ViewProj: screenViewProj(), Width: 64, Height: 64}, scene)
	assert.True(t, ran)
	assert.True(t, res.Fallback)
	assert.Equal(t, 1, strings.Count(errOut.String(), "WARN"))
}

func TestFallbackWhenAllPastFarPlane(t *testing.T) {
	// Clip z = 2w puts every splat in front of the eye but past the far plane.
	vp := screenViewProj()
	vp[10] = 2
	scene := core.NewScene([]core.Splat{
		atPixel(10, 10, 1, 64),
		atPixel(20, 20, 2, 64),
		atPixel(30, 30, 3, 64),
	})
	p := newTestPipeline()

	res, ran := p.Update(Frame{ViewProj: vp, Width: 64, Height: 64}, scene)
	require.True(t, ran)
	assert.True(t, res.Fallback)
	assert.Zero(t, res.Instances)
	assert.Equal(t, []uint32{0, 1, 2}, res.Indices)
}

func TestFallbackOnUnsizedTarget(t *testing.T) {
	scene := core.NewScene([]core.Splat{atPixel(1, 1, 1, 2), atPixel(1, 1, 2, 2)})
	p := newTestPipeline()
	res, ran := p.Update(Frame{ViewProj: screenViewProj()}, scene)
	require.True(t, ran)
	assert.True(t, res.Fallback)
	assert.Equal(t, []uint32{0, 1}, res.Indices)
	assert.Empty(t, p.TileCounts())

	// Once the target has a size the ordering kicks in.
	res, ran = p.Update(Frame{ViewProj: screenViewProj(), Width: 2, Height: 2}, scene)
	require.True(t, ran)
	assert.False(t, res.Fallback)
	assert.Equal(t, []uint32{1, 0}, res.Indices)
}

func orbitScene() *core.Scene {
	splats := make([]core.Splat, 0, 27)
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			for z := -1; z <= 1; z++ {
				splats = append(splats, core.Splat{
					Position:   mgl32.Vec3{float32(x), float32(y), float32(z)},
					Covariance: core.Covariance{4, 0, 4},
					Color:      mgl32.Vec3{0.5, 0.5, 0.5},
					Alpha:      0.8,
				})
			}
		}
	}
	return core.NewScene(splats)
}

func TestUpdateSkipsTranslationOnly(t *testing.T) {
	scene := orbitScene()
	cam := core.NewCameraState()
	p := newTestPipeline()

	_, ran := p.Update(Frame{ViewProj: cam.ViewProj(640, 480), Width: 640, Height: 480}, scene)
	require.True(t, ran)

	cam.Position = cam.Position.Add(mgl32.Vec3{0.5, 0.2, -3})
	_, ran = p.Update(Frame{ViewProj: cam.ViewProj(640, 480), Width: 640, Height: 480}, scene)
	assert.False(t, ran, "translation does not change the forward axis")
	assert.Equal(t, Idle, p.Scheduler().State())

	cam.Yaw += mgl32.DegToRad(60)
	_, ran = p.Update(Frame{ViewProj: cam.ViewProj(640, 480), Width: 640, Height: 480}, scene)
	assert.True(t, ran, "a 60 degree turn re-sorts")
}

func TestUpdateTriggers(t *testing.T) {
	scene := orbitScene()
	cam := core.NewCameraState()
	vp := cam.ViewProj(640, 480)
	frame := Frame{ViewProj: vp, Width: 640, Height: 480}
	p := newTestPipeline()

	_, ran := p.Update(frame, scene)
	require.True(t, ran)
	first := p.result.Buffer

	_, ran = p.Update(frame, scene)
	assert.False(t, ran)

	forced := frame
	forced.Force = true
	res, ran := p.Update(forced, scene)
	assert.True(t, ran)
	assert.Same(t, first, res.Buffer, "same scene is not re-packed")

	resized := frame
	resized.Width = 800
	_, ran = p.Update(resized, scene)
	assert.True(t, ran)

	other := core.NewScene(scene.Splats)
	_, ran = p.Update(resized, other)
	assert.True(t, ran, "new scene identity")

	grown := core.NewScene(append(append([]core.Splat(nil), scene.Splats...), scene.Splats[0]))
	grown.ID = other.ID
	res, ran = p.Update(resized, grown)
	assert.True(t, ran, "splat count change")
	assert.Equal(t, 28, res.Buffer.Splats)
}

func TestUpdateNilOrEmptyScene(t *testing.T) {
	p := newTestPipeline()
	res, ran := p.Update(Frame{Width: 10, Height: 10, Force: true}, nil)
	assert.False(t, ran)
	assert.Nil(t, res.Indices)

	res, ran = p.Update(Frame{Width: 10, Height: 10, Force: true}, core.NewScene(nil))
	assert.False(t, ran)
	assert.Nil(t, res.Buffer)
}

func TestInstanceArenaGrowsAndNeverShrinks(t *testing.T) {
	p := newTestPipeline()
	frame := Frame{ViewProj: screenViewProj(), Width: 512, Height: 512, Force: true}

	small := core.NewScene([]core.Splat{atPixel(100, 100, 1, 512)})
	p.Update(frame, small)
	assert.Equal(t, 1, p.Capacity())

	big := make([]core.Splat, 3)
	for i := range big {
		big[i] = atPixel(100, 100, float32(i+1), 512)
	}
	p.Update(frame, core.NewScene(big))
	assert.Equal(t, 3, p.Capacity(), "grows to the required size")

	p.Update(frame, core.NewScene(big[:2]))
	assert.Equal(t, 3, p.Capacity())

	more := make([]core.Splat, 5)
	for i := range more {
		more[i] = atPixel(100, 100, float32(i+1), 512)
	}
	res, _ := p.Update(frame, core.NewScene(more))
	assert.Equal(t, 6, p.Capacity(), "doubles when that is enough")
	assert.Equal(t, 5, res.Instances)
	assert.Len(t, res.Indices, 5)
}

func TestResultBufferLayout(t *testing.T) {
	scene := orbitScene()
	cam := core.NewCameraState()
	p := newTestPipeline()
	res, _ := p.Update(Frame{ViewProj: cam.ViewProj(320, 240), Width: 320, Height: 240}, scene)

	require.NotNil(t, res.Buffer)
	assert.Equal(t, pack.TextureWidth, res.Buffer.Width)
	assert.Equal(t, 1, res.Buffer.Height)
	for _, idx := range res.Indices {
		assert.Less(t, int(idx), scene.Len())
	}
	assert.GreaterOrEqual(t, res.Instances, scene.Len(), "every splat is on screen")
}

func TestProfilerRecordsStages(t *testing.T) {
	scene := orbitScene()
	cam := core.NewCameraState()
	p := newTestPipeline()
	p.Update(Frame{ViewProj: cam.ViewProj(320, 240), Width: 320, Height: 240}, scene)

	prof := p.Profiler()
	assert.Equal(t, []string{"project", "keys", "sort", "pack"}, prof.Order)
	assert.Equal(t, 1, prof.Runs)
	assert.Equal(t, 27, prof.Counts["splats"])
	assert.Equal(t, 20*15, prof.Counts["tiles"])

	stats := prof.GetStatsString()
	assert.Contains(t, stats, "sort")
	assert.Contains(t, stats, "instances")
}

func TestDebugLogging(t *testing.T) {
	var out bytes.Buffer
	logger := gsplat.NewLoggerTo(&out, &out, "gsplat", true)
	p := New(gsplat.DefaultConfig(), logger)
	p.Update(Frame{ViewProj: screenViewProj(), Width: 64, Height: 64}, core.NewScene([]core.Splat{atPixel(5, 5, 1, 64)}))

	assert.Contains(t, out.String(), "packed 1 splats")
	assert.Contains(t, out.String(), "ordered 1 splats: 1 instances")
}
