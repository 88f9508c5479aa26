package pipeline

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type State int

const (
	Idle State = iota
	Dirty
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dirty:
		return "dirty"
	}
	return "unknown"
}

// View is what the scheduler compares between frames.
type View struct {
	ViewProj mgl32.Mat4
	Count    int
	Scene    uuid.UUID
	Width    int
	Height   int
}

// ForwardAxis returns elements 2, 6 and 10 of vp: the depth row of the
// rotation part, i.e. the camera forward axis scaled by the projection.
func ForwardAxis(vp mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{vp[2], vp[6], vp[10]}
}

// ForwardSimilarity is the cosine between the forward axes of a and b.
// It is NaN when either axis has zero length.
func ForwardSimilarity(a, b mgl32.Mat4) float32 {
	fa, fb := ForwardAxis(a), ForwardAxis(b)
	la, lb := fa.Len(), fb.Len()
	if la == 0 || lb == 0 {
		return math32.NaN()
	}
	return fa.Dot(fb) / (la * lb)
}

// Scheduler decides per frame whether ordering must be recomputed. Pure
// translation keeps the forward axis and therefore does not trigger a re-sort.
type Scheduler struct {
	threshold float32
	state     State
	baseline  View
	committed bool
}

func NewScheduler(threshold float32) *Scheduler {
	return &Scheduler{threshold: threshold, state: Dirty}
}

func (s *Scheduler) State() State {
	return s.state
}

// Check moves the scheduler to Dirty when v differs enough from the last
// committed view. A Dirty scheduler stays Dirty until Commit.
func (s *Scheduler) Check(v View, force bool) State {
	if s.state == Dirty {
		return s.state
	}
	switch {
	case force, !s.committed:
		s.state = Dirty
	case v.Count != s.baseline.Count, v.Scene != s.baseline.Scene:
		s.state = Dirty
	case v.Width != s.baseline.Width, v.Height != s.baseline.Height:
		s.state = Dirty
	case s.rotated(v.ViewProj):
		s.state = Dirty
	}
	return s.state
}

// rotated reports whether the forward similarity to the baseline dropped
// below 1 - threshold. A degenerate axis always counts as rotated.
func (s *Scheduler) rotated(viewProj mgl32.Mat4) bool {
	sim := ForwardSimilarity(viewProj, s.baseline.ViewProj)
	return math32.IsNaN(sim) || sim < 1-s.threshold
}

// Commit records v as the new baseline after a successful run.
func (s *Scheduler) Commit(v View) {
	s.baseline = v
	s.committed = true
	s.state = Idle
}

// Invalidate forces the next Check to report Dirty.
func (s *Scheduler) Invalidate() {
	s.state = Dirty
}
