// Package pipeline runs the per-frame ordering of a splat scene: project,
// bin into tiles, build sort keys, radix sort, pack for the GPU. A Scheduler
// skips the work while the view has not rotated enough to change the order.
package pipeline

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/gsplat"
	"github.com/gekko3d/gsplat/splatrt/rt/core"
	"github.com/gekko3d/gsplat/splatrt/rt/pack"
	"github.com/gekko3d/gsplat/splatrt/rt/radix"
	"github.com/gekko3d/gsplat/splatrt/rt/sortkey"
	"github.com/gekko3d/gsplat/splatrt/rt/tile"
)

// Frame carries the per-frame inputs. Width and Height are the render target
// in pixels; Force requests a re-run regardless of the scheduler.
type Frame struct {
	ViewProj mgl32.Mat4
	Width    int
	Height   int
	Force    bool
}

// Result is what the rasterizer consumes. Buffer and Indices are owned by the
// Pipeline and stay valid until the next run.
type Result struct {
	Buffer    *pack.Buffer
	Indices   []uint32
	Instances int
	// Fallback is set when no splat landed on any tile and Indices is the
	// identity order.
	Fallback bool
}

type projected struct {
	rect  tile.Rect
	depth float32
}

type Pipeline struct {
	cfg      gsplat.Config
	log      gsplat.Logger
	sched    *Scheduler
	sorter   radix.Sorter
	packer   pack.Packer
	profiler *Profiler

	grid tile.Grid
	proj []projected
	keys []uint64
	vals []uint32
	ids  []uint32
	hits []uint32
	span []uint32

	packedScene uuid.UUID
	packedLen   int
	buffer      *pack.Buffer

	result     Result
	inFallback bool
}

func New(cfg gsplat.Config, logger gsplat.Logger) *Pipeline {
	def := gsplat.DefaultConfig()
	if cfg.TileSize <= 0 {
		cfg.TileSize = def.TileSize
	}
	if !(cfg.RotationThreshold > 0) {
		cfg.RotationThreshold = def.RotationThreshold
	}
	return &Pipeline{
		cfg:       cfg,
		log:       gsplat.OrNop(logger),
		sched:     NewScheduler(cfg.RotationThreshold),
		profiler:  NewProfiler(),
		packedLen: -1,
	}
}

func (p *Pipeline) Profiler() *Profiler {
	return p.profiler
}

func (p *Pipeline) Scheduler() *Scheduler {
	return p.sched
}

// Grid is the tile grid of the last run.
func (p *Pipeline) Grid() tile.Grid {
	return p.grid
}

// TileCounts is the number of instances per tile in the last run, indexed
// like Grid. The slice is reused by the next run.
func (p *Pipeline) TileCounts() []uint32 {
	return p.hits
}

// Capacity reports the size of the instance key arena.
func (p *Pipeline) Capacity() int {
	return len(p.keys)
}

// Update re-runs the pipeline when the scheduler says the ordering is stale
// and reports whether it did. A nil or empty scene is a no-op.
func (p *Pipeline) Update(frame Frame, scene *core.Scene) (Result, bool) {
	if scene.Len() == 0 {
		return p.result, false
	}

	view := View{
		ViewProj: frame.ViewProj,
		Count:    scene.Len(),
		Scene:    scene.ID,
		Width:    frame.Width,
		Height:   frame.Height,
	}
	if p.sched.Check(view, frame.Force) == Idle {
		return p.result, false
	}

	p.run(frame, scene)
	if !p.result.Fallback {
		p.sched.Commit(view)
	}
	return p.result, true
}

// growInstances makes the key arena hold at least n entries.
func (p *Pipeline) growInstances(n int) {
	if n <= len(p.keys) {
		return
	}
	size := max(n, 2*len(p.keys))
	p.keys = make([]uint64, size)
	p.vals = make([]uint32, size)
}

func (p *Pipeline) run(frame Frame, scene *core.Scene) {
	n := scene.Len()
	p.grid = tile.NewGrid(frame.Width, frame.Height, p.cfg.TileSize)

	p.profiler.BeginScope("project")
	if cap(p.proj) < n {
		p.proj = make([]projected, n, max(n, 2*cap(p.proj)))
	}
	p.proj = p.proj[:n]

	total := 0
	minDepth, maxDepth := float32(0), float32(0)
	for i := range scene.Splats {
		s := &scene.Splats[i]
		pr := &p.proj[i]
		sp, ok := tile.Project(s.Position, frame.ViewProj, frame.Width, frame.Height)
		if !ok {
			pr.rect = tile.Rect{MaxX: -1, MaxY: -1}
			continue
		}
		pr.rect = p.grid.Rect(sp.X, sp.Y, s.Covariance.Radius())
		pr.depth = sp.Depth
		c := pr.rect.Count()
		if c == 0 {
			continue
		}
		if total == 0 {
			minDepth, maxDepth = sp.Depth, sp.Depth
		} else {
			minDepth = min(minDepth, sp.Depth)
			maxDepth = max(maxDepth, sp.Depth)
		}
		total += c
	}
	p.profiler.EndScope("project")

	if cap(p.hits) < p.grid.Len() {
		p.hits = make([]uint32, p.grid.Len())
	}
	p.hits = p.hits[:p.grid.Len()]
	clear(p.hits)

	fallback := total == 0
	var indices []uint32
	if fallback {
		p.profiler.BeginScope("keys")
		p.ids = pack.IdentityIndices(p.ids, n)
		indices = p.ids
		p.profiler.EndScope("keys")

		if !p.inFallback {
			p.log.Warnf("no splat overlaps the %dx%d tile grid, drawing %d splats unsorted",
				p.grid.TilesX, p.grid.TilesY, n)
		}
	} else {
		p.profiler.BeginScope("keys")
		p.growInstances(total)
		span := maxDepth - minDepth
		k := 0
		for i := range p.proj {
			pr := &p.proj[i]
			if pr.rect.Empty() {
				continue
			}
			d := 0.0
			if span > 0 {
				d = float64((pr.depth - minDepth) / span)
			}
			p.span = p.grid.AppendRect(p.span[:0], pr.rect)
			for _, t := range p.span {
				p.keys[k] = sortkey.Encode(t, d)
				p.vals[k] = uint32(i)
				p.hits[t]++
				k++
			}
		}
		p.profiler.EndScope("keys")

		p.profiler.BeginScope("sort")
		p.sorter.Sort(p.keys[:total], p.vals[:total])
		indices = p.vals[:total]
		p.profiler.EndScope("sort")
	}
	p.inFallback = fallback

	p.profiler.BeginScope("pack")
	if p.buffer == nil || p.packedScene != scene.ID || p.packedLen != n {
		p.buffer, indices = p.packer.Pack(scene.Splats, indices)
		p.packedScene = scene.ID
		p.packedLen = n
		p.log.Debugf("packed %d splats into %dx%d texels", n, p.buffer.Width, p.buffer.Height)
	}
	p.profiler.EndScope("pack")

	p.profiler.SetCount("splats", n)
	p.profiler.SetCount("instances", total)
	p.profiler.SetCount("tiles", p.grid.Len())
	p.profiler.EndRun()

	p.result = Result{
		Buffer:    p.buffer,
		Indices:   indices,
		Instances: total,
		Fallback:  fallback,
	}

	if p.log.DebugEnabled() {
		p.log.Debugf("ordered %d splats: %d instances over %d tiles, fallback=%t (project %v, keys %v, sort %v)",
			n, total, p.grid.Len(), fallback,
			p.profiler.Last["project"], p.profiler.Last["keys"], p.profiler.Last["sort"])
	}
}

// Invalidate makes the next Update re-run and re-pack the scene.
func (p *Pipeline) Invalidate() {
	p.sched.Invalidate()
	p.buffer = nil
}
