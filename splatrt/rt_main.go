package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gsplat"
	"github.com/gekko3d/gsplat/splatrt/rt/core"
	"github.com/gekko3d/gsplat/splatrt/rt/debug"
	"github.com/gekko3d/gsplat/splatrt/rt/gpu"
	"github.com/gekko3d/gsplat/splatrt/rt/loader"
	"github.com/gekko3d/gsplat/splatrt/rt/pipeline"
)

type options struct {
	configPath string
	input      string
	demo       string
	width      int
	height     int
	frames     int
	orbits     int
	radius     float64
	debug      bool
	heatmap    string
	useGPU     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "TOML config file")
	flag.StringVar(&opts.input, "input", "", "Splat file (.ply or .txt); empty uses a demo scene")
	flag.StringVar(&opts.demo, "demo", "spiral", "Demo scene when no input is given: spiral or grid")
	flag.IntVar(&opts.width, "width", 1280, "Render target width in pixels")
	flag.IntVar(&opts.height, "height", 720, "Render target height in pixels")
	flag.IntVar(&opts.frames, "frames", 120, "Frames for one camera orbit")
	flag.IntVar(&opts.orbits, "orbits", 1, "Camera orbits to run; stats are printed per orbit")
	flag.Float64Var(&opts.radius, "radius", 25, "Orbit radius")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&opts.heatmap, "heatmap", "", "Write the last frame's tile occupancy to this PNG")
	flag.BoolVar(&opts.useGPU, "gpu", false, "Upload every re-sorted frame to a headless WebGPU device")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "splatrt: %v\n", err)
		os.Exit(1)
	}
}

func loadScene(opts options, cfg gsplat.Config, logger gsplat.Logger) (*core.Scene, error) {
	if opts.input != "" {
		return loader.Load(opts.input, cfg.Loader, logger)
	}
	switch opts.demo {
	case "spiral":
		return loader.Spiral(10000), nil
	case "grid":
		return loader.Grid(25, 1), nil
	}
	return nil, fmt.Errorf("unknown demo scene %q", opts.demo)
}

func run(opts options) error {
	cfg := gsplat.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = gsplat.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}
	if opts.debug {
		cfg.Debug = true
	}
	logger := gsplat.NewDefaultLogger(cfg.LogPrefix, cfg.Debug)

	scene, err := loadScene(opts, cfg, logger)
	if err != nil {
		return err
	}
	logger.Infof("scene %s: %d splats, %dx%d target, tile size %d", scene.ID, scene.Len(), opts.width, opts.height, cfg.TileSize)

	var uploader *gpu.Uploader
	if opts.useGPU {
		ctx, err := gpu.OpenHeadless()
		if err != nil {
			return err
		}
		defer ctx.Release()
		uploader = gpu.NewUploader(ctx.Device)
		defer uploader.Release()
	}

	p := pipeline.New(cfg, logger)
	for o := 0; o < max(opts.orbits, 1); o++ {
		if o > 0 {
			p.Profiler().Reset()
		}
		stats, err := orbit(p, scene, opts, uploader, logger)
		if err != nil {
			return fmt.Errorf("orbit %d: %w", o, err)
		}
		logger.Infof("orbit %d: %d frames, %d sorts, %d fallbacks", o, stats.frames, stats.sorts, stats.fallbacks)
		fmt.Print(p.Profiler().GetStatsString())
	}

	if opts.heatmap != "" {
		g := p.Grid()
		img := debug.Heatmap(p.TileCounts(), g.TilesX, g.TilesY, g.TileSize)
		if err := debug.WritePNG(opts.heatmap, img); err != nil {
			return err
		}
		logger.Infof("wrote tile heatmap to %s", opts.heatmap)
	}
	return nil
}

type orbitStats struct {
	frames    int
	sorts     int
	fallbacks int
}

// orbit circles the camera once around the origin, forcing a sort on the
// first frame and uploading every re-sorted frame when uploader is set.
func orbit(p *pipeline.Pipeline, scene *core.Scene, opts options, uploader *gpu.Uploader, logger gsplat.Logger) (orbitStats, error) {
	logger = gsplat.OrNop(logger)
	cam := core.NewCameraState()
	stats := orbitStats{frames: max(opts.frames, 1)}
	for i := 0; i < stats.frames; i++ {
		angle := float32(2 * math.Pi * float64(i) / float64(stats.frames))
		cam.Orbit(mgl32.Vec3{}, float32(opts.radius), float32(opts.radius)*0.2, angle)

		res, ran := p.Update(pipeline.Frame{
			ViewProj: cam.ViewProj(opts.width, opts.height),
			Width:    opts.width,
			Height:   opts.height,
			Force:    i == 0,
		}, scene)
		if !ran {
			continue
		}
		stats.sorts++
		if res.Fallback {
			stats.fallbacks++
		}
		logger.Debugf("frame %d: re-sorted, %d instances", i, res.Instances)

		if uploader != nil {
			if err := uploader.Upload(res); err != nil {
				return stats, fmt.Errorf("frame %d: %w", i, err)
			}
		}
	}
	return stats, nil
}
