package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gekko3d/gsplat"
	"github.com/gekko3d/gsplat/splatrt/rt/core"
)

// Load picks a parser from the file extension (.ply or .txt).
func Load(path string, cfg gsplat.LoaderConfig, logger gsplat.Logger) (*core.Scene, error) {
	logger = gsplat.OrNop(logger)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ply" && ext != ".txt" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var scene *core.Scene
	switch ext {
	case ".ply":
		scene, err = ParsePLY(f, cfg)
	case ".txt":
		var skipped int
		scene, skipped, err = ParseTXT(f)
		if skipped > 0 {
			logger.Warnf("%s: skipped %d malformed lines", path, skipped)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	logger.Infof("loaded %d splats from %s", scene.Len(), path)
	return scene, nil
}
