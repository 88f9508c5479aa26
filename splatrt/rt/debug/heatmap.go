// Package debug renders diagnostic images of the tile binning.
package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"
)

// heat maps t in [0,1] onto black -> red -> yellow -> white.
func heat(t float32) color.RGBA {
	x := min(max(t, 0), 1) * 3
	switch {
	case x < 1:
		return color.RGBA{uint8(x * 255), 0, 0, 255}
	case x < 2:
		return color.RGBA{255, uint8((x - 1) * 255), 0, 255}
	}
	return color.RGBA{255, 255, uint8((x - 2) * 255), 255}
}

// Heatmap draws one cell per tile, brighter for tiles with more instances,
// and scales it up by scale with nearest-neighbour sampling. Tile row 0 is
// the bottom of the screen, so it ends up as the last image row.
func Heatmap(counts []uint32, tilesX, tilesY, scale int) *image.RGBA {
	if tilesX <= 0 || tilesY <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	scale = max(scale, 1)

	var peak uint32
	for _, c := range counts {
		peak = max(peak, c)
	}

	cells := image.NewRGBA(image.Rect(0, 0, tilesX, tilesY))
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			i := ty*tilesX + tx
			var t float32
			if i < len(counts) && peak > 0 {
				t = float32(counts[i]) / float32(peak)
			}
			cells.SetRGBA(tx, tilesY-1-ty, heat(t))
		}
	}
	if scale == 1 {
		return cells
	}

	dst := image.NewRGBA(image.Rect(0, 0, tilesX*scale, tilesY*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), cells, cells.Bounds(), xdraw.Src, nil)
	return dst
}

func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
