// Package tile projects splat centres to the screen and bins them into a
// uniform grid of square tiles.
package tile

import (
	"github.com/chewxy/math32"
)

const DefaultTileSize = 16

// Grid partitions a render target into TileSize x TileSize tiles. Tiles are
// numbered row-major: index = ty*TilesX + tx. Edge tiles may hang over the target.
type Grid struct {
	TileSize int
	TilesX   int
	TilesY   int
	Width    int
	Height   int
}

// NewGrid sizes a grid for the render target. A non-positive dimension gives
// an empty grid that no splat overlaps.
func NewGrid(width, height, tileSize int) Grid {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	if width <= 0 || height <= 0 {
		return Grid{TileSize: tileSize}
	}
	return Grid{
		TileSize: tileSize,
		TilesX:   (width + tileSize - 1) / tileSize,
		TilesY:   (height + tileSize - 1) / tileSize,
		Width:    width,
		Height:   height,
	}
}

func (g Grid) Len() int {
	return g.TilesX * g.TilesY
}

func (g Grid) Index(tx, ty int) uint32 {
	return uint32(ty*g.TilesX + tx)
}

// Rect is an inclusive range of tile coordinates.
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

var emptyRect = Rect{0, 0, -1, -1}

func (r Rect) Empty() bool {
	return r.MinX > r.MaxX || r.MinY > r.MaxY
}

func (r Rect) Count() int {
	if r.Empty() {
		return 0
	}
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// Rect returns the tiles touched by the square [x-radius, x+radius] x
// [y-radius, y+radius], clamped to the grid.
func (g Grid) Rect(x, y, radius float32) Rect {
	if g.TilesX == 0 || g.TilesY == 0 {
		return emptyRect
	}
	if math32.IsNaN(x) || math32.IsNaN(y) {
		return emptyRect
	}
	if !(radius > 0) {
		radius = 0
	}
	ts := float32(g.TileSize)
	r := Rect{
		MinX: max(0, tileCoord((x-radius)/ts, g.TilesX)),
		MaxX: min(g.TilesX-1, tileCoord((x+radius)/ts, g.TilesX)),
		MinY: max(0, tileCoord((y-radius)/ts, g.TilesY)),
		MaxY: min(g.TilesY-1, tileCoord((y+radius)/ts, g.TilesY)),
	}
	if r.Empty() {
		return emptyRect
	}
	return r
}

// tileCoord floors v and pins it to [-1, n] so far off-screen or infinite
// coordinates convert to int safely.
func tileCoord(v float32, n int) int {
	f := math32.Floor(v)
	if f < -1 {
		return -1
	}
	if f > float32(n) {
		return n
	}
	return int(f)
}

// AppendRect appends the linear index of every tile in r, row-major.
func (g Grid) AppendRect(dst []uint32, r Rect) []uint32 {
	for ty := r.MinY; ty <= r.MaxY; ty++ {
		for tx := r.MinX; tx <= r.MaxX; tx++ {
			dst = append(dst, g.Index(tx, ty))
		}
	}
	return dst
}

// TilesFor appends every tile overlapped by a splat at (x, y) with the given radius.
func (g Grid) TilesFor(dst []uint32, x, y, radius float32) []uint32 {
	return g.AppendRect(dst, g.Rect(x, y, radius))
}
