// Package sortkey builds the 64-bit keys that order splat instances
// tile-major and back-to-front within a tile.
//
// Layout: bits 63..32 hold the tile index, bits 31..0 hold
// floor((1 - depth) * 0xFFFFFFFF) for a depth normalised to [0, 1].
// Ascending keys therefore visit tiles in index order and, inside a tile,
// far splats before near ones.
package sortkey

import "math"

const depthScale = float64(math.MaxUint32)

// QuantizeDepth inverts and quantises a normalised depth. Inputs outside
// [0, 1] are clamped and NaN is treated as 0, so the result never wraps.
func QuantizeDepth(depth float64) uint32 {
	if !(depth > 0) {
		depth = 0
	} else if depth > 1 {
		depth = 1
	}
	return uint32(math.Floor((1 - depth) * depthScale))
}

func Encode(tile uint32, depth float64) uint64 {
	return uint64(tile)<<32 | uint64(QuantizeDepth(depth))
}

func Tile(key uint64) uint32 {
	return uint32(key >> 32)
}

func DepthBits(key uint64) uint32 {
	return uint32(key)
}
