// Package half converts between float32 and IEEE-754 binary16 bit patterns
// and packs pairs of halves into one 32-bit word, matching GLSL/WGSL
// packHalf2x16 (x in the low 16 bits).
//
// Conversion rounds to nearest, ties to even. Values above the largest finite
// half become signed infinity and NaN stays NaN.
package half

import (
	"github.com/x448/float16"
)

const (
	PositiveInfinity uint16 = 0x7C00
	NegativeInfinity uint16 = 0xFC00
	MaxFinite        uint16 = 0x7BFF
)

func FromFloat32(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}

func ToFloat32(h uint16) float32 {
	return float16.Frombits(h).Float32()
}

// Exact reports whether f survives a half round trip without loss.
func Exact(f float32) bool {
	return float16.PrecisionFromfloat32(f) == float16.PrecisionExact
}

// IsNaN reports whether h encodes a NaN.
func IsNaN(h uint16) bool {
	return h&0x7C00 == 0x7C00 && h&0x03FF != 0
}

func Pack2x16(x, y float32) uint32 {
	return uint32(FromFloat32(x)) | uint32(FromFloat32(y))<<16
}

func Unpack2x16(v uint32) (x, y float32) {
	return ToFloat32(uint16(v)), ToFloat32(uint16(v >> 16))
}
