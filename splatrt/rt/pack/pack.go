// Package pack serialises splats into the flat RGBA32Uint texel table read
// by the rasterizer.
//
// Each splat takes two texels (8 words):
//
//	word 0..2  position x, y, z as float32 bits
//	word 3     0
//	word 4     half2(cov_xx, cov_xy)
//	word 5     half2(cov_yy, 0)
//	word 6     0
//	word 7     alpha<<24 | b<<16 | g<<8 | r, 8 bits each
package pack

import (
	"math"

	"github.com/gekko3d/gsplat/splatrt/rt/core"
	"github.com/gekko3d/gsplat/splatrt/rt/half"
)

const (
	TextureWidth   = 2048
	TexelsPerSplat = 2
	WordsPerTexel  = 4
	WordsPerSplat  = TexelsPerSplat * WordsPerTexel
)

// Buffer is a TextureWidth x Height table of 4-word texels, row-major.
// Texels past the last splat are zero.
type Buffer struct {
	Words  []uint32
	Width  int
	Height int
	Splats int
}

// Splat returns the 8 words of splat i.
func (b *Buffer) Splat(i int) []uint32 {
	return b.Words[i*WordsPerSplat : (i+1)*WordsPerSplat]
}

// TextureHeight is ceil(TexelsPerSplat*n / TextureWidth).
func TextureHeight(n int) int {
	return (TexelsPerSplat*n + TextureWidth - 1) / TextureWidth
}

func channel(c float32) uint32 {
	if !(c > 0) {
		return 0
	}
	if c >= 1 {
		return 255
	}
	return uint32(math.Floor(float64(c) * 255))
}

// PackColor quantises each channel with floor(c*255). Channels are clamped to
// [0, 1] first and NaN counts as 0.
func PackColor(r, g, b, a float32) uint32 {
	return channel(a)<<24 | channel(b)<<16 | channel(g)<<8 | channel(r)
}

func packSplat(dst []uint32, s *core.Splat) {
	dst[0] = math.Float32bits(s.Position.X())
	dst[1] = math.Float32bits(s.Position.Y())
	dst[2] = math.Float32bits(s.Position.Z())
	dst[3] = 0
	dst[4] = half.Pack2x16(s.Covariance[0], s.Covariance[1])
	dst[5] = half.Pack2x16(s.Covariance[2], 0)
	dst[6] = 0
	dst[7] = PackColor(s.Color.X(), s.Color.Y(), s.Color.Z(), s.Alpha)
}

// Packer reuses one Buffer across calls. The returned Buffer is only valid
// until the next Pack.
type Packer struct {
	buf Buffer
}

// Pack writes every splat into the texel table and hands sorted back
// unchanged as the per-instance lookup.
func (p *Packer) Pack(splats []core.Splat, sorted []uint32) (*Buffer, []uint32) {
	n := len(splats)
	height := TextureHeight(n)
	size := TextureWidth * height * WordsPerTexel

	if cap(p.buf.Words) < size {
		p.buf.Words = make([]uint32, size)
	} else {
		p.buf.Words = p.buf.Words[:size]
		clear(p.buf.Words)
	}
	p.buf.Width = TextureWidth
	p.buf.Height = height
	p.buf.Splats = n

	for i := range splats {
		packSplat(p.buf.Splat(i), &splats[i])
	}
	return &p.buf, sorted
}

// IdentityIndices fills dst with 0..n-1, reusing its storage when it is large enough.
func IdentityIndices(dst []uint32, n int) []uint32 {
	if cap(dst) < n {
		dst = make([]uint32, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = uint32(i)
	}
	return dst
}
