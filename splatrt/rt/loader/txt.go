package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gsplat/splatrt/rt/core"
)

// TXTFields is the number of values on one splat line:
// x y z  qi qj qk qw  sx sy sz  r g b  alpha
const TXTFields = 14

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	return min(v, 1)
}

func clampScale(s mgl32.Vec3) mgl32.Vec3 {
	for i := range s {
		s[i] = max(s[i], core.MinScale)
	}
	return s
}

func parseTXTLine(fields []string) (core.Splat, error) {
	if len(fields) != TXTFields {
		return core.Splat{}, fmt.Errorf("want %d values, got %d", TXTFields, len(fields))
	}
	var v [TXTFields]float32
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return core.Splat{}, err
		}
		v[i] = float32(x)
	}
	rot := mgl32.Quat{W: v[6], V: mgl32.Vec3{v[3], v[4], v[5]}}
	scale := clampScale(mgl32.Vec3{v[7], v[8], v[9]})
	return core.Splat{
		Position:   mgl32.Vec3{v[0], v[1], v[2]},
		Covariance: core.CovarianceFromScaleRotation(scale, rot),
		Color:      mgl32.Vec3{clamp01(v[10]), clamp01(v[11]), clamp01(v[12])},
		Alpha:      clamp01(v[13]),
	}, nil
}

// ParseTXT reads one splat per line. Blank lines and lines starting with '#'
// are ignored; malformed lines are skipped and counted in the second result.
func ParseTXT(r io.Reader) (*core.Scene, int, error) {
	var splats []core.Splat
	skipped := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, err := parseTXTLine(strings.Fields(line))
		if err != nil {
			skipped++
			continue
		}
		splats = append(splats, s)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("txt: %w", err)
	}
	return core.NewScene(splats), skipped, nil
}
