// Package loader turns splat files and procedural generators into core.Scene values.
package loader

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gsplat"
	"github.com/gekko3d/gsplat/splatrt/rt/core"
)

const (
	PLYMagic       = "ply"
	maxHeaderBytes = 4096
	endHeader      = "end_header"

	// initialVertices caps the up-front allocation; larger files grow as rows arrive.
	initialVertices = 1 << 16
)

var (
	ErrNoEndHeader       = errors.New("ply: end_header not found")
	ErrUnsupportedFormat = errors.New("unsupported splat format")
	ErrMissingProperty   = errors.New("ply: missing vertex property")
)

var plyRequired = []string{
	"x", "y", "z",
	"f_dc_0", "f_dc_1", "f_dc_2",
	"opacity",
	"scale_0", "scale_1", "scale_2",
	"rot_0", "rot_1", "rot_2", "rot_3",
}

type plyHeader struct {
	vertexCount int
	properties  []string
	index       map[string]int
}

func readPLYHeader(br *bufio.Reader) (*plyHeader, error) {
	h := &plyHeader{index: make(map[string]int)}
	read := 0
	inVertex, seenVertex := false, false
	for lineNo := 0; ; lineNo++ {
		line, err := br.ReadString('\n')
		read += len(line)
		if read > maxHeaderBytes {
			return nil, ErrNoEndHeader
		}
		if err != nil {
			if err == io.EOF {
				return nil, ErrNoEndHeader
			}
			return nil, err
		}

		fields := strings.Fields(line)
		if lineNo == 0 {
			if len(fields) != 1 || fields[0] != PLYMagic {
				return nil, fmt.Errorf("%w: not a PLY file", ErrUnsupportedFormat)
			}
			continue
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case endHeader:
			if !seenVertex {
				return nil, fmt.Errorf("%w: no vertex element", ErrUnsupportedFormat)
			}
			for _, name := range plyRequired {
				if _, ok := h.index[name]; !ok {
					return nil, fmt.Errorf("%w: %s", ErrMissingProperty, name)
				}
			}
			if h.vertexCount > math.MaxInt/(len(h.properties)*4) {
				return nil, fmt.Errorf("%w: vertex count %d too large", ErrUnsupportedFormat, h.vertexCount)
			}
			return h, nil
		case "format":
			if len(fields) < 2 || fields[1] != "binary_little_endian" {
				return nil, fmt.Errorf("%w: ply format %q", ErrUnsupportedFormat, strings.Join(fields[1:], " "))
			}
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: malformed element line %q", ErrUnsupportedFormat, strings.TrimSpace(line))
			}
			if fields[1] != "vertex" {
				// Vertex data has to come first; trailing elements are never read.
				if !inVertex {
					return nil, fmt.Errorf("%w: element %q before vertex", ErrUnsupportedFormat, fields[1])
				}
				inVertex = false
				continue
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: vertex count %q", ErrUnsupportedFormat, fields[2])
			}
			h.vertexCount = n
			inVertex, seenVertex = true, true
		case "property":
			if !inVertex {
				continue
			}
			if len(fields) != 3 || fields[1] != "float" {
				return nil, fmt.Errorf("%w: vertex property %q", ErrUnsupportedFormat, strings.TrimSpace(line))
			}
			h.index[fields[2]] = len(h.properties)
			h.properties = append(h.properties, fields[2])
		}
	}
}

// shToRGB maps the DC spherical-harmonic terms to a display colour.
func shToRGB(dc0, dc1, dc2 float32) mgl32.Vec3 {
	r := math32.Exp(dc0 - 0.5)
	g := math32.Exp(dc1 - 0.5)
	b := math32.Exp(dc2 - 0.5)
	scale := min(1, 1/max(r, g, b, 1e-5))
	const gamma = 1 / 2.2
	return mgl32.Vec3{
		math32.Pow(r*scale, gamma),
		math32.Pow(g*scale, gamma),
		math32.Pow(b*scale, gamma),
	}
}

// ParsePLY reads a binary little-endian 3D Gaussian splatting PLY file.
// Positions are recentred and scaled to cfg.NormalizeExtent, and splats with
// opacity at or below cfg.MinOpacity are dropped. Quaternions are stored
// scalar first (rot_0 = w).
func ParsePLY(r io.Reader, cfg gsplat.LoaderConfig) (*core.Scene, error) {
	br := bufio.NewReader(r)
	h, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}

	stride := len(h.properties)
	data := make([]float32, 0, min(h.vertexCount, initialVertices)*stride)
	row := make([]byte, stride*4)
	for i := 0; i < h.vertexCount; i++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("ply: read vertex %d of %d: %w", i, h.vertexCount, err)
		}
		for j := 0; j < stride; j++ {
			data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(row[j*4:])))
		}
	}

	at := func(i int, name string) float32 {
		return data[i*stride+h.index[name]]
	}

	var lo, hi mgl32.Vec3
	for i := 0; i < h.vertexCount; i++ {
		p := mgl32.Vec3{at(i, "x"), at(i, "y"), at(i, "z")}
		if i == 0 {
			lo, hi = p, p
			continue
		}
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	extent := max(hi[0]-lo[0], hi[1]-lo[1], hi[2]-lo[2])
	factor := float32(1)
	if extent > 0 {
		factor = cfg.NormalizeExtent / extent
	}

	splats := make([]core.Splat, 0, min(h.vertexCount, initialVertices))
	for i := 0; i < h.vertexCount; i++ {
		alpha := min(1, math32.Exp(at(i, "opacity"))*cfg.OpacityBoost)
		if !(alpha > cfg.MinOpacity) {
			continue
		}
		pos := mgl32.Vec3{at(i, "x"), at(i, "y"), at(i, "z")}.Sub(center).Mul(factor)
		scale := mgl32.Vec3{
			math32.Exp(at(i, "scale_0")) * cfg.ScaleMultiplier,
			math32.Exp(at(i, "scale_1")) * cfg.ScaleMultiplier,
			math32.Exp(at(i, "scale_2")) * cfg.ScaleMultiplier,
		}
		rot := mgl32.Quat{
			W: at(i, "rot_0"),
			V: mgl32.Vec3{at(i, "rot_1"), at(i, "rot_2"), at(i, "rot_3")},
		}
		splats = append(splats, core.Splat{
			Position:   pos,
			Covariance: core.CovarianceFromScaleRotation(scale, rot),
			Color:      shToRGB(at(i, "f_dc_0"), at(i, "f_dc_1"), at(i, "f_dc_2")),
			Alpha:      alpha,
		})
	}
	return core.NewScene(splats), nil
}
