// Package gpu uploads pipeline results: the packed splat table as an
// RGBA32Uint texture and the sorted indices as a per-instance vertex buffer.
package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/gsplat/splatrt/rt/pack"
	"github.com/gekko3d/gsplat/splatrt/rt/pipeline"
)

// indexHeadroom is extra room, in bytes, kept in the index buffer so small
// instance count changes do not reallocate it.
const indexHeadroom = 64 * 1024

// Context is a headless device, for uploading without a window.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
}

func OpenHeadless() (*Context, error) {
	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	return &Context{Instance: instance, Adapter: adapter, Device: device}, nil
}

func (c *Context) Release() {
	c.Device.Release()
	c.Adapter.Release()
	c.Instance.Release()
}

type Uploader struct {
	Device *wgpu.Device

	DataTexture *wgpu.Texture
	DataView    *wgpu.TextureView
	IndexBuffer *wgpu.Buffer

	texWidth, texHeight uint32
	indexSize           uint64
}

func NewUploader(device *wgpu.Device) *Uploader {
	return &Uploader{Device: device}
}

// WordsToBytes serialises words little-endian, the layout WriteTexture and
// WriteBuffer expect.
func WordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// Upload writes res to the device. The data texture is recreated only when
// its size changes and the index buffer only when it runs out of room.
func (u *Uploader) Upload(res pipeline.Result) error {
	if b := res.Buffer; b != nil && b.Height > 0 {
		if _, err := u.ensureTexture(uint32(b.Width), uint32(b.Height)); err != nil {
			return err
		}
		extent := wgpu.Extent3D{Width: u.texWidth, Height: u.texHeight, DepthOrArrayLayers: 1}
		err := u.Device.GetQueue().WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  u.DataTexture,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			WordsToBytes(b.Words),
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  u.texWidth * pack.WordsPerTexel * 4,
				RowsPerImage: u.texHeight,
			},
			&extent,
		)
		if err != nil {
			return fmt.Errorf("write splat texture: %w", err)
		}
	}

	if len(res.Indices) > 0 {
		if _, err := u.ensureBuffer("Splat Indices", &u.IndexBuffer, &u.indexSize, WordsToBytes(res.Indices), wgpu.BufferUsageVertex, indexHeadroom); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uploader) ensureTexture(width, height uint32) (bool, error) {
	if u.DataTexture != nil && u.texWidth == width && u.texHeight == height {
		return false, nil
	}
	u.releaseTexture()

	tex, err := u.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Splat Data",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatRGBA32Uint,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return false, fmt.Errorf("create splat texture %dx%d: %w", width, height, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return false, fmt.Errorf("create splat texture view: %w", err)
	}
	u.DataTexture, u.DataView = tex, view
	u.texWidth, u.texHeight = width, height
	return true, nil
}

// ensureBuffer grows buf to fit data plus headroom and writes data into it.
// size tracks the allocated byte size of buf. It reports whether the buffer
// was recreated.
func (u *Uploader) ensureBuffer(name string, buf **wgpu.Buffer, size *uint64, data []byte, usage wgpu.BufferUsage, headroom int) (bool, error) {
	recreated := false
	if *buf == nil || *size < uint64(len(data)) {
		needed := alignedSize(len(data) + headroom)
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
		b, err := u.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  needed,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return false, fmt.Errorf("create %s buffer (%d bytes): %w", name, needed, err)
		}
		*buf = b
		*size = needed
		recreated = true
	}

	if len(data) > 0 {
		if err := u.Device.GetQueue().WriteBuffer(*buf, 0, data); err != nil {
			return recreated, fmt.Errorf("write %s buffer: %w", name, err)
		}
	}
	return recreated, nil
}

// alignedSize rounds n up to the 4-byte multiple buffer sizes must be.
func alignedSize(n int) uint64 {
	size := uint64(n)
	if size%4 != 0 {
		size += 4 - size%4
	}
	return size
}

func (u *Uploader) releaseTexture() {
	if u.DataView != nil {
		u.DataView.Release()
		u.DataView = nil
	}
	if u.DataTexture != nil {
		u.DataTexture.Release()
		u.DataTexture = nil
	}
	u.texWidth, u.texHeight = 0, 0
}

func (u *Uploader) Release() {
	u.releaseTexture()
	if u.IndexBuffer != nil {
		u.IndexBuffer.Release()
		u.IndexBuffer = nil
	}
	u.indexSize = 0
}
