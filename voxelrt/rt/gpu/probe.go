package gpu

import (
	"encoding/binary"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/vokselis"
	"github.com/mrjoshuak/go-openexr/half"
	"github.com/pkg/errors"
)

// probeRowBytes is the minimum row pitch of a texture to buffer copy.
const probeRowBytes = 256

// HdrProbe samples the centre texel of the HDR target so the unclamped
// radiance can be shown on the overlay. Its readback never waits: each
// Collect polls the device once and a copy that is not mapped yet is picked
// up by a later frame.
type HdrProbe struct {
	target   *HdrTarget
	buf      *wgpu.Buffer
	readback *Readback
	encoded  bool
	log      vokselis.Logger

	value [4]float32
	valid bool
}

func NewHdrProbe(dev *Device, target *HdrTarget, log vokselis.Logger) (*HdrProbe, error) {
	buf, err := dev.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "HDR Probe",
		Size:  probeRowBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create probe buffer")
	}
	return newHdrProbe(target, buf, NewBufferReadback(dev, buf, 0), log), nil
}

func newHdrProbe(target *HdrTarget, buf *wgpu.Buffer, rb *Readback, log vokselis.Logger) *HdrProbe {
	return &HdrProbe{target: target, buf: buf, readback: rb, log: vokselis.OrNop(log)}
}

// Encode copies the centre texel when no earlier copy is outstanding.
func (p *HdrProbe) Encode(encoder *wgpu.CommandEncoder) {
	if p.encoded || !p.readback.Idle() {
		return
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  p.target.Texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: p.target.Width / 2, Y: p.target.Height / 2, Z: 0},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: p.buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  probeRowBytes,
				RowsPerImage: 1,
			},
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	p.encoded = true
}

// Collect runs after submit and returns the latest sampled texel.
func (p *HdrProbe) Collect() ([4]float32, bool) {
	if p.encoded {
		p.encoded = false
		if err := p.readback.Request(); err != nil {
			p.log.Warnf("hdr probe: %v", err)
			return p.value, p.valid
		}
	}
	if p.readback.Idle() {
		return p.value, p.valid
	}
	err := p.readback.TryRead(func(data []byte) {
		p.value = DecodeRGBA16F(data)
		p.valid = true
	})
	if err != nil && errors.Cause(err) != ErrReadbackTimeout {
		p.log.Warnf("hdr probe: %v", err)
	}
	return p.value, p.valid
}

// DecodeRGBA16F unpacks one little endian RGBA half float texel.
func DecodeRGBA16F(data []byte) [4]float32 {
	var out [4]float32
	for i := 0; i < 4 && len(data) >= (i+1)*2; i++ {
		out[i] = half.Half(binary.LittleEndian.Uint16(data[i*2:])).Float32()
	}
	return out
}

func (p *HdrProbe) Release() {
	if p.buf != nil {
		p.buf.Release()
	}
}
