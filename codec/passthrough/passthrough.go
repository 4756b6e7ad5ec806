// Package passthrough provides a reference VideoEncoder/VideoDecoder pair
// that wraps raw frame bytes in synthetic Annex-B-shaped access units
// (an IDR slice NAL every KeyFrameInterval frames, a non-IDR slice NAL
// otherwise) instead of driving a real platform codec. It exists so tests
// and the example cmd/ binaries can exercise the full pipeline without a
// hardware/OS encoder, grounded in the same NAL framing codec/annexb
// understands.
package passthrough

import (
	"encoding/binary"

	"github.com/mycrl/mirror/codec"
	"github.com/mycrl/mirror/codec/annexb"
	"github.com/mycrl/mirror/media"
)

var startCode = []byte{0, 0, 0, 1}

// Encoder wraps each input VideoFrame's pixel bytes as a single
// synthetic NAL unit, marking every Nth frame (N = KeyFrameInterval) as an
// IDR slice.
type Encoder struct {
	KeyFrameInterval int
	count            int
}

func NewEncoder(keyFrameInterval int) *Encoder {
	if keyFrameInterval <= 0 {
		keyFrameInterval = media.DefaultKeyFrameInterval
	}
	return &Encoder{KeyFrameInterval: keyFrameInterval}
}

func (e *Encoder) Encode(f media.VideoFrame) ([]codec.Unit, error) {
	due := e.count%e.KeyFrameInterval == 0
	e.count++

	nalType := byte(1) // non-IDR slice
	if due {
		nalType = byte(5) // IDR slice
	}

	payload := make([]byte, 0, len(startCode)+1+4+totalLen(f))
	payload = append(payload, startCode...)
	payload = append(payload, nalType)
	var dims [4]byte
	binary.BigEndian.PutUint16(dims[0:2], uint16(f.Width))
	binary.BigEndian.PutUint16(dims[2:4], uint16(f.Height))
	payload = append(payload, dims[:]...)
	for _, p := range f.Planes {
		payload = append(payload, p.Data...)
	}

	// The interval counter decides when to emit an IDR slice, but whether a
	// unit is treated as a key frame downstream is read back off the
	// bitstream itself, the same way a real decoder would determine it.
	return []codec.Unit{{
		KeyFrame:  annexb.IsKeyFrame(payload),
		Timestamp: f.Timestamp,
		Payload:   payload,
	}}, nil
}

func (e *Encoder) Close() error { return nil }

func totalLen(f media.VideoFrame) int {
	n := 0
	for _, p := range f.Planes {
		n += len(p.Data)
	}
	return n
}

// Decoder reverses Encoder: it strips the synthetic NAL header and
// returns a VideoFrame with the original pixel bytes as a single plane.
type Decoder struct {
	width, height int
}

func NewDecoder() *Decoder { return &Decoder{} }

func (d *Decoder) Decode(u codec.Unit) (*media.VideoFrame, error) {
	if len(u.Payload) < len(startCode)+1+4 {
		return nil, nil
	}
	body := u.Payload[len(startCode)+1:]
	w := int(binary.BigEndian.Uint16(body[0:2]))
	h := int(binary.BigEndian.Uint16(body[2:4]))
	pixels := body[4:]
	d.width, d.height = w, h
	return &media.VideoFrame{
		Format:    media.PixelFormatI420,
		SubFormat: media.SubFormatSystemMemory,
		Width:     w,
		Height:    h,
		Planes:    [3]media.Plane{{Data: pixels}},
		Timestamp: u.Timestamp,
	}, nil
}

func (d *Decoder) Flush()       {}
func (d *Decoder) Close() error { return nil }
