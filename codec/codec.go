// Package codec defines the encoder/decoder contracts used by the encode
// and decode pipeline stages. Real platform codecs (hardware H.264/HEVC
// encoders, software fallbacks) are external collaborators that implement
// these interfaces; this package only carries the boundary types.
package codec

import "github.com/mycrl/mirror/media"

// Unit is a coded access unit: an encoder's output or a decoder's input.
// It mirrors packet.Unit but lives in the codec package to avoid a
// dependency from codec on packet.
type Unit struct {
	KeyFrame  bool
	Config    bool
	Timestamp uint64
	Payload   []byte
}

// VideoEncoder turns captured video frames into coded units.
type VideoEncoder interface {
	Encode(media.VideoFrame) ([]Unit, error)
	Close() error
}

// VideoDecoder turns coded units back into video frames. Flush signals a
// discontinuity (e.g. after a jitter-buffer skip) so internal decoder
// state can be reset without a full Close/re-init.
type VideoDecoder interface {
	Decode(Unit) (*media.VideoFrame, error)
	Flush()
	Close() error
}

// AudioEncoder turns captured audio frames into coded units.
type AudioEncoder interface {
	Encode(media.AudioFrame) ([]Unit, error)
	Close() error
}

// AudioDecoder turns coded units back into audio frames.
type AudioDecoder interface {
	Decode(Unit) (*media.AudioFrame, error)
	Flush()
	Close() error
}
