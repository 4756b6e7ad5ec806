// Package packet implements the custom wire format described by the
// casting protocol: network byte order, NOT RTP-compatible. Each packet
// carries an 18-byte header (kind, flags, sequence, timestamp, fragment
// index/count) followed by payload bytes.
package packet

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the fixed, wire-encoded size of a Header in bytes.
const HeaderSize = 1 + 1 + 4 + 8 + 2 + 2

// Kind identifies which logical stream a packet belongs to.
type Kind uint8

const (
	KindVideo Kind = 0
	KindAudio Kind = 1
)

// Flags is a bitmask of per-packet markers.
type Flags uint8

const (
	FlagKeyFrame    Flags = 1 << 0
	FlagConfig      Flags = 1 << 1
	FlagEndOfStream Flags = 1 << 2
)

// Header is the fixed wire header prefixing every packet's payload.
type Header struct {
	Kind          Kind
	Flags         Flags
	Sequence      uint32
	Timestamp     uint64 // sender-monotonic microseconds
	FragmentIndex uint16
	FragmentCount uint16
}

// ErrShortBuffer is returned by Unmarshal when fewer than HeaderSize bytes
// are available.
var ErrShortBuffer = errors.New("packet: buffer shorter than header size")

// Marshal encodes h into the first HeaderSize bytes of dst, growing dst if
// needed, and returns the resulting slice.
func (h Header) Marshal(dst []byte) []byte {
	if cap(dst) < HeaderSize {
		dst = make([]byte, HeaderSize)
	} else {
		dst = dst[:HeaderSize]
	}
	dst[0] = byte(h.Kind)
	dst[1] = byte(h.Flags)
	binary.BigEndian.PutUint32(dst[2:6], h.Sequence)
	binary.BigEndian.PutUint64(dst[6:14], h.Timestamp)
	binary.BigEndian.PutUint16(dst[14:16], h.FragmentIndex)
	binary.BigEndian.PutUint16(dst[16:18], h.FragmentCount)
	return dst
}

// Unmarshal decodes a Header from the first HeaderSize bytes of src.
func Unmarshal(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, ErrShortBuffer
	}
	return Header{
		Kind:          Kind(src[0]),
		Flags:         Flags(src[1]),
		Sequence:      binary.BigEndian.Uint32(src[2:6]),
		Timestamp:     binary.BigEndian.Uint64(src[6:14]),
		FragmentIndex: binary.BigEndian.Uint16(src[14:16]),
		FragmentCount: binary.BigEndian.Uint16(src[16:18]),
	}, nil
}

// Packet is a fully decoded wire packet: header plus payload.
type Packet struct {
	Header  Header
	Payload []byte
}

// Marshal encodes the packet (header + payload) into a single wire buffer.
func (p Packet) Marshal() []byte {
	buf := make([]byte, HeaderSize+len(p.Payload))
	p.Header.Marshal(buf)
	copy(buf[HeaderSize:], p.Payload)
	return buf
}

// UnmarshalPacket decodes a full wire buffer (header + payload) into a
// Packet. The returned Payload aliases src; callers that retain it across
// buffer reuse must copy.
func UnmarshalPacket(src []byte) (Packet, error) {
	h, err := Unmarshal(src)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Header: h, Payload: src[HeaderSize:]}, nil
}

// SequenceLess reports whether a precedes b in wrap-safe sequence order,
// using the signed-difference comparison mandated for 32-bit wrapping
// counters.
func SequenceLess(a, b uint32) bool {
	return int32(a-b) < 0
}

// SequenceDiff returns b-a as a signed distance, wrap-safe across the
// uint32 boundary.
func SequenceDiff(a, b uint32) int32 {
	return int32(b - a)
}
