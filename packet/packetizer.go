package packet

import (
	"sync/atomic"
)

// Unit is one coded access unit handed from an encoder to a Packetizer, or
// reassembled by a Reassembler for a decoder.
type Unit struct {
	Kind      Kind
	KeyFrame  bool
	Config    bool
	EndStream bool
	Timestamp uint64
	Payload   []byte
}

// Packetizer fragments coded units into wire packets no larger than MTU,
// assigning a monotonically increasing sequence number from a single
// lock-free atomic counter — the spec's single-writer-per-stream
// invariant.
type Packetizer struct {
	seq atomic.Uint32
	mtu int
}

// NewPacketizer constructs a Packetizer for one stream (video or audio)
// within a session, fragmenting to the given path MTU.
func NewPacketizer(mtu int) *Packetizer {
	return &Packetizer{mtu: mtu}
}

// maxPayload is the largest payload chunk that fits in one packet at the
// configured MTU, after subtracting the fixed wire header.
func (p *Packetizer) maxPayload() int {
	n := p.mtu - HeaderSize
	if n < 1 {
		n = 1
	}
	return n
}

// Packetize splits u into one or more Packets, each carrying a sequence
// number drawn from the packetizer's single atomic counter and the same
// Timestamp, with FragmentIndex/FragmentCount set for reassembly.
func (p *Packetizer) Packetize(u Unit) []Packet {
	chunk := p.maxPayload()
	total := (len(u.Payload) + chunk - 1) / chunk
	if total == 0 {
		total = 1
	}
	// All fragments of this unit share one sequence number (spec §3):
	// the sequence identifies the logical packet, not the wire fragment.
	seq := p.seq.Add(1) - 1
	packets := make([]Packet, 0, total)
	for i := 0; i < total; i++ {
		start := i * chunk
		end := start + chunk
		if end > len(u.Payload) {
			end = len(u.Payload)
		}
		var flags Flags
		if u.KeyFrame {
			flags |= FlagKeyFrame
		}
		if u.Config {
			flags |= FlagConfig
		}
		if u.EndStream && i == total-1 {
			flags |= FlagEndOfStream
		}
		packets = append(packets, Packet{
			Header: Header{
				Kind:          u.Kind,
				Flags:         flags,
				Sequence:      seq,
				Timestamp:     u.Timestamp,
				FragmentIndex: uint16(i),
				FragmentCount: uint16(total),
			},
			Payload: u.Payload[start:end],
		})
	}
	return packets
}
