package packet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketizeSmallPayloadIsOnePacket(t *testing.T) {
	pk := NewPacketizer(1400)
	packets := pk.Packetize(Unit{Kind: KindVideo, KeyFrame: true, Timestamp: 5, Payload: []byte("small payload")})
	require.Len(t, packets, 1)
	require.Equal(t, uint16(0), packets[0].Header.FragmentIndex)
	require.Equal(t, uint16(1), packets[0].Header.FragmentCount)
	require.True(t, packets[0].Header.Flags&FlagKeyFrame != 0)
}

func TestPacketizeFragmentsLargePayload(t *testing.T) {
	mtu := 100
	pk := NewPacketizer(mtu)
	payload := bytes.Repeat([]byte{0xAB}, 1000)
	packets := pk.Packetize(Unit{Kind: KindVideo, Timestamp: 1, Payload: payload})
	require.Greater(t, len(packets), 1)

	var reconstructed []byte
	for i, p := range packets {
		require.Equal(t, uint16(i), p.Header.FragmentIndex)
		require.Equal(t, uint16(len(packets)), p.Header.FragmentCount)
		reconstructed = append(reconstructed, p.Payload...)
	}
	require.Equal(t, payload, reconstructed)
}

func TestPacketizeSequenceIsMonotonicPerStream(t *testing.T) {
	pk := NewPacketizer(1400)
	a := pk.Packetize(Unit{Payload: []byte("a")})
	b := pk.Packetize(Unit{Payload: []byte("b")})
	require.Equal(t, a[0].Header.Sequence+1, b[0].Header.Sequence)
}

func TestReassemblerRoundTrip(t *testing.T) {
	mtu := 50
	pk := NewPacketizer(mtu)
	payload := bytes.Repeat([]byte{0x7A}, 400)
	packets := pk.Packetize(Unit{Kind: KindVideo, KeyFrame: true, Timestamp: 77, Payload: payload})
	require.Greater(t, len(packets), 1)

	var asm Reassembler
	var got Unit
	var ok bool
	for _, p := range packets {
		got, ok = asm.Add(p)
	}
	require.True(t, ok)
	require.Equal(t, payload, got.Payload)
	require.True(t, got.KeyFrame)
	require.Equal(t, uint64(77), got.Timestamp)
}
