package jitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mycrl/mirror/packet"
)

func pkt(seq uint32, key bool) packet.Packet {
	var flags packet.Flags
	if key {
		flags = packet.FlagKeyFrame
	}
	return packet.Packet{Header: packet.Header{Sequence: seq, Flags: flags, FragmentCount: 1}}
}

func TestBufferDeliversInOrder(t *testing.T) {
	b := NewBuffer(21, 16)
	b.Push(pkt(2, false))
	b.Push(pkt(0, true))
	b.Push(pkt(1, false))

	frags, ok, skipped := b.Pop()
	require.True(t, ok)
	require.False(t, skipped)
	require.Len(t, frags, 1)
	require.Equal(t, uint32(0), frags[0].Header.Sequence)

	frags, ok, _ = b.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(1), frags[0].Header.Sequence)

	frags, ok, _ = b.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(2), frags[0].Header.Sequence)
}

func TestBufferDiscardsDuplicates(t *testing.T) {
	b := NewBuffer(21, 16)
	b.Push(pkt(0, true))
	b.Push(pkt(0, true))
	require.Equal(t, 1, b.Len())
}

func TestBufferWaitsBeforeStallDeadline(t *testing.T) {
	b := NewBuffer(21, 16)
	b.Push(pkt(0, true))
	_, ok, _ := b.Pop()
	require.True(t, ok)

	b.Push(pkt(2, false)) // sequence 1 is missing
	_, ok, _ = b.Pop()
	require.False(t, ok, "should wait for seq 1 rather than deliver out of order before the stall deadline")
}

func TestBufferSkipsToKeyFrameAfterStall(t *testing.T) {
	b := NewBuffer(21, 16)
	b.Push(pkt(0, true))
	frags, ok, _ := b.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(0), frags[0].Header.Sequence)

	// Sequence 1 never arrives; 5 does, carrying a key frame.
	b.Push(pkt(5, true))
	time.Sleep(StallDeadline + 10*time.Millisecond)

	frags, ok, skipped := b.Pop()
	require.True(t, ok)
	require.True(t, skipped)
	require.Equal(t, uint32(5), frags[0].Header.Sequence)
}

func TestBufferDropOldestWhenOverCapacity(t *testing.T) {
	b := NewBuffer(1, 2) // small capacity: 1*2 + 2 = 4 sequences
	for i := uint32(1); i <= 10; i++ {
		b.Push(pkt(i, false))
	}
	require.LessOrEqual(t, b.Len(), 4)
}

func fragment(seq uint32, idx, total uint16, key bool) packet.Packet {
	var flags packet.Flags
	if key {
		flags = packet.FlagKeyFrame
	}
	return packet.Packet{Header: packet.Header{
		Sequence: seq, Flags: flags, FragmentIndex: idx, FragmentCount: total,
	}}
}

func TestBufferWithholdsIncompleteFragmentGroup(t *testing.T) {
	b := NewBuffer(21, 16)
	b.Push(fragment(0, 0, 2, true))
	_, ok, _ := b.Pop()
	require.False(t, ok, "sequence 0 has only 1 of 2 fragments")

	b.Push(fragment(0, 1, 2, true))
	frags, ok, _ := b.Pop()
	require.True(t, ok)
	require.Len(t, frags, 2)
	require.Equal(t, uint16(0), frags[0].Header.FragmentIndex)
	require.Equal(t, uint16(1), frags[1].Header.FragmentIndex)
}
