package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderMarshalUnmarshalRoundTrip(t *testing.T) {
	cases := []Header{
		{Kind: KindVideo, Flags: FlagKeyFrame, Sequence: 1, Timestamp: 1234, FragmentIndex: 0, FragmentCount: 1},
		{Kind: KindAudio, Flags: 0, Sequence: 0xFFFFFFFE, Timestamp: 0, FragmentIndex: 3, FragmentCount: 4},
		{Kind: KindVideo, Flags: FlagConfig | FlagEndOfStream, Sequence: 42, Timestamp: 1 << 40, FragmentIndex: 0, FragmentCount: 1},
	}
	for _, h := range cases {
		buf := h.Marshal(nil)
		require.Len(t, buf, HeaderSize)
		got, err := Unmarshal(buf)
		require.NoError(t, err)
		require.Equal(t, h, got)
	}
}

func TestHeaderMarshalGoldenBytes(t *testing.T) {
	h := Header{Kind: KindVideo, Flags: FlagKeyFrame, Sequence: 0x01020304, Timestamp: 0x0102030405060708, FragmentIndex: 0x0203, FragmentCount: 0x0405}
	want := []byte{
		0x00,                   // kind
		0x01,                   // flags (FlagKeyFrame)
		0x01, 0x02, 0x03, 0x04, // sequence
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, // timestamp
		0x02, 0x03, // fragment index
		0x04, 0x05, // fragment count
	}
	require.Equal(t, want, h.Marshal(nil))
}

func TestUnmarshalShortBuffer(t *testing.T) {
	_, err := Unmarshal(make([]byte, HeaderSize-1))
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestPacketMarshalUnmarshal(t *testing.T) {
	p := Packet{
		Header:  Header{Kind: KindAudio, Sequence: 7, Timestamp: 99},
		Payload: []byte("hello"),
	}
	buf := p.Marshal()
	got, err := UnmarshalPacket(buf)
	require.NoError(t, err)
	require.Equal(t, p.Header, got.Header)
	require.Equal(t, p.Payload, got.Payload)
}

func TestSequenceLessWrapsSafely(t *testing.T) {
	require.True(t, SequenceLess(0xFFFFFFFF, 0))
	require.False(t, SequenceLess(0, 0xFFFFFFFF))
	require.True(t, SequenceLess(5, 6))
	require.False(t, SequenceLess(6, 5))
}
