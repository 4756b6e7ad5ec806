package annexb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func nal(startCode4 bool, t byte, body ...byte) []byte {
	var out []byte
	if startCode4 {
		out = append(out, 0, 0, 0, 1)
	} else {
		out = append(out, 0, 0, 1)
	}
	out = append(out, t)
	out = append(out, body...)
	return out
}

func TestSplitFindsEachNALUnit(t *testing.T) {
	stream := append(nal(true, NALTypeSPS, 0xAA), nal(false, NALTypeSliceIDR, 0xBB, 0xCC)...)
	units := Split(stream)
	require.Len(t, units, 2)
	require.Equal(t, byte(NALTypeSPS), units[0][0])
	require.Equal(t, byte(NALTypeSliceIDR), units[1][0])
}

func TestIsKeyFrameDetectsIDRSlice(t *testing.T) {
	stream := append(nal(true, NALTypeSPS), nal(false, NALTypeSliceIDR)...)
	require.True(t, IsKeyFrame(stream))

	nonKey := append(nal(true, NALTypeSPS), nal(false, NALTypeSliceNonIDR)...)
	require.False(t, IsKeyFrame(nonKey))
}

func TestIsConfigDetectsParameterSetsOnly(t *testing.T) {
	configOnly := append(nal(true, NALTypeSPS), nal(false, NALTypePPS)...)
	require.True(t, IsConfig(configOnly))

	withSlice := append(nal(true, NALTypeSPS), nal(false, NALTypeSliceIDR)...)
	require.False(t, IsConfig(withSlice))
}
