package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mycrl/mirror/internal/mirrerr"
	"github.com/mycrl/mirror/media"
	"github.com/mycrl/mirror/transport"
)

func TestConfigValidateAppliesDefaults(t *testing.T) {
	cfg := Config{Strategy: transport.KindDirect, Address: "127.0.0.1:9000"}
	require.NoError(t, cfg.Validate())
	require.Equal(t, DefaultMTU, cfg.MTU)
	require.Equal(t, media.DefaultKeyFrameInterval, cfg.Video.KeyFrameInterval)
	require.Equal(t, media.DefaultAudioSampleRate, cfg.Audio.SampleRate)
}

func TestConfigValidateRejectsOutOfRangeMTU(t *testing.T) {
	cfg := Config{Strategy: transport.KindDirect, Address: "x", MTU: 10}
	err := cfg.Validate()
	require.Error(t, err)
	var me *mirrerr.Error
	require.ErrorAs(t, err, &me)
	require.Equal(t, mirrerr.ParameterRejected, me.Kind)
}

func TestConfigValidateRejectsEmptyAddress(t *testing.T) {
	cfg := Config{Strategy: transport.KindDirect}
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := Config{Strategy: transport.Kind(99), Address: "x"}
	require.Error(t, cfg.Validate())
}
