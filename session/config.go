// Package session implements the sender and receiver session lifecycle
// state machines described by the casting protocol, wiring the capture,
// encode, packetize, transport, jitter, decode and sink stages together
// and coordinating their shared-mutable-state (close flags, packetizer
// sequence counters, transport socket handles) the way the teacher
// coordinates a WebRTC peer connection's lifecycle.
package session

import (
	"fmt"

	"github.com/mycrl/mirror/internal/mirrerr"
	"github.com/mycrl/mirror/media"
	"github.com/mycrl/mirror/transport"
)

// DefaultMTU is used when a Config does not specify one.
const DefaultMTU = 1400

// MinMTU and MaxMTU bound the accepted path MTU.
const (
	MinMTU = 576
	MaxMTU = 1500
)

// Config is the session configuration surface: transport strategy and
// address, path MTU, and video/audio parameters.
type Config struct {
	Strategy transport.Kind
	Address  string
	MTU      int
	Video    media.VideoParams
	Audio    media.AudioParams
}

// Validate rejects out-of-range configuration before any resource is
// acquired, filling in documented defaults for zero-valued fields.
func (c *Config) Validate() error {
	if c.MTU == 0 {
		c.MTU = DefaultMTU
	}
	if c.MTU < MinMTU || c.MTU > MaxMTU {
		return mirrerr.New(mirrerr.ParameterRejected, "session.config.validate", fmt.Errorf("mtu %d out of range [%d,%d]", c.MTU, MinMTU, MaxMTU))
	}
	if c.Strategy != transport.KindDirect && c.Strategy != transport.KindRelay && c.Strategy != transport.KindMulticast {
		return mirrerr.New(mirrerr.ParameterRejected, "session.config.validate", fmt.Errorf("unknown transport strategy %d", c.Strategy))
	}
	if c.Address == "" {
		return mirrerr.New(mirrerr.ParameterRejected, "session.config.validate", fmt.Errorf("address must not be empty"))
	}
	if c.Video.KeyFrameInterval <= 0 {
		c.Video.KeyFrameInterval = media.DefaultKeyFrameInterval
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = media.DefaultAudioSampleRate
	}
	return nil
}
