// Package encode provides output pacing for the sender's packetize stage:
// it shapes wire-packet emission to the configured bit rate using a token
// bucket, giving the encoder parameters' "CBR-like behavior" a concrete,
// measurable expression at the egress boundary. This paces egress only; it
// never probes or reacts to network conditions, so it is not
// congestion-responsive rate control (out of scope per the casting
// protocol's non-goals).
package encode

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer throttles byte emission to a configured bits-per-second rate.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer constructs a Pacer for the given bit rate. A non-positive
// bitRate disables pacing (Wait always returns immediately).
func NewPacer(bitRate int) *Pacer {
	if bitRate <= 0 {
		return &Pacer{}
	}
	bytesPerSecond := bitRate / 8
	burst := bytesPerSecond / 10
	if burst < 1 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst)}
}

// Wait blocks until n bytes may be emitted under the configured rate, or
// ctx is done.
func (p *Pacer) Wait(ctx context.Context, n int) error {
	if p.limiter == nil {
		return nil
	}
	// WaitN rejects requests larger than the burst, so wait in burst-sized steps.
	burst := p.limiter.Burst()
	for n > 0 {
		k := n
		if k > burst {
			k = burst
		}
		if err := p.limiter.WaitN(ctx, k); err != nil {
			return err
		}
		n -= k
	}
	return nil
}
