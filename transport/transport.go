// Package transport implements the pluggable transport strategies named by
// the casting protocol: Direct (UDP point-to-point), Relay (fan-out server
// keyed by session ID) and Multicast (class-D UDP group). All three send
// and receive raw wire bytes produced by the packet package; none of them
// understand packet framing themselves.
package transport

import "context"

// Strategy is the pluggable transport contract. Send is non-blocking and
// best-effort: a full OS send buffer or unreachable peer drops the
// datagram rather than blocking the caller. Close is idempotent.
type Strategy interface {
	Send(ctx context.Context, b []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Kind identifies which Strategy a session.Config selects.
type Kind int

const (
	KindDirect Kind = iota
	KindRelay
	KindMulticast
)
