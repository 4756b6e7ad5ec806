package transport

import (
	"context"
	"net"

	"github.com/google/uuid"

	"github.com/mycrl/mirror/internal/mirrerr"
	"github.com/mycrl/mirror/internal/xlog"
)

// relayTokenSize is the length of the session-id token every Relay client
// prepends to datagrams sent to the relay server, so the server can key
// its subscriber fan-out without parsing the wire packet header.
const relayTokenSize = 16

// Relay is the client side of the relay transport strategy: it sends
// session-id-prefixed datagrams to a relay server (internal/relayserver),
// which fans them out to every other subscriber of the same session, and
// receives already-unwrapped datagrams back on the same socket.
type Relay struct {
	conn      *net.UDPConn
	sessionID [relayTokenSize]byte
}

// DialRelay connects to a relay server at addr and joins sessionID's fan-out
// group. The first datagram sent implicitly registers this address as a
// subscriber on the server.
func DialRelay(addr string, sessionID uuid.UUID) (*Relay, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, mirrerr.New(mirrerr.ParameterRejected, "transport.relay.dial", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.relay.dial", err)
	}
	r := &Relay{conn: conn}
	copy(r.sessionID[:], sessionID[:])
	return r, nil
}

func (r *Relay) Send(_ context.Context, b []byte) error {
	buf := make([]byte, relayTokenSize+len(b))
	copy(buf, r.sessionID[:])
	copy(buf[relayTokenSize:], b)
	if _, err := r.conn.Write(buf); err != nil {
		xlog.For("transport.relay").WithError(err).Debug("dropped datagram")
		return nil
	}
	return nil
}

func (r *Relay) Recv(_ context.Context) ([]byte, error) {
	buf := make([]byte, 65535)
	n, err := r.conn.Read(buf)
	if err != nil {
		return nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.relay.recv", err)
	}
	return buf[:n], nil
}

func (r *Relay) Close() error {
	return r.conn.Close()
}
