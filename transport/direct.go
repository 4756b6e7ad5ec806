package transport

import (
	"context"
	"errors"
	"net"

	"github.com/mycrl/mirror/internal/mirrerr"
	"github.com/mycrl/mirror/internal/xlog"
)

// Direct is a point-to-point UDP transport: the sender dials the
// receiver's known address, the receiver listens on a fixed port
// discovered out of band (see the discovery package).
type Direct struct {
	conn *net.UDPConn
}

// DialDirect opens a point-to-point UDP transport to addr (sender side).
func DialDirect(addr string) (*Direct, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, mirrerr.New(mirrerr.ParameterRejected, "transport.direct.dial", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.direct.dial", err)
	}
	return &Direct{conn: conn}, nil
}

// ListenDirect opens a point-to-point UDP transport bound to addr
// (receiver side), e.g. ":9000".
func ListenDirect(addr string) (*Direct, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, mirrerr.New(mirrerr.ParameterRejected, "transport.direct.listen", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.direct.listen", err)
	}
	return &Direct{conn: conn}, nil
}

func (d *Direct) Send(_ context.Context, b []byte) error {
	_, err := d.conn.Write(b)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return mirrerr.New(mirrerr.TransportUnreachable, "transport.direct.send", err)
		}
		xlog.For("transport.direct").WithError(err).Debug("dropped datagram")
		return nil
	}
	return nil
}

func (d *Direct) Recv(_ context.Context) ([]byte, error) {
	buf := make([]byte, 65535)
	n, err := d.conn.Read(buf)
	if err != nil {
		return nil, mirrerr.New(mirrerr.TransportUnreachable, "transport.direct.recv", err)
	}
	return buf[:n], nil
}

func (d *Direct) Close() error {
	return d.conn.Close()
}

// LocalAddr returns the transport's local UDP address, useful when
// ListenDirect was given an ephemeral port (":0").
func (d *Direct) LocalAddr() *net.UDPAddr {
	return d.conn.LocalAddr().(*net.UDPAddr)
}
