package client

import (
	"context"
	"net"
	"time"

	"spacekv/internal/store"
	"spacekv/internal/wire"
)

// Connection is a single logical "execute(command) -> response" transport.
// A tcpConnection frames over a real socket; an embeddedConnection calls a
// Storage Engine directly in-process. Both expose the same semantics.
type Connection interface {
	Execute(ctx context.Context, cmd wire.Command) (wire.Response, error)
	IsHealthy(ctx context.Context) bool
	Close() error
}

// tcpConnection frames commands and responses over a TCP socket.
type tcpConnection struct {
	conn net.Conn
}

func dialTCP(addr string) (*tcpConnection, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, newIOError(err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &tcpConnection{conn: conn}, nil
}

func (c *tcpConnection) Execute(ctx context.Context, cmd wire.Command) (wire.Response, error) {
	if err := wire.WriteFrame(c.conn, wire.EncodeCommand(cmd)); err != nil {
		return nil, newIOError(err)
	}

	payload, err := wire.ReadFrame(c.conn, wire.MaxResponseFrame)
	if err != nil {
		return nil, newProtocolError("%v", err)
	}

	resp, err := wire.DecodeResponse(payload)
	if err != nil {
		return nil, newProtocolError("%v", err)
	}
	return resp, nil
}

// IsHealthy probes that the socket is not half-closed: a non-blocking read
// that returns 0 bytes with no error (clean EOF) or any non-timeout error
// means the peer has gone away. A timeout — no data available, connection
// still open — means the socket is healthy.
func (c *tcpConnection) IsHealthy(ctx context.Context) bool {
	conn, ok := c.conn.(*net.TCPConn)
	if !ok {
		return true
	}
	if err := conn.SetReadDeadline(time.Now()); err != nil {
		return false
	}
	defer conn.SetReadDeadline(time.Time{})

	var buf [1]byte
	n, err := conn.Read(buf[:])
	if n > 0 {
		return false
	}
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}

func (c *tcpConnection) Close() error { return c.conn.Close() }

// embeddedConnection calls a Storage Engine directly, bypassing TCP.
type embeddedConnection struct {
	engine *store.Engine
}

func (c *embeddedConnection) Execute(ctx context.Context, cmd wire.Command) (wire.Response, error) {
	return c.engine.Execute(ctx, cmd), nil
}

func (c *embeddedConnection) IsHealthy(ctx context.Context) bool { return true }

func (c *embeddedConnection) Close() error { return nil }
