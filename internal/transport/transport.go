// Package transport carries text frames between overlay nodes over
// short-lived TCP connections. Every outbound connection starts with a
// preamble naming the sender's listening address.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
)

type Transport struct {
	self   string
	config Config
}

// New returns a transport that identifies itself as self, the address
// other nodes use to reach this node's listener.
func New(self string, config Config) *Transport {
	return &Transport{
		self:   self,
		config: config.withDefaults(),
	}
}

// Listen opens the TCP listener other nodes connect to.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return ln, nil
}

// Accept wraps an inbound connection using the configured io timeout.
func (t *Transport) Accept(conn net.Conn) *Peer {
	return NewPeer(conn, t.config.IOTimeout)
}

func (t *Transport) Dial(ctx context.Context, addr string) (*Peer, error) {
	dialer := net.Dialer{Timeout: t.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return NewPeer(conn, t.config.IOTimeout), nil
}

// Send delivers msgs to addr on one connection behind a from preamble,
// leaving the receiver's membership state untouched.
func (t *Transport) Send(ctx context.Context, addr string, msgs ...protocol.Message) error {
	frames := make([]protocol.Message, 0, len(msgs)+1)
	frames = append(frames, protocol.From{Addr: t.self})
	frames = append(frames, msgs...)
	return t.deliver(ctx, addr, frames)
}

// Hello asks addr to adopt this node as a neighbor.
func (t *Transport) Hello(ctx context.Context, addr string) error {
	return t.deliver(ctx, addr, []protocol.Message{protocol.Hello{Addr: t.self}})
}

// OpenFileStream requests name from addr and returns the response stream.
// The caller must close it.
func (t *Transport) OpenFileStream(ctx context.Context, addr, name string) (io.ReadCloser, error) {
	peer, err := t.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	if err := peer.Send(protocol.From{Addr: t.self}, protocol.FileRequest{Name: name}); err != nil {
		_ = peer.Close()
		return nil, fmt.Errorf("requesting %s from %s: %w", name, addr, err)
	}
	return &fileStream{Reader: peer.Reader(), peer: peer}, nil
}

func (t *Transport) deliver(ctx context.Context, addr string, frames []protocol.Message) error {
	peer, err := t.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer func() { _ = peer.Close() }()

	if err := peer.Send(frames...); err != nil {
		return fmt.Errorf("sending to %s: %w", addr, err)
	}
	return nil
}

type fileStream struct {
	io.Reader
	peer *Peer
}

func (s *fileStream) Close() error {
	return s.peer.Close()
}
