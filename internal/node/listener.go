package node

import (
	"errors"
	"io"
	"net"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/rudransh-shrivastava/peer-flood/internal/transport"
)

func (n *Node) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || n.ctx.Err() != nil {
				return
			}
			n.logger.Warnf("Failed to accept connection: %v", err)
			continue
		}

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.handleConn(n.transport.Accept(conn))
		}()
	}
}

// handleConn identifies the sender from the connection preamble and
// dispatches every following frame until the remote side closes.
func (n *Node) handleConn(peer *transport.Peer) {
	defer func() { _ = peer.Close() }()

	first, err := peer.Receive()
	switch msg := first.(type) {
	case protocol.Hello:
		n.addNeighbor(msg.Addr)
		n.serve(peer, msg.Addr)
		return
	case protocol.From:
		n.serve(peer, msg.Addr)
		return
	}

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, protocol.ErrMalformedFrame) && !isTimeout(err) {
		n.logger.Debugf("Failed to read from %s: %v", peer.RemoteAddr(), err)
		return
	}

	// No preamble: the sender is known only by its IP on the well-known
	// port, and an unknown sender's first connection only registers it.
	sender := protocol.NormalizeAddr(peer.RemoteHost(), DefaultPort)
	if !n.neighbors.Contains(sender) {
		n.addNeighbor(sender)
		return
	}
	if first != nil {
		if done := n.dispatch(peer, sender, first); done {
			return
		}
	}
	if err == nil || errors.Is(err, protocol.ErrMalformedFrame) {
		n.serve(peer, sender)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (n *Node) serve(peer *transport.Peer, sender string) {
	for {
		msg, err := peer.Receive()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedFrame) {
				n.logger.Debugf("Dropping frame from %s: %v", sender, err)
				continue
			}
			if !errors.Is(err, io.EOF) {
				n.logger.Debugf("Connection from %s ended: %v", sender, err)
			}
			return
		}
		if done := n.dispatch(peer, sender, msg); done {
			return
		}
	}
}
