package node

import (
	"errors"
	"os"
	"sync"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/rudransh-shrivastava/peer-flood/internal/store"
	"github.com/rudransh-shrivastava/peer-flood/internal/transport"
)

// dispatch routes one inbound frame. It reports true when the connection
// has been consumed and no further frames should be read.
func (n *Node) dispatch(peer *transport.Peer, sender string, msg protocol.Message) bool {
	switch m := msg.(type) {
	case protocol.Leaving:
		n.handleLeaving(sender, m)
	case protocol.SearchReply:
		n.processReply(m)
	case protocol.FileRequest:
		n.serveFile(peer, m.Name)
		return true
	case protocol.SearchRequest:
		n.handleSearchRequest(sender, m)
	default:
		n.logger.Debugf("Ignoring %s frame from %s", msg.Type(), sender)
	}
	return false
}

func (n *Node) handleSearchRequest(sender string, req protocol.SearchRequest) {
	if !n.ledger.RecordIfNew(req.ID.String(), sender) {
		n.logger.Debugf("Dropping duplicate search %s", req.ID)
		return
	}

	record, found, err := n.catalog.Lookup(req.ID.Keyword)
	if err != nil {
		n.logger.Warnf("Failed to search local catalog: %v", err)
	}
	if found {
		n.sendReply(protocol.SearchReply{ID: req.ID, Record: record, Location: n.self})
		return
	}
	if req.HopCount > 0 {
		n.flood(protocol.SearchRequest{ID: req.ID, HopCount: req.HopCount - 1}, sender)
	}
}

func (n *Node) processReply(reply protocol.SearchReply) {
	if reply.ID.Origin == n.self {
		if !n.search.RecordReply(reply) {
			n.logger.Debugf("Dropping reply for stale search %s", reply.ID)
		}
		return
	}
	n.sendReply(reply)
}

// sendReply relays reply one step back along the path its search took.
func (n *Node) sendReply(reply protocol.SearchReply) {
	predecessor, ok := n.ledger.PredecessorOf(reply.ID.String())
	if !ok {
		n.logger.Debugf("No route back for search %s, dropping reply", reply.ID)
		return
	}
	if err := n.transport.Send(n.ctx, predecessor, reply); err != nil {
		n.logger.Warnf("Failed to send reply to %s: %v", predecessor, err)
	}
}

// flood sends req to every neighbor except the one it came from.
func (n *Node) flood(req protocol.SearchRequest, except string) {
	n.broadcast(excluding(n.neighbors.Snapshot(), except), func(addr string) protocol.Message {
		return req
	})
}

// broadcast sends a message to each address concurrently and waits.
// Failures are logged and otherwise ignored.
func (n *Node) broadcast(addrs []string, build func(addr string) protocol.Message) {
	var wg sync.WaitGroup
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			msg := build(addr)
			if err := n.transport.Send(n.ctx, addr, msg); err != nil {
				n.logger.Warnf("Failed to send %s to %s: %v", msg.Type(), addr, err)
			}
		}(addr)
	}
	wg.Wait()
}

// handleLeaving absorbs a departing neighbor's list, greets the neighbors
// that are new to this node and forgets the sender.
func (n *Node) handleLeaving(sender string, msg protocol.Leaving) {
	var added []string
	for _, addr := range msg.Neighbors {
		if addr == sender {
			continue
		}
		if n.addNeighbor(addr) {
			added = append(added, addr)
		}
	}
	n.removeNeighbor(sender)

	var wg sync.WaitGroup
	for _, addr := range added {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if err := n.transport.Hello(n.ctx, addr); err != nil {
				n.logger.Warnf("Failed to greet inherited neighbor %s: %v", addr, err)
			}
		}(addr)
	}
	wg.Wait()
}

// serveFile streams a stored file followed by the end-of-file marker. On
// any failure the connection is closed without the marker.
func (n *Node) serveFile(peer *transport.Peer, name string) {
	if err := store.ValidateFileName(name); err != nil {
		n.logger.Warnf("Rejecting file request from %s: %v", peer.RemoteAddr(), err)
		return
	}

	err := store.SendFileContents(BuildStoragePath(n.opts.StorageDir, name), peer.Writer())
	if errors.Is(err, os.ErrNotExist) {
		n.logger.Warnf("Requested file %s does not exist", name)
		return
	}
	if err != nil {
		n.logger.Warnf("Failed to send file %s: %v", name, err)
		return
	}
	n.logger.Infof("Sent %s to %s", name, peer.RemoteAddr())
}
