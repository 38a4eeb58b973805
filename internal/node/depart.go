package node

import (
	"context"
	"errors"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
)

// Exit leaves the overlay. One neighbor, the delegate, receives the full
// neighbor list so it can take over this node's edges; every other
// neighbor gets a bare leaving notice. The node is closed afterwards.
func (n *Node) Exit(ctx context.Context) error {
	if err := n.ready(); err != nil {
		if errors.Is(err, ErrNotStarted) {
			return n.Close()
		}
		return err
	}

	peers := n.neighbors.Snapshot()
	delegate := SelectRandomPeer(peers, n.opts.Rand)
	if delegate != "" {
		n.logger.Infof("Leaving overlay, delegate is %s", delegate)
	}

	n.broadcastCtx(ctx, peers, func(addr string) protocol.Message {
		if addr == delegate && len(peers) > 1 {
			return protocol.Leaving{Neighbors: peers}
		}
		return protocol.Leaving{}
	})

	return n.Close()
}

func (n *Node) broadcastCtx(ctx context.Context, addrs []string, build func(addr string) protocol.Message) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.broadcast(addrs, build)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		n.logger.Warnf("Departure interrupted: %v", ctx.Err())
	}
}
