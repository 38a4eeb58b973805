// Package testnet starts small overlays of real nodes on loopback for
// end-to-end tests.
package testnet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/logger"
	"github.com/rudransh-shrivastava/peer-flood/internal/node"
	"github.com/rudransh-shrivastava/peer-flood/internal/store"
	"github.com/rudransh-shrivastava/peer-flood/internal/transport"
)

const DefaultHopInterval = 50 * time.Millisecond

type Network struct {
	nodes  []*node.Node
	dirs   map[*node.Node]string
	cancel context.CancelFunc
	ctx    context.Context
	t      *testing.T

	// HopInterval applies to nodes created after it is set.
	HopInterval time.Duration
}

func NewNetwork(t *testing.T) *Network {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	n := &Network{
		dirs:        make(map[*node.Node]string),
		cancel:      cancel,
		ctx:         ctx,
		t:           t,
		HopInterval: DefaultHopInterval,
	}
	t.Cleanup(n.Close)
	return n
}

// NewNode starts a node on loopback whose catalog holds the given lines.
func (n *Network) NewNode(catalog ...string) *node.Node {
	n.t.Helper()

	dir := n.t.TempDir()
	if len(catalog) > 0 {
		n.WriteFile(dir, store.CatalogFileName, joinLines(catalog))
	}

	nd, err := node.New(node.Options{
		ListenAddr:  "127.0.0.1:0",
		StorageDir:  dir,
		HopInterval: n.HopInterval,
		Transport: transport.Config{
			DialTimeout: 500 * time.Millisecond,
			IOTimeout:   2 * time.Second,
		},
		Logger: logger.Discard(),
	})
	if err != nil {
		n.t.Fatalf("Failed to create node: %v", err)
	}
	if err := nd.Start(n.ctx); err != nil {
		n.t.Fatalf("Failed to start node: %v", err)
	}

	n.nodes = append(n.nodes, nd)
	n.dirs[nd] = dir
	return nd
}

// Dir returns the storage directory of nd.
func (n *Network) Dir(nd *node.Node) string {
	return n.dirs[nd]
}

func (n *Network) WriteFile(dir, name, contents string) {
	n.t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644); err != nil {
		n.t.Fatalf("Failed to write %s: %v", name, err)
	}
}

// Link joins a to the overlay through b and waits for both tables to agree.
func (n *Network) Link(a, b *node.Node) {
	n.t.Helper()

	if err := a.JoinNetwork(n.ctx, b.Addr()); err != nil {
		n.t.Fatalf("Failed to join %s through %s: %v", a.Addr(), b.Addr(), err)
	}
	n.WaitFor(func() bool {
		return contains(a.Neighbors(), b.Addr()) && contains(b.Neighbors(), a.Addr())
	})
}

// Chain links nodes in order and returns them.
func (n *Network) Chain(nodes ...*node.Node) []*node.Node {
	n.t.Helper()
	for i := 1; i < len(nodes); i++ {
		n.Link(nodes[i], nodes[i-1])
	}
	return nodes
}

// WaitFor polls cond until it holds or the network context ends.
func (n *Network) WaitFor(cond func() bool) {
	n.t.Helper()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ticker.C:
		case <-n.ctx.Done():
			n.t.Fatal("Condition not met before network timeout")
		}
	}
}

func (n *Network) Context() context.Context {
	return n.ctx
}

func (n *Network) Close() {
	n.cancel()
	for _, nd := range n.nodes {
		_ = nd.Close()
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
