package node

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/logger"
	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/rudransh-shrivastava/peer-flood/internal/store"
	"github.com/rudransh-shrivastava/peer-flood/internal/transport"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, configure ...func(*Options)) *Node {
	t.Helper()

	opts := Options{
		ListenAddr:  "127.0.0.1:0",
		StorageDir:  t.TempDir(),
		HopInterval: 100 * time.Millisecond,
		Transport: transport.Config{
			DialTimeout: 500 * time.Millisecond,
			IOTimeout:   2 * time.Second,
		},
		Logger: logger.Discard(),
	}
	for _, fn := range configure {
		fn(&opts)
	}

	n, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func withHopInterval(d time.Duration) func(*Options) {
	return func(o *Options) { o.HopInterval = d }
}

// link joins a to b and waits until both sides list each other.
func link(t *testing.T, a, b *Node) {
	t.Helper()
	require.NoError(t, a.JoinNetwork(context.Background(), b.Addr()))
	require.Eventually(t, func() bool {
		return a.neighbors.Contains(b.Addr()) && b.neighbors.Contains(a.Addr())
	}, 2*time.Second, 10*time.Millisecond)
}

func writeStorageFile(t *testing.T, n *Node, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(n.opts.StorageDir, name), []byte(contents), 0644))
}

func readStorageFile(t *testing.T, n *Node, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(n.opts.StorageDir, name))
	require.NoError(t, err)
	return string(data)
}

func waitOutcome(t *testing.T, ch <-chan SearchOutcome) SearchOutcome {
	t.Helper()
	select {
	case outcome, ok := <-ch:
		require.True(t, ok, "outcome channel closed without a value")
		return outcome
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for search outcome")
		return SearchOutcome{}
	}
}

type countingCatalog struct {
	store.Catalog

	mu      sync.Mutex
	lookups int
}

func (c *countingCatalog) Lookup(keyword string) (protocol.FileRecord, bool, error) {
	c.mu.Lock()
	c.lookups++
	c.mu.Unlock()
	return c.Catalog.Lookup(keyword)
}

func (c *countingCatalog) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}

// deadAddr returns a loopback address nothing listens on.
func deadAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// fakePeer is a bare listener that records the frames of every connection.
type fakePeer struct {
	addr   string
	frames chan []protocol.Message
}

func startFakePeer(t *testing.T) *fakePeer {
	t.Helper()

	ln, err := transport.Listen("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	fp := &fakePeer{addr: ln.Addr().String(), frames: make(chan []protocol.Message, 16)}
	tr := transport.New(fp.addr, transport.Config{IOTimeout: 2 * time.Second})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(p *transport.Peer) {
				defer func() { _ = p.Close() }()
				var msgs []protocol.Message
				for {
					msg, err := p.Receive()
					if err != nil {
						break
					}
					msgs = append(msgs, msg)
				}
				fp.frames <- msgs
			}(tr.Accept(conn))
		}
	}()
	return fp
}

func (fp *fakePeer) next(t *testing.T) []protocol.Message {
	t.Helper()
	select {
	case msgs := <-fp.frames:
		return msgs
	case <-time.After(2 * time.Second):
		t.Fatalf("fake peer %s received nothing", fp.addr)
		return nil
	}
}
