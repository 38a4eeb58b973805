package node

import (
	"context"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitDelegatesNeighborList(t *testing.T) {
	n := newTestNode(t, func(o *Options) {
		o.Rand = func(int) int { return 1 }
	})
	peers := []*fakePeer{startFakePeer(t), startFakePeer(t), startFakePeer(t)}
	addrs := make([]string, 0, len(peers))
	for _, p := range peers {
		n.addNeighbor(p.addr)
		addrs = append(addrs, p.addr)
	}

	require.NoError(t, n.Exit(context.Background()))

	for i, p := range peers {
		msgs := p.next(t)
		require.Len(t, msgs, 2)
		assert.Equal(t, protocol.From{Addr: n.Addr()}, msgs[0])
		if i == 1 {
			assert.Equal(t, protocol.Leaving{Neighbors: addrs}, msgs[1])
		} else {
			assert.Equal(t, protocol.Leaving{}, msgs[1])
		}
	}

	_, err := n.Search("music")
	assert.ErrorIs(t, err, ErrNodeClosed)
}

func TestExitSingleNeighborGetsBareNotice(t *testing.T) {
	n := newTestNode(t)
	p := startFakePeer(t)
	n.addNeighbor(p.addr)

	require.NoError(t, n.Exit(context.Background()))

	msgs := p.next(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, protocol.Leaving{}, msgs[1])
}

func TestExitWithoutNeighbors(t *testing.T) {
	n := newTestNode(t)
	assert.NoError(t, n.Exit(context.Background()))
}

func TestDepartureKeepsOverlayConnected(t *testing.T) {
	var leaving *Node
	var delegate *Node
	leaving = newTestNode(t, func(o *Options) {
		o.Rand = func(int) int {
			for i, addr := range leaving.Neighbors() {
				if addr == delegate.Addr() {
					return i
				}
			}
			return 0
		}
	})
	delegate = newTestNode(t)
	c := newTestNode(t)
	d := newTestNode(t)
	for _, other := range []*Node{delegate, c, d} {
		link(t, other, leaving)
	}

	require.NoError(t, leaving.Exit(context.Background()))

	require.Eventually(t, func() bool {
		return delegate.neighbors.Contains(c.Addr()) &&
			delegate.neighbors.Contains(d.Addr()) &&
			!delegate.neighbors.Contains(leaving.Addr())
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, delegate.Neighbors(), delegate.Addr())

	for _, other := range []*Node{c, d} {
		other := other
		require.Eventually(t, func() bool {
			return other.neighbors.Contains(delegate.Addr()) && !other.neighbors.Contains(leaving.Addr())
		}, 2*time.Second, 10*time.Millisecond)
	}
}

func TestSelectRandomPeer(t *testing.T) {
	if got := SelectRandomPeer(nil, func(int) int { return 0 }); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}

	peers := []string{"a:1", "b:1", "c:1"}
	if got := SelectRandomPeer(peers, func(n int) int { return n - 1 }); got != "c:1" {
		t.Errorf("expected c:1, got %q", got)
	}
}

func TestExcluding(t *testing.T) {
	got := excluding([]string{"a:1", "b:1", "c:1"}, "b:1")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "c:1" {
		t.Errorf("unexpected result %v", got)
	}

	all := []string{"a:1"}
	if got := excluding(all, ""); len(got) != 1 {
		t.Errorf("expected input unchanged, got %v", got)
	}
}

func TestExitReachesLiveNeighborsPastDeadDelegate(t *testing.T) {
	n := newTestNode(t, func(o *Options) {
		o.Rand = func(int) int { return 0 }
	})
	dead := deadAddr(t)
	live := startFakePeer(t)
	n.addNeighbor(dead)
	n.addNeighbor(live.addr)

	require.NoError(t, n.Exit(context.Background()))

	msgs := live.next(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, protocol.Leaving{}, msgs[1])
}
