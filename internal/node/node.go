// Package node implements a peer of the unstructured flooding overlay:
// it keeps the neighbor table, answers and relays searches, serves files
// and runs the user's searches and downloads.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/logger"
	"github.com/rudransh-shrivastava/peer-flood/internal/overlay"
	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/rudransh-shrivastava/peer-flood/internal/store"
	"github.com/rudransh-shrivastava/peer-flood/internal/transport"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoSuchReply    = errors.New("no such reply has been received")
	ErrAlreadyHave    = errors.New("file already present locally")
	ErrInvalidKeyword = errors.New("invalid search keyword")
	ErrNodeClosed     = errors.New("node is closed")
	ErrNotStarted     = errors.New("node is not started")
)

type Node struct {
	opts    Options
	logger  *logrus.Logger
	catalog store.Catalog
	history store.HistoryRepository

	neighbors *overlay.NeighborTable
	ledger    *overlay.Ledger

	// set by Start
	self      string
	listener  net.Listener
	transport *transport.Transport
	search    *SearchCoordinator
	ctx       context.Context
	cancel    context.CancelFunc

	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	closed  bool
}

func New(opts Options) (*Node, error) {
	if opts.StorageDir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(opts.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	opts = opts.withDefaults()

	log := opts.Logger
	if log == nil {
		log = logger.NewLogger()
	}

	return &Node{
		opts:      opts,
		logger:    log,
		catalog:   opts.Catalog,
		history:   opts.History,
		neighbors: overlay.NewNeighborTable(),
		ledger:    overlay.NewLedger(time.Duration(opts.MaxHops) * opts.HopInterval),
	}, nil
}

// Start binds the listener and begins accepting connections. A bind
// failure is returned and leaves the node unstarted.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return errors.New("node already started")
	}

	ln, err := transport.Listen(n.opts.ListenAddr)
	if err != nil {
		return err
	}

	n.self = n.opts.AdvertiseAddr
	if n.self == "" {
		n.self = advertiseAddr(ln.Addr())
	}
	n.listener = ln
	n.transport = transport.New(n.self, n.opts.Transport)
	n.ctx, n.cancel = context.WithCancel(ctx)

	n.search = NewSearchCoordinator(n.self, n.opts.HopInterval, n.opts.MaxHops, n.ledger, n.logger)
	n.search.flood = func(id protocol.SearchID, remaining int) {
		n.flood(protocol.SearchRequest{ID: id, HopCount: remaining}, "")
	}
	n.search.finished = n.recordSearch

	n.started = true
	n.wg.Add(1)
	go n.acceptLoop()

	n.logger.Infof("Node listening on %s, advertising %s", ln.Addr(), n.self)
	return nil
}

// Addr is the advertised address of this node, valid after Start.
func (n *Node) Addr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.self
}

func (n *Node) Neighbors() []string {
	return n.neighbors.Snapshot()
}

// JoinNetwork adds bootstrap as a neighbor and asks it to add this node in
// return. An empty bootstrap starts a fresh overlay.
func (n *Node) JoinNetwork(ctx context.Context, bootstrap string) error {
	if err := n.ready(); err != nil {
		return err
	}
	if bootstrap == "" {
		n.logger.Info("Starting a new overlay")
		return nil
	}

	addr := protocol.NormalizeAddr(bootstrap, DefaultPort)
	if addr == n.self {
		return fmt.Errorf("cannot join through own address %s", addr)
	}
	if err := n.transport.Hello(ctx, addr); err != nil {
		return fmt.Errorf("joining through %s: %w", addr, err)
	}
	n.addNeighbor(addr)
	return nil
}

// Search starts an expanding-ring search for keyword.
func (n *Node) Search(keyword string) (<-chan SearchOutcome, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.search.Start(keyword)
}

// Replies returns the replies collected for the latest search attempt.
func (n *Node) Replies() []Reply {
	if err := n.ready(); err != nil {
		return nil
	}
	return n.search.Replies()
}

// History returns the history store, or nil when history is disabled.
func (n *Node) History() store.HistoryRepository {
	return n.history
}

// Close stops the listener and all pending timers without notifying
// neighbors. Use Exit to leave the overlay gracefully.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	started := n.started
	n.mu.Unlock()

	var err error
	if started {
		n.cancel()
		err = n.listener.Close()
		n.search.Close()
	}
	n.ledger.Close()
	n.wg.Wait()
	return err
}

func (n *Node) ready() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNodeClosed
	}
	if !n.started {
		return ErrNotStarted
	}
	return nil
}

func (n *Node) addNeighbor(addr string) bool {
	if addr == "" || addr == n.self {
		return false
	}
	if !n.neighbors.Add(addr) {
		return false
	}
	n.logger.Infof("Neighbors: %v", n.neighbors.Snapshot())
	return true
}

func (n *Node) removeNeighbor(addr string) bool {
	if !n.neighbors.Remove(addr) {
		return false
	}
	n.logger.Infof("Neighbors: %v", n.neighbors.Snapshot())
	return true
}

func (n *Node) recordSearch(outcome SearchOutcome) {
	if n.history == nil {
		return
	}
	err := n.history.RecordSearch(context.Background(), store.SearchRecord{
		Keyword:  outcome.Keyword,
		Status:   outcome.Status.String(),
		Attempts: outcome.HopCounts,
		Replies:  len(outcome.Replies),
	})
	if err != nil {
		n.logger.Warnf("Failed to record search history: %v", err)
	}
}
