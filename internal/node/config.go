package node

import (
	"math/rand"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/rudransh-shrivastava/peer-flood/internal/store"
	"github.com/rudransh-shrivastava/peer-flood/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPort is the well-known port every node listens on.
	DefaultPort        = 5000
	DefaultListenAddr  = ":5000"
	DefaultHopInterval = time.Second
)

type Options struct {
	// ListenAddr is the local address the listener binds.
	ListenAddr string
	// AdvertiseAddr is the address other nodes use to reach this node.
	// Empty means derive it from the bound listener.
	AdvertiseAddr string
	StorageDir    string

	// HopInterval is the wait per hop of a search attempt. Ledger entries
	// expire after MaxHops intervals.
	HopInterval time.Duration
	MaxHops     int
	Transport   transport.Config

	Catalog store.Catalog
	// History is optional; nil disables history recording.
	History store.HistoryRepository
	Logger  *logrus.Logger

	// Rand returns a number in [0, n). Used to pick the departure delegate.
	Rand func(n int) int
}

func (o Options) withDefaults() Options {
	if o.ListenAddr == "" {
		o.ListenAddr = DefaultListenAddr
	}
	if o.HopInterval <= 0 {
		o.HopInterval = DefaultHopInterval
	}
	if o.MaxHops <= 0 {
		o.MaxHops = protocol.MaxHopCount
	}
	if o.Catalog == nil {
		o.Catalog = store.NewTextCatalog(o.StorageDir)
	}
	if o.Rand == nil {
		o.Rand = rand.Intn
	}
	return o
}
