package node

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rudransh-shrivastava/peer-flood/internal/overlay"
	"github.com/rudransh-shrivastava/peer-flood/internal/protocol"
	"github.com/sirupsen/logrus"
)

type SearchStatus int

const (
	SearchFound SearchStatus = iota
	SearchNoResults
	// SearchSuperseded is reported when a newer search or node shutdown
	// replaced the running one.
	SearchSuperseded
)

func (s SearchStatus) String() string {
	switch s {
	case SearchFound:
		return "found"
	case SearchNoResults:
		return "no results"
	case SearchSuperseded:
		return "superseded"
	default:
		return fmt.Sprintf("SearchStatus(%d)", int(s))
	}
}

// Reply is a search result received by the originating node.
type Reply struct {
	Record  protocol.FileRecord
	Source  string
	Elapsed time.Duration
}

func (r Reply) String() string {
	return fmt.Sprintf("%s %s  %dms", r.Record, r.Source, r.Elapsed.Milliseconds())
}

type SearchOutcome struct {
	Keyword   string
	Status    SearchStatus
	HopCounts []int
	Replies   []Reply
}

// SearchCoordinator runs the expanding-ring search of one user at a time.
// Each attempt floods a fresh search id and waits hopCount intervals; with
// no replies the hop count doubles until it would exceed maxHops.
type SearchCoordinator struct {
	self     string
	interval time.Duration
	maxHops  int
	ledger   *overlay.Ledger
	logger   *logrus.Logger

	// flood sends id to the neighbors with remaining hops left.
	flood func(id protocol.SearchID, remaining int)
	// finished is called outside the lock once a search terminates,
	// before the outcome is delivered.
	finished func(SearchOutcome)

	mu        sync.Mutex
	seq       map[string]int
	keyword   string
	currentID protocol.SearchID
	hopCount  int
	attempts  []int
	replies   []Reply
	started   time.Time
	timer     *time.Timer
	gen       uint64
	out       chan SearchOutcome
	closed    bool
}

func NewSearchCoordinator(self string, interval time.Duration, maxHops int, ledger *overlay.Ledger, log *logrus.Logger) *SearchCoordinator {
	return &SearchCoordinator{
		self:     self,
		interval: interval,
		maxHops:  maxHops,
		ledger:   ledger,
		logger:   log,
		flood:    func(protocol.SearchID, int) {},
		finished: func(SearchOutcome) {},
		seq:      make(map[string]int),
	}
}

func validateKeyword(keyword string) error {
	if keyword == "" || strings.ContainsAny(keyword, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidKeyword, keyword)
	}
	return nil
}

// Start begins a search for keyword at hop count 1. A search already in
// progress is superseded. The returned channel yields exactly one outcome.
func (sc *SearchCoordinator) Start(keyword string) (<-chan SearchOutcome, error) {
	if err := validateKeyword(keyword); err != nil {
		return nil, err
	}

	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return nil, ErrNodeClosed
	}
	previous := sc.detachLocked()

	out := make(chan SearchOutcome, 1)
	sc.out = out
	sc.keyword = keyword
	sc.attempts = nil
	id := sc.beginAttemptLocked(1)
	sc.mu.Unlock()

	sc.supersede(previous)
	sc.flood(id, 0)
	return out, nil
}

// beginAttemptLocked starts a new attempt at hops with a fresh sequence
// number, cleared replies and its own timer generation.
func (sc *SearchCoordinator) beginAttemptLocked(hops int) protocol.SearchID {
	seq, seen := sc.seq[sc.keyword]
	if seen {
		seq++
	}
	sc.seq[sc.keyword] = seq

	id := protocol.SearchID{Origin: sc.self, Keyword: sc.keyword, Seq: seq}
	sc.currentID = id
	sc.hopCount = hops
	sc.attempts = append(sc.attempts, hops)
	sc.replies = nil
	sc.started = time.Now()
	sc.ledger.RecordIfNew(id.String(), sc.self)

	sc.gen++
	gen := sc.gen
	sc.timer = time.AfterFunc(time.Duration(hops)*sc.interval, func() {
		sc.onTimeout(gen)
	})
	return id
}

func (sc *SearchCoordinator) onTimeout(gen uint64) {
	sc.mu.Lock()
	if sc.closed || gen != sc.gen || sc.out == nil {
		sc.mu.Unlock()
		return
	}

	if len(sc.replies) > 0 {
		outcome := sc.outcomeLocked(SearchFound)
		out := sc.out
		sc.out = nil
		sc.timer = nil
		sc.mu.Unlock()

		sc.logger.Infof("File found at hop count: %d", outcome.HopCounts[len(outcome.HopCounts)-1])
		sc.deliver(out, outcome)
		return
	}

	next := sc.hopCount * 2
	if next > sc.maxHops {
		outcome := sc.outcomeLocked(SearchNoResults)
		out := sc.out
		sc.out = nil
		sc.timer = nil
		sc.mu.Unlock()

		sc.logger.Infof("Search terminated at hop count %d with no results found.", outcome.HopCounts[len(outcome.HopCounts)-1])
		sc.deliver(out, outcome)
		return
	}

	sc.logger.Infof("Search timed out at hop count %d. Retrying.", sc.hopCount)
	id := sc.beginAttemptLocked(next)
	sc.mu.Unlock()

	sc.flood(id, next-1)
}

func (sc *SearchCoordinator) outcomeLocked(status SearchStatus) SearchOutcome {
	return SearchOutcome{
		Keyword:   sc.keyword,
		Status:    status,
		HopCounts: append([]int(nil), sc.attempts...),
		Replies:   append([]Reply(nil), sc.replies...),
	}
}

func (sc *SearchCoordinator) deliver(out chan SearchOutcome, outcome SearchOutcome) {
	sc.finished(outcome)
	out <- outcome
	close(out)
}

type detached struct {
	out     chan SearchOutcome
	outcome SearchOutcome
}

// detachLocked stops the running search, if any, so a later supersede
// call can report it.
func (sc *SearchCoordinator) detachLocked() *detached {
	if sc.out == nil {
		return nil
	}
	if sc.timer != nil {
		sc.timer.Stop()
		sc.timer = nil
	}
	d := &detached{out: sc.out, outcome: sc.outcomeLocked(SearchSuperseded)}
	sc.out = nil
	sc.gen++
	return d
}

func (sc *SearchCoordinator) supersede(d *detached) {
	if d == nil {
		return
	}
	sc.deliver(d.out, d.outcome)
}

// RecordReply stores a reply addressed to this node. Replies to anything
// but the current attempt are dropped.
func (sc *SearchCoordinator) RecordReply(reply protocol.SearchReply) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed || reply.ID != sc.currentID {
		return false
	}
	sc.replies = append(sc.replies, Reply{
		Record:  reply.Record,
		Source:  reply.Location,
		Elapsed: time.Since(sc.started),
	})
	return true
}

// Replies returns the replies received for the current attempt.
func (sc *SearchCoordinator) Replies() []Reply {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]Reply(nil), sc.replies...)
}

// Reply returns the 1-based reply index together with the keyword that
// found it.
func (sc *SearchCoordinator) Reply(index int) (Reply, string, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if index <= 0 || index > len(sc.replies) {
		return Reply{}, "", fmt.Errorf("%w: %d", ErrNoSuchReply, index)
	}
	return sc.replies[index-1], sc.keyword, nil
}

// Close stops any pending wait. A running search reports SearchSuperseded.
func (sc *SearchCoordinator) Close() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	previous := sc.detachLocked()
	sc.closed = true
	sc.mu.Unlock()

	sc.supersede(previous)
}
