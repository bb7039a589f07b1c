package raft

import (
	"sync"
)

// recordingPersister is a raft.Persister that just remembers what it was
// told, for assertions in tests that care about durability ordering.
type recordingPersister struct {
	mu       sync.Mutex
	terms    []uint64
	votes    []NodeID
	appended [][]LogEntry
}

func (p *recordingPersister) PersistTerm(term uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terms = append(p.terms, term)
	return nil
}

func (p *recordingPersister) PersistVote(term uint64, votedFor NodeID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.votes = append(p.votes, votedFor)
	return nil
}

func (p *recordingPersister) PersistEntries(entries []LogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appended = append(p.appended, entries)
	return nil
}

func (p *recordingPersister) PersistTruncate(*uint64) error { return nil }

// scriptedRPC lets a single-node handler test drive RequestVotes /
// AppendEntriesBroadcast without a real peer: every dispatch call is
// recorded and callers can invoke the captured handler manually to
// simulate a peer's response. Its Command method always returns an empty,
// unsuccessful response; command_test.go's canCommand embeds it to script
// a forwarded reply instead.
type scriptedRPC struct {
	mu sync.Mutex

	lastVoteReq     RequestVote
	lastVoteHandler VoteHandler

	lastAppendReq     AppendEntries
	lastAppendHandler AppendHandler

	lastFollowerPeer    NodeID
	lastFollowerReq     AppendEntries
	lastFollowerHandler FollowerResponseHandler
}

func (s *scriptedRPC) RequestVotes(req RequestVote, cluster Cluster, self NodeID, handler VoteHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVoteReq = req
	s.lastVoteHandler = handler
}

func (s *scriptedRPC) AppendEntriesBroadcast(req AppendEntries, cluster Cluster, self NodeID, handler AppendHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAppendReq = req
	s.lastAppendHandler = handler
}

func (s *scriptedRPC) AppendEntriesToFollower(peer NodeID, req AppendEntries, handler FollowerResponseHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFollowerPeer = peer
	s.lastFollowerReq = req
	s.lastFollowerHandler = handler
}

func (s *scriptedRPC) Command(req Command, leader NodeID) (CommandResponse, error) {
	return CommandResponse{}, nil
}

// blockingAsync is an AsyncProvider for tests: Await parks on a sync.Cond
// until Notify (called by Node after each mutation, or by a test that
// changed state from another goroutine) wakes it with the predicate true.
// It repeats async.CondProvider's logic inline so raft's own tests do not
// import the async package; async imports nothing from raft, so this is a
// choice about test dependencies rather than a way around an import cycle.
type blockingAsync struct {
	mu   sync.Mutex
	cond *sync.Cond
}

func newBlockingAsync() *blockingAsync {
	b := &blockingAsync{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *blockingAsync) Await(predicate func() bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !predicate() {
		b.cond.Wait()
	}
}

func (b *blockingAsync) Notify() {
	b.mu.Lock()
	b.cond.Broadcast()
	b.mu.Unlock()
}

func testConfig(rpc RPCProvider, async AsyncProvider) Config {
	return Config{
		RPCProvider:       rpc,
		AsyncProvider:     async,
		Persister:         &recordingPersister{},
		ElectionTimeout:   0,
		ElectionSplay:     0,
		UpdateInterval:    0,
		HeartbeatInterval: 0,
	}
}
