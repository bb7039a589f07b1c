package raft

import "sync"

// Node is a single participant in one raft consensus group. All exported
// methods lock an internal mutex and are safe to call concurrently from
// multiple goroutines (inbound RPC handlers, the embedder's update loop,
// and client command submissions all funnel through the same lock). The
// lock additionally coordinates with the pluggable AsyncProvider so that
// callers blocked in Await can be woken the moment state changes (see
// unlockAndNotify).
type Node struct {
	mu sync.Mutex

	id      NodeID
	cluster Cluster
	config  Config
	log     *logger

	persistent persistentState
	temporary  temporaryState
	leadership *leadershipState // non-nil only while role == Leader

	role          Role
	electionTimer *Timer

	commitHandler func(command []byte)

	// updating is set for the duration of Update, and a call that finds it
	// set returns at once. Update holds n.mu for its whole body, so a call
	// from another goroutine waits on n.mu and then runs after the first
	// one has finished rather than being skipped, and a synchronous call
	// back into Update from the same goroutine (e.g. from inside an
	// RPCProvider method) blocks on n.mu before reaching this check.
	updating bool
}

// notifier is the optional escape hatch an AsyncProvider may implement so
// Node can push wakeups instead of relying on the provider to poll.
// async.CondProvider implements it; providers that don't are still correct,
// just potentially slower to notice state changes.
type notifier interface {
	Notify()
}

// New constructs a Node in the Follower role with no known leader, its
// term, vote and log seeded from config.Recovered (a zero value gives
// term 0, no vote and an empty log). commitHandler is invoked once per committed log entry,
// in order, and must be total: it may not panic or block indefinitely.
func New(id NodeID, cluster Cluster, config Config, commitHandler func(command []byte)) *Node {
	if config.Persister == nil {
		config.Persister = noopPersister{}
	}
	n := &Node{
		id:            id,
		cluster:       cluster,
		config:        config,
		log:           newLogger(id),
		role:          Follower,
		electionTimer: NewTimer(config.ElectionTimeout, config.ElectionSplay),
		commitHandler: commitHandler,
	}
	n.persistent.currentTerm = config.Recovered.CurrentTerm
	n.persistent.votedFor = config.Recovered.VotedFor
	if len(config.Recovered.Entries) > 0 {
		n.persistent.log.Append(config.Recovered.Entries...)
	}
	return n
}

// unlockAndNotify releases n.mu and then, if the configured AsyncProvider
// supports it, pokes it to re-evaluate any parked predicates. The order is
// load-bearing: n.mu is always released before p's own lock is touched, so
// the two locks never nest in both directions (Await's predicate wrapper
// takes the opposite order, p's lock then briefly n.mu, which is why this
// method must never call Notify while still holding n.mu).
func (n *Node) unlockAndNotify() {
	n.mu.Unlock()
	if nt, ok := n.config.AsyncProvider.(notifier); ok {
		nt.Notify()
	}
}

func (n *Node) notifyAsync() {
	if nt, ok := n.config.AsyncProvider.(notifier); ok {
		nt.Notify()
	}
}

// awaitLocked blocks the caller until predicate (evaluated with n.mu held)
// returns true. n.mu must be held on entry and is held again on return;
// it is released for the duration of the wait so other handlers can make
// progress.
func (n *Node) awaitLocked(predicate func() bool) {
	wrapped := func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		return predicate()
	}
	n.mu.Unlock()
	n.config.AsyncProvider.Await(wrapped)
	n.mu.Lock()
}

// Role returns the node's current role.
func (n *Node) Role() Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

// CurrentTerm returns current_term.
func (n *Node) CurrentTerm() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.persistent.currentTerm
}

// CommitIndex returns commit_index, or nil if nothing has committed yet.
func (n *Node) CommitIndex() *uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.temporary.commitIndex
}

// LeaderID returns the node believed to be leader, or nil if unknown.
func (n *Node) LeaderID() *NodeID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.temporary.leaderID
}

// Status is a read-only snapshot bundling the accessors above into one
// lock acquisition, convenient for diagnostics endpoints and tests.
type Status struct {
	ID          NodeID
	Role        Role
	CurrentTerm uint64
	CommitIndex *uint64
	LeaderID    *NodeID
	LogLength   int
}

func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{
		ID:          n.id,
		Role:        n.role,
		CurrentTerm: n.persistent.currentTerm,
		CommitIndex: n.temporary.commitIndex,
		LeaderID:    n.temporary.leaderID,
		LogLength:   n.persistent.log.Len(),
	}
}

// Update drives time-dependent behaviour: election timeouts and leader
// heartbeat ticks. The embedder is responsible for calling it
// periodically (e.g. from a time.Ticker); Update itself never sleeps.
func (n *Node) Update() {
	n.mu.Lock()
	if n.updating {
		n.mu.Unlock()
		return
	}
	n.updating = true
	defer func() {
		n.updating = false
		n.unlockAndNotify()
	}()

	switch n.role {
	case Follower:
		if n.electionTimer.TimedOut() {
			n.log.electionTimeout()
			n.becomeCandidateLocked()
			n.runElectionLocked()
		}
	case Candidate:
		if n.electionTimer.TimedOut() {
			n.log.electionTimeout()
			n.runElectionLocked()
		}
	case Leader:
		if n.leadership.tick.TimedOut() {
			n.leadership.tick.Reset()
			n.sendHeartbeatsLocked()
			n.recomputeCommitIndexLocked()
		}
	}
}

// stepDownIfNewTermLocked forces a step-down to Follower with the new
// term and no known leader whenever a message or response carries a
// term greater than current_term. Returns whether a step-down occurred.
func (n *Node) stepDownIfNewTermLocked(term uint64) bool {
	if term <= n.persistent.currentTerm {
		return false
	}
	oldTerm := n.persistent.currentTerm
	oldRole := n.role
	n.persistent.setTerm(term)
	n.role = Follower
	n.leadership = nil
	n.temporary.leaderID = nil
	if err := n.config.Persister.PersistTerm(term); err != nil {
		n.log.fatal(err)
	}
	n.electionTimer.Reset()
	n.log.stepDown(oldTerm, term)
	if oldRole != Follower {
		n.log.stateChange(oldRole, Follower, term)
	}
	return true
}
