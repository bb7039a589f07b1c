package raft

// Wire message shapes. Optional fields that model "no prior entry" are
// pointers rather than magic sentinel values such as -1 — nil must
// never be confused with a real index 0.

type RequestVote struct {
	Term         uint64
	CandidateID  NodeID
	LastLogIndex *uint64
	LastLogTerm  *uint64
}

type RequestVoteResponse struct {
	Term        uint64
	VoteGranted bool
}

type AppendEntries struct {
	Term         uint64
	LeaderID     NodeID
	PrevLogIndex *uint64
	PrevLogTerm  *uint64
	Entries      []LogEntry
	CommitIndex  *uint64
}

type AppendEntriesResponse struct {
	Term    uint64
	Success bool
}

type Command struct {
	Command []byte
}

// CommandResponse reports whether a client command was committed. Index
// names the log position the command was attempted at, so a client-side
// retry loop can tell whether a resubmission landed on the same slot a
// later leader overwrote.
type CommandResponse struct {
	Success bool
	Index   *uint64
}

// VoteHandler is fed each RequestVote response as it arrives. A non-nil
// return value is the authoritative, early-terminating verdict for the
// whole vote collection round (true = elected, false = lost); a nil
// return means "keep collecting".
type VoteHandler func(resp RequestVoteResponse) *bool

// AppendHandler is fed a single peer's AppendEntries response.
type AppendHandler func(peer NodeID, resp AppendEntriesResponse)

// FollowerResponseHandler is fed the response to one targeted
// (possibly rewound) AppendEntries retry.
type FollowerResponseHandler func(resp AppendEntriesResponse, err error)

// RPCProvider is the transport boundary. The core never dials a socket
// itself; it hands requests to this contract and reacts to the
// responses the provider delivers back through the supplied handlers.
type RPCProvider interface {
	// RequestVotes broadcasts req to every member of cluster other than
	// self and invokes handler once per response received, in arrival
	// order. Lost or never-replying peers simply never invoke handler.
	RequestVotes(req RequestVote, cluster Cluster, self NodeID, handler VoteHandler)

	// AppendEntriesBroadcast broadcasts req (a heartbeat or replication
	// batch) to every peer and invokes handler once per response.
	AppendEntriesBroadcast(req AppendEntries, cluster Cluster, self NodeID, handler AppendHandler)

	// AppendEntriesToFollower sends a single targeted AppendEntries to
	// one peer (used by the rewind retry loop) and invokes handler with
	// its outcome.
	AppendEntriesToFollower(peer NodeID, req AppendEntries, handler FollowerResponseHandler)

	// Command forwards a client command to the node believed to be
	// leader and returns its response synchronously.
	Command(req Command, leader NodeID) (CommandResponse, error)
}

// AsyncProvider is the cooperative-suspension boundary: it blocks the
// calling goroutine until predicate() returns true, while
// other inbound handlers are free to run (and mutate Node state) in the
// meantime. The core never spawns its own goroutines to wait; it always
// goes through this contract.
type AsyncProvider interface {
	Await(predicate func() bool)
}
