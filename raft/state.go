package raft

// Persister durably flushes persistent state before the core is allowed to
// send any response that acknowledges a term advance or a vote grant.
// The implementation in this repo is persistence.Log
// (github.com/ghostfox-code2305/raftkv/persistence); a nil
// Config.Persister falls back to a no-op, and tests use an in-memory stub.
type Persister interface {
	// PersistTerm durably records a new current_term, with voted_for
	// cleared (since setting current_term always clears it).
	PersistTerm(term uint64) error

	// PersistVote durably records a vote cast within the given term.
	PersistVote(term uint64, votedFor NodeID) error

	// PersistEntries durably appends newly-written log entries.
	PersistEntries(entries []LogEntry) error

	// PersistTruncate durably drops entries after keepUpToInclusive
	// (nil means "clear the log").
	PersistTruncate(keepUpToInclusive *uint64) error
}

// persistentState is current_term, voted_for and the log.
// current_term is monotonically non-decreasing; setting it clears
// voted_for. voted_for, once set within a term, cannot change until the
// term advances.
type persistentState struct {
	currentTerm uint64
	votedFor    *NodeID
	log         Log
}

// setTerm advances current_term and clears voted_for. It is a bug to call
// this with a term that does not exceed the current one; callers must
// check first (stepDownIfNewTerm is the only caller that needs to).
func (p *persistentState) setTerm(term uint64) {
	p.currentTerm = term
	p.votedFor = nil
}

// temporaryState is the volatile commit_index and leader_id.
// commit_index is monotonically non-decreasing once set.
type temporaryState struct {
	commitIndex *uint64
	leaderID    *NodeID
}

// followerState tracks one peer's replication progress from the leader's
// point of view.
type followerState struct {
	nextIndex uint64
	succeeded bool
}

// leadershipState exists only while role == Leader; it is created fresh on
// every leadership acquisition and discarded on every step-down path.
type leadershipState struct {
	tick      *Timer
	followers map[NodeID]*followerState
}
