package raft

import "time"

// Config bundles the two external collaborator contracts with the
// timing knobs that control election and heartbeat cadence. All fields
// are required except Persister, which defaults to a no-op that skips
// durability (useful for in-memory tests; production embedders must
// supply one), Recovered, whose zero value is a brand-new node, and
// HeartbeatInterval, which the core does not read.
type Config struct {
	RPCProvider   RPCProvider
	AsyncProvider AsyncProvider
	Persister     Persister

	ElectionTimeout time.Duration
	ElectionSplay   time.Duration

	// UpdateInterval seeds the leader's heartbeat tick: a fresh leadershipState
	// re-arms it with NewTimer(UpdateInterval, 0), so it also governs how often
	// a leader re-sends AppendEntries to idle followers. Embedders typically
	// drive Node.Update on this same cadence.
	UpdateInterval time.Duration

	// HeartbeatInterval is not read by the raft core; it exists so embedders
	// have a named, dedicated knob to advertise separately from
	// UpdateInterval (e.g. in CLI flags or metrics). The leader's heartbeat
	// tick is driven by UpdateInterval alone.
	HeartbeatInterval time.Duration

	// Recovered seeds persistent state from a prior run (persistence.Load).
	// Zero value is a brand-new node with an empty log, term 0, no vote.
	Recovered RecoveredState
}

// RecoveredState mirrors persistence.Recovered without raft importing the
// persistence package (which itself imports raft), avoiding an import
// cycle. Embedders convert their persistence.Recovered into this shape.
type RecoveredState struct {
	CurrentTerm uint64
	VotedFor    *NodeID
	Entries     []LogEntry
}

type noopPersister struct{}

func (noopPersister) PersistTerm(uint64) error        { return nil }
func (noopPersister) PersistVote(uint64, NodeID) error { return nil }
func (noopPersister) PersistEntries([]LogEntry) error  { return nil }
func (noopPersister) PersistTruncate(*uint64) error    { return nil }
