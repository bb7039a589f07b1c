package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestNode(id NodeID, peers ...NodeID) *Node {
	members := append([]NodeID{id}, peers...)
	cluster := NewCluster(members...)
	rpc := &scriptedRPC{}
	async := newBlockingAsync()
	n := New(id, cluster, testConfig(rpc, async), func([]byte) {})
	return n
}

func TestHandleRequestVoteGrantsOnFreshTerm(t *testing.T) {
	n := newTestNode("a", "b")

	resp := n.HandleRequestVote(RequestVote{Term: 1, CandidateID: "b"})
	require.True(t, resp.VoteGranted)
	require.Equal(t, uint64(1), resp.Term)
	require.Equal(t, Follower, n.Role())
}

// S6: a node must never grant two different votes in the same term.
func TestHandleRequestVoteRejectsSecondCandidateSameTerm(t *testing.T) {
	n := newTestNode("a", "b", "c")

	first := n.HandleRequestVote(RequestVote{Term: 1, CandidateID: "b"})
	require.True(t, first.VoteGranted)

	second := n.HandleRequestVote(RequestVote{Term: 1, CandidateID: "c"})
	require.False(t, second.VoteGranted)
}

func TestHandleRequestVoteReaffirmsSameCandidate(t *testing.T) {
	n := newTestNode("a", "b")

	first := n.HandleRequestVote(RequestVote{Term: 1, CandidateID: "b"})
	require.True(t, first.VoteGranted)
	second := n.HandleRequestVote(RequestVote{Term: 1, CandidateID: "b"})
	require.True(t, second.VoteGranted)
}

// S3: a candidate campaigning on a stale term must be rejected outright.
func TestHandleRequestVoteRejectsStaleTerm(t *testing.T) {
	n := newTestNode("a", "b")
	n.mu.Lock()
	n.persistent.currentTerm = 5
	n.mu.Unlock()

	resp := n.HandleRequestVote(RequestVote{Term: 2, CandidateID: "b"})
	require.False(t, resp.VoteGranted)
	require.Equal(t, uint64(5), resp.Term)
}

func TestHandleRequestVoteRejectsCandidateWithShorterLog(t *testing.T) {
	n := newTestNode("a", "b")
	n.mu.Lock()
	n.persistent.currentTerm = 1
	n.persistent.log.Append(LogEntry{Term: 1, Index: 0}, LogEntry{Term: 1, Index: 1})
	n.mu.Unlock()

	resp := n.HandleRequestVote(RequestVote{
		Term:         2,
		CandidateID:  "b",
		LastLogIndex: u64ptr(0),
		LastLogTerm:  u64ptr(1),
	})
	require.False(t, resp.VoteGranted)
}

func TestHandleRequestVoteGrantsCandidateWithLongerLog(t *testing.T) {
	n := newTestNode("a", "b")
	n.mu.Lock()
	n.persistent.currentTerm = 1
	n.persistent.log.Append(LogEntry{Term: 1, Index: 0})
	n.mu.Unlock()

	resp := n.HandleRequestVote(RequestVote{
		Term:         2,
		CandidateID:  "b",
		LastLogIndex: u64ptr(1),
		LastLogTerm:  u64ptr(1),
	})
	require.True(t, resp.VoteGranted)
}

func TestHandleRequestVoteFromHigherTermStepsDownLeader(t *testing.T) {
	n := newTestNode("a", "b", "c")
	n.mu.Lock()
	n.role = Leader
	n.persistent.currentTerm = 1
	self := NodeID("a")
	n.temporary.leaderID = &self
	n.leadership = &leadershipState{tick: NewTimer(time.Hour, 0), followers: map[NodeID]*followerState{}}
	n.mu.Unlock()

	resp := n.HandleRequestVote(RequestVote{Term: 2, CandidateID: "b"})
	require.True(t, resp.VoteGranted)
	require.Equal(t, Follower, n.Role())
	require.Nil(t, n.LeaderID())
}

func TestHandleAppendEntriesRejectsStaleTerm(t *testing.T) {
	n := newTestNode("a", "b")
	n.mu.Lock()
	n.persistent.currentTerm = 5
	n.mu.Unlock()

	resp, err := n.HandleAppendEntries(AppendEntries{Term: 1, LeaderID: "b"})
	require.NoError(t, err)
	require.False(t, resp.Success)
}

func TestHandleAppendEntriesRejectsOnLogGap(t *testing.T) {
	n := newTestNode("a", "b")

	resp, err := n.HandleAppendEntries(AppendEntries{
		Term:         1,
		LeaderID:     "b",
		PrevLogIndex: u64ptr(3),
		PrevLogTerm:  u64ptr(1),
	})
	require.NoError(t, err)
	require.False(t, resp.Success)
}

func TestHandleAppendEntriesAppendsAndSetsLeader(t *testing.T) {
	n := newTestNode("a", "b")

	resp, err := n.HandleAppendEntries(AppendEntries{
		Term:     1,
		LeaderID: "b",
		Entries:  []LogEntry{{Term: 1, Index: 0, Command: []byte("x")}},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, n.LeaderID())
	require.Equal(t, NodeID("b"), *n.LeaderID())
}

// S2: a committed entry reaches the state machine callback exactly once,
// in order.
func TestHandleAppendEntriesCommitsThroughCallback(t *testing.T) {
	var committed [][]byte
	cluster := NewCluster("a", "b")
	rpc := &scriptedRPC{}
	async := newBlockingAsync()
	n := New("a", cluster, testConfig(rpc, async), func(cmd []byte) {
		committed = append(committed, cmd)
	})

	_, err := n.HandleAppendEntries(AppendEntries{
		Term:     1,
		LeaderID: "b",
		Entries: []LogEntry{
			{Term: 1, Index: 0, Command: []byte("one")},
			{Term: 1, Index: 1, Command: []byte("two")},
		},
		CommitIndex: u64ptr(1),
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("one"), []byte("two")}, committed)
	require.Equal(t, uint64(1), *n.CommitIndex())
}

// S5: a leader may never ask a follower to truncate already-committed
// entries; that is a fatal invariant violation, not an ordinary rejection.
func TestHandleAppendEntriesFatalOnCommittedTruncation(t *testing.T) {
	n := newTestNode("a", "b")
	n.mu.Lock()
	n.persistent.log.Append(LogEntry{Term: 1, Index: 0}, LogEntry{Term: 1, Index: 1})
	committed := uint64(1)
	n.temporary.commitIndex = &committed
	n.mu.Unlock()

	_, err := n.HandleAppendEntries(AppendEntries{
		Term:         2,
		LeaderID:     "b",
		PrevLogIndex: nil,
		PrevLogTerm:  nil,
		Entries:      []LogEntry{{Term: 2, Index: 0, Command: []byte("x")}},
	})
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}
