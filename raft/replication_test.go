package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newLeaderWithFollower(t *testing.T, followerNextIndex uint64) (*Node, *scriptedRPC) {
	t.Helper()
	n := newTestNode("a", "b")
	n.mu.Lock()
	n.role = Leader
	n.persistent.currentTerm = 1
	self := NodeID("a")
	n.temporary.leaderID = &self
	n.leadership = &leadershipState{
		followers: map[NodeID]*followerState{
			"b": {nextIndex: followerNextIndex, succeeded: false},
		},
	}
	n.mu.Unlock()
	return n, n.config.RPCProvider.(*scriptedRPC)
}

// S4: a follower whose log diverges from the leader is rewound one entry
// at a time until the logs agree, then catches up.
func TestRewindRetriesOneStepBackOnFailure(t *testing.T) {
	n, rpc := newLeaderWithFollower(t, 3)
	n.mu.Lock()
	n.persistent.log.Append(
		LogEntry{Term: 1, Index: 0, Command: []byte("a")},
		LogEntry{Term: 1, Index: 1, Command: []byte("b")},
		LogEntry{Term: 1, Index: 2, Command: []byte("c")},
	)
	req := AppendEntries{
		Term:         1,
		LeaderID:     "a",
		PrevLogIndex: u64ptr(2),
		PrevLogTerm:  u64ptr(1),
	}
	n.applyFollowerResponseLocked("b", req, AppendEntriesResponse{Term: 1, Success: false})
	n.mu.Unlock()

	require.NotNil(t, rpc.lastFollowerHandler)
	require.Equal(t, NodeID("b"), rpc.lastFollowerPeer)
	require.Equal(t, u64ptr(1), rpc.lastFollowerReq.PrevLogIndex)
}

func TestAppendEntriesBroadcastUpdatesNextIndexOnSuccess(t *testing.T) {
	n, _ := newLeaderWithFollower(t, 0)
	n.mu.Lock()
	n.persistent.log.Append(LogEntry{Term: 1, Index: 0}, LogEntry{Term: 1, Index: 1})
	req := AppendEntries{
		Term:         1,
		PrevLogIndex: nil,
		Entries:      n.persistent.log.From(0),
	}
	n.applyFollowerResponseLocked("b", req, AppendEntriesResponse{Term: 1, Success: true})
	fs := n.leadership.followers["b"]
	n.mu.Unlock()

	require.True(t, fs.succeeded)
	require.Equal(t, uint64(2), fs.nextIndex)
}

func TestRecomputeCommitIndexFallsBackToLogTailWithNoPeers(t *testing.T) {
	cluster := NewCluster("a")
	rpc := &scriptedRPC{}
	async := newBlockingAsync()
	var committed [][]byte
	n := New("a", cluster, testConfig(rpc, async), func(cmd []byte) { committed = append(committed, cmd) })

	n.mu.Lock()
	n.role = Leader
	n.leadership = &leadershipState{followers: map[NodeID]*followerState{}}
	n.persistent.log.Append(LogEntry{Term: 1, Index: 0, Command: []byte("only")})
	n.recomputeCommitIndexLocked()
	n.mu.Unlock()

	require.Equal(t, [][]byte{[]byte("only")}, committed)
}

func TestRecomputeCommitIndexWaitsForAnySuccessBeforeAdvancing(t *testing.T) {
	n, _ := newLeaderWithFollower(t, 0)
	n.mu.Lock()
	n.persistent.log.Append(LogEntry{Term: 1, Index: 0, Command: []byte("x")})
	n.recomputeCommitIndexLocked()
	committed := n.temporary.commitIndex
	n.mu.Unlock()

	require.Nil(t, committed)
}

func TestRecomputeCommitIndexAdvancesOnFollowerSuccess(t *testing.T) {
	n, _ := newLeaderWithFollower(t, 0)
	n.mu.Lock()
	n.persistent.log.Append(LogEntry{Term: 1, Index: 0, Command: []byte("x")})
	n.leadership.followers["b"].succeeded = true
	n.leadership.followers["b"].nextIndex = 1
	n.recomputeCommitIndexLocked()
	committed := n.temporary.commitIndex
	n.mu.Unlock()

	require.NotNil(t, committed)
	require.Equal(t, uint64(0), *committed)
}
