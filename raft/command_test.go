package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type canCommand struct {
	scriptedRPC
	resp CommandResponse
	err  error
}

func (c *canCommand) Command(req Command, leader NodeID) (CommandResponse, error) {
	return c.resp, c.err
}

func TestHandleCommandFollowerForwardsToKnownLeader(t *testing.T) {
	cluster := NewCluster("a", "b")
	rpc := &canCommand{resp: CommandResponse{Success: true, Index: u64ptr(4)}}
	async := newBlockingAsync()
	n := New("a", cluster, testConfig(rpc, async), func([]byte) {})

	leader := NodeID("b")
	n.mu.Lock()
	n.temporary.leaderID = &leader
	n.mu.Unlock()

	resp := n.HandleCommand(Command{Command: []byte("x")})
	require.True(t, resp.Success)
	require.Equal(t, uint64(4), *resp.Index)
}

func TestHandleCommandFollowerWaitsForLeaderThenForwards(t *testing.T) {
	cluster := NewCluster("a", "b")
	rpc := &canCommand{resp: CommandResponse{Success: true, Index: u64ptr(1)}}
	async := newBlockingAsync()
	n := New("a", cluster, testConfig(rpc, async), func([]byte) {})

	go func() {
		time.Sleep(5 * time.Millisecond)
		n.mu.Lock()
		leader := NodeID("b")
		n.temporary.leaderID = &leader
		n.mu.Unlock()
		async.Notify()
	}()

	resp := n.HandleCommand(Command{Command: []byte("x")})
	require.True(t, resp.Success)
}

func TestHandleCommandLeaderAppendsAndWaitsForCommit(t *testing.T) {
	cluster := NewCluster("a", "b")
	rpc := &scriptedRPC{}
	async := newBlockingAsync()
	n := New("a", cluster, testConfig(rpc, async), func([]byte) {})

	n.mu.Lock()
	n.role = Leader
	self := NodeID("a")
	n.temporary.leaderID = &self
	n.leadership = &leadershipState{followers: map[NodeID]*followerState{}}
	n.mu.Unlock()

	go func() {
		time.Sleep(5 * time.Millisecond)
		n.mu.Lock()
		idx := uint64(0)
		n.temporary.commitIndex = &idx
		n.mu.Unlock()
		async.Notify()
	}()

	resp := n.HandleCommand(Command{Command: []byte("x")})
	require.True(t, resp.Success)
	require.Equal(t, uint64(0), *resp.Index)
}

func TestHandleCommandLeaderReportsFailureWhenOverwritten(t *testing.T) {
	cluster := NewCluster("a", "b")
	rpc := &scriptedRPC{}
	async := newBlockingAsync()
	n := New("a", cluster, testConfig(rpc, async), func([]byte) {})

	n.mu.Lock()
	n.role = Leader
	self := NodeID("a")
	n.temporary.leaderID = &self
	n.leadership = &leadershipState{followers: map[NodeID]*followerState{}}
	n.mu.Unlock()

	go func() {
		time.Sleep(5 * time.Millisecond)
		n.mu.Lock()
		// A later leader overwrote our entry at index 0 with its own,
		// different term.
		n.persistent.log.TruncateTo(nil)
		n.persistent.log.Append(LogEntry{Term: 2, Index: 0, Command: []byte("other")})
		n.mu.Unlock()
		async.Notify()
	}()

	resp := n.HandleCommand(Command{Command: []byte("x")})
	require.False(t, resp.Success)
}

func TestHandleCommandCandidateWaitsThenRecursesAsLeader(t *testing.T) {
	cluster := NewCluster("a")
	rpc := &scriptedRPC{}
	async := newBlockingAsync()
	n := New("a", cluster, testConfig(rpc, async), func([]byte) {})

	n.mu.Lock()
	n.role = Candidate
	n.mu.Unlock()

	go func() {
		time.Sleep(5 * time.Millisecond)
		n.mu.Lock()
		n.role = Leader
		self := NodeID("a")
		n.temporary.leaderID = &self
		n.leadership = &leadershipState{followers: map[NodeID]*followerState{}}
		idx := uint64(0)
		n.temporary.commitIndex = &idx
		n.mu.Unlock()
		async.Notify()
	}()

	resp := n.HandleCommand(Command{Command: []byte("x")})
	require.True(t, resp.Success)
}
