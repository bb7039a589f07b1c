// Package grpcraft transports raft.RPCProvider calls over real gRPC
// connections without a protoc-generated stub: messages are plain Go
// structs moved through a gob encoding.Codec (codec.go), and the service
// itself is a hand-authored grpc.ServiceDesc (service.go) in the same
// shape protoc-gen-go-grpc would emit.
package grpcraft

import "github.com/ghostfox-code2305/raftkv/raft"

// requestVoteMsg mirrors raft.RequestVote for the wire. Optional raft
// fields stay pointers; gob encodes a nil pointer as "field absent".
type requestVoteMsg struct {
	Term         uint64
	CandidateID  string
	LastLogIndex *uint64
	LastLogTerm  *uint64
}

type requestVoteRespMsg struct {
	Term        uint64
	VoteGranted bool
}

type logEntryMsg struct {
	Term    uint64
	Index   uint64
	Command []byte
}

type appendEntriesMsg struct {
	Term         uint64
	LeaderID     string
	PrevLogIndex *uint64
	PrevLogTerm  *uint64
	Entries      []logEntryMsg
	CommitIndex  *uint64
}

type appendEntriesRespMsg struct {
	Term    uint64
	Success bool
}

type commandMsg struct {
	Command []byte
}

type commandRespMsg struct {
	Success bool
	Index   *uint64
}

// readMsg/readRespMsg carry the non-linearizable local read path: a read
// bypasses raft.Node entirely and is answered straight out of the
// receiving node's local state machine (see statemachine.Adapter.Get).
type readMsg struct {
	Key string
}

type readRespMsg struct {
	Value []byte
	Found bool
}

func toWireVoteReq(req raft.RequestVote) *requestVoteMsg {
	return &requestVoteMsg{
		Term:         req.Term,
		CandidateID:  string(req.CandidateID),
		LastLogIndex: req.LastLogIndex,
		LastLogTerm:  req.LastLogTerm,
	}
}

func fromWireVoteReq(m *requestVoteMsg) raft.RequestVote {
	return raft.RequestVote{
		Term:         m.Term,
		CandidateID:  raft.NodeID(m.CandidateID),
		LastLogIndex: m.LastLogIndex,
		LastLogTerm:  m.LastLogTerm,
	}
}

func toWireEntries(entries []raft.LogEntry) []logEntryMsg {
	out := make([]logEntryMsg, len(entries))
	for i, e := range entries {
		out[i] = logEntryMsg{Term: e.Term, Index: e.Index, Command: e.Command}
	}
	return out
}

func fromWireEntries(entries []logEntryMsg) []raft.LogEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]raft.LogEntry, len(entries))
	for i, e := range entries {
		out[i] = raft.LogEntry{Term: e.Term, Index: e.Index, Command: e.Command}
	}
	return out
}

func toWireAppendReq(req raft.AppendEntries) *appendEntriesMsg {
	return &appendEntriesMsg{
		Term:         req.Term,
		LeaderID:     string(req.LeaderID),
		PrevLogIndex: req.PrevLogIndex,
		PrevLogTerm:  req.PrevLogTerm,
		Entries:      toWireEntries(req.Entries),
		CommitIndex:  req.CommitIndex,
	}
}

func fromWireAppendReq(m *appendEntriesMsg) raft.AppendEntries {
	return raft.AppendEntries{
		Term:         m.Term,
		LeaderID:     raft.NodeID(m.LeaderID),
		PrevLogIndex: m.PrevLogIndex,
		PrevLogTerm:  m.PrevLogTerm,
		Entries:      fromWireEntries(m.Entries),
		CommitIndex:  m.CommitIndex,
	}
}
