package raft

// HandleRequestVote implements the five-step vote procedure.
func (n *Node) HandleRequestVote(req RequestVote) RequestVoteResponse {
	n.mu.Lock()
	defer n.unlockAndNotify()

	if req.Term < n.persistent.currentTerm {
		return RequestVoteResponse{Term: n.persistent.currentTerm, VoteGranted: false}
	}
	if req.Term > n.persistent.currentTerm {
		n.stepDownIfNewTermLocked(req.Term)
	}
	if n.role != Follower {
		return RequestVoteResponse{Term: n.persistent.currentTerm, VoteGranted: false}
	}

	if n.persistent.votedFor != nil && *n.persistent.votedFor != req.CandidateID {
		n.log.voteDenied(req.CandidateID, n.persistent.currentTerm, "already voted this term")
		return RequestVoteResponse{Term: n.persistent.currentTerm, VoteGranted: false}
	}
	if n.persistent.votedFor != nil && *n.persistent.votedFor == req.CandidateID {
		// Duplicate RequestVote for a vote already granted this term
		// (e.g. a retransmitted RPC); re-affirm it.
		n.electionTimer.Reset()
		return RequestVoteResponse{Term: n.persistent.currentTerm, VoteGranted: true}
	}

	granted := true
	if n.persistent.log.Len() > 0 {
		lastIdx, _ := u64val(n.persistent.log.LastIndex())
		last, _ := n.persistent.log.Get(lastIdx)

		candidateTerm := int64(-1)
		if req.LastLogTerm != nil {
			candidateTerm = int64(*req.LastLogTerm)
		}
		candidateIndex := int64(-1)
		if req.LastLogIndex != nil {
			candidateIndex = int64(*req.LastLogIndex)
		}
		lastTerm := int64(last.Term)
		lastIndex := int64(last.Index)

		reject := (candidateTerm == lastTerm && candidateIndex < lastIndex) || candidateTerm < lastTerm
		granted = !reject
	}

	if !granted {
		n.log.voteDenied(req.CandidateID, n.persistent.currentTerm, "candidate log not up to date")
		return RequestVoteResponse{Term: n.persistent.currentTerm, VoteGranted: false}
	}

	candidate := req.CandidateID
	n.persistent.votedFor = &candidate
	if err := n.config.Persister.PersistVote(n.persistent.currentTerm, candidate); err != nil {
		n.log.fatal(err)
	}
	n.log.voteGranted(req.CandidateID, n.persistent.currentTerm)
	n.electionTimer.Reset()

	return RequestVoteResponse{Term: n.persistent.currentTerm, VoteGranted: true}
}

// HandleAppendEntries implements the eight-step append procedure.
// The returned error is non-nil only for the unrecoverable case (step 5):
// a leader trying to truncate already-committed entries, which indicates
// corrupted state or a broken leader and must halt the embedder rather
// than be swallowed into a false response.
func (n *Node) HandleAppendEntries(req AppendEntries) (AppendEntriesResponse, error) {
	n.mu.Lock()
	defer n.unlockAndNotify()

	if req.Term < n.persistent.currentTerm {
		return AppendEntriesResponse{Term: n.persistent.currentTerm, Success: false}, nil
	}

	n.stepDownIfNewTermLocked(req.Term)
	n.electionTimer.Reset()
	leader := req.LeaderID
	n.temporary.leaderID = &leader
	n.log.appendEntriesReceived(req.LeaderID, req.Term, len(req.Entries))

	var matchIndex *uint64
	if req.PrevLogIndex != nil && req.PrevLogTerm != nil {
		idx, ok := n.persistent.log.FindMatch(*req.PrevLogIndex, *req.PrevLogTerm)
		if !ok {
			return AppendEntriesResponse{Term: n.persistent.currentTerm, Success: false}, nil
		}
		matchIndex = u64ptr(idx)
	} else if req.PrevLogIndex != nil || req.PrevLogTerm != nil {
		return AppendEntriesResponse{Term: n.persistent.currentTerm, Success: false}, nil
	}

	if n.temporary.commitIndex != nil {
		absIndex := int64(-1)
		if matchIndex != nil {
			absIndex = int64(*matchIndex)
		}
		if absIndex < int64(*n.temporary.commitIndex) {
			err := newFatalError("append entries would truncate committed log")
			n.log.fatal(err)
			return AppendEntriesResponse{}, err
		}
	}

	n.persistent.log.TruncateTo(matchIndex)
	if err := n.config.Persister.PersistTruncate(matchIndex); err != nil {
		n.log.fatal(err)
	}
	if len(req.Entries) > 0 {
		n.persistent.log.Append(req.Entries...)
		if err := n.config.Persister.PersistEntries(req.Entries); err != nil {
			n.log.fatal(err)
		}
	}

	if n.temporary.commitIndex != nil && req.CommitIndex != nil && *req.CommitIndex < *n.temporary.commitIndex {
		return AppendEntriesResponse{Term: n.persistent.currentTerm, Success: false}, nil
	}
	if req.CommitIndex != nil {
		n.handleCommitsLocked(req.CommitIndex)
	}

	return AppendEntriesResponse{Term: n.persistent.currentTerm, Success: true}, nil
}
