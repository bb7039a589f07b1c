package raft

// becomeCandidateLocked transitions Follower -> Candidate without yet
// starting a term (runElectionLocked does that). Split out so Update can
// log the transition once even though runElectionLocked is also called on
// every subsequent retry from Candidate.
func (n *Node) becomeCandidateLocked() {
	old := n.role
	n.role = Candidate
	n.log.stateChange(old, Candidate, n.persistent.currentTerm)
}

// runElectionLocked increments current_term, votes for self, resets the
// election timer, and dispatches RequestVotes to every peer.
// Each response is folded into a running tally by a handler closure; the
// tally's mutation is always performed with n.mu held (either because this
// goroutine holds it already for the self-vote fast path, or because the
// handler re-acquires it itself for asynchronous responses), so votesFor
// and votesAgainst need no separate synchronization.
func (n *Node) runElectionLocked() {
	self := n.id
	n.persistent.currentTerm++
	n.persistent.votedFor = &self
	term := n.persistent.currentTerm
	if err := n.config.Persister.PersistTerm(term); err != nil {
		n.log.fatal(err)
	}
	if err := n.config.Persister.PersistVote(term, self); err != nil {
		n.log.fatal(err)
	}
	n.electionTimer.Reset()

	old := n.role
	n.role = Candidate
	if old != Candidate {
		n.log.stateChange(old, Candidate, term)
	}
	n.log.electionStart(term)

	lastIndex, lastTerm := lastLogIndexAndTerm(&n.persistent.log)
	req := RequestVote{
		Term:         term,
		CandidateID:  n.id,
		LastLogIndex: lastIndex,
		LastLogTerm:  lastTerm,
	}

	needed := n.cluster.Quorum()
	votesFor := 1
	votesAgainst := 0

	// Single-node clusters (and the self-vote alone meeting quorum) win
	// immediately without waiting on any peer.
	if votesFor >= needed {
		n.becomeLeaderLocked(term)
		return
	}

	handler := func(resp RequestVoteResponse) *bool {
		n.mu.Lock()
		defer func() {
			n.mu.Unlock()
			n.notifyAsync()
		}()

		if n.persistent.currentTerm != term || n.role != Candidate {
			// Stale response for an election we've already left.
			return nil
		}
		if resp.Term > n.persistent.currentTerm {
			n.stepDownIfNewTermLocked(resp.Term)
			lost := false
			return &lost
		}
		if resp.VoteGranted {
			votesFor++
			if votesFor >= needed {
				n.becomeLeaderLocked(term)
				won := true
				return &won
			}
			return nil
		}
		votesAgainst++
		if votesAgainst >= needed {
			n.log.electionLost(term, votesFor, needed)
			lost := false
			return &lost
		}
		return nil
	}

	n.config.RPCProvider.RequestVotes(req, n.cluster, n.id, handler)
}

// becomeLeaderLocked transitions Candidate -> Leader. It guards against
// acting on a stale quorum (e.g. a delayed vote response arriving after
// the node already moved on to a later term).
func (n *Node) becomeLeaderLocked(term uint64) {
	if n.persistent.currentTerm != term || n.role != Candidate {
		return
	}
	old := n.role
	n.role = Leader

	lastIndex := n.persistent.log.LastIndex()
	nextIndex := uint64(0)
	if lastIndex != nil {
		nextIndex = *lastIndex + 1
	}
	followers := make(map[NodeID]*followerState, len(n.cluster.Peers(n.id)))
	for _, peer := range n.cluster.Peers(n.id) {
		followers[peer] = &followerState{nextIndex: nextIndex, succeeded: false}
	}
	self := n.id
	n.temporary.leaderID = &self
	n.leadership = &leadershipState{
		tick:      NewTimer(n.config.UpdateInterval, 0),
		followers: followers,
	}

	n.log.stateChange(old, Leader, term)
	n.log.electionWon(term, n.cluster.Quorum(), n.cluster.Quorum())
	n.sendHeartbeatsLocked()
}
