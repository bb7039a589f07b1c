package raft

import "sort"

// sendHeartbeatsLocked broadcasts a single AppendEntries built from the
// leader's own log tail to every peer. Per-peer inconsistency (a false
// response) is resolved afterward by rewindAndRetryLocked, not by this
// broadcast itself.
func (n *Node) sendHeartbeatsLocked() {
	if n.role != Leader {
		return
	}
	term := n.persistent.currentTerm
	prevIndex, prevTerm := lastLogIndexAndTerm(&n.persistent.log)
	req := AppendEntries{
		Term:         term,
		LeaderID:     n.id,
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		CommitIndex:  n.temporary.commitIndex,
	}
	n.log.heartbeatSent(term, len(n.cluster.Peers(n.id)))

	handler := func(peer NodeID, resp AppendEntriesResponse) {
		n.mu.Lock()
		if n.role != Leader || n.persistent.currentTerm != term {
			n.mu.Unlock()
			return
		}
		if resp.Term > n.persistent.currentTerm {
			n.stepDownIfNewTermLocked(resp.Term)
			n.mu.Unlock()
			n.notifyAsync()
			return
		}
		n.applyFollowerResponseLocked(peer, req, resp)
		n.mu.Unlock()
		n.notifyAsync()
	}

	n.config.RPCProvider.AppendEntriesBroadcast(req, n.cluster, n.id, handler)
}

// applyFollowerResponseLocked folds one AppendEntries response (whether
// from the broadcast heartbeat or a targeted rewind retry) into the
// leader's per-follower replication state.
func (n *Node) applyFollowerResponseLocked(peer NodeID, req AppendEntries, resp AppendEntriesResponse) {
	if n.leadership == nil {
		return
	}
	fs, ok := n.leadership.followers[peer]
	if !ok {
		return
	}
	if resp.Success {
		base := uint64(0)
		if idx, has := u64val(req.PrevLogIndex); has {
			base = idx + 1
		}
		fs.nextIndex = base + uint64(len(req.Entries))
		fs.succeeded = true
		return
	}
	n.rewindAndRetryLocked(peer, req)
}

// rewindAndRetryLocked implements a one-step rewind retry: on a false
// response, decrement the prior prev_log_index by one and resend with
// the wider entry range. This is written as a chain
// of independent callback invocations rather than a blocking loop — each
// call to AppendEntriesToFollower returns immediately, and the handler it
// is given performs the next rewind step (if any) from its own stack
// frame, so no call stack grows with the number of rewinds regardless of
// how far back the conflict lies.
func (n *Node) rewindAndRetryLocked(peer NodeID, req AppendEntries) {
	oldPrev, hasOld := u64val(req.PrevLogIndex)
	if !hasOld {
		// Already retried back to the very start of the log; nothing
		// further to rewind.
		return
	}

	var newPrevIndex *uint64
	if oldPrev > 0 {
		newPrevIndex = u64ptr(oldPrev - 1)
	}

	var newPrevTerm *uint64
	startFrom := uint64(0)
	if newPrevIndex != nil {
		entry, ok := n.persistent.log.Get(*newPrevIndex)
		if !ok {
			return
		}
		newPrevTerm = u64ptr(entry.Term)
		startFrom = *newPrevIndex + 1
	}

	term := n.persistent.currentTerm
	newReq := AppendEntries{
		Term:         term,
		LeaderID:     n.id,
		PrevLogIndex: newPrevIndex,
		PrevLogTerm:  newPrevTerm,
		Entries:      n.persistent.log.From(startFrom),
		CommitIndex:  n.temporary.commitIndex,
	}

	handler := func(resp AppendEntriesResponse, err error) {
		n.mu.Lock()
		if err != nil || n.role != Leader || n.persistent.currentTerm != term {
			n.mu.Unlock()
			return
		}
		if resp.Term > n.persistent.currentTerm {
			n.stepDownIfNewTermLocked(resp.Term)
			n.mu.Unlock()
			n.notifyAsync()
			return
		}
		n.applyFollowerResponseLocked(peer, newReq, resp)
		n.mu.Unlock()
		n.notifyAsync()
	}

	n.config.RPCProvider.AppendEntriesToFollower(peer, newReq, handler)
}

// recomputeCommitIndexLocked advances commit_index to the (quorum-1)-th
// smallest of the succeeded followers' (next_index - 1), sorted
// ascending. This is deliberately not the textbook match-index-quorum
// algorithm; see DESIGN.md for the rationale.
func (n *Node) recomputeCommitIndexLocked() {
	if n.role != Leader || n.leadership == nil {
		return
	}
	if len(n.leadership.followers) == 0 {
		if n.persistent.log.Len() == 0 {
			return
		}
		n.handleCommitsLocked(u64ptr(uint64(n.persistent.log.Len() - 1)))
		return
	}

	var succeeded []uint64
	for _, fs := range n.leadership.followers {
		if fs.succeeded {
			succeeded = append(succeeded, fs.nextIndex-1)
		}
	}
	required := n.cluster.Quorum() - 1
	if len(succeeded) < required {
		// Fewer followers have succeeded than the quorum needs; advancing
		// here would commit an entry only a minority of the cluster has
		// durably stored.
		return
	}
	sort.Slice(succeeded, func(i, j int) bool { return succeeded[i] < succeeded[j] })

	pos := required - 1
	if pos < 0 {
		pos = 0
	}
	n.handleCommitsLocked(u64ptr(succeeded[pos]))
}
