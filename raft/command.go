package raft

// HandleCommand dispatches a client command according to the node's
// current role. It is written as a loop rather than recursion: each role
// branch either returns, blocks via awaitLocked and re-enters the loop to
// re-read the now-current role, or (Follower forwarding) performs a
// synchronous RPC and returns its result. A literal recursive call here
// would re-lock n.mu from the same goroutine and deadlock, since
// sync.Mutex is not reentrant.
func (n *Node) HandleCommand(req Command) CommandResponse {
	n.mu.Lock()
	defer n.unlockAndNotify()

	for {
		switch n.role {
		case Follower:
			if n.temporary.leaderID == nil {
				n.awaitLocked(func() bool {
					return n.temporary.leaderID != nil || n.role != Follower
				})
				continue
			}
			leader := *n.temporary.leaderID
			n.mu.Unlock()
			resp, err := n.config.RPCProvider.Command(req, leader)
			n.mu.Lock()
			if err != nil {
				return CommandResponse{Success: false}
			}
			return resp

		case Candidate:
			n.awaitLocked(func() bool {
				return n.role != Candidate && n.temporary.leaderID != nil
			})
			continue

		case Leader:
			return n.appendAndAwaitConsensusLocked(req)
		}
	}
}

// appendAndAwaitConsensusLocked implements the leader half of client
// command handling. The entry is durably persisted before the caller
// ever blocks waiting for consensus, so a crash between append and
// commit never loses data the caller was told was durable.
func (n *Node) appendAndAwaitConsensusLocked(req Command) CommandResponse {
	index := uint64(0)
	if last := n.persistent.log.LastIndex(); last != nil {
		index = *last + 1
	}
	entry := LogEntry{Term: n.persistent.currentTerm, Index: index, Command: req.Command}
	n.persistent.log.Append(entry)

	if err := n.config.Persister.PersistEntries([]LogEntry{entry}); err != nil {
		n.log.fatal(err)
		return CommandResponse{Success: false, Index: u64ptr(index)}
	}

	targetTerm := entry.Term
	n.awaitLocked(func() bool {
		current, ok := n.persistent.log.Get(index)
		if !ok || current.Term != targetTerm {
			// Overwritten by a later leader; stop waiting, the caller
			// should resubmit.
			return true
		}
		return n.temporary.commitIndex != nil && *n.temporary.commitIndex >= index
	})

	current, ok := n.persistent.log.Get(index)
	committed := ok && current.Term == targetTerm &&
		n.temporary.commitIndex != nil && *n.temporary.commitIndex >= index
	return CommandResponse{Success: committed, Index: u64ptr(index)}
}
