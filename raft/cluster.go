package raft

// NodeID identifies a member of the cluster. Raft places no structure on
// it beyond equality.
type NodeID string

// Cluster is the fixed set of nodes participating in consensus. It is
// immutable for the lifetime of a Node; dynamic membership changes are
// out of scope.
type Cluster struct {
	members []NodeID
}

// NewCluster builds a Cluster from a full membership list, self included.
func NewCluster(members ...NodeID) Cluster {
	cp := make([]NodeID, len(members))
	copy(cp, members)
	return Cluster{members: cp}
}

// Members returns the full membership set, self included.
func (c Cluster) Members() []NodeID {
	out := make([]NodeID, len(c.members))
	copy(out, c.members)
	return out
}

// Peers returns every member other than self.
func (c Cluster) Peers(self NodeID) []NodeID {
	peers := make([]NodeID, 0, len(c.members))
	for _, id := range c.members {
		if id != self {
			peers = append(peers, id)
		}
	}
	return peers
}

// Quorum returns floor(n/2) + 1, a strict majority of the membership.
func (c Cluster) Quorum() int {
	return len(c.members)/2 + 1
}

// Size returns the number of members.
func (c Cluster) Size() int {
	return len(c.members)
}
