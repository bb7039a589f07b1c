package grpcraft

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ghostfox-code2305/raftkv/raft"
)

// Provider implements raft.RPCProvider over the gRPC transport in this
// package. Each handler-based dispatch method (RequestVotes,
// AppendEntriesBroadcast, AppendEntriesToFollower) spawns one goroutine per
// peer and invokes the caller-supplied handler from that goroutine — never from
// the calling goroutine inline — because raft.Node calls these methods
// while already holding its own lock, and a handler invoked synchronously
// here would try to re-acquire it and deadlock.
type Provider struct {
	addresses map[raft.NodeID]string
	pool      *connPool
	timeout   time.Duration
	log       *logrus.Entry
}

// NewProvider builds a Provider that resolves peer addresses from the
// given static map. Cluster membership is fixed for the Provider's
// lifetime.
func NewProvider(addresses map[raft.NodeID]string, timeout time.Duration) *Provider {
	return &Provider{
		addresses: addresses,
		pool:      newConnPool(),
		timeout:   timeout,
		log:       logrus.WithField("component", "grpcraft.provider"),
	}
}

func (p *Provider) Close() error {
	return p.pool.closeAll()
}

func (p *Provider) dial(peer raft.NodeID) (*raftServiceClient, error) {
	addr, ok := p.addresses[peer]
	if !ok {
		return nil, errUnknownPeer(peer)
	}
	return p.pool.get(addr)
}

func (p *Provider) RequestVotes(req raft.RequestVote, cluster raft.Cluster, self raft.NodeID, handler raft.VoteHandler) {
	wire := toWireVoteReq(req)
	for _, peer := range cluster.Peers(self) {
		peer := peer
		requestID := uuid.NewString()
		go func() {
			log := p.log.WithFields(logrus.Fields{"peer": string(peer), "request_id": requestID})
			client, err := p.dial(peer)
			if err != nil {
				log.WithError(err).Debug("RequestVote dial failed")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			defer cancel()
			resp, err := client.RequestVote(ctx, wire)
			if err != nil {
				log.WithError(err).Debug("RequestVote call failed")
				return
			}
			log.WithField("vote_granted", resp.VoteGranted).Trace("RequestVote response")
			handler(raft.RequestVoteResponse{Term: resp.Term, VoteGranted: resp.VoteGranted})
		}()
	}
}

func (p *Provider) AppendEntriesBroadcast(req raft.AppendEntries, cluster raft.Cluster, self raft.NodeID, handler raft.AppendHandler) {
	wire := toWireAppendReq(req)
	for _, peer := range cluster.Peers(self) {
		peer := peer
		requestID := uuid.NewString()
		go func() {
			log := p.log.WithFields(logrus.Fields{"peer": string(peer), "request_id": requestID})
			client, err := p.dial(peer)
			if err != nil {
				log.WithError(err).Debug("AppendEntries dial failed")
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			defer cancel()
			resp, err := client.AppendEntries(ctx, wire)
			if err != nil {
				log.WithError(err).Debug("AppendEntries call failed")
				return
			}
			log.WithField("success", resp.Success).Trace("AppendEntries response")
			handler(peer, raft.AppendEntriesResponse{Term: resp.Term, Success: resp.Success})
		}()
	}
}

func (p *Provider) AppendEntriesToFollower(peer raft.NodeID, req raft.AppendEntries, handler raft.FollowerResponseHandler) {
	wire := toWireAppendReq(req)
	requestID := uuid.NewString()
	go func() {
		log := p.log.WithFields(logrus.Fields{"peer": string(peer), "request_id": requestID})
		client, err := p.dial(peer)
		if err != nil {
			log.WithError(err).Debug("AppendEntriesToFollower dial failed")
			handler(raft.AppendEntriesResponse{}, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		resp, err := client.AppendEntries(ctx, wire)
		if err != nil {
			log.WithError(err).Debug("AppendEntriesToFollower call failed")
			handler(raft.AppendEntriesResponse{}, err)
			return
		}
		handler(raft.AppendEntriesResponse{Term: resp.Term, Success: resp.Success}, nil)
	}()
}

// Command forwards a client command to the believed leader and blocks
// for its response, matching the synchronous raft.RPCProvider.Command
// contract (the caller has already released its own node lock before
// calling this).
func (p *Provider) Command(req raft.Command, leader raft.NodeID) (raft.CommandResponse, error) {
	client, err := p.dial(leader)
	if err != nil {
		return raft.CommandResponse{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	resp, err := client.Command(ctx, &commandMsg{Command: req.Command})
	if err != nil {
		return raft.CommandResponse{}, err
	}
	return raft.CommandResponse{Success: resp.Success, Index: resp.Index}, nil
}

// Read performs the non-linearizable local-read path against a specific
// target node, bypassing raft.Node entirely (see readMsg).
func (p *Provider) Read(target raft.NodeID, key string) ([]byte, bool, error) {
	client, err := p.dial(target)
	if err != nil {
		return nil, false, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	resp, err := client.Read(ctx, &readMsg{Key: key})
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Found, nil
}

type errUnknownPeer raft.NodeID

func (e errUnknownPeer) Error() string {
	return "grpcraft: no known address for peer " + string(e)
}
