// Package client is the embedder-facing SDK for submitting commands to a
// raft cluster. Every node's grpcraft.Server already forwards a Command
// to the real leader internally (raft.Node.HandleCommand does this for
// the Follower and Candidate roles), so this client only needs to reach
// any single live member and can fail over to the next one on a dial or
// RPC error.
package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ghostfox-code2305/raftkv/raft"
	"github.com/ghostfox-code2305/raftkv/statemachine"
	"github.com/ghostfox-code2305/raftkv/transport/grpcraft"
)

// Client submits commands to a raft cluster through any reachable member,
// failing over to the next known address when the current one errors.
// Grounded on cluster_client.go's NewClusterClient, which dialed every
// node up front and kept a long-lived connection pool rather than
// reconnecting per call; here the pooling itself is delegated to a
// grpcraft.Provider keyed by synthetic per-address node IDs, since the
// transport already solves "dial once, reuse, tear down on Close".
type Client struct {
	mu       sync.Mutex
	order    []raft.NodeID
	provider *grpcraft.Provider
	log      *logrus.Entry
	lastGood int
}

// New builds a Client that will try addresses in order (starting from
// whichever one last succeeded) until one of them either answers or every
// address has been tried.
func New(addresses []string, timeout time.Duration) (*Client, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("client: at least one node address is required")
	}

	targets := make(map[raft.NodeID]string, len(addresses))
	order := make([]raft.NodeID, 0, len(addresses))
	for i, addr := range addresses {
		id := raft.NodeID(fmt.Sprintf("target-%d", i))
		targets[id] = addr
		order = append(order, id)
	}

	return &Client{
		order:    order,
		provider: grpcraft.NewProvider(targets, timeout),
		log:      logrus.WithField("component", "raftclient"),
	}, nil
}

// Put submits a PUT command and blocks until it is committed (or a later
// leader is confirmed to have overwritten the slot it was attempted at).
func (c *Client) Put(key string, value []byte) error {
	cmd, err := statemachine.EncodePut(key, value)
	if err != nil {
		return err
	}
	return c.submit(cmd)
}

// Delete submits a DELETE command and blocks until it is committed.
func (c *Client) Delete(key string) error {
	cmd, err := statemachine.EncodeDelete(key)
	if err != nil {
		return err
	}
	return c.submit(cmd)
}

// Get performs a non-linearizable local read against whichever node last
// accepted a write (falling back to the first known node), since reads
// bypass raft entirely. A stale follower may answer with an out-of-date
// or missing value.
func (c *Client) Get(key string) ([]byte, bool, error) {
	c.mu.Lock()
	start := c.lastGood
	c.mu.Unlock()

	var lastErr error
	for i := 0; i < len(c.order); i++ {
		idx := (start + i) % len(c.order)
		value, found, err := c.provider.Read(c.order[idx], key)
		if err != nil {
			lastErr = err
			continue
		}
		return value, found, nil
	}
	return nil, false, fmt.Errorf("client: no cluster member answered the read: %w", lastErr)
}

// submit round-robins across the known addresses, starting from the last
// one that worked, until a CommandResponse comes back successful or every
// address has failed. A false Success with a non-nil Index means the
// entry this command was attempted at was committed as something else (a
// later leader overwrote the slot); that is reported as a plain
// retryable failure, not distinguished from a transport error, since
// submit already loops over every known node regardless.
func (c *Client) submit(command []byte) error {
	c.mu.Lock()
	start := c.lastGood
	c.mu.Unlock()

	var lastErr error
	for i := 0; i < len(c.order); i++ {
		idx := (start + i) % len(c.order)
		target := c.order[idx]

		resp, err := c.provider.Command(raft.Command{Command: command}, target)
		if err != nil {
			c.log.WithError(err).WithField("target", string(target)).Debug("command attempt failed, trying next node")
			lastErr = err
			continue
		}
		if !resp.Success {
			lastErr = fmt.Errorf("client: command was not committed (attempted at index %v, later overwritten)", indexOrNil(resp.Index))
			continue
		}

		c.mu.Lock()
		c.lastGood = idx
		c.mu.Unlock()
		return nil
	}
	return fmt.Errorf("client: no cluster member accepted the command: %w", lastErr)
}

// Close tears down every pooled connection.
func (c *Client) Close() error {
	return c.provider.Close()
}

func indexOrNil(idx *uint64) interface{} {
	if idx == nil {
		return "none"
	}
	return *idx
}
