package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ghostfox-code2305/raftkv/async"
	"github.com/ghostfox-code2305/raftkv/persistence"
	"github.com/ghostfox-code2305/raftkv/raft"
	"github.com/ghostfox-code2305/raftkv/statemachine"
	"github.com/ghostfox-code2305/raftkv/transport/grpcraft"
)

func main() {
	id := flag.String("id", "", "this node's ID, must be unique within -peers")
	listenAddr := flag.String("address", "localhost:50051", "address this node listens on")
	peersFlag := flag.String("peers", "", "comma-separated id=host:port pairs for every cluster member, including this one")
	dataDir := flag.String("data", "./data", "directory for this node's raft log and state machine data")
	electionTimeout := flag.Duration("election-timeout", 300*time.Millisecond, "base election timeout")
	electionSplay := flag.Duration("election-splay", 150*time.Millisecond, "random jitter added to the election timeout")
	heartbeatInterval := flag.Duration("heartbeat-interval", 75*time.Millisecond, "advertised leader heartbeat interval; recorded on Config but not currently read by the raft core, which reuses -update-interval for the leader's heartbeat tick")
	updateInterval := flag.Duration("update-interval", 20*time.Millisecond, "how often the node's timers are checked; also seeds the leader's heartbeat tick, so keep it well under -election-timeout")
	rpcTimeout := flag.Duration("rpc-timeout", 2*time.Second, "per-RPC timeout to peers")
	flag.Parse()

	log := logrus.WithField("component", "cmd/server")

	if *id == "" {
		log.Fatal("-id is required")
	}
	addresses, err := parsePeers(*peersFlag)
	if err != nil {
		log.WithError(err).Fatal("invalid -peers")
	}
	if _, ok := addresses[raft.NodeID(*id)]; !ok {
		log.Fatalf("-id %q must appear in -peers", *id)
	}

	members := make([]raft.NodeID, 0, len(addresses))
	for peer := range addresses {
		members = append(members, peer)
	}
	cluster := raft.NewCluster(members...)

	persisted, err := persistence.Load(*dataDir)
	if err != nil {
		log.WithError(err).Fatal("failed to load persisted raft state")
	}
	persister, err := persistence.NewLog(*dataDir)
	if err != nil {
		log.WithError(err).Fatal("failed to open raft write-ahead log")
	}
	defer persister.Close()

	adapter, err := statemachine.NewAdapter(*dataDir, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open state machine")
	}
	defer adapter.Close()

	rpcProvider := grpcraft.NewProvider(addresses, *rpcTimeout)
	defer rpcProvider.Close()

	node := raft.New(raft.NodeID(*id), cluster, raft.Config{
		RPCProvider:       rpcProvider,
		AsyncProvider:     async.NewCondProvider(),
		Persister:         persister,
		ElectionTimeout:   *electionTimeout,
		ElectionSplay:     *electionSplay,
		HeartbeatInterval: *heartbeatInterval,
		UpdateInterval:    *updateInterval,
		Recovered:         persisted.ToRaft(),
	}, adapter.Handle)

	server := grpcraft.NewServer(node, adapter)
	if err := server.Start(*listenAddr); err != nil {
		log.WithError(err).Fatal("failed to start gRPC server")
	}
	defer server.Stop()

	log.WithFields(logrus.Fields{
		"id":      *id,
		"address": *listenAddr,
		"peers":   len(addresses) - 1,
	}).Info("raft node started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*updateInterval)
	defer ticker.Stop()

	statusTicker := time.NewTicker(5 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-ticker.C:
			node.Update()
		case <-statusTicker.C:
			s := node.Status()
			leader := "none"
			if s.LeaderID != nil {
				leader = string(*s.LeaderID)
			}
			commitIndex := "none"
			if s.CommitIndex != nil {
				commitIndex = fmt.Sprintf("%d", *s.CommitIndex)
			}
			log.WithFields(logrus.Fields{
				"role":         s.Role,
				"term":         s.CurrentTerm,
				"commit_index": commitIndex,
				"leader_id":    leader,
				"log_length":   s.LogLength,
			}).Info("status")
			log.WithFields(adapter.Stats()).Info("state machine stats")
		case <-stop:
			log.Info("shutting down")
			return
		}
	}
}

// parsePeers turns "a=host:port,b=host:port" into a NodeID->address map.
func parsePeers(raw string) (map[raft.NodeID]string, error) {
	addresses := map[raft.NodeID]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.Errorf("malformed peer entry, want id=host:port: %q", pair)
		}
		addresses[raft.NodeID(parts[0])] = parts[1]
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("-peers must list every cluster member as id=host:port")
	}
	return addresses, nil
}
