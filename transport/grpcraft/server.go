package grpcraft

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/ghostfox-code2305/raftkv/raft"
)

// reader answers the non-linearizable local-read path (see readMsg). It is
// satisfied by *statemachine.Adapter; kept as a narrow interface here so
// this package does not need to import statemachine for a single method.
type reader interface {
	Get(key string) ([]byte, error)
}

// Server exposes a raft.Node's inbound RPC handlers over gRPC.
type Server struct {
	node     *raft.Node
	reader   reader
	server   *grpc.Server
	listener net.Listener
	log      *logrus.Entry
}

// NewServer wraps node for inbound gRPC traffic. reader may be nil, in
// which case Read always reports the key not found; pass the node's
// statemachine.Adapter to serve local reads.
func NewServer(node *raft.Node, reader reader) *Server {
	return &Server{
		node:   node,
		reader: reader,
		log:    logrus.WithField("component", "grpcraft.server"),
	}
}

// Start binds address and begins serving in the background.
func (s *Server) Start(address string) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = lis
	s.server = grpc.NewServer()
	registerRaftServiceServer(s.server, s)

	go func() {
		if err := s.server.Serve(lis); err != nil {
			s.log.WithError(err).Warn("grpc server stopped")
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}

// Addr returns the bound listener address, useful when Start was given
// ":0" to pick an ephemeral port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) RequestVote(ctx context.Context, req *requestVoteMsg) (*requestVoteRespMsg, error) {
	resp := s.node.HandleRequestVote(fromWireVoteReq(req))
	return &requestVoteRespMsg{Term: resp.Term, VoteGranted: resp.VoteGranted}, nil
}

func (s *Server) AppendEntries(ctx context.Context, req *appendEntriesMsg) (*appendEntriesRespMsg, error) {
	resp, err := s.node.HandleAppendEntries(fromWireAppendReq(req))
	if err != nil {
		// A FatalError means this node's own state is corrupted. It is
		// logged here and returned to the calling leader as the RPC
		// error; it is not passed on to cmd/server, and the node keeps
		// running.
		s.log.WithError(err).Error("fatal error handling AppendEntries")
		return nil, err
	}
	return &appendEntriesRespMsg{Term: resp.Term, Success: resp.Success}, nil
}

func (s *Server) Command(ctx context.Context, req *commandMsg) (*commandRespMsg, error) {
	resp := s.node.HandleCommand(raft.Command{Command: req.Command})
	return &commandRespMsg{Success: resp.Success, Index: resp.Index}, nil
}

func (s *Server) Read(ctx context.Context, req *readMsg) (*readRespMsg, error) {
	if s.reader == nil {
		return &readRespMsg{Found: false}, nil
	}
	value, err := s.reader.Get(req.Key)
	if err != nil {
		return &readRespMsg{Found: false}, nil
	}
	return &readRespMsg{Value: value, Found: true}, nil
}
