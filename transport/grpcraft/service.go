package grpcraft

import (
	"context"

	"google.golang.org/grpc"
)

// raftServiceServer is the interface a gRPC server registers against this
// service. It is the same shape protoc-gen-go-grpc would generate from a
// .proto service definition with four unary RPCs.
type raftServiceServer interface {
	RequestVote(context.Context, *requestVoteMsg) (*requestVoteRespMsg, error)
	AppendEntries(context.Context, *appendEntriesMsg) (*appendEntriesRespMsg, error)
	Command(context.Context, *commandMsg) (*commandRespMsg, error)
	Read(context.Context, *readMsg) (*readRespMsg, error)
}

const serviceName = "grpcraft.RaftService"

func registerRaftServiceServer(s *grpc.Server, srv raftServiceServer) {
	s.RegisterService(&raftServiceDesc, srv)
}

func handleRequestVote(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(requestVoteMsg)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(raftServiceServer).RequestVote(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RequestVote"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(raftServiceServer).RequestVote(ctx, req.(*requestVoteMsg))
	}
	return interceptor(ctx, req, info, handler)
}

func handleAppendEntries(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(appendEntriesMsg)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(raftServiceServer).AppendEntries(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AppendEntries"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(raftServiceServer).AppendEntries(ctx, req.(*appendEntriesMsg))
	}
	return interceptor(ctx, req, info, handler)
}

func handleCommand(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(commandMsg)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(raftServiceServer).Command(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Command"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(raftServiceServer).Command(ctx, req.(*commandMsg))
	}
	return interceptor(ctx, req, info, handler)
}

func handleRead(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(readMsg)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(raftServiceServer).Read(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Read"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(raftServiceServer).Read(ctx, req.(*readMsg))
	}
	return interceptor(ctx, req, info, handler)
}

var raftServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*raftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestVote", Handler: handleRequestVote},
		{MethodName: "AppendEntries", Handler: handleAppendEntries},
		{MethodName: "Command", Handler: handleCommand},
		{MethodName: "Read", Handler: handleRead},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "grpcraft.proto",
}

// raftServiceClient is the hand-authored equivalent of a
// protoc-gen-go-grpc client stub.
type raftServiceClient struct {
	cc *grpc.ClientConn
}

func newRaftServiceClient(cc *grpc.ClientConn) *raftServiceClient {
	return &raftServiceClient{cc: cc}
}

func (c *raftServiceClient) RequestVote(ctx context.Context, in *requestVoteMsg, opts ...grpc.CallOption) (*requestVoteRespMsg, error) {
	out := new(requestVoteRespMsg)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/RequestVote", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *raftServiceClient) AppendEntries(ctx context.Context, in *appendEntriesMsg, opts ...grpc.CallOption) (*appendEntriesRespMsg, error) {
	out := new(appendEntriesRespMsg)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/AppendEntries", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *raftServiceClient) Command(ctx context.Context, in *commandMsg, opts ...grpc.CallOption) (*commandRespMsg, error) {
	out := new(commandRespMsg)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Command", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *raftServiceClient) Read(ctx context.Context, in *readMsg, opts ...grpc.CallOption) (*readRespMsg, error) {
	out := new(readRespMsg)
	opts = append(opts, grpc.CallContentSubtype(codecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Read", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
