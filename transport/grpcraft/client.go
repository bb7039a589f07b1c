package grpcraft

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// connPool is a keyed cache of *grpc.ClientConn: dial once per peer
// address and reuse the connection across every subsequent RPC to it.
type connPool struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

func newConnPool() *connPool {
	return &connPool{conns: map[string]*grpc.ClientConn{}}
}

func (p *connPool) get(address string) (*raftServiceClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, ok := p.conns[address]
	if !ok {
		dialID := uuid.NewString()
		var err error
		conn, err = grpc.NewClient(address,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
		)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"address": address, "dial_id": dialID}).Debug("dial attempt failed")
			return nil, err
		}
		logrus.WithFields(logrus.Fields{"address": address, "dial_id": dialID}).Debug("dial attempt established")
		p.conns[address] = conn
	}
	return newRaftServiceClient(conn), nil
}

func (p *connPool) closeAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.conns, addr)
	}
	return firstErr
}
