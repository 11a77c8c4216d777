package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/pingcap-incubator/tinyps/ps/util/queue"
)

type deliverConn struct {
	streamMu sync.Mutex
	stream   PS_DeliverClient
	cc       *grpc.ClientConn
	cancel   context.CancelFunc
}

func newDeliverConn(addr string) (*deliverConn, error) {
	cc, err := grpc.Dial(addr, grpc.WithInsecure(),
		grpc.WithInitialWindowSize(2*1024*1024),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                3 * time.Second,
			Timeout:             60 * time.Second,
			PermitWithoutStream: true,
		}))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := NewPSClient(cc).Deliver(ctx)
	if err != nil {
		cancel()
		cc.Close()
		return nil, errors.WithStack(err)
	}
	return &deliverConn{stream: stream, cc: cc, cancel: cancel}, nil
}

func (c *deliverConn) Send(msg *WireMessage) error {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	return c.stream.Send(msg)
}

func (c *deliverConn) Stop() {
	c.cancel()
	c.cc.Close()
}

// GRPCTransport sends messages to remote nodes over per-target delivery
// streams. Connections are dialed lazily and dropped on the first send
// error; the next send redials. Nothing beyond that single redial is
// attempted, delivery reliability is the substrate's problem.
type GRPCTransport struct {
	sync.RWMutex
	addrs map[uint64]string
	conns map[uint64]*deliverConn
}

// NewGRPCTransport builds a transport over a node id to address book.
func NewGRPCTransport(addrs map[uint64]string) *GRPCTransport {
	book := make(map[uint64]string, len(addrs))
	for id, addr := range addrs {
		book[id] = addr
	}
	return &GRPCTransport{
		addrs: book,
		conns: make(map[uint64]*deliverConn),
	}
}

func (t *GRPCTransport) getConn(nodeID uint64) (*deliverConn, error) {
	t.RLock()
	conn, ok := t.conns[nodeID]
	addr, haveAddr := t.addrs[nodeID]
	t.RUnlock()
	if ok {
		return conn, nil
	}
	if !haveAddr {
		return nil, errors.Errorf("no address for node %d", nodeID)
	}
	newConn, err := newDeliverConn(addr)
	if err != nil {
		return nil, err
	}
	t.Lock()
	defer t.Unlock()
	if conn, ok := t.conns[nodeID]; ok {
		newConn.Stop()
		return conn, nil
	}
	t.conns[nodeID] = newConn
	return newConn, nil
}

func (t *GRPCTransport) Send(msg *Message) error {
	conn, err := t.getConn(msg.Meta.Recver)
	if err != nil {
		return err
	}
	err = conn.Send(toWire(msg))
	if err == nil {
		return nil
	}
	log.Error("deliver stream send failed",
		zap.Uint64("recver", msg.Meta.Recver), zap.Error(err))
	t.Lock()
	defer t.Unlock()
	if t.conns[msg.Meta.Recver] == conn {
		delete(t.conns, msg.Meta.Recver)
	}
	conn.Stop()
	return errors.WithStack(err)
}

func (t *GRPCTransport) Close() error {
	t.Lock()
	defer t.Unlock()
	for id, conn := range t.conns {
		conn.Stop()
		delete(t.conns, id)
	}
	return nil
}

// GRPCListener accepts delivery streams for one node and hands inbound
// messages to the registered handler through a receive queue, off the
// stream reader goroutines.
type GRPCListener struct {
	server  *grpc.Server
	handler Handler
	recvQ   *queue.Queue
}

func NewGRPCListener(addr string, h Handler) (*GRPCListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	srv := grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             2 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.InitialWindowSize(1<<30),
		grpc.InitialConnWindowSize(1<<30),
		grpc.MaxRecvMsgSize(10*1024*1024),
	)
	gl := &GRPCListener{
		server:  srv,
		handler: h,
		recvQ:   queue.New("grpc-recv"),
	}
	RegisterPSServer(srv, gl)
	gl.recvQ.Start()
	go func() {
		if err := srv.Serve(l); err != nil {
			log.Error("grpc listener stopped", zap.Error(err))
		}
	}()
	return gl, nil
}

// Deliver implements PSServer.
func (gl *GRPCListener) Deliver(stream PS_DeliverServer) error {
	for {
		w, err := stream.Recv()
		if err == io.EOF {
			return stream.SendAndClose(&DeliverAck{})
		}
		if err != nil {
			return err
		}
		msg := fromWire(w)
		gl.recvQ.Post(func() {
			gl.handler(msg)
		})
	}
}

func (gl *GRPCListener) Stop() {
	gl.server.Stop()
	gl.recvQ.Stop()
}
