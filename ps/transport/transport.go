// Package transport moves push/pull messages between nodes. Delivery is
// assumed reliable; retry and backoff live below this interface, not in the
// engine. Two implementations are provided: an in-process router for tests
// and single-process deployments, and a gRPC client/listener pair for real
// clusters.
package transport

import (
	"sync"

	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
)

// Meta carries the routing and correlation fields of one message.
type Meta struct {
	AppID      uint64
	CustomerID uint64
	Sender     uint64
	Recver     uint64
	Timestamp  int32
	Cmd        int32
	Push       bool
	Request    bool
}

// Message is one request or response. Data holds 0-3 payload buffers (keys,
// vals, optional lens); an empty Data means no payload is attached, as in a
// push acknowledgment.
type Message struct {
	Meta Meta
	Data kvpairs.KVPairs
}

// Handler is a node's receive entry point. The transport may invoke it from
// concurrent delivery goroutines.
type Handler func(*Message)

type Transport interface {
	Send(msg *Message) error
	Close() error
}

// LocalTransport routes messages between nodes of the same process by
// direct dispatch on the sender's goroutine.
type LocalTransport struct {
	sync.RWMutex
	handlers map[uint64]Handler
}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{handlers: make(map[uint64]Handler)}
}

func (t *LocalTransport) Register(nodeID uint64, h Handler) {
	t.Lock()
	defer t.Unlock()
	t.handlers[nodeID] = h
}

func (t *LocalTransport) Deregister(nodeID uint64) {
	t.Lock()
	defer t.Unlock()
	delete(t.handlers, nodeID)
}

func (t *LocalTransport) Send(msg *Message) error {
	t.RLock()
	h, ok := t.handlers[msg.Meta.Recver]
	t.RUnlock()
	if !ok {
		return errors.Errorf("no node %d registered", msg.Meta.Recver)
	}
	h(msg)
	return nil
}

func (t *LocalTransport) Close() error {
	return nil
}
