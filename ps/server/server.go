// Package server implements the server side of the push/pull engine: it
// receives per-worker requests, dispatches them to the user-supplied handle,
// and sends exactly one response message back per request.
package server

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
	"github.com/pingcap-incubator/tinyps/ps/metrics"
	"github.com/pingcap-incubator/tinyps/ps/transport"
)

// Meta is the request metadata handed to the handle and required to
// respond.
type Meta struct {
	Cmd        int32
	Push       bool
	Sender     uint64
	Timestamp  int32
	CustomerID uint64
}

// Handle processes one push or pull request. It must call srv.Response
// exactly once per request; the response data is empty for a push
// acknowledgment or holds the matched values for a pull.
type Handle func(meta Meta, kvs kvpairs.KVPairs, srv *Server)

// Server is one server node instance. Multiple instances may live in one
// process; each owns its handle and whatever store state the handle closes
// over.
type Server struct {
	appID  uint64
	nodeID uint64
	trans  transport.Transport
	handle Handle
}

func NewServer(appID, nodeID uint64, trans transport.Transport) *Server {
	return &Server{
		appID:  appID,
		nodeID: nodeID,
		trans:  trans,
	}
}

// SetRequestHandle installs the request handle. Serving without one is a
// configuration error, so a nil handle is rejected here rather than at
// request time.
func (s *Server) SetRequestHandle(h Handle) {
	if h == nil {
		log.Fatal("invalid request handle")
	}
	s.handle = h
}

// Process is the transport receive entry point for this node.
func (s *Server) Process(msg *transport.Message) {
	if s.handle == nil {
		log.Fatal("no request handle installed",
			zap.Uint64("node", s.nodeID))
	}
	kind := "pull"
	if msg.Meta.Push {
		kind = "push"
	}
	metrics.ServerRequests.WithLabelValues(kind).Inc()

	meta := Meta{
		Cmd:        msg.Meta.Cmd,
		Push:       msg.Meta.Push,
		Sender:     msg.Meta.Sender,
		Timestamp:  msg.Meta.Timestamp,
		CustomerID: msg.Meta.CustomerID,
	}
	s.handle(meta, msg.Data, s)
}

// Response sends the single response message for the request described by
// req back to its sender. Empty res.Keys attaches no payload.
func (s *Server) Response(req Meta, res kvpairs.KVPairs) error {
	msg := &transport.Message{
		Meta: transport.Meta{
			AppID:      s.appID,
			CustomerID: req.CustomerID,
			Sender:     s.nodeID,
			Recver:     req.Sender,
			Timestamp:  req.Timestamp,
			Cmd:        req.Cmd,
			Push:       req.Push,
			Request:    false,
		},
	}
	if len(res.Keys) != 0 {
		msg.Data = res
	}
	return errors.Trace(s.trans.Send(msg))
}
