// Package worker implements the client side of the push/pull engine. A
// Worker partitions each request across the server topology, fans the parts
// out through the transport, and correlates the unordered partial replies by
// timestamp until the request completes and its callback runs.
package worker

import (
	"sync"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
	"github.com/pingcap-incubator/tinyps/ps/metrics"
	"github.com/pingcap-incubator/tinyps/ps/sarray"
	"github.com/pingcap-incubator/tinyps/ps/slicer"
	"github.com/pingcap-incubator/tinyps/ps/topology"
	"github.com/pingcap-incubator/tinyps/ps/tracker"
	"github.com/pingcap-incubator/tinyps/ps/transport"
)

// Callback runs when a push or pull has actually finished: the pairs have
// been written into the servers' store, or the pulled values have been
// merged into the caller's buffers. Whichever goroutine observes the final
// expected reply runs it; callers must not assume a particular one.
type Callback func()

type Option func(*Worker)

// WithSlicer selects the partitioning policy. The default is the range
// policy.
func WithSlicer(s slicer.Slicer) Option {
	return func(w *Worker) { w.slicer = s }
}

// Worker issues push and pull requests against the server nodes. All
// methods are safe for concurrent use. Buffers handed to Push and Pull are
// borrowed, not copied: the caller keeps them valid and unmodified until the
// request's callback has fired.
type Worker struct {
	appID      uint64
	customerID uint64
	nodeID     uint64
	topo       topology.Topology
	trans      transport.Transport
	tracker    *tracker.Tracker

	mu        sync.Mutex
	slicer    slicer.Slicer
	callbacks map[int]Callback
	recvKVs   map[int][]kvpairs.KVPairs
}

func NewWorker(appID, customerID, nodeID uint64, topo topology.Topology, trans transport.Transport, opts ...Option) *Worker {
	w := &Worker{
		appID:      appID,
		customerID: customerID,
		nodeID:     nodeID,
		topo:       topo,
		trans:      trans,
		tracker:    tracker.NewTracker(),
		slicer:     slicer.NewRangeSlicer(),
		callbacks:  make(map[int]Callback),
		recvKVs:    make(map[int][]kvpairs.KVPairs),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetSlicer replaces the partitioning policy. Not safe to call with
// requests in flight: the merge half of the policy must match the slice
// half that produced them.
func (w *Worker) SetSlicer(s slicer.Slicer) {
	if s == nil {
		log.Fatal("invalid slicer")
	}
	w.mu.Lock()
	w.slicer = s
	w.mu.Unlock()
}

func (w *Worker) getSlicer() slicer.Slicer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slicer
}

// Push sends the key-value list to the servers owning each key. It does not
// block; use Wait or the callback to learn when the push has finished. The
// returned timestamp identifies the request.
func (w *Worker) Push(keys sarray.Keys, vals sarray.Vals, lens sarray.Lens, cmd int32, cb Callback) (int, error) {
	kvs := kvpairs.KVPairs{Keys: keys, Vals: vals, Lens: lens}
	if err := kvs.Validate(); err != nil {
		return 0, errors.Trace(err)
	}
	metrics.WorkerRequests.WithLabelValues("push").Inc()
	ts := w.tracker.NewRequest(w.topo.NumServers())
	w.addCallback(ts, cb)
	w.send(ts, true, cmd, kvs)
	return ts, nil
}

// Pull fetches the values of keys from the owning servers into vals (and
// lens, when non-nil). Output buffers are allocated when empty, otherwise
// their sizes must already match the pulled total. Pull does not block; the
// merge runs when the last expected reply arrives, after which vals holds
// the values in exactly the requested key order.
func (w *Worker) Pull(keys sarray.Keys, vals *sarray.Vals, lens *sarray.Lens, cmd int32, cb Callback) (int, error) {
	if vals == nil {
		return 0, errors.New("vals buffer is required")
	}
	req := kvpairs.KVPairs{Keys: keys}
	if err := req.Validate(); err != nil {
		return 0, errors.Trace(err)
	}
	metrics.WorkerRequests.WithLabelValues("pull").Inc()
	ts := w.tracker.NewRequest(w.topo.NumServers())
	w.addCallback(ts, func() {
		w.mu.Lock()
		parts := w.recvKVs[ts]
		delete(w.recvKVs, ts)
		w.mu.Unlock()

		if err := w.getSlicer().Merge(keys, parts, vals, lens); err != nil {
			log.Fatal("pull merge failed",
				zap.Int("timestamp", ts), zap.Error(err))
		}
		metrics.WorkerMergedKeys.Add(float64(len(keys)))
		if cb != nil {
			cb()
		}
	})
	w.send(ts, false, cmd, req)
	return ts, nil
}

// Wait blocks until the push or pull identified by timestamp has finished,
// its merge and callback included: when Wait returns, a pull's output
// buffers are fully written. Safe to call from any goroutine, repeatedly.
func (w *Worker) Wait(timestamp int) {
	w.tracker.Wait(timestamp)
}

// send partitions kvs and transmits one request message per non-empty
// destination. Destinations receiving no keys never reply, so they are
// pre-counted as satisfied before anything is sent.
func (w *Worker) send(ts int, push bool, cmd int32, kvs kvpairs.KVPairs) {
	sliced, err := w.getSlicer().Slice(kvs, w.topo.ServerKeyRanges())
	if err != nil {
		log.Fatal("slicing request failed",
			zap.Int("timestamp", ts), zap.Error(err))
	}

	skipped := 0
	for _, s := range sliced {
		if !s.Keep {
			skipped++
		}
	}
	w.tracker.AddResponse(ts, skipped)
	metrics.WorkerSkipped.Add(float64(skipped))
	if skipped == len(sliced) {
		// Nothing to transmit, the request is already complete.
		w.runCallback(ts)
		w.tracker.Finish(ts)
	}

	for rank, s := range sliced {
		if !s.Keep {
			continue
		}
		msg := &transport.Message{
			Meta: transport.Meta{
				AppID:      w.appID,
				CustomerID: w.customerID,
				Sender:     w.nodeID,
				Recver:     w.topo.ServerRankToID(rank),
				Timestamp:  int32(ts),
				Cmd:        cmd,
				Push:       push,
				Request:    true,
			},
			Data: s.KV,
		}
		if err := w.trans.Send(msg); err != nil {
			log.Error("sending request failed",
				zap.Int("timestamp", ts),
				zap.Uint64("recver", msg.Meta.Recver),
				zap.Error(err))
		}
	}
}

// Process is the transport receive entry point. It may be invoked from
// concurrent delivery goroutines.
func (w *Worker) Process(msg *transport.Message) {
	ts := int(msg.Meta.Timestamp)
	metrics.WorkerResponses.Inc()

	// Stash pull payloads for the merge.
	if !msg.Meta.Push && !msg.Data.Empty() {
		w.mu.Lock()
		w.recvKVs[ts] = append(w.recvKVs[ts], msg.Data)
		w.mu.Unlock()
	}

	n, expected := w.tracker.OnReceive(ts)
	if n > expected {
		log.Fatal("received more responses than expected",
			zap.Int("timestamp", ts),
			zap.Int("received", n),
			zap.Int("expected", expected))
	}
	if n == expected {
		// Run the completion work (pull merge, user callback) before
		// waking waiters, so Wait returning means the output buffers
		// are fully written.
		w.runCallback(ts)
		w.tracker.Finish(ts)
	}
}

func (w *Worker) addCallback(ts int, cb Callback) {
	if cb == nil {
		return
	}
	w.mu.Lock()
	w.callbacks[ts] = cb
	w.mu.Unlock()
}

// runCallback removes the callback and invokes it. Remove-and-return
// happens in one locked step so concurrent completion signals for the same
// timestamp cannot both observe the callback: it runs at most once.
func (w *Worker) runCallback(ts int) {
	w.mu.Lock()
	cb, ok := w.callbacks[ts]
	if ok {
		delete(w.callbacks, ts)
	}
	w.mu.Unlock()
	if ok {
		cb()
	}
}
