package storeop

import (
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
	"github.com/pingcap-incubator/tinyps/ps/sarray"
	"github.com/pingcap-incubator/tinyps/ps/server"
)

// AddHandle returns a request handle that accumulates pushed values into
// store and answers pulls from it. Values are width 1, the aggregation is
// addition.
func AddHandle(store Store) server.Handle {
	return func(meta server.Meta, kvs kvpairs.KVPairs, srv *server.Server) {
		n := len(kvs.Keys)
		var res kvpairs.KVPairs
		if meta.Push {
			if len(kvs.Vals) != n {
				log.Fatal("pushed vals size does not match keys size",
					zap.Int("keys", n), zap.Int("vals", len(kvs.Vals)))
			}
			for i, key := range kvs.Keys {
				if err := store.Add(key, kvs.Vals[i]); err != nil {
					log.Fatal("store add failed",
						zap.Uint64("key", key), zap.Error(err))
				}
			}
		} else {
			res.Keys = kvs.Keys
			res.Vals = make(sarray.Vals, n)
			for i, key := range kvs.Keys {
				val, err := store.Get(key)
				if err != nil {
					log.Fatal("store get failed",
						zap.Uint64("key", key), zap.Error(err))
				}
				res.Vals[i] = val
			}
		}
		if err := srv.Response(meta, res); err != nil {
			log.Error("sending response failed",
				zap.Uint64("sender", meta.Sender),
				zap.Int32("timestamp", meta.Timestamp),
				zap.Error(err))
		}
	}
}
