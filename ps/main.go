package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/pingcap-incubator/tinyps/ps/config"
	"github.com/pingcap-incubator/tinyps/ps/server"
	"github.com/pingcap-incubator/tinyps/ps/server/storeop"
	"github.com/pingcap-incubator/tinyps/ps/topology"
	"github.com/pingcap-incubator/tinyps/ps/transport"
)

var (
	configPath = flag.String("config", "", "config file path")
	storeAddr  = flag.String("addr", "", "store address")
	serverRank = flag.Int("rank", -1, "this server's rank")
)

const appID = 0

func main() {
	flag.Parse()
	conf := config.NewDefaultConfig()
	if *configPath != "" {
		var err error
		conf, err = config.FromFile(*configPath)
		if err != nil {
			log.Fatal("loading config failed", zap.String("path", *configPath), zap.Error(err))
		}
	}
	if *storeAddr != "" {
		conf.StoreAddr = *storeAddr
	}
	if *serverRank >= 0 {
		conf.ServerRank = *serverRank
	}
	if err := conf.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	lg, props, err := log.InitLogger(&log.Config{Level: conf.LogLevel})
	if err != nil {
		log.Fatal("initializing logger failed", zap.Error(err))
	}
	log.ReplaceGlobals(lg, props)
	log.Info("starting server", zap.Int("rank", conf.ServerRank),
		zap.String("addr", conf.StoreAddr), zap.String("slicer", conf.Slicer))

	topo, err := topology.NewStaticTopology(conf.NumServers)
	if err != nil {
		log.Fatal("building topology failed", zap.Error(err))
	}
	nodeID := topo.ServerRankToID(conf.ServerRank)

	var store storeop.Store
	if conf.DBPath != "" {
		store, err = storeop.NewBadgerStore(conf.DBPath)
		if err != nil {
			log.Fatal("opening badger store failed",
				zap.String("path", conf.DBPath), zap.Error(err))
		}
	} else {
		store = storeop.NewMemStore()
	}

	trans := transport.NewGRPCTransport(conf.NodeAddrs)
	srv := server.NewServer(appID, nodeID, trans)
	srv.SetRequestHandle(storeop.AddHandle(store))

	listener, err := transport.NewGRPCListener(conf.StoreAddr, srv.Process)
	if err != nil {
		log.Fatal("starting listener failed",
			zap.String("addr", conf.StoreAddr), zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigCh
	log.Info("received signal, stopping", zap.String("signal", sig.String()))

	listener.Stop()
	trans.Close()
	if err := store.Close(); err != nil {
		log.Error("closing store failed", zap.Error(err))
	}
	log.Info("server stopped")
}
