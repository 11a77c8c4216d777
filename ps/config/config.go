package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

type Config struct {
	StoreAddr string
	LogLevel  string

	DBPath string // Directory to persist server values in. Empty means in-memory.

	// Number of server nodes and this node's rank among them.
	NumServers int
	ServerRank int

	// Partitioning policy: "range" or "mod".
	Slicer string

	// Node id -> grpc address, worker nodes included (responses are sent
	// back through the same book).
	NodeAddrs map[uint64]string
}

func (c *Config) Validate() error {
	if c.NumServers <= 0 {
		return fmt.Errorf("server count must be greater than 0")
	}
	if c.ServerRank < 0 || c.ServerRank >= c.NumServers {
		return fmt.Errorf("server rank %d out of [0, %d)", c.ServerRank, c.NumServers)
	}
	if c.Slicer != "range" && c.Slicer != "mod" {
		return fmt.Errorf("unknown slicer policy %q", c.Slicer)
	}
	return nil
}

func NewDefaultConfig() *Config {
	return &Config{
		StoreAddr:  "127.0.0.1:20160",
		LogLevel:   "info",
		DBPath:     "/tmp/ps-data",
		NumServers: 1,
		ServerRank: 0,
		Slicer:     "range",
		NodeAddrs:  make(map[uint64]string),
	}
}

// fileConfig is the TOML shape; node ids are strings there because TOML
// keys are.
type fileConfig struct {
	StoreAddr  string            `toml:"store-addr"`
	LogLevel   string            `toml:"log-level"`
	DBPath     string            `toml:"db-path"`
	NumServers int               `toml:"num-servers"`
	ServerRank int               `toml:"server-rank"`
	Slicer     string            `toml:"slicer"`
	NodeAddrs  map[string]string `toml:"nodes"`
}

// FromFile overlays the TOML file at path onto the defaults.
func FromFile(path string) (*Config, error) {
	fc := fileConfig{}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, errors.WithStack(err)
	}
	c := NewDefaultConfig()
	if fc.StoreAddr != "" {
		c.StoreAddr = fc.StoreAddr
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.NumServers != 0 {
		c.NumServers = fc.NumServers
	}
	c.ServerRank = fc.ServerRank
	if fc.Slicer != "" {
		c.Slicer = fc.Slicer
	}
	for id, addr := range fc.NodeAddrs {
		var nodeID uint64
		if _, err := fmt.Sscanf(id, "%d", &nodeID); err != nil {
			return nil, errors.Errorf("bad node id %q in %s", id, path)
		}
		c.NodeAddrs[nodeID] = addr
	}
	if err := c.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	return c, nil
}
