// Package config loads the daemon configuration from file and environment.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct
type Config struct {
	Node    NodeConfig    `mapstructure:"node"`
	Archive ArchiveConfig `mapstructure:"archive"`
	State   StateConfig   `mapstructure:"state"`
	Genesis GenesisConfig `mapstructure:"genesis"`
}

// NodeConfig holds the gRPC listener and block production settings
type NodeConfig struct {
	Listen             string        `mapstructure:"listen"`
	SealInterval       time.Duration `mapstructure:"sealInterval"`
	MaxBlockExtrinsics int           `mapstructure:"maxBlockExtrinsics"`
	MempoolLimit       int           `mapstructure:"mempoolLimit"`
}

// ArchiveConfig selects the block archive backend. Options are passed to the
// backend as-is; localfs expects "dir". MirrorDir, when set, replicates every
// sealed block into a second localfs store.
type ArchiveConfig struct {
	Backend   string            `mapstructure:"backend"`
	Options   map[string]string `mapstructure:"options"`
	MirrorDir string            `mapstructure:"mirrorDir"`
}

// StateConfig holds the snapshot store settings
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// GenesisConfig holds the initial balances applied on first start
type GenesisConfig struct {
	Accounts []GenesisAccount `mapstructure:"accounts"`
}

// GenesisAccount funds one account at genesis
type GenesisAccount struct {
	Account string `mapstructure:"account"`
	Balance uint64 `mapstructure:"balance"`
}

// Load reads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("node.listen", "127.0.0.1:9470")
	v.SetDefault("node.sealInterval", 5*time.Second)
	v.SetDefault("node.maxBlockExtrinsics", 256)
	v.SetDefault("node.mempoolLimit", 1024)
	v.SetDefault("archive.backend", "localfs")
	v.SetDefault("archive.options", map[string]string{"dir": "blocks"})
	v.SetDefault("state.path", "state.db")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("XDAO_POE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
