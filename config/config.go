package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/qf-app/crypto"
	"github.com/cometbft/cometbft/config"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

const (
	DefaultHomeDir      = "$HOME/.qf"
	DefaultOwnerKeyName = "owner_priv_key"
)

type IndexerConfig struct {
	Enable        bool          `mapstructure:"enable"`
	ListenAddress string        `mapstructure:"listen_address"`
	DBPath        string        `mapstructure:"db_path"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

type AppConfig struct {
	Home          string `mapstructure:"-"`
	TimeoutCommit uint64 `mapstructure:"-"`

	// OwnerKey is relative to Home unless absolute.
	OwnerKey string         `mapstructure:"owner_key"`
	Indexer  *IndexerConfig `mapstructure:"indexer"`
}

func DefaultAppConfig(home string) *AppConfig {
	return &AppConfig{
		Home:     home,
		OwnerKey: filepath.Join("config", DefaultOwnerKeyName),
		Indexer: &IndexerConfig{
			Enable:        true,
			ListenAddress: "127.0.0.1:8080",
			DBPath:        "indexer.db",
			PollInterval:  time.Second * 3,
		},
	}
}

func (c *AppConfig) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Home, p)
}

func (c *AppConfig) OwnerKeyFile() string {
	return c.path(c.OwnerKey)
}

func (c *AppConfig) IndexerDBFile() string {
	return c.path(c.Indexer.DBPath)
}

func (c *AppConfig) ValidateBasic() error {
	if c.OwnerKey == "" {
		return fmt.Errorf("app.owner_key is empty")
	}
	if c.Indexer == nil {
		return fmt.Errorf("app.indexer section missing")
	}
	if c.Indexer.Enable && c.Indexer.PollInterval <= 0 {
		return fmt.Errorf("app.indexer.poll_interval must be positive")
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *AppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	_ = os.MkdirAll(filepath.Join(home, "config"), 0o755)
	config := &Config{
		DefaultQFCometConfig(),
		DefaultAppConfig(home),
	}
	config.SetRoot(home)
	return config
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

// InitializeOwner loads the round owner key, creating it on first use, and
// returns its address.
func InitializeOwner(cfg *Config) (owner string, err error) {
	path := cfg.App.OwnerKeyFile()
	var key *crypto.Key
	if _, err = os.Stat(path); err == nil {
		key, err = crypto.LoadKeyFile(path)
	} else {
		key, err = crypto.GenerateKeyFile(path)
	}
	if err != nil {
		return "", err
	}
	return key.Address().Hex(), nil
}

func InitializeNodeValidatorFiles(config *Config, privKey cmtcrypto.PrivKey) (nodeID string, pk cmtcrypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultQFCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 10
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
