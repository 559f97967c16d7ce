package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/calehh/qf-app/crypto"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestWriteConfigFileRoundTrip(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	cfg.App.Indexer.ListenAddress = "0.0.0.0:9090"
	cfg.App.Indexer.PollInterval = time.Second * 7
	path := filepath.Join(home, "config", "config.toml")
	require.NoError(t, WriteConfigFile(path, cfg))

	loaded := &Config{Config: DefaultQFCometConfig(), App: DefaultAppConfig(home)}
	loaded.SetRoot(home)
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	require.NoError(t, v.Unmarshal(loaded))
	require.NoError(t, loaded.ValidateBasic())

	require.Equal(t, "0.0.0.0:9090", loaded.App.Indexer.ListenAddress)
	require.Equal(t, time.Second*7, loaded.App.Indexer.PollInterval)
	require.Equal(t, cfg.Consensus.TimeoutCommit, loaded.Consensus.TimeoutCommit)
	require.Equal(t, filepath.Join(home, "config", DefaultOwnerKeyName), loaded.App.OwnerKeyFile())
}

func TestInitializeOwner(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	owner, err := InitializeOwner(cfg)
	require.NoError(t, err)

	key, err := crypto.LoadKeyFile(cfg.App.OwnerKeyFile())
	require.NoError(t, err)
	require.Equal(t, owner, key.Address().Hex())

	again, err := InitializeOwner(cfg)
	require.NoError(t, err)
	require.Equal(t, owner, again)
}

func TestAppConfigValidate(t *testing.T) {
	cfg := DefaultAppConfig("/tmp/qf")
	require.NoError(t, cfg.ValidateBasic())
	require.Equal(t, "/tmp/qf/indexer.db", cfg.IndexerDBFile())

	cfg.Indexer.DBPath = "/var/lib/qf.db"
	require.Equal(t, "/var/lib/qf.db", cfg.IndexerDBFile())

	cfg.Indexer.PollInterval = 0
	require.Error(t, cfg.ValidateBasic())
}
