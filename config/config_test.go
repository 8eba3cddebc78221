package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestWriteConfigFileRoundTrip(t *testing.T) {
	home := t.TempDir()
	cfg := NewConfig(home)
	cfg.App.IndexerListen = "0.0.0.0:9000"
	cfg.App.Metrics = false
	path := filepath.Join(home, "config", "config.toml")
	require.NoError(t, WriteConfigFile(path, cfg))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	got := &Config{Config: DefaultCometConfig(), App: DefaultAppConfig(home)}
	require.NoError(t, v.Unmarshal(got))
	require.Equal(t, "0.0.0.0:9000", got.App.IndexerListen)
	require.False(t, got.App.Metrics)
	require.True(t, got.App.IndexerEnable)
	require.Equal(t, filepath.Join(home, "indexer.db"), got.App.IndexerDBPath())
	require.Equal(t, cfg.Consensus.TimeoutCommit, got.Consensus.TimeoutCommit)
}

func TestValidateBasic(t *testing.T) {
	cfg := NewConfig(t.TempDir())
	require.NoError(t, cfg.ValidateBasic())
	cfg.App.IndexerListen = ""
	require.Error(t, cfg.ValidateBasic())
}
