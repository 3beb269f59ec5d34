package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultRpcUrl, s.RpcUrl)
	assert.Nil(t, s.ChainID)
	assert.Equal(t, "artifacts", s.ArtifactsDir)
	assert.Equal(t, "Project", s.Contract)
	assert.Equal(t, "0.001", s.BasePrice)
	assert.Equal(t, "0.0001", s.Slope)
	assert.Equal(t, 5*time.Minute, s.ConfirmTimeout)
	assert.Zero(t, s.GasLimit)
	assert.False(t, s.Verify)
	assert.Empty(t, s.RecordDir)

	// no key configured
	assert.EqualError(t, s.Validate(), "private_key is required")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CURVE_RPC_URL", "http://node:8545")
	t.Setenv("CURVE_CHAIN_ID", "11155111")
	t.Setenv("CURVE_PRIVATE_KEY", "0xabc")
	t.Setenv("CURVE_CONFIRM_TIMEOUT", "30s")
	t.Setenv("CURVE_GAS_LIMIT", "3000000")
	t.Setenv("CURVE_VERIFY", "true")

	s, err := Load(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, "http://node:8545", s.RpcUrl)
	assert.Equal(t, int64(11155111), s.ChainID.Int64())
	assert.Equal(t, "0xabc", s.PrivateKey)
	assert.Equal(t, 30*time.Second, s.ConfirmTimeout)
	assert.Equal(t, uint64(3000000), s.GasLimit)
	assert.True(t, s.Verify)
	assert.NoError(t, s.Validate())
}

func TestLoadNetworkFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network: sepolia
networks:
  sepolia:
    url: https://rpc.sepolia.example
    chain_id: 11155111
    private_key: "0x01"
  localhost:
    url: http://127.0.0.1:8545
`), 0o644))

	v := newViper(t)
	v.Set(ConfigFile, path)
	require.NoError(t, ReadFile(v))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "sepolia", s.Network)
	assert.Equal(t, "https://rpc.sepolia.example", s.RpcUrl)
	assert.Equal(t, int64(11155111), s.ChainID.Int64())
	assert.Equal(t, "0x01", s.PrivateKey)
}

func TestLoadNetworkExplicitValuesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
networks:
  sepolia:
    url: https://rpc.sepolia.example
    chain_id: 11155111
`), 0o644))

	v := newViper(t)
	v.Set(ConfigFile, path)
	v.Set(Network, "sepolia")
	v.Set(RpcUrl, "http://override:8545")
	require.NoError(t, ReadFile(v))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://override:8545", s.RpcUrl)
	assert.Equal(t, int64(11155111), s.ChainID.Int64())
}

func TestLoadUnknownNetwork(t *testing.T) {
	v := newViper(t)
	v.Set(Network, "mainnet")

	_, err := Load(v)
	assert.Error(t, err)
}

func TestReadFileMissing(t *testing.T) {
	v := newViper(t)
	require.NoError(t, ReadFile(v))

	v.Set(ConfigFile, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, ReadFile(v))
}

func TestValidate(t *testing.T) {
	s := &Settings{RpcUrl: "http://x", PrivateKey: "k", ArtifactsDir: "a", Contract: "Project"}
	assert.EqualError(t, s.Validate(), "confirm_timeout must be positive, got 0s")

	s.ConfirmTimeout = time.Second
	assert.NoError(t, s.Validate())

	s.Contract = ""
	assert.EqualError(t, s.Validate(), "contract is required")
}
