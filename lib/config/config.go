// Package config holds the viper keys and the typed settings for a
// deployment run.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// viper keys
const (
	ConfigFile     = "config"
	Network        = "network"
	RpcUrl         = "rpc_url"
	ChainId        = "chain_id"
	PrivateKey     = "private_key"
	ArtifactsDir   = "artifacts_dir"
	Contract       = "contract"
	BasePrice      = "base_price"
	Slope          = "slope"
	ConfirmTimeout = "confirm_timeout"
	GasLimit       = "gas_limit"
	GasPriceBump   = "gas_price_bump"
	Verify         = "verify"
	RecordDir      = "record_dir"
	LogLevel       = "log_level"
	LogFormat      = "log_format"
)

const EnvPrefix = "CURVE"

const (
	DefaultRpcUrl         = "http://127.0.0.1:8545"
	DefaultArtifactsDir   = "artifacts"
	DefaultContract       = "Project"
	DefaultBasePrice      = "0.001"
	DefaultSlope          = "0.0001"
	DefaultConfirmTimeout = 5 * time.Minute
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "auto"
)

// Settings is everything a deployment run consumes.
type Settings struct {
	Network        string
	RpcUrl         string
	ChainID        *big.Int
	PrivateKey     string
	ArtifactsDir   string
	Contract       string
	BasePrice      string
	Slope          string
	ConfirmTimeout time.Duration
	GasLimit       uint64
	GasPriceBump   string
	Verify         bool
	RecordDir      string
	LogLevel       string
	LogFormat      string
}

// NetworkSettings is one entry under "networks:" in the config file.
type NetworkSettings struct {
	RpcUrl     string `mapstructure:"url"`
	ChainID    int64  `mapstructure:"chain_id"`
	PrivateKey string `mapstructure:"private_key"`
}

// SetDefaults registers defaults and environment lookup on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(ArtifactsDir, DefaultArtifactsDir)
	v.SetDefault(Contract, DefaultContract)
	v.SetDefault(BasePrice, DefaultBasePrice)
	v.SetDefault(Slope, DefaultSlope)
	v.SetDefault(ConfirmTimeout, DefaultConfirmTimeout)
	v.SetDefault(LogLevel, DefaultLogLevel)
	v.SetDefault(LogFormat, DefaultLogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// ReadFile loads the optional config file named by the "config" key.
func ReadFile(v *viper.Viper) error {
	path := v.GetString(ConfigFile)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// Load resolves settings from v. When a network is selected, its entry
// under "networks" supplies rpc url, chain id and key unless they were set
// explicitly.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Network:        v.GetString(Network),
		RpcUrl:         v.GetString(RpcUrl),
		PrivateKey:     v.GetString(PrivateKey),
		ArtifactsDir:   v.GetString(ArtifactsDir),
		Contract:       v.GetString(Contract),
		BasePrice:      v.GetString(BasePrice),
		Slope:          v.GetString(Slope),
		ConfirmTimeout: v.GetDuration(ConfirmTimeout),
		GasLimit:       v.GetUint64(GasLimit),
		GasPriceBump:   v.GetString(GasPriceBump),
		Verify:         v.GetBool(Verify),
		RecordDir:      v.GetString(RecordDir),
		LogLevel:       v.GetString(LogLevel),
		LogFormat:      v.GetString(LogFormat),
	}
	if id := v.GetInt64(ChainId); id > 0 {
		s.ChainID = big.NewInt(id)
	}

	if s.Network != "" {
		key := "networks." + s.Network
		if !v.IsSet(key) {
			return nil, fmt.Errorf("network %q is not defined in the config file", s.Network)
		}
		var n NetworkSettings
		if err := v.UnmarshalKey(key, &n); err != nil {
			return nil, fmt.Errorf("failed to decode network %q: %w", s.Network, err)
		}
		if n.RpcUrl != "" && s.RpcUrl == "" {
			s.RpcUrl = n.RpcUrl
		}
		if n.ChainID > 0 && s.ChainID == nil {
			s.ChainID = big.NewInt(n.ChainID)
		}
		if n.PrivateKey != "" && s.PrivateKey == "" {
			s.PrivateKey = n.PrivateKey
		}
	}
	if s.RpcUrl == "" {
		s.RpcUrl = DefaultRpcUrl
	}

	return s, nil
}

// Validate checks that all required fields are set and values are valid.
func (s *Settings) Validate() error {
	if s.RpcUrl == "" {
		return errors.New("rpc_url is required")
	}
	if s.PrivateKey == "" {
		return errors.New("private_key is required")
	}
	if s.ArtifactsDir == "" {
		return errors.New("artifacts_dir is required")
	}
	if s.Contract == "" {
		return errors.New("contract is required")
	}
	if s.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirm_timeout must be positive, got %s", s.ConfirmTimeout)
	}
	return nil
}
