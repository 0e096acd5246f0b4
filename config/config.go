package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/datachainlab/crossdomain-relayer/chains/ethereum"
)

const ConfigFileName = "config.yaml"

// Config is the static configuration of the relay service. Fields and
// defaults replace the runtime-described option registry of earlier designs.
type Config struct {
	Source      ethereum.ChainConfig `mapstructure:"source" json:"source" yaml:"source"`
	Destination ethereum.ChainConfig `mapstructure:"destination" json:"destination" yaml:"destination"`
	Relay       RelayConfig          `mapstructure:"relay" json:"relay" yaml:"relay"`
	API         APIConfig            `mapstructure:"api" json:"api" yaml:"api"`
	Telemetry   TelemetryConfig      `mapstructure:"telemetry" json:"telemetry" yaml:"telemetry"`
	Log         LogConfig            `mapstructure:"log" json:"log" yaml:"log"`
}

type RelayConfig struct {
	// Sender is the privileged relay identity (impersonated in the drill
	// environment)
	Sender string `mapstructure:"sender" json:"sender" yaml:"sender"`
	// Interval is the idle time between poll cycles
	Interval time.Duration `mapstructure:"interval" json:"interval" yaml:"interval"`
}

type APIConfig struct {
	// ListenAddr serves the read-only HTTP API
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr" yaml:"listen_addr"`
}

type TelemetryConfig struct {
	// PrometheusAddr serves the /metrics endpoint
	PrometheusAddr string `mapstructure:"prometheus_addr" json:"prometheus_addr" yaml:"prometheus_addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
	Output string `mapstructure:"output" json:"output" yaml:"output"`
	// File mirrors every record to the given path when set
	File string `mapstructure:"file" json:"file" yaml:"file"`
}

func DefaultConfig() Config {
	return Config{
		Source: ethereum.ChainConfig{
			ChainID:     "l1",
			RPCAddr:     "http://localhost:8545",
			CallTimeout: 10 * time.Second,
		},
		Destination: ethereum.ChainConfig{
			ChainID:     "l2",
			RPCAddr:     "http://localhost:9545",
			CallTimeout: 10 * time.Second,
		},
		Relay: RelayConfig{
			Interval: 3 * time.Second,
		},
		API: APIConfig{
			ListenAddr: "localhost:7300",
		},
		Telemetry: TelemetryConfig{
			PrometheusAddr: "localhost:2223",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func (c Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return errors.Wrap(err, "invalid source chain config")
	}
	if err := c.Destination.Validate(); err != nil {
		return errors.Wrap(err, "invalid destination chain config")
	}
	if !common.IsHexAddress(c.Relay.Sender) {
		return errors.Newf("relay.sender is not a hex address: %q", c.Relay.Sender)
	}
	if c.Relay.Interval <= 0 {
		return errors.New("relay.interval must be positive")
	}
	return nil
}

// RelaySender returns the parsed privileged relay identity. Call Validate
// first.
func (c Config) RelaySender() common.Address {
	return common.HexToAddress(c.Relay.Sender)
}

func newViper(homePath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(filepath.Join(homePath, ConfigFileName))
	def := DefaultConfig()
	v.SetDefault("source", map[string]any{
		"chain_id":     def.Source.ChainID,
		"rpc_addr":     def.Source.RPCAddr,
		"messenger":    def.Source.Messenger,
		"start_block":  def.Source.StartBlock,
		"call_timeout": def.Source.CallTimeout,
	})
	v.SetDefault("destination", map[string]any{
		"chain_id":     def.Destination.ChainID,
		"rpc_addr":     def.Destination.RPCAddr,
		"messenger":    def.Destination.Messenger,
		"start_block":  def.Destination.StartBlock,
		"call_timeout": def.Destination.CallTimeout,
	})
	v.SetDefault("relay", map[string]any{
		"sender":   def.Relay.Sender,
		"interval": def.Relay.Interval,
	})
	v.SetDefault("api.listen_addr", def.API.ListenAddr)
	v.SetDefault("telemetry.prometheus_addr", def.Telemetry.PrometheusAddr)
	v.SetDefault("log", map[string]any{
		"level":  def.Log.Level,
		"format": def.Log.Format,
		"output": def.Log.Output,
		"file":   def.Log.File,
	})
	return v
}

// LoadConfig reads homePath/config.yaml over the defaults.
func LoadConfig(homePath string) (*Config, error) {
	v := newViper(homePath)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config from %s", v.ConfigFileUsed())
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &c, nil
}

// InitConfig writes the default config file unless one already exists.
func InitConfig(homePath string) (string, error) {
	if err := os.MkdirAll(homePath, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create home directory %s", homePath)
	}
	path := filepath.Join(homePath, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return "", errors.Newf("config file already exists: %s", path)
	}
	v := newViper(homePath)
	if err := v.WriteConfigAs(path); err != nil {
		return "", errors.Wrapf(err, "failed to write config to %s", path)
	}
	return path, nil
}
