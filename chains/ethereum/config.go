package ethereum

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

// ChainConfig describes one EVM chain collaborator.
type ChainConfig struct {
	// ChainID is the relayer-local identifier of the chain (not the EIP-155 id)
	ChainID string `mapstructure:"chain_id" json:"chain_id" yaml:"chain_id"`
	// RPCAddr is the JSON-RPC endpoint
	RPCAddr string `mapstructure:"rpc_addr" json:"rpc_addr" yaml:"rpc_addr"`
	// Messenger is the cross-domain messenger contract address
	Messenger string `mapstructure:"messenger" json:"messenger" yaml:"messenger"`
	// StartBlock is the block the scan cursor starts from after (re)start
	StartBlock uint64 `mapstructure:"start_block" json:"start_block" yaml:"start_block"`
	// CallTimeout is the per-RPC-call deadline. Zero disables it.
	CallTimeout time.Duration `mapstructure:"call_timeout" json:"call_timeout" yaml:"call_timeout"`
}

func (c ChainConfig) Validate() error {
	if c.ChainID == "" {
		return errors.New("chain_id is empty")
	}
	if c.RPCAddr == "" {
		return errors.New("rpc_addr is empty")
	}
	if !common.IsHexAddress(c.Messenger) {
		return errors.Newf("messenger is not a hex address: %q", c.Messenger)
	}
	return nil
}

// Build validates the config and returns a connected chain.
func (c ChainConfig) Build() (*Chain, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config for chain %q", c.ChainID)
	}
	return NewChain(c)
}
