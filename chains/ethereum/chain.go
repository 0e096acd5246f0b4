package ethereum

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/datachainlab/crossdomain-relayer/core"
)

// Chain is an EVM implementation of the core chain interfaces. One instance
// serves as either the source or the destination side of a path; the relay
// sender is only set on the destination side.
type Chain struct {
	config    ChainConfig
	client    *ethclient.Client
	rpcClient *rpc.Client
	messenger common.Address

	relaySender common.Address
}

var (
	_ core.SourceChain      = (*Chain)(nil)
	_ core.DestinationChain = (*Chain)(nil)
)

func NewChain(config ChainConfig) (*Chain, error) {
	rpcClient, err := rpc.Dial(config.RPCAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", config.RPCAddr)
	}
	return &Chain{
		config:    config,
		client:    ethclient.NewClient(rpcClient),
		rpcClient: rpcClient,
		messenger: common.HexToAddress(config.Messenger),
	}, nil
}

// ChainID returns ID of the chain
func (c *Chain) ChainID() string {
	return c.config.ChainID
}

// SetRelaySender configures the privileged identity relay transactions are
// issued from.
func (c *Chain) SetRelaySender(sender common.Address) {
	c.relaySender = sender
}

// LatestBlockNumber returns the current chain head
func (c *Chain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	n, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to fetch latest block number of chain %s", c.ChainID())
	}
	return n, nil
}

// BlockTimestamp returns the timestamp of the given block
func (c *Chain) BlockTimestamp(ctx context.Context, number uint64) (time.Time, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to fetch header %d of chain %s", number, c.ChainID())
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// callCtx applies the configured per-call deadline.
func (c *Chain) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.CallTimeout)
}
