package core_test

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/datachainlab/crossdomain-relayer/core"
	"github.com/datachainlab/crossdomain-relayer/metrics"
)

func initMetrics() {
	// instruments are process-wide; the null exporter keeps tests silent
	if err := metrics.InitializeMetrics(metrics.ExporterNull{}); err != nil {
		panic(err)
	}
}

type fakeSourceChain struct {
	id     string
	latest uint64

	sents []core.SentMessageLog
	exts  []core.SentMessageExtensionLog

	latestErr error
	sentErr   error
	extErr    error

	sentCalls [][2]uint64
}

var _ core.SourceChain = (*fakeSourceChain)(nil)

func (c *fakeSourceChain) ChainID() string { return c.id }

func (c *fakeSourceChain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if c.latestErr != nil {
		return 0, c.latestErr
	}
	return c.latest, nil
}

func (c *fakeSourceChain) BlockTimestamp(ctx context.Context, number uint64) (time.Time, error) {
	return time.Unix(int64(1700000000+number), 0).UTC(), nil
}

func (c *fakeSourceChain) FilterSentMessages(ctx context.Context, fromBlock, toBlock uint64) ([]core.SentMessageLog, error) {
	c.sentCalls = append(c.sentCalls, [2]uint64{fromBlock, toBlock})
	if c.sentErr != nil {
		return nil, c.sentErr
	}
	var ret []core.SentMessageLog
	for _, ev := range c.sents {
		if fromBlock <= ev.BlockNumber && ev.BlockNumber <= toBlock {
			ret = append(ret, ev)
		}
	}
	return ret, nil
}

func (c *fakeSourceChain) FilterSentMessageExtensions(ctx context.Context, fromBlock, toBlock uint64) ([]core.SentMessageExtensionLog, error) {
	if c.extErr != nil {
		return nil, c.extErr
	}
	var ret []core.SentMessageExtensionLog
	for _, ev := range c.exts {
		if fromBlock <= ev.BlockNumber && ev.BlockNumber <= toBlock {
			ret = append(ret, ev)
		}
	}
	return ret, nil
}

type confirmation struct {
	block uint64
	hash  common.Hash
}

type fakeDestChain struct {
	id     string
	latest uint64

	confirmations []confirmation

	latestErr  error
	confirmErr error

	setupCalled bool
	relayFn     func(*core.Message) error
	relayed     []*core.Message
}

var _ core.DestinationChain = (*fakeDestChain)(nil)

func (c *fakeDestChain) ChainID() string { return c.id }

func (c *fakeDestChain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if c.latestErr != nil {
		return 0, c.latestErr
	}
	return c.latest, nil
}

func (c *fakeDestChain) BlockTimestamp(ctx context.Context, number uint64) (time.Time, error) {
	return time.Unix(int64(1700000000+number), 0).UTC(), nil
}

func (c *fakeDestChain) FilterRelayedMessages(ctx context.Context, fromBlock, toBlock uint64) ([]common.Hash, error) {
	if c.confirmErr != nil {
		return nil, c.confirmErr
	}
	var ret []common.Hash
	for _, cf := range c.confirmations {
		if fromBlock <= cf.block && cf.block <= toBlock {
			ret = append(ret, cf.hash)
		}
	}
	return ret, nil
}

func (c *fakeDestChain) SetupForRelay(ctx context.Context) error {
	c.setupCalled = true
	return nil
}

func (c *fakeDestChain) RelayMessage(ctx context.Context, msg *core.Message) error {
	if c.relayFn != nil {
		if err := c.relayFn(msg); err != nil {
			return err
		}
	}
	c.relayed = append(c.relayed, msg)
	return nil
}
