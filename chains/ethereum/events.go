package ethereum

import (
	"context"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/datachainlab/crossdomain-relayer/core"
)

// messengerABIJSON covers the events and the relay entry point of the
// cross-domain messenger contract.
const messengerABIJSON = `[
  {"type":"event","name":"SentMessage","inputs":[
    {"name":"target","type":"address","indexed":true},
    {"name":"sender","type":"address","indexed":false},
    {"name":"message","type":"bytes","indexed":false},
    {"name":"messageNonce","type":"uint256","indexed":false},
    {"name":"gasLimit","type":"uint256","indexed":false}]},
  {"type":"event","name":"SentMessageExtension1","inputs":[
    {"name":"sender","type":"address","indexed":true},
    {"name":"value","type":"uint256","indexed":false}]},
  {"type":"event","name":"RelayedMessage","inputs":[
    {"name":"msgHash","type":"bytes32","indexed":true}]},
  {"type":"function","name":"relayMessage","stateMutability":"payable","inputs":[
    {"name":"_nonce","type":"uint256"},
    {"name":"_sender","type":"address"},
    {"name":"_target","type":"address"},
    {"name":"_value","type":"uint256"},
    {"name":"_minGasLimit","type":"uint256"},
    {"name":"_message","type":"bytes"}],"outputs":[]}
]`

var (
	messengerABI abi.ABI

	sentMessageEventID    common.Hash
	sentMessageExtEventID common.Hash
	relayedMessageEventID common.Hash
)

func init() {
	var err error
	messengerABI, err = abi.JSON(strings.NewReader(messengerABIJSON))
	if err != nil {
		panic(err)
	}
	sentMessageEventID = messengerABI.Events["SentMessage"].ID
	sentMessageExtEventID = messengerABI.Events["SentMessageExtension1"].ID
	relayedMessageEventID = messengerABI.Events["RelayedMessage"].ID
}

// FilterSentMessages returns the primary send events in [fromBlock, toBlock]
func (c *Chain) FilterSentMessages(ctx context.Context, fromBlock, toBlock uint64) ([]core.SentMessageLog, error) {
	logs, err := c.filterLogs(ctx, fromBlock, toBlock, sentMessageEventID)
	if err != nil {
		return nil, err
	}
	var ret []core.SentMessageLog
	for _, lg := range logs {
		ev, err := parseSentMessage(lg)
		if err != nil {
			return nil, err
		}
		ret = append(ret, ev)
	}
	return ret, nil
}

// FilterSentMessageExtensions returns the value-extension events in [fromBlock, toBlock]
func (c *Chain) FilterSentMessageExtensions(ctx context.Context, fromBlock, toBlock uint64) ([]core.SentMessageExtensionLog, error) {
	logs, err := c.filterLogs(ctx, fromBlock, toBlock, sentMessageExtEventID)
	if err != nil {
		return nil, err
	}
	var ret []core.SentMessageExtensionLog
	for _, lg := range logs {
		ev, err := parseSentMessageExtension(lg)
		if err != nil {
			return nil, err
		}
		ret = append(ret, ev)
	}
	return ret, nil
}

// FilterRelayedMessages returns the hashes confirmed as relayed in [fromBlock, toBlock]
func (c *Chain) FilterRelayedMessages(ctx context.Context, fromBlock, toBlock uint64) ([]common.Hash, error) {
	logs, err := c.filterLogs(ctx, fromBlock, toBlock, relayedMessageEventID)
	if err != nil {
		return nil, err
	}
	var ret []common.Hash
	for _, lg := range logs {
		if len(lg.Topics) < 2 {
			return nil, errors.Newf("malformed RelayedMessage log in tx %s", lg.TxHash)
		}
		ret = append(ret, lg.Topics[1])
	}
	return ret, nil
}

func (c *Chain) filterLogs(ctx context.Context, fromBlock, toBlock uint64, eventID common.Hash) ([]types.Log, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	logs, err := c.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.messenger},
		Topics:    [][]common.Hash{{eventID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to filter logs of chain %s in range [%d, %d]", c.ChainID(), fromBlock, toBlock)
	}
	var ret []types.Log
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ret = append(ret, lg)
	}
	return ret, nil
}

func parseSentMessage(lg types.Log) (core.SentMessageLog, error) {
	if len(lg.Topics) < 2 {
		return core.SentMessageLog{}, errors.Newf("malformed SentMessage log in tx %s", lg.TxHash)
	}
	unpacked, err := messengerABI.Unpack("SentMessage", lg.Data)
	if err != nil {
		return core.SentMessageLog{}, errors.Wrapf(err, "failed to unpack SentMessage log in tx %s", lg.TxHash)
	}
	sender, ok0 := unpacked[0].(common.Address)
	message, ok1 := unpacked[1].([]byte)
	nonce, ok2 := unpacked[2].(*big.Int)
	gasLimit, ok3 := unpacked[3].(*big.Int)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return core.SentMessageLog{}, errors.Newf("unexpected SentMessage field types in tx %s", lg.TxHash)
	}
	return core.SentMessageLog{
		Target:      common.BytesToAddress(lg.Topics[1].Bytes()),
		Sender:      sender,
		Data:        message,
		Nonce:       nonce,
		GasLimit:    gasLimit,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
	}, nil
}

func parseSentMessageExtension(lg types.Log) (core.SentMessageExtensionLog, error) {
	if len(lg.Topics) < 2 {
		return core.SentMessageExtensionLog{}, errors.Newf("malformed SentMessageExtension1 log in tx %s", lg.TxHash)
	}
	unpacked, err := messengerABI.Unpack("SentMessageExtension1", lg.Data)
	if err != nil {
		return core.SentMessageExtensionLog{}, errors.Wrapf(err, "failed to unpack SentMessageExtension1 log in tx %s", lg.TxHash)
	}
	value, ok := unpacked[0].(*big.Int)
	if !ok {
		return core.SentMessageExtensionLog{}, errors.Newf("unexpected SentMessageExtension1 field types in tx %s", lg.TxHash)
	}
	return core.SentMessageExtensionLog{
		Sender:      common.BytesToAddress(lg.Topics[1].Bytes()),
		Value:       value,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
	}, nil
}
