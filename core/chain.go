package core

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain is the read interface every chain collaborator must provide.
// Implementations live under chains/ and must apply their own per-call
// deadlines to RPC requests.
type Chain interface {
	// ChainID returns ID of the chain
	ChainID() string

	// LatestBlockNumber returns the current head of the chain's confirmed log
	LatestBlockNumber(ctx context.Context) (uint64, error)

	// BlockTimestamp returns the timestamp of the given block
	BlockTimestamp(ctx context.Context, number uint64) (time.Time, error)
}

// SourceChain observes message-send events.
type SourceChain interface {
	Chain

	// FilterSentMessages returns the primary send events in [fromBlock, toBlock]
	FilterSentMessages(ctx context.Context, fromBlock, toBlock uint64) ([]SentMessageLog, error)

	// FilterSentMessageExtensions returns the value-extension events in [fromBlock, toBlock]
	FilterSentMessageExtensions(ctx context.Context, fromBlock, toBlock uint64) ([]SentMessageExtensionLog, error)
}

// DestinationChain observes relay confirmations and accepts relay
// transactions from the privileged relay sender.
type DestinationChain interface {
	Chain

	// FilterRelayedMessages returns the hashes confirmed in [fromBlock, toBlock]
	FilterRelayedMessages(ctx context.Context, fromBlock, toBlock uint64) ([]common.Hash, error)

	// SetupForRelay prepares the privileged relay sender (impersonation and
	// funding in the reference environment)
	SetupForRelay(ctx context.Context) error

	// RelayMessage submits a relay transaction for the message and awaits its
	// inclusion receipt. A reverted transaction is an error.
	RelayMessage(ctx context.Context, msg *Message) error
}

// SentMessageLog is the normalized primary send event. Some source chains
// split one logical send across this record and a SentMessageExtensionLog
// emitted in the same transaction.
type SentMessageLog struct {
	Target   common.Address
	Sender   common.Address
	Data     []byte
	Nonce    *big.Int
	GasLimit *big.Int

	BlockNumber uint64
	TxHash      common.Hash
}

// SentMessageExtensionLog is the secondary record carrying the native value.
type SentMessageExtensionLog struct {
	Sender common.Address
	Value  *big.Int

	BlockNumber uint64
	TxHash      common.Hash
}
