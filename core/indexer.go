package core

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// ErrSenderMismatch is reported when the sender recorded in a value-extension
// event differs from the sender of the primary event it pairs with. The
// pairing is corrupt, so the whole scan fails instead of silently producing a
// message with an unverified value.
var ErrSenderMismatch = errors.New("sender mismatch between paired source events")

// EventIndexer normalizes chain logs into message records. It performs
// network reads only; the store and cursors are owned by the orchestrator.
type EventIndexer struct {
	src SourceChain
	dst DestinationChain
}

func NewEventIndexer(src SourceChain, dst DestinationChain) *EventIndexer {
	return &EventIndexer{src: src, dst: dst}
}

// ScanSourceSent queries the primary and extension send events in
// [fromBlock, toBlock], pairs them by transaction hash and returns one record
// per logical send. A primary event without an extension gets a zero value.
// Read errors propagate to the caller without internal retry.
func (ix *EventIndexer) ScanSourceSent(ctx context.Context, fromBlock, toBlock uint64) ([]MessageRecord, error) {
	if fromBlock > toBlock {
		return nil, nil
	}

	var (
		sents []SentMessageLog
		exts  []SentMessageExtensionLog
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		sents, err = ix.src.FilterSentMessages(egCtx, fromBlock, toBlock)
		return err
	})
	eg.Go(func() error {
		var err error
		exts, err = ix.src.FilterSentMessageExtensions(egCtx, fromBlock, toBlock)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	extByTx := make(map[common.Hash]SentMessageExtensionLog, len(exts))
	for _, ext := range exts {
		extByTx[ext.TxHash] = ext
	}

	tsByBlock := make(map[uint64]time.Time)
	var ret []MessageRecord
	for _, ev := range sents {
		value := new(big.Int)
		if ext, ok := extByTx[ev.TxHash]; ok {
			if ext.Sender != ev.Sender {
				return nil, errors.Wrapf(ErrSenderMismatch,
					"tx=%s primary_sender=%s extension_sender=%s",
					ev.TxHash, ev.Sender, ext.Sender)
			}
			value = ext.Value
		}

		ts, ok := tsByBlock[ev.BlockNumber]
		if !ok {
			var err error
			ts, err = ix.src.BlockTimestamp(ctx, ev.BlockNumber)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to fetch timestamp of block %d", ev.BlockNumber)
			}
			tsByBlock[ev.BlockNumber] = ts
		}

		msg := Message{
			Nonce:             ev.Nonce,
			Sender:            ev.Sender,
			Target:            ev.Target,
			Value:             value,
			GasLimit:          ev.GasLimit,
			Data:              ev.Data,
			SourceBlockNumber: ev.BlockNumber,
			SourceTxHash:      ev.TxHash,
			SourceTimestamp:   ts,
			Status:            StatusPending,
		}
		hash, err := msg.Hash()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to hash message in tx %s", ev.TxHash)
		}
		ret = append(ret, MessageRecord{Hash: hash, Message: msg})
	}
	return ret, nil
}

// ScanDestinationConfirmed returns the message hashes confirmed as relayed in
// [fromBlock, toBlock].
func (ix *EventIndexer) ScanDestinationConfirmed(ctx context.Context, fromBlock, toBlock uint64) ([]common.Hash, error) {
	if fromBlock > toBlock {
		return nil, nil
	}
	return ix.dst.FilterRelayedMessages(ctx, fromBlock, toBlock)
}
