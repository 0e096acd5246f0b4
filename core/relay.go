package core

import (
	"context"

	"github.com/datachainlab/crossdomain-relayer/log"
	"github.com/datachainlab/crossdomain-relayer/metrics"
)

// RelayExecutor submits relay transactions for pending messages. Submissions
// are serialized: every relay shares one privileged sender identity and
// concurrent transactions from it would race on the account nonce.
type RelayExecutor struct {
	dst   DestinationChain
	store *MessageStore
}

func NewRelayExecutor(dst DestinationChain, store *MessageStore) *RelayExecutor {
	return &RelayExecutor{dst: dst, store: store}
}

// RelayPending attempts to relay every pending message, one at a time, in the
// store's first-seen order. Each message is attempted independently: a failed
// submission is logged and counted, the message stays pending for the next
// cycle, and the sweep continues. Only context cancellation stops it early.
func (re *RelayExecutor) RelayPending(ctx context.Context) error {
	logger := log.GetLogger().WithModule("core.relay").WithChain(re.dst.ChainID())
	for _, rec := range re.store.Pending() {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := rec.Message
		if err := re.dst.RelayMessage(ctx, &msg); err != nil {
			metrics.RelayFailuresCounter.Add(ctx, 1)
			logger.ErrorContext(ctx, "failed to relay message", err,
				"msg_hash", rec.Hash,
				"source_tx", msg.SourceTxHash,
			)
			continue
		}
		if err := re.store.MarkRelayed(rec.Hash); err != nil {
			// cannot happen for a record the store just handed out
			logger.ErrorContext(ctx, "failed to mark message as relayed", err, "msg_hash", rec.Hash)
			continue
		}
		metrics.RelayedMessagesCounter.Add(ctx, 1)
		logger.InfoContext(ctx, "relayed message",
			"msg_hash", rec.Hash,
			"source_tx", msg.SourceTxHash,
			"nonce", msg.Nonce,
		)
	}
	return nil
}
