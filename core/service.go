package core

import (
	"context"
	"fmt"
	"time"

	retry "github.com/avast/retry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/datachainlab/crossdomain-relayer/log"
	"github.com/datachainlab/crossdomain-relayer/metrics"
)

var tracer = otel.Tracer("github.com/datachainlab/crossdomain-relayer/core")

var (
	rtyAttNum = uint(5)
	rtyAtt    = retry.Attempts(rtyAttNum)
	rtyDel    = retry.Delay(time.Millisecond * 400)
	rtyErr    = retry.LastErrorOnly(true)
)

// StartService starts the relay service
func StartService(ctx context.Context, src SourceChain, dst DestinationChain, store *MessageStore, srcStartBlock, dstStartBlock uint64, interval time.Duration) error {
	if err := dst.SetupForRelay(ctx); err != nil {
		return err
	}
	srv := NewRelayService(src, dst, store, srcStartBlock, dstStartBlock, interval)
	return srv.Start(ctx)
}

// RelayService drives the poll cycle: index source sends, index destination
// confirmations, relay pending messages, publish metrics, sleep. One cycle
// runs to completion before the next begins; the store and both cursors are
// mutated from this single execution context only.
type RelayService struct {
	src SourceChain
	dst DestinationChain

	store    *MessageStore
	indexer  *EventIndexer
	executor *RelayExecutor

	srcCursor *BlockCursor
	dstCursor *BlockCursor

	interval time.Duration
}

// NewRelayService returns a new service
func NewRelayService(src SourceChain, dst DestinationChain, store *MessageStore, srcStartBlock, dstStartBlock uint64, interval time.Duration) *RelayService {
	return &RelayService{
		src:       src,
		dst:       dst,
		store:     store,
		indexer:   NewEventIndexer(src, dst),
		executor:  NewRelayExecutor(dst, store),
		srcCursor: NewBlockCursor(srcStartBlock),
		dstCursor: NewBlockCursor(dstStartBlock),
		interval:  interval,
	}
}

// Start runs the poll loop until the context is cancelled. A cycle that still
// fails after the retry budget is logged and dropped; the failed range is
// scanned again on the next cycle, which is safe because indexing is
// idempotent and a failed scan never advances its cursor.
func (srv *RelayService) Start(ctx context.Context) error {
	logger := log.GetLogger().WithModule("core.service").WithChainPair(srv.src.ChainID(), srv.dst.ChainID())
	for {
		if err := retry.Do(func() error {
			return srv.Serve(ctx)
		}, rtyAtt, rtyDel, rtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
			logger.InfoContext(ctx,
				"retrying relay cycle",
				"try", fmt.Sprintf("%d/%d", n+1, rtyAttNum),
				"error", err.Error(),
			)
		})); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.ErrorContext(ctx, "relay cycle failed; will retry next interval", err)
		}
		if err := wait(ctx, srv.interval); err != nil {
			return err
		}
	}
}

// Serve performs one full cycle.
func (srv *RelayService) Serve(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "RelayService.Serve")
	defer span.End()
	logger := log.GetLogger().WithModule("core.service").WithChainPair(srv.src.ChainID(), srv.dst.ChainID())

	// Fetch both chain heads. Read-only fan-out; results are combined before
	// any mutation.
	var latestSrc, latestDst uint64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		latestSrc, err = srv.src.LatestBlockNumber(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		latestDst, err = srv.dst.LatestBlockNumber(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		metrics.ScanFailuresCounter.Add(ctx, 1)
		logger.ErrorContext(ctx, "failed to fetch latest block numbers", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// Indexing: source send events
	if latestSrc > srv.srcCursor.Height() {
		msgs, err := srv.indexer.ScanSourceSent(ctx, srv.srcCursor.Height()+1, latestSrc)
		if err != nil {
			metrics.ScanFailuresCounter.Add(ctx, 1)
			logger.ErrorContext(ctx, "failed to scan source send events", err,
				"from_block", srv.srcCursor.Height()+1,
				"to_block", latestSrc,
			)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		for _, rec := range msgs {
			msg := rec.Message
			if srv.store.UpsertIfAbsent(rec.Hash, &msg) {
				logger.InfoContext(ctx, "indexed message",
					"msg_hash", rec.Hash,
					"nonce", msg.Nonce,
					"source_block", msg.SourceBlockNumber,
				)
			}
		}
		// the cursor reaches the head that was queried even when the range
		// contained no events
		srv.srcCursor.Advance(latestSrc)
	}
	metrics.ProcessedBlockHeightGauge.Set(int64(srv.srcCursor.Height()),
		attribute.Key("chain").String(srv.src.ChainID()))

	// Confirming: destination relay confirmations
	if latestDst > srv.dstCursor.Height() {
		hashes, err := srv.indexer.ScanDestinationConfirmed(ctx, srv.dstCursor.Height()+1, latestDst)
		if err != nil {
			metrics.ScanFailuresCounter.Add(ctx, 1)
			logger.ErrorContext(ctx, "failed to scan destination confirmations", err,
				"from_block", srv.dstCursor.Height()+1,
				"to_block", latestDst,
			)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		for _, hash := range hashes {
			if err := srv.store.MarkRelayed(hash); err != nil {
				// never fabricate a record for a confirmation of an unindexed send
				logger.WarnContext(ctx, "confirmation for unknown message; ignored", "msg_hash", hash)
				continue
			}
			logger.InfoContext(ctx, "confirmed message", "msg_hash", hash)
		}
		srv.dstCursor.Advance(latestDst)
	}
	metrics.ProcessedBlockHeightGauge.Set(int64(srv.dstCursor.Height()),
		attribute.Key("chain").String(srv.dst.ChainID()))

	// Relaying: attempt every pending message, serialized
	if err := srv.executor.RelayPending(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	metrics.PendingMessagesGauge.Set(int64(srv.store.Count(StatusPending)))

	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
