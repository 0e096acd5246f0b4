package core_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/crossdomain-relayer/core"
)

func TestRelayPendingMarksRelayed(t *testing.T) {
	initMetrics()
	store := core.NewMessageStore()
	msgA := newTestMessage(1)
	msgB := newTestMessage(2)
	hashA, err := msgA.Hash()
	require.NoError(t, err)
	hashB, err := msgB.Hash()
	require.NoError(t, err)
	store.UpsertIfAbsent(hashA, msgA)
	store.UpsertIfAbsent(hashB, msgB)

	dst := &fakeDestChain{id: "l2"}
	executor := core.NewRelayExecutor(dst, store)
	require.NoError(t, executor.RelayPending(context.Background()))

	require.Len(t, dst.relayed, 2)
	assert.Equal(t, msgA.Nonce, dst.relayed[0].Nonce)
	assert.Equal(t, msgB.Nonce, dst.relayed[1].Nonce)
	assert.Equal(t, 0, store.Count(core.StatusPending))
	assert.Equal(t, 2, store.Count(core.StatusRelayed))
}

func TestRelayPendingFailureIsolation(t *testing.T) {
	initMetrics()
	store := core.NewMessageStore()
	msgA := newTestMessage(1)
	msgB := newTestMessage(2)
	hashA, err := msgA.Hash()
	require.NoError(t, err)
	hashB, err := msgB.Hash()
	require.NoError(t, err)
	store.UpsertIfAbsent(hashA, msgA)
	store.UpsertIfAbsent(hashB, msgB)

	// the first message keeps failing; the second must still go through
	dst := &fakeDestChain{id: "l2", relayFn: func(msg *core.Message) error {
		if msg.Nonce.Cmp(msgA.Nonce) == 0 {
			return errors.New("execution reverted")
		}
		return nil
	}}
	executor := core.NewRelayExecutor(dst, store)
	require.NoError(t, executor.RelayPending(context.Background()))

	require.Len(t, dst.relayed, 1)
	assert.Equal(t, msgB.Nonce, dst.relayed[0].Nonce)
	assert.Equal(t, 1, store.Count(core.StatusPending))
	assert.Equal(t, 1, store.Count(core.StatusRelayed))

	// the failed message is retried on the next sweep
	dst.relayFn = nil
	require.NoError(t, executor.RelayPending(context.Background()))
	assert.Equal(t, 0, store.Count(core.StatusPending))
}

func TestRelayPendingStopsOnCancel(t *testing.T) {
	initMetrics()
	store := core.NewMessageStore()
	msg := newTestMessage(1)
	hash, err := msg.Hash()
	require.NoError(t, err)
	store.UpsertIfAbsent(hash, msg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := &fakeDestChain{id: "l2"}
	executor := core.NewRelayExecutor(dst, store)

	err = executor.RelayPending(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, dst.relayed)
	assert.Equal(t, 1, store.Count(core.StatusPending))
}
