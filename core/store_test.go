package core_test

import (
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/crossdomain-relayer/core"
)

func newTestMessage(nonce int64) *core.Message {
	return &core.Message{
		Nonce:    core.EncodeVersionedNonce(big.NewInt(nonce), core.MessageVersion1),
		Sender:   common.HexToAddress("0xAA00000000000000000000000000000000000000"),
		Target:   common.HexToAddress("0xBB00000000000000000000000000000000000000"),
		Value:    big.NewInt(0),
		GasLimit: big.NewInt(200000),
		Data:     []byte{0x12, 0x34},
		Status:   core.StatusPending,
	}
}

func TestStoreUpsertIfAbsent(t *testing.T) {
	store := core.NewMessageStore()
	msg := newTestMessage(1)
	hash, err := msg.Hash()
	require.NoError(t, err)

	assert.True(t, store.UpsertIfAbsent(hash, msg))
	assert.False(t, store.UpsertIfAbsent(hash, msg), "re-indexing the same message must be a no-op")
	assert.Equal(t, 1, store.Size())
	assert.Equal(t, 1, store.Count(core.StatusPending))
}

func TestStoreNeverRevertsRelayed(t *testing.T) {
	store := core.NewMessageStore()
	msg := newTestMessage(1)
	hash, err := msg.Hash()
	require.NoError(t, err)

	store.UpsertIfAbsent(hash, msg)
	require.NoError(t, store.MarkRelayed(hash))
	assert.Equal(t, 1, store.Count(core.StatusRelayed))

	// an observed send re-indexed after relay must not reset the status
	pendingAgain := newTestMessage(1)
	assert.False(t, store.UpsertIfAbsent(hash, pendingAgain))
	assert.Equal(t, 0, store.Count(core.StatusPending))
	assert.Equal(t, 1, store.Count(core.StatusRelayed))
}

func TestStoreMarkRelayed(t *testing.T) {
	store := core.NewMessageStore()
	msg := newTestMessage(2)
	hash, err := msg.Hash()
	require.NoError(t, err)
	store.UpsertIfAbsent(hash, msg)

	require.NoError(t, store.MarkRelayed(hash))
	// marking twice is a no-op
	require.NoError(t, store.MarkRelayed(hash))
	assert.Equal(t, 1, store.Count(core.StatusRelayed))

	// a confirmation for a hash never observed as sent must not fabricate a record
	err = store.MarkRelayed(common.HexToHash("0xdead"))
	assert.True(t, errors.Is(err, core.ErrUnknownMessage))
	assert.Equal(t, 1, store.Size())
}

func TestStorePendingOrder(t *testing.T) {
	store := core.NewMessageStore()
	var hashes []common.Hash
	for i := int64(1); i <= 5; i++ {
		msg := newTestMessage(i)
		hash, err := msg.Hash()
		require.NoError(t, err)
		store.UpsertIfAbsent(hash, msg)
		hashes = append(hashes, hash)
	}
	require.NoError(t, store.MarkRelayed(hashes[2]))

	pending := store.Pending()
	require.Len(t, pending, 4)
	// first-seen order, stable across calls
	assert.Equal(t, []common.Hash{hashes[0], hashes[1], hashes[3], hashes[4]},
		[]common.Hash{pending[0].Hash, pending[1].Hash, pending[2].Hash, pending[3].Hash})

	again := store.Pending()
	for i := range pending {
		assert.Equal(t, pending[i].Hash, again[i].Hash)
	}
}

func TestStoreSnapshotsAreCopies(t *testing.T) {
	store := core.NewMessageStore()
	msg := newTestMessage(1)
	hash, err := msg.Hash()
	require.NoError(t, err)
	store.UpsertIfAbsent(hash, msg)

	all := store.All()
	require.Len(t, all, 1)
	all[0].Status = core.StatusRelayed
	assert.Equal(t, 1, store.Count(core.StatusPending), "mutating a snapshot must not touch the ledger")
}
