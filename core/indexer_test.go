package core_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachainlab/crossdomain-relayer/core"
)

var (
	senderAddr = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	targetAddr = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func sentLog(nonce int64, block uint64, tx common.Hash) core.SentMessageLog {
	return core.SentMessageLog{
		Target:      targetAddr,
		Sender:      senderAddr,
		Data:        []byte{0x12, 0x34},
		Nonce:       core.EncodeVersionedNonce(big.NewInt(nonce), core.MessageVersion1),
		GasLimit:    big.NewInt(200000),
		BlockNumber: block,
		TxHash:      tx,
	}
}

func TestScanSourceSentPairsByTxHash(t *testing.T) {
	tx1 := common.HexToHash("0x01")
	tx2 := common.HexToHash("0x02")
	src := &fakeSourceChain{
		id:     "l1",
		latest: 200,
		sents:  []core.SentMessageLog{sentLog(1, 105, tx1), sentLog(2, 110, tx2)},
		exts: []core.SentMessageExtensionLog{{
			Sender:      senderAddr,
			Value:       big.NewInt(7),
			BlockNumber: 110,
			TxHash:      tx2,
		}},
	}
	ix := core.NewEventIndexer(src, &fakeDestChain{id: "l2"})

	records, err := ix.ScanSourceSent(context.Background(), 100, 200)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// tx1 carried no extension, so its value defaults to zero
	assert.Equal(t, 0, records[0].Message.Value.Sign())
	assert.Equal(t, int64(7), records[1].Message.Value.Int64())
	assert.Equal(t, uint64(105), records[0].Message.SourceBlockNumber)
	assert.Equal(t, tx1, records[0].Message.SourceTxHash)
	assert.Equal(t, core.StatusPending, records[0].Message.Status)

	wantHash, err := records[0].Message.Hash()
	require.NoError(t, err)
	assert.Equal(t, wantHash, records[0].Hash)
}

func TestScanSourceSentSenderMismatch(t *testing.T) {
	tx := common.HexToHash("0x01")
	src := &fakeSourceChain{
		id:     "l1",
		latest: 200,
		sents:  []core.SentMessageLog{sentLog(1, 105, tx)},
		exts: []core.SentMessageExtensionLog{{
			Sender:      common.HexToAddress("0xCC00000000000000000000000000000000000000"),
			Value:       big.NewInt(1),
			BlockNumber: 105,
			TxHash:      tx,
		}},
	}
	ix := core.NewEventIndexer(src, &fakeDestChain{id: "l2"})

	records, err := ix.ScanSourceSent(context.Background(), 100, 200)
	assert.True(t, errors.Is(err, core.ErrSenderMismatch))
	assert.Nil(t, records)
}

func TestScanSourceSentEmptyRange(t *testing.T) {
	src := &fakeSourceChain{id: "l1", sents: []core.SentMessageLog{sentLog(1, 105, common.HexToHash("0x01"))}}
	ix := core.NewEventIndexer(src, &fakeDestChain{id: "l2"})

	records, err := ix.ScanSourceSent(context.Background(), 200, 100)
	require.NoError(t, err)
	assert.Nil(t, records)
	assert.Empty(t, src.sentCalls, "an inverted range must not hit the chain")
}

func TestScanSourceSentReadErrors(t *testing.T) {
	readErr := errors.New("rpc unavailable")
	for name, src := range map[string]*fakeSourceChain{
		"primary":   {id: "l1", sentErr: readErr},
		"extension": {id: "l1", extErr: readErr},
	} {
		t.Run(name, func(t *testing.T) {
			ix := core.NewEventIndexer(src, &fakeDestChain{id: "l2"})
			_, err := ix.ScanSourceSent(context.Background(), 100, 200)
			assert.True(t, errors.Is(err, readErr))
		})
	}
}

func TestScanDestinationConfirmed(t *testing.T) {
	h1 := common.HexToHash("0xa1")
	h2 := common.HexToHash("0xa2")
	dst := &fakeDestChain{
		id: "l2",
		confirmations: []confirmation{
			{block: 50, hash: h1},
			{block: 80, hash: h2},
		},
	}
	ix := core.NewEventIndexer(&fakeSourceChain{id: "l1"}, dst)

	hashes, err := ix.ScanDestinationConfirmed(context.Background(), 40, 60)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{h1}, hashes)

	hashes, err = ix.ScanDestinationConfirmed(context.Background(), 60, 40)
	require.NoError(t, err)
	assert.Nil(t, hashes)
}
