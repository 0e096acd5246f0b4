package core

import (
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MessageStatus represents the lifecycle state of a cross-domain message.
// The only legal transition is Pending to Relayed.
type MessageStatus int

const (
	StatusPending MessageStatus = iota
	StatusRelayed
)

func (s MessageStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRelayed:
		return "relayed"
	default:
		return "unknown"
	}
}

// Message is the unit of cross-domain communication. It is content-addressed:
// two messages with identical fields collapse to one record under Hash.
type Message struct {
	// Nonce is the versioned message nonce assigned by the source messenger.
	// The encoding version lives in the upper 16 bits.
	Nonce    *big.Int
	Sender   common.Address
	Target   common.Address
	Value    *big.Int
	GasLimit *big.Int
	Data     []byte

	SourceBlockNumber uint64
	SourceTxHash      common.Hash
	SourceTimestamp   time.Time

	Status MessageStatus
}

// Hash returns the content identifier of the message.
func (m *Message) Hash() (common.Hash, error) {
	return HashMessage(m.Nonce, m.Sender, m.Target, m.Value, m.GasLimit, m.Data)
}

const (
	// MessageVersion0 is the legacy encoding generation.
	MessageVersion0 uint16 = 0
	// MessageVersion1 is the current encoding generation, which carries the
	// native value and the gas limit in the digest preimage.
	MessageVersion1 uint16 = 1
)

// version bits occupy the upper 16 bits of the 256-bit nonce
const versionShift = 240

// EncodeVersionedNonce packs the encoding version into the upper 16 bits of
// the 256-bit nonce.
func EncodeVersionedNonce(nonce *big.Int, version uint16) *big.Int {
	upper := new(big.Int).Lsh(big.NewInt(int64(version)), versionShift)
	return upper.Or(upper, nonce)
}

// DecodeVersionedNonce splits a versioned nonce into its nonce and version.
func DecodeVersionedNonce(versioned *big.Int) (*big.Int, uint16) {
	version := uint16(new(big.Int).Rsh(versioned, versionShift).Uint64())
	mask := new(big.Int).Lsh(big.NewInt(1), versionShift)
	mask.Sub(mask, big.NewInt(1))
	nonce := new(big.Int).And(versioned, mask)
	return nonce, version
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	uint256Type = mustNewType("uint256")
	addressType = mustNewType("address")
	bytesType   = mustNewType("bytes")

	encodeV0Args = abi.Arguments{
		{Name: "target", Type: addressType},
		{Name: "sender", Type: addressType},
		{Name: "data", Type: bytesType},
		{Name: "nonce", Type: uint256Type},
	}
	encodeV1Args = abi.Arguments{
		{Name: "nonce", Type: uint256Type},
		{Name: "sender", Type: addressType},
		{Name: "target", Type: addressType},
		{Name: "value", Type: uint256Type},
		{Name: "gasLimit", Type: uint256Type},
		{Name: "data", Type: bytesType},
	}

	selectorV0 = crypto.Keccak256([]byte("relayMessage(address,address,bytes,uint256)"))[:4]
	selectorV1 = crypto.Keccak256([]byte("relayMessage(uint256,address,address,uint256,uint256,bytes)"))[:4]
)

// EncodeCrossDomainMessageV0 produces the legacy relayMessage calldata.
func EncodeCrossDomainMessageV0(target, sender common.Address, data []byte, nonce *big.Int) ([]byte, error) {
	packed, err := encodeV0Args.Pack(target, sender, data, nonce)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack v0 message")
	}
	return append(append([]byte{}, selectorV0...), packed...), nil
}

// EncodeCrossDomainMessageV1 produces the relayMessage calldata of the
// current encoding generation.
func EncodeCrossDomainMessageV1(nonce *big.Int, sender, target common.Address, value, gasLimit *big.Int, data []byte) ([]byte, error) {
	packed, err := encodeV1Args.Pack(nonce, sender, target, value, gasLimit, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack v1 message")
	}
	return append(append([]byte{}, selectorV1...), packed...), nil
}

// HashMessage computes the content identifier of a message: the keccak digest
// of its canonical relayMessage encoding. The encoding generation is taken
// from the version bits of the nonce, so the digest matches the one the
// destination messenger computes on relay. Deterministic across processes.
func HashMessage(nonce *big.Int, sender, target common.Address, value, gasLimit *big.Int, data []byte) (common.Hash, error) {
	_, version := DecodeVersionedNonce(nonce)
	var encoded []byte
	var err error
	switch version {
	case MessageVersion0:
		encoded, err = EncodeCrossDomainMessageV0(target, sender, data, nonce)
	case MessageVersion1:
		encoded, err = EncodeCrossDomainMessageV1(nonce, sender, target, value, gasLimit, data)
	default:
		return common.Hash{}, errors.Newf("unknown message encoding version: %d", version)
	}
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}
