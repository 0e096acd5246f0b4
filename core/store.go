package core

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownMessage is reported when a confirmation arrives for a hash that
// was never observed as sent. The store never fabricates a record for it.
var ErrUnknownMessage = errors.New("unknown message hash")

// MessageRecord is a message together with its content identifier, as held by
// the store.
type MessageRecord struct {
	Hash common.Hash
	Message
}

// MessageStore is the in-memory message ledger. Records are never deleted;
// iteration order over Pending and All is first-seen order, which keeps the
// relay order stable and total. All mutation is expected to be funneled
// through the orchestrator's single execution context, but the store guards
// itself anyway so the read-only API surface can be served concurrently.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[common.Hash]*Message
	order    []common.Hash
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[common.Hash]*Message),
	}
}

// UpsertIfAbsent inserts the message keyed by hash unless the hash is already
// present. Re-indexing the same range is a no-op: an existing record keeps
// its status, so a Relayed message is never flipped back to Pending.
func (s *MessageStore) UpsertIfAbsent(hash common.Hash, msg *Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[hash]; ok {
		return false
	}
	stored := *msg
	s.messages[hash] = &stored
	s.order = append(s.order, hash)
	return true
}

// MarkRelayed flips the message to Relayed. Marking an already relayed
// message is a no-op; an unknown hash reports ErrUnknownMessage.
func (s *MessageStore) MarkRelayed(hash common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[hash]
	if !ok {
		return errors.Wrapf(ErrUnknownMessage, "hash=%s", hash)
	}
	if msg.Status == StatusPending {
		msg.Status = StatusRelayed
	}
	return nil
}

// Pending returns the pending messages in first-seen order.
func (s *MessageStore) Pending() []MessageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ret []MessageRecord
	for _, hash := range s.order {
		if msg := s.messages[hash]; msg.Status == StatusPending {
			ret = append(ret, MessageRecord{Hash: hash, Message: *msg})
		}
	}
	return ret
}

// All returns a snapshot of every tracked message in first-seen order.
func (s *MessageStore) All() []MessageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]MessageRecord, 0, len(s.order))
	for _, hash := range s.order {
		ret = append(ret, MessageRecord{Hash: hash, Message: *s.messages[hash]})
	}
	return ret
}

func (s *MessageStore) Count(status MessageStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, msg := range s.messages {
		if msg.Status == status {
			n++
		}
	}
	return n
}

func (s *MessageStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
