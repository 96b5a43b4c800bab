package repository

import (
	"sort"
	"sync"
	"time"

	"pasartani/internal/domain/entity"
	"pasartani/internal/domain/repository"
	"pasartani/pkg/errors"
)

type memoryChatStore struct {
	selfID string

	mu            sync.RWMutex
	conversations map[entity.ConversationKey][]entity.ChatMessage
	subscribers   map[int]func(entity.ConversationKey)
	nextSubID     int
	lastLocalID   int64
}

// NewMemoryChatStore builds a chat store for the given local user. Inbound
// messages not involving selfID are discarded.
func NewMemoryChatStore(selfID string) repository.ChatStore {
	return &memoryChatStore{
		selfID:        selfID,
		conversations: make(map[entity.ConversationKey][]entity.ChatMessage),
		subscribers:   make(map[int]func(entity.ConversationKey)),
	}
}

func (s *memoryChatStore) LoadHistory(key entity.ConversationKey, messages []entity.ChatMessage) {
	s.mu.Lock()

	seen := make(map[int64]struct{}, len(messages))
	seq := make([]entity.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.ID != 0 {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
		}
		if m.Status == "" {
			m.Status = entity.DeliverySent
		}
		seq = append(seq, m)
	}

	// A reload must not erase sends that are still in flight.
	for _, m := range s.conversations[key] {
		if m.Status == entity.DeliveryPendingSend {
			seq = append(seq, m)
		}
	}

	sortByTimestamp(seq)
	s.conversations[key] = seq
	s.mu.Unlock()

	s.notify(key)
}

func (s *memoryChatStore) SendOptimistic(senderID, receiverID string, productID int64, content string) repository.SendHandle {
	key := entity.NewConversationKey(senderID, receiverID, productID)
	now := time.Now()

	s.mu.Lock()
	id := now.UnixMilli()
	if id <= s.lastLocalID {
		id = s.lastLocalID + 1
	}
	s.lastLocalID = id

	msg := entity.ChatMessage{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		ProductID:  productID,
		Content:    content,
		Timestamp:  now,
		Status:     entity.DeliveryPendingSend,
	}
	s.conversations[key] = insertByTimestamp(s.conversations[key], msg)
	s.mu.Unlock()

	s.notify(key)
	return repository.SendHandle{Key: key, ProvisionalID: id}
}

func (s *memoryChatStore) ConfirmSend(h repository.SendHandle, serverID int64) error {
	s.mu.Lock()
	seq := s.conversations[h.Key]
	idx := indexOfID(seq, h.ProvisionalID)
	if idx < 0 {
		s.mu.Unlock()
		return errors.NotFound("Pending message", nil)
	}

	if serverID != 0 && serverID != h.ProvisionalID && indexOfID(seq, serverID) >= 0 {
		// The server echo beat the confirmation; drop the provisional copy.
		s.conversations[h.Key] = append(seq[:idx], seq[idx+1:]...)
	} else {
		if serverID != 0 {
			seq[idx].ID = serverID
		}
		seq[idx].Status = entity.DeliverySent
	}
	s.mu.Unlock()

	s.notify(h.Key)
	return nil
}

func (s *memoryChatStore) RollbackSend(h repository.SendHandle) error {
	s.mu.Lock()
	seq := s.conversations[h.Key]
	idx := indexOfID(seq, h.ProvisionalID)
	if idx < 0 {
		s.mu.Unlock()
		return errors.NotFound("Pending message", nil)
	}
	s.conversations[h.Key] = append(seq[:idx], seq[idx+1:]...)
	s.mu.Unlock()

	s.notify(h.Key)
	return nil
}

func (s *memoryChatStore) Receive(msg entity.ChatMessage) bool {
	if !msg.Involves(s.selfID) {
		// The inbox topic is per-user; anything else is a stray echo.
		return false
	}

	key := msg.Key()

	s.mu.Lock()
	seq := s.conversations[key]
	if msg.ID != 0 && indexOfID(seq, msg.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	if msg.Status == "" {
		msg.Status = entity.DeliverySent
	}
	s.conversations[key] = insertByTimestamp(seq, msg)
	s.mu.Unlock()

	s.notify(key)
	return true
}

func (s *memoryChatStore) Messages(key entity.ConversationKey) []entity.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq := s.conversations[key]
	out := make([]entity.ChatMessage, len(seq))
	copy(out, seq)
	return out
}

func (s *memoryChatStore) SubscribeChanges(fn func(entity.ConversationKey)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *memoryChatStore) notify(key entity.ConversationKey) {
	s.mu.RLock()
	fns := make([]func(entity.ConversationKey), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(key)
	}
}

func sortByTimestamp(seq []entity.ChatMessage) {
	sort.SliceStable(seq, func(i, j int) bool {
		return seq[i].Timestamp.Before(seq[j].Timestamp)
	})
}

// insertByTimestamp keeps the sequence non-decreasing in timestamp even when
// the transport delivers out of order.
func insertByTimestamp(seq []entity.ChatMessage, msg entity.ChatMessage) []entity.ChatMessage {
	pos := sort.Search(len(seq), func(i int) bool {
		return seq[i].Timestamp.After(msg.Timestamp)
	})
	seq = append(seq, entity.ChatMessage{})
	copy(seq[pos+1:], seq[pos:])
	seq[pos] = msg
	return seq
}

func indexOfID(seq []entity.ChatMessage, id int64) int {
	for i := range seq {
		if seq[i].ID == id {
			return i
		}
	}
	return -1
}
