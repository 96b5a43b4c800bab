package repository

import (
	"sync"

	"pasartani/internal/domain/entity"
	"pasartani/internal/domain/repository"
	"pasartani/pkg/errors"
)

type memoryNotificationStore struct {
	mu          sync.RWMutex
	items       []entity.Notification
	ids         map[int64]struct{}
	subscribers map[int]func()
	nextSubID   int
}

func NewMemoryNotificationStore() repository.NotificationStore {
	return &memoryNotificationStore{
		ids:         make(map[int64]struct{}),
		subscribers: make(map[int]func()),
	}
}

func (s *memoryNotificationStore) ReplaceAll(list []entity.Notification) {
	s.mu.Lock()
	s.items = make([]entity.Notification, 0, len(list))
	s.ids = make(map[int64]struct{}, len(list))
	for _, n := range list {
		// Source ordering is kept; duplicate ids within one fetch are
		// collapsed to the first occurrence.
		if _, ok := s.ids[n.ID]; ok {
			continue
		}
		s.items = append(s.items, n)
		s.ids[n.ID] = struct{}{}
	}
	s.mu.Unlock()

	s.notify()
}

func (s *memoryNotificationStore) Upsert(n entity.Notification) bool {
	s.mu.Lock()
	if _, ok := s.ids[n.ID]; ok {
		// Duplicate delivery; the existing entry wins.
		s.mu.Unlock()
		return false
	}
	s.items = append([]entity.Notification{n}, s.items...)
	s.ids[n.ID] = struct{}{}
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *memoryNotificationStore) MarkResponded(id int64, status entity.RequestStatus) error {
	if status != entity.RequestAccepted && status != entity.RequestRejected {
		return errors.BadRequest("response status must be ACCEPTED or REJECTED", nil)
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return errors.NotFound("Notification", nil)
	}
	if s.items[idx].Terminal() {
		s.mu.Unlock()
		return errors.Conflict("notification already responded")
	}
	s.items[idx].Status = status
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *memoryNotificationStore) MarkRead(id int64) error {
	return s.setFlag(id, func(n *entity.Notification) { n.IsRead = true })
}

func (s *memoryNotificationStore) Clear(id int64) error {
	// Cleared notifications are flagged, never removed.
	return s.setFlag(id, func(n *entity.Notification) { n.IsClear = true })
}

func (s *memoryNotificationStore) setFlag(id int64, apply func(*entity.Notification)) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return errors.NotFound("Notification", nil)
	}
	apply(&s.items[idx])
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *memoryNotificationStore) List() []entity.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *memoryNotificationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *memoryNotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func (s *memoryNotificationStore) UnclearedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if !n.IsClear {
			count++
		}
	}
	return count
}

func (s *memoryNotificationStore) SubscribeChanges(fn func()) func() {
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

// indexOf must be called with the lock held.
func (s *memoryNotificationStore) indexOf(id int64) int {
	if _, ok := s.ids[id]; !ok {
		return -1
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *memoryNotificationStore) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
