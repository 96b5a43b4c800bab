package repository

import "pasartani/internal/domain/entity"

// NotificationStore holds the ordered notification collection published to
// the presentation layer. All counts are recomputed from the collection on
// read; there are no independently stored counters.
type NotificationStore interface {
	// ReplaceAll swaps the whole collection after a bulk fetch, keeping the
	// ordering given by the source.
	ReplaceAll(list []entity.Notification)

	// Upsert inserts a pushed notification at the head of the collection.
	// A duplicate ID is left untouched; the return value reports whether
	// the collection changed.
	Upsert(n entity.Notification) bool

	// MarkResponded moves a PENDING entry to ACCEPTED or REJECTED. An entry
	// that is already terminal is left unchanged and a CONFLICT error is
	// returned; an unknown ID yields NOT_FOUND.
	MarkResponded(id int64, status entity.RequestStatus) error

	MarkRead(id int64) error
	Clear(id int64) error

	// List returns a snapshot copy of the collection.
	List() []entity.Notification

	Count() int
	UnreadCount() int
	UnclearedCount() int

	// SubscribeChanges registers fn to run after every mutation. The
	// returned function unregisters it.
	SubscribeChanges(fn func()) func()
}
