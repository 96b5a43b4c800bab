package repository

import "pasartani/internal/domain/entity"

// SendHandle identifies one optimistic send until it is confirmed or rolled
// back.
type SendHandle struct {
	Key           entity.ConversationKey
	ProvisionalID int64
}

// ChatStore holds per-conversation message sequences. Every visible
// sequence is non-decreasing in timestamp at all times.
type ChatStore interface {
	// LoadHistory seeds a conversation from a bulk fetch. The input is
	// re-sorted ascending by timestamp even if it arrives ordered, since
	// multiple fetches may interleave.
	LoadHistory(key entity.ConversationKey, messages []entity.ChatMessage)

	// SendOptimistic appends a PENDING_SEND entry with a provisional ID and
	// the current local clock, so the sender sees the message before any
	// round trip.
	SendOptimistic(senderID, receiverID string, productID int64, content string) SendHandle

	// ConfirmSend marks the provisional entry SENT. A non-zero serverID
	// replaces the provisional ID so later echoes deduplicate against it.
	ConfirmSend(h SendHandle, serverID int64) error

	// RollbackSend erases the provisional entry entirely; the content is
	// not retained.
	RollbackSend(h SendHandle) error

	// Receive routes an inbound message by its canonical key. Messages not
	// involving the local user are discarded, as are duplicates of an
	// already-held server-assigned ID. Returns whether the message was
	// appended.
	Receive(msg entity.ChatMessage) bool

	// Messages returns a snapshot copy of one conversation's sequence.
	Messages(key entity.ConversationKey) []entity.ChatMessage

	// SubscribeChanges registers fn to run after every mutation, with the
	// key of the conversation that changed.
	SubscribeChanges(fn func(key entity.ConversationKey)) func()
}
