package entity

import (
	"fmt"
	"time"
)

type DeliveryStatus string

const (
	DeliveryPendingSend DeliveryStatus = "PENDING_SEND"
	DeliverySent        DeliveryStatus = "SENT"
	DeliveryFailed      DeliveryStatus = "FAILED"
)

// ChatMessage carries one chat line between two users about one product.
// Locally created messages start with a provisional timestamp-based ID and
// DeliveryPendingSend; the ID is rewritten once the server confirms.
type ChatMessage struct {
	ID         int64          `json:"id"`
	SenderID   string         `json:"senderId"`
	ReceiverID string         `json:"receiverId"`
	ProductID  int64          `json:"productId"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Status     DeliveryStatus `json:"status,omitempty"`
}

// Key returns the canonical conversation key for this message.
func (m *ChatMessage) Key() ConversationKey {
	return NewConversationKey(m.SenderID, m.ReceiverID, m.ProductID)
}

// Involves reports whether userID is one of the two participants.
func (m *ChatMessage) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// ConversationKey identifies the conversation between two users about one
// product, independent of which side is "self". Participant IDs are stored
// in lexical order so both sides derive the same key.
type ConversationKey struct {
	LowID     string
	HighID    string
	ProductID int64
}

func NewConversationKey(a, b string, productID int64) ConversationKey {
	if a > b {
		a, b = b, a
	}
	return ConversationKey{LowID: a, HighID: b, ProductID: productID}
}

func (k ConversationKey) String() string {
	return fmt.Sprintf("%s|%s|%d", k.LowID, k.HighID, k.ProductID)
}
