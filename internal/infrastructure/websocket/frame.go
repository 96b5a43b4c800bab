package websocket

import (
	"encoding/json"
	"fmt"
)

// Frame is one server push: the topic it was published on plus the raw
// serialized domain event.
type Frame struct {
	Topic string          `json:"topic"`
	Body  json.RawMessage `json:"body"`
}

// ControlFrame is the client -> server subscription protocol.
type ControlFrame struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Topic helpers. One topic per user and concern; all topics share the one
// transport session.

func SellerNotificationsTopic(userID string) string {
	return fmt.Sprintf("seller-notifications-%s", userID)
}

func BuyerNotificationsTopic(userID string) string {
	return fmt.Sprintf("buyer-notifications-%s", userID)
}

func ChatTopic(userID string) string {
	return fmt.Sprintf("chat-%s", userID)
}
