package websocket

import (
	"encoding/json"
	"fmt"

	"pasartani/internal/domain/entity"
)

// Decoding is pure: no I/O, no store mutation. Callers log the error and
// drop the frame so one bad payload can never tear down the read loop.

func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if f.Topic == "" {
		return Frame{}, fmt.Errorf("frame without topic")
	}
	return f, nil
}

func DecodeNotification(body []byte) (entity.Notification, error) {
	var n entity.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return entity.Notification{}, fmt.Errorf("malformed notification payload: %w", err)
	}
	if n.ID == 0 {
		return entity.Notification{}, fmt.Errorf("notification payload without id")
	}
	if n.Status == "" {
		n.Status = entity.RequestPending
	}
	return n, nil
}

func DecodeChatMessage(body []byte) (entity.ChatMessage, error) {
	var m entity.ChatMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return entity.ChatMessage{}, fmt.Errorf("malformed chat payload: %w", err)
	}
	if m.SenderID == "" || m.ReceiverID == "" {
		return entity.ChatMessage{}, fmt.Errorf("chat payload without participants")
	}
	m.Status = entity.DeliverySent
	return m, nil
}
