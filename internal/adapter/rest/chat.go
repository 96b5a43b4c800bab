package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"pasartani/internal/domain/entity"
)

func (c *Client) FetchChatHistory(ctx context.Context, partnerID string) ([]entity.ChatMessage, error) {
	var list []entity.ChatMessage
	path := fmt.Sprintf("/chats/%s/messages", url.PathEscape(partnerID))
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

type SendChatInput struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	ProductID  int64  `json:"productId"`
	Content    string `json:"content"`
}

type sendChatResponse struct {
	ID int64 `json:"id"`
}

// SendChatMessage transmits one chat line and returns the server-assigned
// message id.
func (c *Client) SendChatMessage(ctx context.Context, input SendChatInput) (int64, error) {
	var resp sendChatResponse
	if err := c.do(ctx, http.MethodPost, "/chats/send", input, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}
