package rest

import (
	"context"
	"fmt"
	"net/http"

	"pasartani/internal/domain/entity"
)

func (c *Client) FetchNotifications(ctx context.Context, role entity.NotificationRole) ([]entity.Notification, error) {
	var list []entity.Notification
	path := fmt.Sprintf("/notifications?role=%s", role)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

type respondRequest struct {
	Status entity.RequestStatus `json:"status"`
}

func (c *Client) RespondToNotification(ctx context.Context, id int64, status entity.RequestStatus) error {
	path := fmt.Sprintf("/notifications/%d/respond", id)
	return c.do(ctx, http.MethodPost, path, respondRequest{Status: status}, nil)
}
