package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"pasartani/internal/domain/entity"
)

func (c *Client) FetchUser(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	path := fmt.Sprintf("/users/%s", url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (c *Client) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
