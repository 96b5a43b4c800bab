package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pasartani/internal/domain/repository"
	"pasartani/pkg/errors"
	"pasartani/pkg/logger"
)

// Client is the REST boundary. Every call either yields a success envelope
// payload or a uniform COMMAND_FAILED error; the sync core never retries on
// its own.
type Client struct {
	baseURL string
	http    *http.Client
	creds   repository.CredentialStore
}

func NewClient(baseURL string, timeout time.Duration, creds repository.CredentialStore) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
	}
}

type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    bool            `json:"error"`
	Message  string          `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Internal("failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Internal("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.creds != nil {
		if token, _, err := c.creds.Session(); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logger.Debug("API %s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Unavailable(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Internal("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		json.Unmarshal(data, &env)
		message := env.Message
		if message == "" {
			message = resp.Status
		}
		return errors.New("COMMAND_FAILED", message, resp.StatusCode, nil)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Internal("failed to decode response envelope", err)
	}
	payload := env.Response
	if payload == nil {
		payload = data
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Internal("failed to decode response payload", err)
	}
	return nil
}
