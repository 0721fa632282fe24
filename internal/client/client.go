// Package client talks to a running support chat relay.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"supportchat/internal/models"
)

// StatusError is returned when the relay answers with a non-200 status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the relay at baseURL. A nil httpClient means
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Stream posts the conversation and copies the answer to w as it arrives.
// It returns the number of bytes written.
func (c *Client) Stream(ctx context.Context, msgs []models.ChatMessage, w io.Writer) (int64, error) {
	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(msgs)
	if err != nil {
		return 0, fmt.Errorf("encode conversation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("stream interrupted after %d bytes: %w", n, err)
	}
	return n, nil
}

// Ask sends a single-question conversation.
func (c *Client) Ask(ctx context.Context, question string, w io.Writer) (int64, error) {
	return c.Stream(ctx, []models.ChatMessage{{Role: models.RoleUser, Content: question}}, w)
}

// ReadConversation decodes a JSON conversation document.
func ReadConversation(r io.Reader) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return msgs, nil
}
