// Package client is the Go consumer of the chat API: it sends a
// conversation, decodes the streamed reply incrementally and drives the
// bounded retry policy for failed exchanges.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ragchat-io/ragchat/internal/domain"
)

// Client talks to one ragchat server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// No client-side deadline: generation streams can be long and the
		// transport's own defaults apply.
		httpClient: &http.Client{},
	}
}

// SendResult is the outcome of one successful exchange.
type SendResult struct {
	Text     string
	Metadata domain.ChatResponseMetadata
}

// Send posts the conversation and consumes the streamed reply, invoking
// onDelta for every text fragment as it arrives.
func (c *Client) Send(ctx context.Context, req *domain.ChatRequest, onDelta func(string)) (*SendResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Detail: readErrorDetail(resp.Body)}
	}

	text, err := ConsumeStream(resp.Body, onDelta)
	if err != nil {
		return nil, err
	}

	return &SendResult{
		Text:     text,
		Metadata: ParseMetadata(resp.Header),
	}, nil
}

func readErrorDetail(r io.Reader) string {
	var body domain.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err != nil {
		return ""
	}
	if body.Details != "" {
		return body.Error + " (" + body.Details + ")"
	}
	return body.Error
}
