// Package notify implements the outbound reply transport against the chat
// platform's bot HTTP API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"

	"github.com/seito-lab/taskfunnel/pkg/domain/interfaces"
	"github.com/seito-lab/taskfunnel/pkg/utils/safe"
)

const defaultBaseURL = "https://api.telegram.org"

// Client sends replies through the bot API
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

var _ interfaces.Notifier = &Client{}

// Option is a functional option for Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a bot API client with the given bot token
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
	Text             string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendReply posts a message to the conversation, threaded onto the message
// that triggered it
func (c *Client) SendReply(ctx context.Context, conversationID, inReplyTo int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:           conversationID,
		ReplyToMessageID: inReplyTo,
		Text:             text,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to encode sendMessage request")
	}

	url := c.baseURL + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to build sendMessage request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to call bot API")
	}
	defer safe.Close(ctx, resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return goerr.Wrap(err, "failed to read bot API response")
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return goerr.Wrap(err, "failed to decode bot API response",
			goerr.V("status", resp.StatusCode),
		)
	}
	if !parsed.OK {
		return goerr.New("bot API rejected the message",
			goerr.V("status", resp.StatusCode),
			goerr.V("description", parsed.Description),
			goerr.V("conversation_id", conversationID),
		)
	}
	return nil
}
