// Package expo provides a client for the Expo push notification HTTP API.
//
// It covers the two calls the engine needs: sending a batch of push
// messages (which returns per-message tickets) and fetching delivery
// receipts for previously returned ticket ids.
package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// StatusOK and StatusError are the ticket/receipt statuses returned
	// by the provider.
	StatusOK    = "ok"
	StatusError = "error"

	// ErrorDeviceNotRegistered marks a permanently invalid push token;
	// further sends to it are pointless.
	ErrorDeviceNotRegistered = "DeviceNotRegistered"

	// ReceiptBatchLimit is the provider's maximum number of ticket ids
	// per receipt request.
	ReceiptBatchLimit = 1000

	defaultBaseURL = "https://exp.host"
)

// Message is a single push notification to one device token.
type Message struct {
	To        string            `json:"to"`
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"body,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Sound     string            `json:"sound,omitempty"`
	Priority  string            `json:"priority,omitempty"`
	ChannelID string            `json:"channelId,omitempty"`
}

// ErrorDetails carries the provider's machine-readable error code.
type ErrorDetails struct {
	Error string `json:"error,omitempty"`
}

// Ticket is the immediate per-message outcome of a send. A ticket with
// StatusOK carries the id used later to fetch the delivery receipt.
type Ticket struct {
	Status  string        `json:"status"`
	ID      string        `json:"id,omitempty"`
	Message string        `json:"message,omitempty"`
	Details *ErrorDetails `json:"details,omitempty"`
}

// Receipt is the asynchronous delivery confirmation for one ticket.
type Receipt struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Details *ErrorDetails `json:"details,omitempty"`
}

// Client talks to an Expo-compatible push API endpoint.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewClient creates a push client. baseURL may be empty to use the public
// Expo endpoint; accessToken may be empty for unauthenticated projects.
func NewClient(baseURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// IsPushToken reports whether the value looks like a valid Expo push token.
func IsPushToken(token string) bool {
	return (strings.HasPrefix(token, "ExponentPushToken[") ||
		strings.HasPrefix(token, "ExpoPushToken[")) &&
		strings.HasSuffix(token, "]")
}

// SendBatch sends messages and returns one ticket per message, in order.
func (c *Client) SendBatch(ctx context.Context, messages []Message) ([]Ticket, error) {
	var res struct {
		Data []Ticket `json:"data"`
	}
	if err := c.post(ctx, "/--/api/v2/push/send", messages, &res); err != nil {
		return nil, err
	}
	if len(res.Data) != len(messages) {
		return nil, fmt.Errorf("expo: got %d tickets for %d messages", len(res.Data), len(messages))
	}
	return res.Data, nil
}

// GetReceipts fetches delivery receipts for the given ticket ids. Tickets
// the provider has not resolved yet are absent from the result.
func (c *Client) GetReceipts(ctx context.Context, ticketIDs []string) (map[string]Receipt, error) {
	if len(ticketIDs) > ReceiptBatchLimit {
		return nil, fmt.Errorf("expo: receipt batch of %d exceeds limit %d", len(ticketIDs), ReceiptBatchLimit)
	}

	req := struct {
		IDs []string `json:"ids"`
	}{IDs: ticketIDs}

	var res struct {
		Data map[string]Receipt `json:"data"`
	}
	if err := c.post(ctx, "/--/api/v2/push/getReceipts", req, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo API error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
