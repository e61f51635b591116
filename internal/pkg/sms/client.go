// Package sms sends notification texts through an HTTP SMS gateway.
//
// Real carrier integration is owned by the gateway; when no gateway URL is
// configured the client logs the message and reports success, which keeps
// the SMS channel observable in development without a provider account.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

type Client struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
	log        zerolog.Logger
}

func NewClient(gatewayURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		client:     &http.Client{},
		log:        log,
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send delivers one text message to a phone number.
func (c *Client) Send(ctx context.Context, to, title, message string) error {
	text := title + ": " + message

	if c.gatewayURL == "" {
		c.log.Info().Str("to", to).Str("text", text).Msg("sms gateway not configured, message logged only")
		return nil
	}

	body, err := json.Marshal(sendRequest{To: to, Text: text})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway error: %s", resp.Status)
	}

	return nil
}
