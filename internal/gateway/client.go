// Package gateway implements the delivery-channel adapter over the HTTP
// API of a messaging gateway sidecar. The gateway owns the channel session
// lifecycle; this client only observes readiness and forwards payloads.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/phamtq/msg-delivery/internal/delivery/domain"
)

// Config holds gateway client configuration
type Config struct {
	BaseURL string
}

// Client talks to the messaging gateway. Calls carry no request timeout:
// the delivery contract imposes no deadline on channel operations.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(config *Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// IsReady reports whether the gateway has an authenticated channel
// session. Any transport or decode failure counts as not ready.
func (c *Client) IsReady() bool {
	resp, err := c.httpClient.Get(c.baseURL + "/api/status")
	if err != nil {
		c.logger.Debug("Gateway status check failed",
			slog.String("error", err.Error()),
		)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var status struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}

	return status.Ready
}

// RecipientExists checks whether addr is a known recipient on the channel.
func (c *Client) RecipientExists(ctx context.Context, addr string) (bool, error) {
	endpoint := c.baseURL + "/api/contacts/" + url.PathEscape(addr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, domain.NewChannelError("recipient lookup", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, domain.NewChannelError("recipient lookup", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, domain.NewChannelError("recipient lookup",
			fmt.Errorf("unexpected gateway status %d", resp.StatusCode))
	}
}

// SendText forwards a plain text message to addr.
func (c *Client) SendText(ctx context.Context, addr, text string) error {
	payload := map[string]string{
		"chat_id": addr,
		"text":    text,
	}
	return c.post(ctx, "/api/messages", "send text", payload)
}

// SendMedia forwards a media payload to addr.
func (c *Client) SendMedia(ctx context.Context, addr string, media domain.Media) error {
	payload := map[string]string{
		"chat_id":  addr,
		"mimetype": media.MimeType,
		"data":     media.Data,
	}
	if media.Caption != "" {
		payload["caption"] = media.Caption
	}
	return c.post(ctx, "/api/messages/media", "send media", payload)
}

func (c *Client) post(ctx context.Context, path, op string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewChannelError(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return domain.NewChannelError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewChannelError(op, err)
	}
	defer resp.Body.Close()

	// The gateway answers 404 when the recipient disappeared between the
	// existence check and the send. Permanent: retrying cannot change it.
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, domain.ErrRecipientNotFound)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.NewChannelError(op,
			fmt.Errorf("unexpected gateway status %d", resp.StatusCode))
	}

	return nil
}
