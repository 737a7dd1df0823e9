// Package whatsapp sends candidate notifications through a gowa-compatible
// WhatsApp gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"estate_portal_backend/internal/channel"
	"estate_portal_backend/platform/config"
	"estate_portal_backend/platform/logger"
	"estate_portal_backend/platform/phone"

	"github.com/google/uuid"
)

// sendAttempts bounds the internal retry for one candidate. Anything beyond
// this surfaces as a DeliveryError and is the caller's problem.
const sendAttempts = 2

type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	log      *logger.Logger
}

type gowaRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type gowaResponse struct {
	Results struct {
		MessageID string `json:"message_id"`
	} `json:"results"`
}

// NewClient creates the gateway client, or nil when no URL is configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// Send delivers one message and returns the gateway's delivery id.
func (c *Client) Send(ctx context.Context, contactHandle, message string) (string, error) {
	if c == nil {
		return "", channel.NewDeliveryError(contactHandle, fmt.Errorf("whatsapp client not configured"))
	}

	normalized := strings.TrimPrefix(phone.NormalizeE164(contactHandle), "+")

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", channel.NewDeliveryError(contactHandle, ctx.Err())
		}

		deliveryID, err := c.sendOnce(ctx, normalized, message)
		if err == nil {
			c.log.Info("whatsapp sent via gowa", "phone", normalized, "deliveryId", deliveryID)
			return deliveryID, nil
		}
		lastErr = err
	}

	return "", channel.NewDeliveryError(contactHandle, lastErr)
}

func (c *Client) sendOnce(ctx context.Context, normalizedPhone, message string) (string, error) {
	payload := gowaRequest{
		Phone:   normalizedPhone,
		Message: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whatsapp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed gowaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Results.MessageID == "" {
		// Older gateways return no body; synthesize an id so the caller
		// always gets a delivery reference.
		return uuid.NewString(), nil
	}
	return parsed.Results.MessageID, nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}

var _ channel.Sender = (*Client)(nil)
