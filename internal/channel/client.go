// Package channel is the client for the messaging provider, used only on
// the forceNow path where an already-due job is executed synchronously
// instead of waiting for queue consumption.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
)

// Client calls the messaging provider's send API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a new messaging channel client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendRequest is the provider's wire format. Exactly one of Text or
// Template is set, mirroring the template kinds.
type sendRequest struct {
	To       string        `json:"to"`
	Text     string        `json:"text,omitempty"`
	Template *sendTemplate `json:"template,omitempty"`
}

type sendTemplate struct {
	Name       string   `json:"name"`
	Language   string   `json:"language"`
	Parameters []string `json:"parameters"`
}

type sendResponse struct {
	Status string `json:"status"`
}

// SendNow delivers a rendered job immediately and returns the provider's
// delivery status.
func (c *Client) SendNow(ctx context.Context, job *domain.ScheduledJob) (string, error) {
	body := sendRequest{To: job.Recipient}
	switch job.Payload.Kind {
	case domain.TemplateKindStructured:
		body.Template = &sendTemplate{
			Name:       job.Payload.StructuredName,
			Language:   job.Payload.Language,
			Parameters: job.Payload.OrderedParams,
		}
	default:
		body.Text = job.Payload.Content
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/messages", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach messaging provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("messaging provider returned status %d", resp.StatusCode)
	}

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode delivery status: %w", err)
	}

	return result.Status, nil
}
