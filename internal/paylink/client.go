// Package paylink is the client for the payment-link service. The ensure
// call is idempotent on the server: create if absent, return the existing
// link otherwise.
package paylink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
)

// Client calls the payment-link service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new payment-link client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// EnsurePaymentLink makes sure a checkout link exists for the subscription
// and returns it.
func (c *Client) EnsurePaymentLink(ctx context.Context, subscriptionID string) (*domain.PaymentLink, error) {
	url := fmt.Sprintf("%s/api/v1/subscriptions/%s/payment-link", c.baseURL, subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment-link service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment-link service returned status %d", resp.StatusCode)
	}

	var link domain.PaymentLink
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return nil, fmt.Errorf("failed to decode payment link: %w", err)
	}

	return &link, nil
}
