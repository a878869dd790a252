// Package billing is the client for the subscription data source. The
// engine only reads from it; retries and consistency are the billing
// platform's concern.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	apperrors "github.com/vhvplatform/go-billing-notifier/internal/shared/errors"
)

// Client calls the billing platform's REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new billing client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetSubscriptionContext loads the billing state for one subscription.
func (c *Client) GetSubscriptionContext(ctx context.Context, subscriptionID string) (*domain.SubscriptionContext, error) {
	url := fmt.Sprintf("%s/api/v1/subscriptions/%s", c.baseURL, subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach billing service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("subscription not found", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("billing service returned status %d", resp.StatusCode)
	}

	var sub domain.SubscriptionContext
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("failed to decode subscription context: %w", err)
	}
	if sub.SubscriptionID == "" {
		sub.SubscriptionID = subscriptionID
	}

	return &sub, nil
}
