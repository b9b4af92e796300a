package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrBillingUnavailable marks failures talking to the Paddle API.
var ErrBillingUnavailable = errors.New("billing API unavailable")

// Config holds Paddle API client configuration.
type Config struct {
	BaseURL          string
	BearerToken      string
	Timeout          time.Duration
	DefaultAllowance int
	SubbedAllowance  int
}

// Subscription is the subset of a Paddle subscription the backend reads.
type Subscription struct {
	ID         string                 `json:"id"`
	Status     string                 `json:"status"`
	CustomerID string                 `json:"customer_id"`
	CustomData map[string]interface{} `json:"custom_data"`
}

// Transaction is the subset of a Paddle transaction the backend reads.
type Transaction struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// Client is a thin Paddle API client. It proxies subscription state for the
// billing endpoints and backs the usage-allowance check on the video
// generation hot path.
type Client struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned %d: %s", ErrBillingUnavailable, path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrBillingUnavailable, path, err)
	}
	return nil
}

// SubscriptionByEmail finds the subscription whose custom data carries the
// given customer email. Returns nil without error when none matches.
func (c *Client) SubscriptionByEmail(ctx context.Context, email string) (*Subscription, error) {
	var list listResponse[Subscription]
	if err := c.get(ctx, "/subscriptions", &list); err != nil {
		return nil, err
	}

	for i := range list.Data {
		sub := &list.Data[i]
		if v, ok := sub.CustomData["customer_email"].(string); ok && v == email {
			return sub, nil
		}
	}
	return nil, nil
}

// Transactions lists the customer's transactions, optionally narrowed to one
// subscription.
func (c *Client) Transactions(ctx context.Context, customerID, subscriptionID string) ([]Transaction, error) {
	var list listResponse[Transaction]
	if err := c.get(ctx, "/transactions", &list); err != nil {
		return nil, err
	}

	out := make([]Transaction, 0, len(list.Data))
	for _, txn := range list.Data {
		if txn.CustomerID != customerID {
			continue
		}
		if subscriptionID != "" && txn.SubscriptionID != subscriptionID {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

// CancelSubscription cancels a subscription effective immediately and
// returns Paddle's raw response body for the HTTP proxy layer.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (json.RawMessage, error) {
	payload, _ := json.Marshal(map[string]string{"effective_from": "immediately"})

	url := fmt.Sprintf("%s/subscriptions/%s/cancel", c.config.BaseURL, subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBillingUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: cancel returned %d: %s", ErrBillingUnavailable, resp.StatusCode, body)
	}
	return body, nil
}

// UpdatePaymentTransaction fetches the transaction Paddle uses to collect a
// new payment method for a subscription.
func (c *Client) UpdatePaymentTransaction(ctx context.Context, subscriptionID string) (json.RawMessage, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/subscriptions/%s/update-payment-method-transaction", subscriptionID)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// VideoAllowance returns how many generations the user's plan permits. The
// billing API sits on the job-submission hot path, so failures fail open to
// the default allowance instead of blocking generation.
func (c *Client) VideoAllowance(ctx context.Context, email string) int {
	sub, err := c.SubscriptionByEmail(ctx, email)
	if err != nil {
		c.logger.Warn("Billing check failed, using default allowance",
			slog.String("email", email),
			slog.Any("error", err),
		)
		return c.config.DefaultAllowance
	}
	if sub != nil && sub.Status == "active" {
		return c.config.SubbedAllowance
	}
	return c.config.DefaultAllowance
}
