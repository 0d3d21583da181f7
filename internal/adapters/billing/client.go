package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultTimeout    = 8 * time.Second
	defaultRetryMax   = 3
	idempotencyHeader = "Idempotency-Key"
)

// ClientConfig configures an HTTP billing provider.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to a REST billing API (Stripe-style: draft invoices,
// pending line items). It implements Provider.
type Client struct {
	name        string
	displayName string
	baseURL     string
	apiKey      string
	http        *retryablehttp.Client
	logger      *slog.Logger
}

// Compile-time check that Client implements Provider
var _ Provider = (*Client)(nil)

// NewClient creates an HTTP billing provider.
func NewClient(name, displayName string, cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil // we log request outcomes ourselves

	return &Client{
		name:        name,
		displayName: displayName,
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      cfg.APIKey,
		http:        rc,
		logger:      logger,
	}
}

// Name returns the provider's registry key.
func (c *Client) Name() string { return c.name }

// DisplayName returns the human-readable provider name.
func (c *Client) DisplayName() string { return c.displayName }

// invoicePayload mirrors the wire format of an invoice.
type invoicePayload struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Currency   string `json:"currency"`
	Subtotal   int64  `json:"subtotal"`
	Total      int64  `json:"total"`
	Status     string `json:"status"`
}

// lineItemPayload mirrors the wire format of a pending line item.
type lineItemPayload struct {
	ID          string            `json:"id,omitempty"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// GetInvoice fetches an invoice by ID.
func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	endpoint, err := url.JoinPath(c.baseURL, "invoices", id)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("invoice %s: %w", id, ErrInvoiceNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("get invoice %s: status %d: %s", id, resp.StatusCode, drainError(resp.Body))
	}

	var payload invoicePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("get invoice %s: decode: %w", id, err)
	}

	return &Invoice{
		ID:         payload.ID,
		CustomerID: payload.CustomerID,
		Currency:   payload.Currency,
		Subtotal:   payload.Subtotal,
		Total:      payload.Total,
		Status:     InvoiceStatus(payload.Status),
	}, nil
}

// CreateLineItem attaches a line item to an invoice. The request carries
// an idempotency key so a retried call cannot apply the discount twice.
func (c *Client) CreateLineItem(ctx context.Context, invoiceID string, item LineItem) (string, error) {
	endpoint, err := url.JoinPath(c.baseURL, "invoices", invoiceID, "line_items")
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(lineItemPayload{
		Amount:      item.Amount,
		Description: item.Description,
		Metadata:    item.Metadata,
	})
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create line item on %s: %w", invoiceID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("invoice %s: %w", invoiceID, ErrInvoiceNotFound)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("create line item on %s: status %d: %s", invoiceID, resp.StatusCode, drainError(resp.Body))
	}

	var payload lineItemPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("create line item on %s: decode: %w", invoiceID, err)
	}

	c.logger.Info("created line item",
		slog.String("provider", c.name),
		slog.String("invoice_id", invoiceID),
		slog.String("line_item_id", payload.ID),
		slog.Int64("amount", item.Amount),
	)

	return payload.ID, nil
}

// HealthCheck verifies the billing API responds.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint, err := url.JoinPath(c.baseURL, "health")
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *retryablehttp.Request, idempotencyKey string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}
}

// drainError reads a short error body for diagnostics.
func drainError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(data) == 0 {
		return "<no body>"
	}
	return strings.TrimSpace(string(data))
}
