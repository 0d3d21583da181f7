// Package billing defines the adapter boundary to external billing
// providers. The application core computes adjustments; providers fetch
// draft invoices and apply the resulting discount as a single line item.
package billing

import (
	"context"
	"errors"
)

// InvoiceStatus is the provider-side lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusOpen  InvoiceStatus = "open"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

// Invoice is the provider-neutral view of an invoice. Amounts are in the
// smallest currency unit. Total is the provider's own tax-included total;
// zero means the provider did not report one.
type Invoice struct {
	ID         string
	CustomerID string
	Currency   string
	Subtotal   int64
	Total      int64
	Status     InvoiceStatus
}

// LineItem is a pending invoice line. A discount is applied with a
// negative Amount, a surcharge with a positive one.
type LineItem struct {
	Amount      int64
	Description string
	Metadata    map[string]string
}

// ErrInvoiceNotFound is returned when the provider has no such invoice.
var ErrInvoiceNotFound = errors.New("invoice not found")

// Provider is the interface every billing backend must implement.
type Provider interface {
	// Provider identification
	Name() string        // "stripe", "fake", etc.
	DisplayName() string // "Stripe", "Fake", etc.

	// GetInvoice fetches a single invoice by provider ID.
	GetInvoice(ctx context.Context, id string) (*Invoice, error)

	// CreateLineItem attaches a line item to an invoice and returns the
	// provider's ID for the created item. Providers must apply it as one
	// atomic remote write.
	CreateLineItem(ctx context.Context, invoiceID string, item LineItem) (string, error)

	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error
}
