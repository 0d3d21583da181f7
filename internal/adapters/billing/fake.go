package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory billing provider for tests and dry runs. Invoices
// are seeded up front; created line items are recorded but never leave
// the process.
type Fake struct {
	mu        sync.Mutex
	invoices  map[string]*Invoice
	lineItems map[string][]LineItem

	// Hooks for test assertions
	CreateLineItemCalled bool
	LastLineItem         *LineItem
	LastInvoiceID        string

	// Error injection for testing error paths
	GetInvoiceErr     error
	CreateLineItemErr error
	HealthCheckErr    error
}

// Compile-time check that Fake implements Provider
var _ Provider = (*Fake)(nil)

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		invoices:  make(map[string]*Invoice),
		lineItems: make(map[string][]LineItem),
	}
}

// Name returns the registry key for the fake provider.
func (f *Fake) Name() string { return "fake" }

// DisplayName returns the human-readable name.
func (f *Fake) DisplayName() string { return "Fake" }

// SeedInvoice adds an invoice to the fake's store.
func (f *Fake) SeedInvoice(inv Invoice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := inv
	f.invoices[inv.ID] = &copied
}

// GetInvoice returns a seeded invoice.
func (f *Fake) GetInvoice(_ context.Context, id string) (*Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GetInvoiceErr != nil {
		return nil, f.GetInvoiceErr
	}

	inv, ok := f.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, ErrInvoiceNotFound)
	}
	copied := *inv
	return &copied, nil
}

// CreateLineItem records the line item in memory.
func (f *Fake) CreateLineItem(_ context.Context, invoiceID string, item LineItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateLineItemCalled = true
	f.LastInvoiceID = invoiceID
	copied := item
	f.LastLineItem = &copied

	if f.CreateLineItemErr != nil {
		return "", f.CreateLineItemErr
	}
	if _, ok := f.invoices[invoiceID]; !ok {
		return "", fmt.Errorf("invoice %s: %w", invoiceID, ErrInvoiceNotFound)
	}

	f.lineItems[invoiceID] = append(f.lineItems[invoiceID], copied)
	return "li_" + uuid.NewString(), nil
}

// LineItems returns the items recorded for an invoice.
func (f *Fake) LineItems(invoiceID string) []LineItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LineItem(nil), f.lineItems[invoiceID]...)
}

// HealthCheck succeeds unless an error is injected.
func (f *Fake) HealthCheck(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HealthCheckErr
}
