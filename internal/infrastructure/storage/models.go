package storage

import "time"

// Adjustment record statuses
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
	StatusDryRun  = "dry-run"
)

// AdjustmentRecord is the audit trail for one adjustment attempt against
// a billing provider. Amounts are integers in the smallest currency unit;
// the tax rate is stored as its decimal string to stay exact.
type AdjustmentRecord struct {
	ID               int64     `json:"id"`
	RequestID        string    `json:"request_id"`
	Provider         string    `json:"provider"`
	InvoiceID        string    `json:"invoice_id"`
	Currency         string    `json:"currency"`
	Subtotal         int64     `json:"subtotal"`
	TargetTotal      int64     `json:"target_total"`
	TaxRate          string    `json:"tax_rate"`
	RoundMode        string    `json:"round_mode"`
	Discount         int64     `json:"discount"`
	AdjustedSubtotal int64     `json:"adjusted_subtotal"`
	TaxAmount        int64     `json:"tax_amount"`
	FinalTotal       int64     `json:"final_total"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	LineItemID       string    `json:"line_item_id,omitempty"`
	DryRun           bool      `json:"dry_run"`
	AppliedAt        time.Time `json:"applied_at"`
}

// Stats holds aggregate statistics over all adjustment records
type Stats struct {
	TotalAdjustments int   `json:"total_adjustments"`
	AppliedCount     int   `json:"applied_count"`
	FailedCount      int   `json:"failed_count"`
	DryRunCount      int   `json:"dry_run_count"`
	TotalDiscount    int64 `json:"total_discount"`
}

// ReconcileRun represents one batch reconcile over a set of invoices
type ReconcileRun struct {
	ID           int64      `json:"id"`
	Provider     string     `json:"provider"`
	InvoiceCount int        `json:"invoice_count"`
	Adjusted     int        `json:"adjusted"`
	Skipped      int        `json:"skipped"`
	Errored      int        `json:"errored"`
	DryRun       bool       `json:"dry_run"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Status       string     `json:"status"`
}
