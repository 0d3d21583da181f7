package dto

import "time"

// HealthResponse is returned by the health check endpoint. Providers
// maps each registered billing provider to "ok" or "unreachable".
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Providers map[string]string `json:"providers,omitempty"`
}

// OutcomeResponse is the solver result in API responses. When Valid is
// false, Reason explains why no exact discount exists and the amount
// fields describe the closest achievable adjustment.
type OutcomeResponse struct {
	Valid            bool   `json:"valid"`
	Discount         int64  `json:"discount"`
	AdjustedSubtotal int64  `json:"adjusted_subtotal"`
	TaxAmount        int64  `json:"tax_amount"`
	FinalTotal       int64  `json:"final_total"`
	Reason           string `json:"reason,omitempty"`
}

// ApplyAdjustmentResponse is returned after an adjustment is applied
// (or previewed against a live invoice in dry-run mode).
type ApplyAdjustmentResponse struct {
	RequestID  string          `json:"request_id"`
	Provider   string          `json:"provider"`
	InvoiceID  string          `json:"invoice_id"`
	Currency   string          `json:"currency,omitempty"`
	LineItemID string          `json:"line_item_id,omitempty"`
	DryRun     bool            `json:"dry_run"`
	Outcome    OutcomeResponse `json:"outcome"`
}

// AdjustmentResponse represents one audit record in API responses.
type AdjustmentResponse struct {
	ID               int64  `json:"id"`
	RequestID        string `json:"request_id"`
	Provider         string `json:"provider"`
	InvoiceID        string `json:"invoice_id"`
	Currency         string `json:"currency,omitempty"`
	Subtotal         int64  `json:"subtotal"`
	TargetTotal      int64  `json:"target_total"`
	TaxRate          string `json:"tax_rate"`
	RoundMode        string `json:"round_mode"`
	Discount         int64  `json:"discount"`
	AdjustedSubtotal int64  `json:"adjusted_subtotal"`
	TaxAmount        int64  `json:"tax_amount"`
	FinalTotal       int64  `json:"final_total"`
	Status           string `json:"status"`
	ErrorMessage     string `json:"error_message,omitempty"`
	LineItemID       string `json:"line_item_id,omitempty"`
	DryRun           bool   `json:"dry_run"`
	AppliedAt        string `json:"applied_at"`
}

// AdjustmentListResponse is returned when listing adjustments.
type AdjustmentListResponse struct {
	Adjustments []AdjustmentResponse `json:"adjustments"`
	TotalCount  int                  `json:"total_count"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalAdjustments int   `json:"total_adjustments"`
	AppliedCount     int   `json:"applied_count"`
	FailedCount      int   `json:"failed_count"`
	DryRunCount      int   `json:"dry_run_count"`
	TotalDiscount    int64 `json:"total_discount"`
}

// StartReconcileResponse is returned when a reconcile job is accepted.
type StartReconcileResponse struct {
	JobID    string `json:"job_id"`
	Provider string `json:"provider"`
	Status   string `json:"status"`
}

// ReconcileProgressResponse reports live progress of a reconcile job.
type ReconcileProgressResponse struct {
	CurrentPhase  string `json:"current_phase"`
	TotalInvoices int    `json:"total_invoices"`
	Adjusted      int    `json:"adjusted"`
	Skipped       int    `json:"skipped"`
	Errored       int    `json:"errored"`
	LastUpdate    string `json:"last_update"`
}

// ReconcileJobResponse represents a reconcile job in API responses.
type ReconcileJobResponse struct {
	JobID       string                    `json:"job_id"`
	Provider    string                    `json:"provider"`
	Status      string                    `json:"status"`
	DryRun      bool                      `json:"dry_run"`
	StartedAt   string                    `json:"started_at"`
	CompletedAt *string                   `json:"completed_at,omitempty"`
	Progress    ReconcileProgressResponse `json:"progress"`
	Errors      []string                  `json:"errors,omitempty"`
}

// ReconcileJobListResponse is returned when listing reconcile jobs.
type ReconcileJobListResponse struct {
	Jobs  []ReconcileJobResponse `json:"jobs"`
	Count int                    `json:"count"`
}

// MessageResponse is a simple confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Providers: make(map[string]string),
	}
}
