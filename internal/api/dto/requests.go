package dto

// PreviewRequest asks the solver what discount would settle a subtotal
// at a target tax-included total. Amounts are integers in the smallest
// currency unit; the tax rate is a decimal string such as "0.1".
type PreviewRequest struct {
	Subtotal    int64  `json:"subtotal"`
	TargetTotal int64  `json:"target_total"`
	TaxRate     string `json:"tax_rate"`
	RoundMode   string `json:"round_mode,omitempty"`
}

// ApplyAdjustmentRequest applies an adjustment to a provider invoice.
// The invoice ID comes from the URL path.
type ApplyAdjustmentRequest struct {
	TargetTotal int64  `json:"target_total"`
	TaxRate     string `json:"tax_rate"`
	RoundMode   string `json:"round_mode,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Description string `json:"description,omitempty"`
	DryRun      bool   `json:"dry_run,omitempty"`
}

// ReconcileTargetRequest pairs an invoice with its desired total.
type ReconcileTargetRequest struct {
	InvoiceID   string `json:"invoice_id"`
	TargetTotal int64  `json:"target_total"`
}

// StartReconcileRequest starts a batch reconcile job.
type StartReconcileRequest struct {
	Provider  string                   `json:"provider,omitempty"`
	Targets   []ReconcileTargetRequest `json:"targets"`
	TaxRate   string                   `json:"tax_rate"`
	RoundMode string                   `json:"round_mode,omitempty"`
	DryRun    bool                     `json:"dry_run,omitempty"`
}

// AdjustmentListParams represents query parameters for listing adjustments.
type AdjustmentListParams struct {
	Provider  string `json:"provider"`
	InvoiceID string `json:"invoice_id"`
	Status    string `json:"status"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}
