package storage

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	AdjustmentRepository
	ReconcileRunRepository
	Close() error
}

// AdjustmentRepository handles adjustment audit records
type AdjustmentRepository interface {
	// SaveRecord saves or updates an adjustment record
	SaveRecord(record *AdjustmentRecord) error

	// GetRecord retrieves a record by its request ID
	GetRecord(requestID string) (*AdjustmentRecord, error)

	// GetLatestForInvoice retrieves the most recent record for an invoice
	GetLatestForInvoice(provider, invoiceID string) (*AdjustmentRecord, error)

	// ListAdjustments returns records matching the given filters with pagination
	ListAdjustments(filters AdjustmentFilters) (*AdjustmentListResult, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// AdjustmentFilters defines filters for listing adjustment records
type AdjustmentFilters struct {
	Provider  string // Filter by billing provider (empty = all)
	InvoiceID string // Filter by invoice (empty = all)
	Status    string // Filter by status (empty = all)
	Limit     int    // Max results (0 = default 50)
	Offset    int    // Pagination offset
	OrderDesc bool   // Sort by applied_at descending (default true in handlers)
}

// AdjustmentListResult contains paginated adjustment records
type AdjustmentListResult struct {
	Adjustments []*AdjustmentRecord `json:"adjustments"`
	TotalCount  int                 `json:"total_count"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// ReconcileRunRepository handles reconcile run tracking
type ReconcileRunRepository interface {
	// StartReconcileRun records the start of a run and returns the run ID
	StartReconcileRun(provider string, invoiceCount int, dryRun bool) (int64, error)

	// CompleteReconcileRun records the completion of a run
	CompleteReconcileRun(runID int64, adjusted, skipped, errored int) error

	// GetReconcileRun retrieves a run by ID
	GetReconcileRun(runID int64) (*ReconcileRun, error)

	// ListReconcileRuns returns recent runs
	ListReconcileRuns(limit int) ([]ReconcileRun, error)
}
