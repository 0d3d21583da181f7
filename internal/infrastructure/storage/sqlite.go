package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for adjustment records.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveRecord saves or updates an adjustment record
func (s *Storage) SaveRecord(record *AdjustmentRecord) error {
	if record.AppliedAt.IsZero() {
		record.AppliedAt = time.Now()
	}

	query := `
	INSERT OR REPLACE INTO adjustments
	(request_id, provider, invoice_id, currency, subtotal, target_total,
	 tax_rate, round_mode, discount, adjusted_subtotal, tax_amount,
	 final_total, status, error_message, line_item_id, dry_run, applied_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		record.RequestID,
		record.Provider,
		record.InvoiceID,
		record.Currency,
		record.Subtotal,
		record.TargetTotal,
		record.TaxRate,
		record.RoundMode,
		record.Discount,
		record.AdjustedSubtotal,
		record.TaxAmount,
		record.FinalTotal,
		record.Status,
		record.ErrorMessage,
		record.LineItemID,
		record.DryRun,
		record.AppliedAt,
	)

	return err
}

const adjustmentColumns = `
	id, request_id, provider, invoice_id, currency, subtotal, target_total,
	tax_rate, round_mode, discount, adjusted_subtotal, tax_amount,
	final_total, status, error_message, line_item_id, dry_run, applied_at`

// GetRecord retrieves a record by its request ID
func (s *Storage) GetRecord(requestID string) (*AdjustmentRecord, error) {
	query := `SELECT` + adjustmentColumns + ` FROM adjustments WHERE request_id = ?`

	record, err := scanAdjustment(s.db.QueryRow(query, requestID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

// GetLatestForInvoice retrieves the most recent record for an invoice
func (s *Storage) GetLatestForInvoice(provider, invoiceID string) (*AdjustmentRecord, error) {
	query := `SELECT` + adjustmentColumns + `
	FROM adjustments
	WHERE provider = ? AND invoice_id = ?
	ORDER BY applied_at DESC, id DESC
	LIMIT 1`

	record, err := scanAdjustment(s.db.QueryRow(query, provider, invoiceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

// ListAdjustments returns records matching the given filters with pagination
func (s *Storage) ListAdjustments(filters AdjustmentFilters) (*AdjustmentListResult, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filters.Provider != "" {
		where += " AND provider = ?"
		args = append(args, filters.Provider)
	}
	if filters.InvoiceID != "" {
		where += " AND invoice_id = ?"
		args = append(args, filters.InvoiceID)
	}
	if filters.Status != "" {
		where += " AND status = ?"
		args = append(args, filters.Status)
	}

	// Count before pagination
	var totalCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM adjustments"+where, args...).Scan(&totalCount); err != nil {
		return nil, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	direction := "ASC"
	if filters.OrderDesc {
		direction = "DESC"
	}

	query := "SELECT" + adjustmentColumns + " FROM adjustments" + where +
		" ORDER BY applied_at " + direction + ", id " + direction +
		" LIMIT ? OFFSET ?"
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := &AdjustmentListResult{
		Adjustments: make([]*AdjustmentRecord, 0),
		TotalCount:  totalCount,
		Limit:       limit,
		Offset:      filters.Offset,
	}

	for rows.Next() {
		record, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		result.Adjustments = append(result.Adjustments, record)
	}

	return result, rows.Err()
}

// GetStats returns aggregate statistics
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}

	query := `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN discount ELSE 0 END), 0)
	FROM adjustments
	`

	err := s.db.QueryRow(query, StatusApplied, StatusFailed, StatusDryRun, StatusApplied).Scan(
		&stats.TotalAdjustments,
		&stats.AppliedCount,
		&stats.FailedCount,
		&stats.DryRunCount,
		&stats.TotalDiscount,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// StartReconcileRun records the start of a run and returns the run ID
func (s *Storage) StartReconcileRun(provider string, invoiceCount int, dryRun bool) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO reconcile_runs (provider, invoice_count, dry_run, started_at, status)
		VALUES (?, ?, ?, ?, 'running')
	`, provider, invoiceCount, dryRun, time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompleteReconcileRun records the completion of a run
func (s *Storage) CompleteReconcileRun(runID int64, adjusted, skipped, errored int) error {
	status := "completed"
	if errored > 0 {
		status = "completed_with_errors"
	}

	_, err := s.db.Exec(`
		UPDATE reconcile_runs
		SET adjusted = ?, skipped = ?, errored = ?, completed_at = ?, status = ?
		WHERE id = ?
	`, adjusted, skipped, errored, time.Now(), status, runID)
	return err
}

// GetReconcileRun retrieves a run by ID
func (s *Storage) GetReconcileRun(runID int64) (*ReconcileRun, error) {
	row := s.db.QueryRow(`
		SELECT id, provider, invoice_count, adjusted, skipped, errored,
		       dry_run, started_at, completed_at, status
		FROM reconcile_runs WHERE id = ?
	`, runID)

	run, err := scanReconcileRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ListReconcileRuns returns recent runs
func (s *Storage) ListReconcileRuns(limit int) ([]ReconcileRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, provider, invoice_count, adjusted, skipped, errored,
		       dry_run, started_at, completed_at, status
		FROM reconcile_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]ReconcileRun, 0)
	for rows.Next() {
		run, err := scanReconcileRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAdjustment(row scanner) (*AdjustmentRecord, error) {
	record := &AdjustmentRecord{}
	var errorMessage, lineItemID sql.NullString

	err := row.Scan(
		&record.ID,
		&record.RequestID,
		&record.Provider,
		&record.InvoiceID,
		&record.Currency,
		&record.Subtotal,
		&record.TargetTotal,
		&record.TaxRate,
		&record.RoundMode,
		&record.Discount,
		&record.AdjustedSubtotal,
		&record.TaxAmount,
		&record.FinalTotal,
		&record.Status,
		&errorMessage,
		&lineItemID,
		&record.DryRun,
		&record.AppliedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ErrorMessage = errorMessage.String
	record.LineItemID = lineItemID.String
	return record, nil
}

func scanReconcileRun(row scanner) (*ReconcileRun, error) {
	run := &ReconcileRun{}
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.Provider,
		&run.InvoiceCount,
		&run.Adjusted,
		&run.Skipped,
		&run.Errored,
		&run.DryRun,
		&run.StartedAt,
		&completedAt,
		&run.Status,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}
