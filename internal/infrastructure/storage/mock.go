package storage

import (
	"sort"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	records   map[string]*AdjustmentRecord // keyed by request_id
	runs      map[int64]*ReconcileRun
	nextRunID int64

	// Hooks for test assertions
	SaveRecordCalled        bool
	LastSavedRecord         *AdjustmentRecord
	StartReconcileRunCalled bool

	// Error injection for testing error paths
	SaveRecordErr           error
	GetRecordErr            error
	ListAdjustmentsErr      error
	GetStatsErr             error
	StartReconcileRunErr    error
	CompleteReconcileRunErr error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		records:   make(map[string]*AdjustmentRecord),
		runs:      make(map[int64]*ReconcileRun),
		nextRunID: 1,
	}
}

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// AddRecord seeds a record directly, bypassing the hooks
func (m *MockRepository) AddRecord(record *AdjustmentRecord) {
	copied := *record
	if copied.ID == 0 {
		copied.ID = int64(len(m.records) + 1)
	}
	m.records[record.RequestID] = &copied
}

// SaveRecord saves a record to the in-memory map
func (m *MockRepository) SaveRecord(record *AdjustmentRecord) error {
	m.SaveRecordCalled = true
	m.LastSavedRecord = record
	if m.SaveRecordErr != nil {
		return m.SaveRecordErr
	}
	// Deep copy to avoid test mutations
	copied := *record
	if copied.ID == 0 {
		copied.ID = int64(len(m.records) + 1)
	}
	if copied.AppliedAt.IsZero() {
		copied.AppliedAt = time.Now()
	}
	m.records[record.RequestID] = &copied
	return nil
}

// GetRecord retrieves a record by request ID
func (m *MockRepository) GetRecord(requestID string) (*AdjustmentRecord, error) {
	if m.GetRecordErr != nil {
		return nil, m.GetRecordErr
	}
	record, ok := m.records[requestID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// GetLatestForInvoice retrieves the most recent record for an invoice
func (m *MockRepository) GetLatestForInvoice(provider, invoiceID string) (*AdjustmentRecord, error) {
	var latest *AdjustmentRecord
	for _, record := range m.records {
		if record.Provider != provider || record.InvoiceID != invoiceID {
			continue
		}
		if latest == nil || record.AppliedAt.After(latest.AppliedAt) {
			latest = record
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// ListAdjustments returns records matching the filters
func (m *MockRepository) ListAdjustments(filters AdjustmentFilters) (*AdjustmentListResult, error) {
	if m.ListAdjustmentsErr != nil {
		return nil, m.ListAdjustmentsErr
	}

	matched := make([]*AdjustmentRecord, 0)
	for _, record := range m.records {
		if filters.Provider != "" && record.Provider != filters.Provider {
			continue
		}
		if filters.InvoiceID != "" && record.InvoiceID != filters.InvoiceID {
			continue
		}
		if filters.Status != "" && record.Status != filters.Status {
			continue
		}
		copied := *record
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		if filters.OrderDesc {
			return matched[i].AppliedAt.After(matched[j].AppliedAt)
		}
		return matched[i].AppliedAt.Before(matched[j].AppliedAt)
	})

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	totalCount := len(matched)
	start := filters.Offset
	if start > totalCount {
		start = totalCount
	}
	end := start + limit
	if end > totalCount {
		end = totalCount
	}

	return &AdjustmentListResult{
		Adjustments: matched[start:end],
		TotalCount:  totalCount,
		Limit:       limit,
		Offset:      filters.Offset,
	}, nil
}

// GetStats returns aggregate statistics over the in-memory records
func (m *MockRepository) GetStats() (*Stats, error) {
	if m.GetStatsErr != nil {
		return nil, m.GetStatsErr
	}

	stats := &Stats{}
	for _, record := range m.records {
		stats.TotalAdjustments++
		switch record.Status {
		case StatusApplied:
			stats.AppliedCount++
			stats.TotalDiscount += record.Discount
		case StatusFailed:
			stats.FailedCount++
		case StatusDryRun:
			stats.DryRunCount++
		}
	}
	return stats, nil
}

// StartReconcileRun records the start of a run
func (m *MockRepository) StartReconcileRun(provider string, invoiceCount int, dryRun bool) (int64, error) {
	m.StartReconcileRunCalled = true
	if m.StartReconcileRunErr != nil {
		return 0, m.StartReconcileRunErr
	}

	id := m.nextRunID
	m.nextRunID++
	m.runs[id] = &ReconcileRun{
		ID:           id,
		Provider:     provider,
		InvoiceCount: invoiceCount,
		DryRun:       dryRun,
		StartedAt:    time.Now(),
		Status:       "running",
	}
	return id, nil
}

// CompleteReconcileRun records the completion of a run
func (m *MockRepository) CompleteReconcileRun(runID int64, adjusted, skipped, errored int) error {
	if m.CompleteReconcileRunErr != nil {
		return m.CompleteReconcileRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return nil
	}
	now := time.Now()
	run.Adjusted = adjusted
	run.Skipped = skipped
	run.Errored = errored
	run.CompletedAt = &now
	run.Status = "completed"
	if errored > 0 {
		run.Status = "completed_with_errors"
	}
	return nil
}

// GetReconcileRun retrieves a run by ID
func (m *MockRepository) GetReconcileRun(runID int64) (*ReconcileRun, error) {
	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

// ListReconcileRuns returns recent runs
func (m *MockRepository) ListReconcileRuns(limit int) ([]ReconcileRun, error) {
	if limit <= 0 {
		limit = 20
	}

	runs := make([]ReconcileRun, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].ID > runs[j].ID
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
